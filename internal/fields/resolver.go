package fields

import (
	"regexp"
	"sort"
	"strings"

	"github.com/obedier/zillow-wf/internal/payload"
)

// Source names the strategy that produced a resolved value
type Source string

const (
	SourceKnownPath   Source = "known_path"
	SourceRecursive   Source = "recursive"
	SourceCleanedText Source = "cleaned_text"
	SourceRawText     Source = "raw_text"
	SourcePageText    Source = "page_text"
	SourceNone        Source = "not_found"
)

// Recorder observes which strategy resolved each field, for completion
// reporting. It may be nil.
type Recorder func(field string, source Source)

// Resolver locates field values in a listing payload, trying progressively
// weaker strategies so extraction survives schema drift. Strategy order is
// fixed: exact lookup under known sections, bounded fuzzy tree search, then
// key-value patterns over the cleaned block, the raw block, and finally the
// whole page.
type Resolver struct {
	cfg      Config
	recorder Recorder

	variants map[string][]Variant
	patterns map[string][]*regexp.Regexp
}

// NewResolver builds a resolver from the given configuration
func NewResolver(cfg Config) *Resolver {
	return &Resolver{
		cfg:      cfg,
		variants: make(map[string][]Variant),
		patterns: make(map[string][]*regexp.Regexp),
	}
}

// OnResolve registers a strategy observer
func (r *Resolver) OnResolve(rec Recorder) {
	r.recorder = rec
}

// Resolve finds the named field in the cache tree, falling back to text
// patterns over the payload's raw forms. A null return means the field is
// absent from this listing; "null"/"undefined"/empty values count as absent.
func (r *Resolver) Resolve(field string, tree payload.Value, p *payload.Payload) payload.Value {
	variants := r.variantsOf(field)

	if v, ok := r.knownPath(tree, variants); ok {
		r.record(field, SourceKnownPath)
		return v
	}
	if v, ok := r.recursive(tree, variants, 0); ok {
		r.record(field, SourceRecursive)
		return v
	}

	if p != nil {
		if v, ok := r.textSearch(field, p.Cleaned()); ok {
			r.record(field, SourceCleanedText)
			return v
		}
		if v, ok := r.textSearch(field, p.Raw()); ok {
			r.record(field, SourceRawText)
			return v
		}
		if v, ok := r.textSearch(field, p.Page()); ok {
			r.record(field, SourcePageText)
			return v
		}
	}

	r.record(field, SourceNone)
	return payload.Null()
}

// ResolveCache is Resolve over a decoded client cache
func (r *Resolver) ResolveCache(field string, cache map[string]payload.Value, p *payload.Payload) payload.Value {
	return r.Resolve(field, payload.FromMap(cache), p)
}

func (r *Resolver) record(field string, source Source) {
	if r.recorder != nil {
		r.recorder(field, source)
	}
}

func (r *Resolver) variantsOf(field string) []Variant {
	if v, ok := r.variants[field]; ok {
		return v
	}
	v := variantsFor(r.cfg.definition(field))
	r.variants[field] = v
	return v
}

// knownPath checks the configured sections at the top of the tree for an
// exact strong-variant key.
func (r *Resolver) knownPath(tree payload.Value, variants []Variant) (payload.Value, bool) {
	for _, section := range r.cfg.KnownSections {
		m, ok := tree.Get(section).Map()
		if !ok {
			continue
		}
		for _, v := range variants {
			if v.Weak {
				continue
			}
			if found, ok := m[v.Name]; ok && !found.IsEmpty() {
				return found, true
			}
		}
	}
	return payload.Null(), false
}

// recursive walks the tree depth-first looking for keys that fuzzily match
// any variant. A key matches when either string contains the other,
// case-insensitively. Keys are visited in sorted order so resolution is
// deterministic for a given payload.
func (r *Resolver) recursive(node payload.Value, variants []Variant, depth int) (payload.Value, bool) {
	if depth >= r.cfg.MaxDepth {
		return payload.Null(), false
	}

	if m, ok := node.Map(); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			child := m[k]
			if keyMatches(k, variants) && !child.IsEmpty() {
				return child, true
			}
			if found, ok := r.recursive(child, variants, depth+1); ok {
				return found, true
			}
		}
		return payload.Null(), false
	}

	if l, ok := node.List(); ok {
		for _, item := range l {
			if found, ok := r.recursive(item, variants, depth+1); ok {
				return found, true
			}
		}
	}

	return payload.Null(), false
}

func keyMatches(key string, variants []Variant) bool {
	lowerKey := strings.ToLower(key)
	for _, v := range variants {
		lowerVar := strings.ToLower(v.Name)
		if strings.Contains(lowerKey, lowerVar) || strings.Contains(lowerVar, lowerKey) {
			return true
		}
	}
	return false
}

// textSearch runs the field's key-value patterns over one text form
func (r *Resolver) textSearch(field, text string) (payload.Value, bool) {
	if text == "" {
		return payload.Null(), false
	}
	for _, pattern := range r.patternsOf(field) {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			candidate := strings.TrimSpace(m[1])
			if candidate == "" {
				continue
			}
			if lower := strings.ToLower(candidate); lower == "null" || lower == "undefined" {
				continue
			}
			return payload.FromString(candidate), true
		}
	}
	return payload.Null(), false
}

// patternsOf compiles the four key-value shapes per strong variant: quoted
// and bare keys crossed with quoted and bare values.
func (r *Resolver) patternsOf(field string) []*regexp.Regexp {
	if p, ok := r.patterns[field]; ok {
		return p
	}

	var patterns []*regexp.Regexp
	for _, v := range strongVariants(r.variantsOf(field)) {
		quoted := regexp.QuoteMeta(v.Name)
		patterns = append(patterns,
			regexp.MustCompile(`(?i)"`+quoted+`"\s*:\s*"([^"]+)"`),
			regexp.MustCompile(`(?i)"`+quoted+`"\s*:\s*([^,\s}"]+)`),
			regexp.MustCompile(`(?i)`+quoted+`\s*:\s*"([^"]+)"`),
			regexp.MustCompile(`(?i)`+quoted+`\s*:\s*([^,\s}"]+)`),
		)
	}
	r.patterns[field] = patterns
	return patterns
}
