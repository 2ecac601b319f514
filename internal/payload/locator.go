package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrPayloadNotFound means the page carried no embedded data block
	ErrPayloadNotFound = errors.New("embedded data payload not found")
	// ErrCacheNotFound means the payload carried no parsable client cache
	ErrCacheNotFound = errors.New("client cache not found in payload")
)

// scriptPattern is the fallback when the DOM parse cannot see the tag
// (malformed markup ahead of the script block).
var scriptPattern = regexp.MustCompile(`(?s)<script id="__NEXT_DATA__" type="application/json">(.*?)</script>`)

// cleaner undoes the most common escaping applied to the embedded block so
// text-pattern fallbacks match keys the way the decoded tree spells them.
var cleaner = strings.NewReplacer(`\"`, `"`, `\\`, `\`)

// Payload is the decoded embedded data block of one fetched page, plus the
// raw and cleaned text forms used by the pattern-search fallbacks.
type Payload struct {
	tree    Value
	raw     string
	cleaned string
	page    string
}

// Locate finds and decodes the embedded __NEXT_DATA__ block in page content.
// Locating is a pure transform; no network or storage side effects.
func Locate(html string) (*Payload, error) {
	raw := scriptContent(html)
	if raw == "" {
		return nil, ErrPayloadNotFound
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadNotFound, err)
	}

	return &Payload{
		tree:    FromJSON(decoded),
		raw:     raw,
		cleaned: cleaner.Replace(raw),
		page:    html,
	}, nil
}

func scriptContent(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if text := doc.Find(`script#__NEXT_DATA__`).First().Text(); strings.TrimSpace(text) != "" {
			return text
		}
	}
	if m := scriptPattern.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return ""
}

// Tree returns the decoded payload tree
func (p *Payload) Tree() Value {
	return p.tree
}

// Raw returns the embedded block verbatim, escapes included
func (p *Payload) Raw() string {
	return p.raw
}

// Cleaned returns the embedded block with escaping undone
func (p *Payload) Cleaned() string {
	return p.cleaned
}

// Page returns the full fetched page content
func (p *Payload) Page() string {
	return p.page
}

// ClientCache walks to the gdpClientCache string at its known path and
// parses the JSON it encodes. The cache holds the authoritative per-listing
// data keyed by opaque query strings.
func (p *Payload) ClientCache() (map[string]Value, error) {
	cached := p.tree.Get("props", "pageProps", "componentProps", "gdpClientCache")
	encoded, ok := cached.Str()
	if !ok || strings.TrimSpace(encoded) == "" {
		return nil, ErrCacheNotFound
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(encoded), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheNotFound, err)
	}

	cache := make(map[string]Value, len(decoded))
	for k, v := range decoded {
		cache[k] = FromJSON(v)
	}
	return cache, nil
}

// SearchPageState returns the search-results state object, trying both
// locations the marketplace has used across releases.
func (p *Payload) SearchPageState() Value {
	props := p.tree.Get("props", "pageProps")
	if state := props.Get("searchPageState"); state.Kind() != KindNull {
		return state
	}
	return props.Get("initialState", "searchPageState")
}

// Query returns the outer request metadata (original URL path, coordinates)
func (p *Payload) Query() Value {
	return p.tree.Get("props", "pageProps", "query")
}
