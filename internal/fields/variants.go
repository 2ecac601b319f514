package fields

import "strings"

// Variant is one candidate spelling of a field. Weak variants are single
// constituent words of a multi-word name; they only participate in the fuzzy
// tree search, never in exact or pattern matching, because alone they match
// far too much.
type Variant struct {
	Name string
	Weak bool
}

// variantsFor expands a definition into the spellings to probe, in priority
// order: the name itself, its camelCase and snake_case forms, the curated
// synonyms, then the weak single-word variants.
func variantsFor(def Definition) []Variant {
	var out []Variant
	seen := make(map[string]bool)

	add := func(name string, weak bool) {
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Variant{Name: name, Weak: weak})
	}

	add(def.Name, false)
	if strings.Contains(def.Name, "_") {
		add(toCamel(def.Name), false)
	}
	if strings.ToLower(def.Name) != def.Name {
		add(toSnake(def.Name), false)
	}
	for _, s := range def.Synonyms {
		add(s, false)
	}

	words := strings.Fields(strings.ReplaceAll(def.Name, "_", " "))
	if len(words) > 1 {
		for _, w := range words {
			add(strings.ToLower(w), true)
		}
	}

	return out
}

// strongVariants filters out the weak single-word spellings
func strongVariants(variants []Variant) []Variant {
	out := make([]Variant, 0, len(variants))
	for _, v := range variants {
		if !v.Weak {
			out = append(out, v)
		}
	}
	return out
}

func toCamel(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
