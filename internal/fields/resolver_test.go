package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obedier/zillow-wf/internal/payload"
)

func tree(v interface{}) payload.Value {
	return payload.FromJSON(v)
}

func TestResolveKnownPath(t *testing.T) {
	r := NewResolver(DefaultConfig())

	data := tree(map[string]interface{}{
		"resoFacts": map[string]interface{}{
			"yearBuilt": 1998.0,
		},
	})

	got := r.Resolve("year_built", data, nil)
	n, ok := got.Num()
	assert.True(t, ok)
	assert.Equal(t, 1998.0, n)
}

func TestResolveKnownPathSkipsEmpty(t *testing.T) {
	r := NewResolver(DefaultConfig())

	// Empty value in the preferred section, real value deeper down
	data := tree(map[string]interface{}{
		"property": map[string]interface{}{
			"yearBuilt": "",
			"nested": map[string]interface{}{
				"yearBuilt": 1975.0,
			},
		},
	})

	got := r.Resolve("year_built", data, nil)
	n, ok := got.Num()
	assert.True(t, ok)
	assert.Equal(t, 1975.0, n)
}

func TestResolveRecursiveFuzzy(t *testing.T) {
	r := NewResolver(DefaultConfig())

	data := tree(map[string]interface{}{
		"someQuery{}": map[string]interface{}{
			"details": map[string]interface{}{
				"waterfrontFeaturesList": []interface{}{"Canal Front", "Ocean Access"},
			},
		},
	})

	got := r.Resolve("waterfront_features", data, nil)
	list, ok := got.List()
	require.True(t, ok)
	assert.Len(t, list, 2)
}

func TestResolveRecursiveDepthLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 2
	r := NewResolver(cfg)

	data := tree(map[string]interface{}{
		"a": map[string]interface{}{
			"b": map[string]interface{}{
				"c": map[string]interface{}{
					"yearBuilt": 1998.0,
				},
			},
		},
	})

	got := r.Resolve("year_built", data, nil)
	assert.Equal(t, payload.KindNull, got.Kind())
}

func TestResolveTextFallback(t *testing.T) {
	r := NewResolver(DefaultConfig())

	html := `<html><script id="__NEXT_DATA__" type="application/json">` +
		`{"props":{"pageProps":{}},"blob":"{\"yearBuilt\":\"2005\"}"}` +
		`</script></html>`
	p, err := payload.Locate(html)
	require.NoError(t, err)

	got := r.Resolve("year_built", tree(map[string]interface{}{}), p)
	s, ok := got.Str()
	assert.True(t, ok)
	assert.Equal(t, "2005", s)
}

func TestResolveStrategyOrder(t *testing.T) {
	r := NewResolver(DefaultConfig())

	var sources []Source
	r.OnResolve(func(field string, source Source) {
		sources = append(sources, source)
	})

	// Known path wins even when deeper matches exist
	data := tree(map[string]interface{}{
		"resoFacts": map[string]interface{}{"yearBuilt": 1998.0},
		"deep": map[string]interface{}{
			"yearBuiltEffective": 2001.0,
		},
	})

	got := r.Resolve("year_built", data, nil)
	n, _ := got.Num()
	assert.Equal(t, 1998.0, n)
	assert.Equal(t, []Source{SourceKnownPath}, sources)
}

func TestResolveAbsent(t *testing.T) {
	r := NewResolver(DefaultConfig())

	var recorded Source
	r.OnResolve(func(field string, source Source) { recorded = source })

	got := r.Resolve("bridge_height", tree(map[string]interface{}{"other": 1.0}), nil)
	assert.Equal(t, payload.KindNull, got.Kind())
	assert.Equal(t, SourceNone, recorded)
}

func TestResolveNullLiteralsAbsent(t *testing.T) {
	r := NewResolver(DefaultConfig())

	data := tree(map[string]interface{}{
		"property": map[string]interface{}{"mlsId": "null"},
	})

	got := r.Resolve("mls_id", data, nil)
	assert.Equal(t, payload.KindNull, got.Kind())
}

func TestResolveCache(t *testing.T) {
	r := NewResolver(DefaultConfig())

	cache := map[string]payload.Value{
		"ForSaleQuery{}": tree(map[string]interface{}{
			"property": map[string]interface{}{"beds": 4.0},
		}),
	}

	got := r.ResolveCache("bedrooms", cache, nil)
	n, ok := got.Num()
	assert.True(t, ok)
	assert.Equal(t, 4.0, n)
}

func TestResolveDeterministicAcrossRuns(t *testing.T) {
	r := NewResolver(DefaultConfig())

	// Two sibling fuzzy matches at the same depth; sorted key order decides
	data := tree(map[string]interface{}{
		"zz": map[string]interface{}{"waterDepthFt": "8"},
		"aa": map[string]interface{}{"waterDepthAvg": "6"},
	})

	first := r.Resolve("water_depth", data, nil)
	for i := 0; i < 10; i++ {
		again := r.Resolve("water_depth", data, nil)
		assert.Equal(t, first.Raw(), again.Raw())
	}
	s, _ := first.Str()
	assert.Equal(t, "6", s)
}
