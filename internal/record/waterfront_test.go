package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyWaterfront(t *testing.T) {
	cases := map[string]string{
		"direct ocean access from your backyard":  "ocean",
		"wide canal with quick access":            "canal",
		"on the Intracoastal Waterway":            "intracoastal",
		"lakefront living at its finest, on lake": "lake",
		"bay views from every room":               "bay",
		"deep water dockage available":            "waterfront",
		"charming suburban home":                  "",
	}
	for text, want := range cases {
		assert.Equal(t, want, classifyWaterfront(text), "text: %s", text)
	}
}

func TestClassifyWaterfrontSpecificWins(t *testing.T) {
	// A specific water body beats the generic waterfront keyword
	assert.Equal(t, "canal", classifyWaterfront("waterfront home on a canal"))
	assert.Equal(t, "ocean", classifyWaterfront("canal with ocean access"))
}

func TestMineDockLinearFt(t *testing.T) {
	n := mineDockLinearFt("Private dock with 60' dockage and no fixed bridges.")
	require.NotNil(t, n)
	assert.Equal(t, 60, *n)

	n = mineDockLinearFt("Boasts 80 ft dock with lift.")
	require.NotNil(t, n)
	assert.Equal(t, 80, *n)

	n = mineDockLinearFt("New dockage of 100 feet installed in 2022.")
	require.NotNil(t, n)
	assert.Equal(t, 100, *n)

	assert.Nil(t, mineDockLinearFt("Dock available for lease."))
	assert.Nil(t, mineDockLinearFt("No water access."))
}

func TestMineNoFixedBridges(t *testing.T) {
	assert.True(t, mineNoFixedBridges("Ocean access with no fixed bridges."))
	assert.True(t, mineNoFixedBridges("No fixed bridge to the inlet."))
	assert.False(t, mineNoFixedBridges("One fixed bridge, 21' clearance."))
}

func TestMiners(t *testing.T) {
	desc := "Beautiful home. Private dock with boat lift. Bridge clearance is 18 feet. " +
		"Water depth of 6 feet at low tide. Wide canal with no wake zone. Ocean access in minutes."

	assert.Equal(t, "dock with boat lift.", mineDockInfo(desc))
	assert.Equal(t, "Bridge clearance is 18 feet.", mineBridgeHeight(desc))
	assert.Contains(t, mineWaterDepth(desc), "depth of 6 feet")
	assert.Contains(t, mineCanalInfo(desc), "canal with no wake zone")
	assert.Equal(t, "Ocean access in minutes.", mineOceanAccess(desc))

	assert.Equal(t, "", mineDockInfo("Nothing nautical here."))
}

func TestHasWaterfrontKeyword(t *testing.T) {
	assert.True(t, hasWaterfrontKeyword("true waterfront living"))
	assert.True(t, hasWaterfrontKeyword("150 feet of water frontage"))
	assert.True(t, hasWaterfrontKeyword("private dock"))
	assert.False(t, hasWaterfrontKeyword("pool and garden"))
}
