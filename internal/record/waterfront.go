package record

import (
	"regexp"
	"strconv"
	"strings"
)

// waterTypes orders classification patterns from most to least specific.
// The first match names the waterfront type; a bare waterfront mention
// without a specific water body classifies as plain "waterfront".
var waterTypes = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"intracoastal", regexp.MustCompile(`(?i)\b(?:intracoastal|icw)\b`)},
	{"ocean", regexp.MustCompile(`(?i)\bocean\b`)},
	{"gulf", regexp.MustCompile(`(?i)\bgulf\b`)},
	{"bay", regexp.MustCompile(`(?i)\bbay\b`)},
	{"river", regexp.MustCompile(`(?i)\briver\b`)},
	{"canal", regexp.MustCompile(`(?i)\bcanal\b`)},
	{"lake", regexp.MustCompile(`(?i)\blake\b`)},
	{"sound", regexp.MustCompile(`(?i)\bsound\b`)},
	{"lagoon", regexp.MustCompile(`(?i)\blagoon\b`)},
}

var waterfrontKeyword = regexp.MustCompile(`(?i)\bwater\s*front(?:age)?\b|\bwaterfront\b|\bdeep\s*water\b|\bdock(?:age|s)?\b|\bseawall\b|\bboat\s+slip\b`)

func hasWaterfrontKeyword(text string) bool {
	return waterfrontKeyword.MatchString(text)
}

func classifyWaterfront(text string) string {
	for _, wt := range waterTypes {
		if wt.pattern.MatchString(text) {
			return wt.name
		}
	}
	if hasWaterfrontKeyword(text) {
		return "waterfront"
	}
	return ""
}

// Sentence miners pull the first sentence mentioning each boating concern
// out of the listing description.

var dockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)dock[^.]*\.`),
	regexp.MustCompile(`(?i)boat\s+slip[^.]*\.`),
	regexp.MustCompile(`(?i)waterfront\s+access[^.]*\.`),
	regexp.MustCompile(`(?i)boat\s+ramp[^.]*\.`),
	regexp.MustCompile(`(?i)pier[^.]*\.`),
	regexp.MustCompile(`(?i)wharf[^.]*\.`),
}

var bridgePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bridge\s+height[^.]*\.`),
	regexp.MustCompile(`(?i)bridge\s+clearance[^.]*\.`),
	regexp.MustCompile(`(?i)clearance[^.]*\.`),
}

var depthPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)water\s+depth[^.]*\.`),
	regexp.MustCompile(`(?i)deep\s+water[^.]*\.`),
	regexp.MustCompile(`(?i)shallow\s+water[^.]*\.`),
	regexp.MustCompile(`(?i)depth[^.]*\.`),
}

var canalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)canal[^.]*\.`),
	regexp.MustCompile(`(?i)intracoastal[^.]*\.`),
	regexp.MustCompile(`(?i)waterway[^.]*\.`),
	regexp.MustCompile(`(?i)channel[^.]*\.`),
}

var oceanPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ocean\s+access[^.]*\.`),
	regexp.MustCompile(`(?i)oceanfront[^.]*\.`),
	regexp.MustCompile(`(?i)beach\s+access[^.]*\.`),
	regexp.MustCompile(`(?i)coastal[^.]*\.`),
}

func mineFirst(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func mineDockInfo(text string) string     { return mineFirst(text, dockPatterns) }
func mineBridgeHeight(text string) string { return mineFirst(text, bridgePatterns) }
func mineWaterDepth(text string) string   { return mineFirst(text, depthPatterns) }
func mineCanalInfo(text string) string    { return mineFirst(text, canalPatterns) }
func mineOceanAccess(text string) string  { return mineFirst(text, oceanPatterns) }

// dockFootage matches lengths with an explicit feet marker next to a dock
// mention, either order: "60' dockage", "80 ft dock", "dockage: 100 feet".
var dockFootage = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{1,4})\s*(?:'|\x{2019}|ft\.?|feet|foot)\s*(?:of\s+)?(?:linear\s+)?(?:boat\s+)?dock(?:age|ing|s)?\b`),
	regexp.MustCompile(`(?i)dock(?:age|ing)?\b[^.\d]{0,25}(\d{1,4})\s*(?:'|\x{2019}|ft\.?|feet|foot)`),
}

func mineDockLinearFt(text string) *int {
	for _, p := range dockFootage {
		if m := p.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return &n
			}
		}
	}
	return nil
}

var noFixedBridgePattern = regexp.MustCompile(`(?i)no\s+fixed\s+bridges?`)

func mineNoFixedBridges(text string) bool {
	return noFixedBridgePattern.MatchString(text)
}
