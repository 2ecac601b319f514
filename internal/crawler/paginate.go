package crawler

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/obedier/zillow-wf/internal/payload"
)

// PageURL rewrites a search URL to point at the given result page. Search
// URLs that carry a searchQueryState parameter get their embedded
// pagination.currentPage updated; anything else gets a plain page query
// parameter appended.
func PageURL(searchURL string, page int) (string, error) {
	if page <= 1 {
		return searchURL, nil
	}

	parsed, err := url.Parse(searchURL)
	if err != nil {
		return "", err
	}

	q := parsed.Query()
	if state := q.Get("searchQueryState"); state != "" {
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(state), &decoded); err == nil {
			decoded["pagination"] = map[string]interface{}{"currentPage": page}
			encoded, err := json.Marshal(decoded)
			if err != nil {
				return "", err
			}
			q.Set("searchQueryState", string(encoded))
			parsed.RawQuery = q.Encode()
			return parsed.String(), nil
		}
	}

	q.Set("page", strconv.Itoa(page))
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

var (
	listingURLMarker = "/homedetails/"
	detailURLPattern = regexp.MustCompile(`https://www\.zillow\.com/homedetails/[^/"\\]+_zpid/`)
)

// ExtractListingURLs pulls detail-page URLs from a search results page,
// trying the embedded search state first, then a raw text scan, then the
// anchor tags. Order of first appearance is preserved and duplicates within
// the page are dropped.
func ExtractListingURLs(html string) []string {
	if urls := urlsFromSearchState(html); len(urls) > 0 {
		return urls
	}
	if urls := urlsFromText(html); len(urls) > 0 {
		return urls
	}
	return urlsFromAnchors(html)
}

func urlsFromSearchState(html string) []string {
	p, err := payload.Locate(html)
	if err != nil {
		return nil
	}

	results, ok := p.SearchPageState().Get("cat1", "searchResults", "listResults").List()
	if !ok {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, item := range results {
		u := item.Get("detailUrl").Text()
		if u == "" {
			u = item.Get("hdpUrl").Text()
		}
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func urlsFromText(html string) []string {
	matches := detailURLPattern.FindAllString(html, -1)
	var out []string
	seen := make(map[string]bool)
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func urlsFromAnchors(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.Contains(href, listingURLMarker) || seen[href] {
			return
		}
		seen[href] = true
		out = append(out, href)
	})
	return out
}
