package helpers

import (
	"errors"
	"regexp"
	"strings"
)

var zpidPattern = regexp.MustCompile(`/homedetails/(?:[^/]*_)?(\d+)_zpid`)

// ExtractZPID pulls the listing identifier out of a detail-page URL.
// Detail URLs embed the zpid as the trailing ".../<slug>_<zpid>_zpid/" segment.
func ExtractZPID(url string) (string, error) {
	m := zpidPattern.FindStringSubmatch(url)
	if m == nil {
		return "", errors.New("no zpid in url: " + url)
	}
	return m[1], nil
}

// AbsoluteListingURL resolves a possibly relative detail URL against the
// marketplace host.
func AbsoluteListingURL(detail string) string {
	if strings.HasPrefix(detail, "http") {
		return detail
	}
	return "https://www.zillow.com" + detail
}
