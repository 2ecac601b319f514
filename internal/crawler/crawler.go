package crawler

import (
	"context"
	"time"

	"github.com/obedier/zillow-wf/helpers"
	"github.com/obedier/zillow-wf/logger"
)

// Fetcher retrieves one page of content
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// DedupIndex remembers which listings have already been discovered
type DedupIndex interface {
	Seen(zpid string) bool
	Add(zpid string)
}

// Config controls pagination. MaxPages of zero means unbounded; the crawl
// then stops on the duplicate streak or the property cap.
type Config struct {
	SearchURL     string
	MaxPages      int
	MaxProperties int

	InterPageDelay time.Duration

	// EmptyStreakLimit stops the crawl after this many consecutive pages
	// that contribute nothing new. GraceDuplicatePages exempts the first
	// pages from the duplicate rule, since re-runs over stored listings
	// legitimately start with all-duplicate pages.
	EmptyStreakLimit    int
	GraceDuplicatePages int
}

// Discovery is one not-seen-before listing found during pagination
type Discovery struct {
	URL  string
	ZPID string
	Page int
}

// Crawler walks search result pages and collects new listing URLs
type Crawler struct {
	cfg    Config
	fetch  Fetcher
	dedup  DedupIndex
	logger *logger.Logger
}

// New builds a crawler, applying streak defaults
func New(cfg Config, fetch Fetcher, dedup DedupIndex) *Crawler {
	if cfg.EmptyStreakLimit <= 0 {
		cfg.EmptyStreakLimit = 5
	}
	if cfg.GraceDuplicatePages <= 0 {
		cfg.GraceDuplicatePages = 3
	}
	return &Crawler{
		cfg:    cfg,
		fetch:  fetch,
		dedup:  dedup,
		logger: logger.ForCrawler(),
	}
}

// Discover paginates the search until a stop condition fires and returns the
// new listings in discovery order. Already-seen listings are dropped here so
// downstream stages only ever see each property once per run.
func (c *Crawler) Discover(ctx context.Context) ([]Discovery, error) {
	var found []Discovery
	streak := 0

	for page := 1; c.cfg.MaxPages == 0 || page <= c.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}

		pageURL, err := PageURL(c.cfg.SearchURL, page)
		if err != nil {
			return found, err
		}

		urls, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			c.logger.Warn().Err(err).Int("page", page).Msg("Search page fetch failed")
			urls = nil
		}

		fresh := 0
		for _, u := range urls {
			zpid, err := helpers.ExtractZPID(u)
			if err != nil {
				continue
			}
			if c.dedup.Seen(zpid) {
				continue
			}
			c.dedup.Add(zpid)
			found = append(found, Discovery{URL: helpers.AbsoluteListingURL(u), ZPID: zpid, Page: page})
			fresh++
		}

		c.logger.Info().
			Int("page", page).
			Int("urls", len(urls)).
			Int("new", fresh).
			Int("total", len(found)).
			Msg("Search page processed")

		switch {
		case fresh > 0:
			streak = 0
		case len(urls) == 0:
			streak++
		case page > c.cfg.GraceDuplicatePages:
			// Results present but all duplicates, past the grace window
			streak++
		}

		if streak >= c.cfg.EmptyStreakLimit {
			c.logger.Info().Int("streak", streak).Msg("Stopping: no new listings in consecutive pages")
			break
		}
		if c.cfg.MaxProperties > 0 && len(found) >= c.cfg.MaxProperties {
			c.logger.Info().Int("count", len(found)).Msg("Stopping: property cap reached")
			found = found[:c.cfg.MaxProperties]
			break
		}

		if c.cfg.InterPageDelay > 0 {
			select {
			case <-ctx.Done():
				return found, ctx.Err()
			case <-time.After(c.cfg.InterPageDelay):
			}
		}
	}

	return found, nil
}

func (c *Crawler) fetchPage(ctx context.Context, url string) ([]string, error) {
	html, err := c.fetch.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ExtractListingURLs(html), nil
}
