package worker

import (
	"context"
	"sync"

	"github.com/obedier/zillow-wf/internal/crawler"
	"github.com/obedier/zillow-wf/internal/payload"
	"github.com/obedier/zillow-wf/internal/record"
	"github.com/obedier/zillow-wf/logger"
	errs "github.com/obedier/zillow-wf/pkg/errors"
	"github.com/obedier/zillow-wf/services/publisher"
	"github.com/obedier/zillow-wf/services/stats"
	"github.com/obedier/zillow-wf/services/store"
)

// Fetcher retrieves one page of content
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Builder turns a located payload into a listing
type Builder interface {
	Build(p *payload.Payload) (*record.Listing, error)
}

// Worker runs one extraction pass: discover listing URLs, fetch each detail
// page concurrently, extract, persist, and publish. Per-listing failures are
// counted and skipped; a persistence failure aborts the whole run.
type Worker struct {
	crawler     *crawler.Crawler
	fetcher     Fetcher
	builder     Builder
	store       store.Store
	publisher   publisher.Publisher
	tracker     *stats.Tracker
	concurrency int
	logger      *logger.Logger
}

// New assembles a worker running the per-listing pipeline on a pool of
// concurrency goroutines. The publisher may be nil when event publishing is
// disabled.
func New(c *crawler.Crawler, f Fetcher, b Builder, s store.Store, pub publisher.Publisher, t *stats.Tracker, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		crawler:     c,
		fetcher:     f,
		builder:     b,
		store:       s,
		publisher:   pub,
		tracker:     t,
		concurrency: concurrency,
		logger:      logger.ForWorker(),
	}
}

// Run executes one full pass and returns the first fatal error, if any
func (w *Worker) Run(ctx context.Context) error {
	discoveries, err := w.crawler.Discover(ctx)
	if err != nil {
		return err
	}
	w.tracker.AddDiscovered(len(discoveries))
	w.logger.Info().Int("count", len(discoveries)).Msg("Discovery complete")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)

	jobs := make(chan crawler.Discovery)
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				if runCtx.Err() != nil {
					continue
				}
				if err := w.process(runCtx, d); err != nil && errs.IsFatal(err) {
					fatalMu.Lock()
					if fatalErr == nil {
						fatalErr = err
						cancel()
					}
					fatalMu.Unlock()
				}
			}
		}()
	}
	for _, d := range discoveries {
		jobs <- d
	}
	close(jobs)
	wg.Wait()

	if w.publisher != nil {
		if err := w.publisher.TrimStreams(); err != nil {
			w.logger.Warn().Err(err).Msg("Stream trimming failed")
		}
	}

	return fatalErr
}

// process runs the per-listing pipeline. Non-fatal errors are logged and
// counted but not returned; only fatal persistence errors propagate.
func (w *Worker) process(ctx context.Context, d crawler.Discovery) error {
	html, err := w.fetcher.Fetch(ctx, d.URL)
	if err != nil {
		w.skip(d, "fetch", err)
		return nil
	}
	w.tracker.IncFetched()

	p, err := payload.Locate(html)
	if err != nil {
		w.skip(d, "payload", errs.NewPayloadNotFound(d.URL, err.Error()))
		return nil
	}

	listing, err := w.builder.Build(p)
	if err != nil {
		w.skip(d, "extract", err)
		return nil
	}
	w.tracker.IncExtracted()
	w.tracker.RecordListing(populatedFields(listing))

	result, err := w.store.Upsert(ctx, listing)
	if err != nil {
		w.tracker.IncFailed()
		w.logger.Error().Err(err).Str("zpid", listing.ZPID).Msg("Persistence failed, aborting run")
		return err
	}

	switch result.Action {
	case store.ActionInsert:
		w.tracker.IncInserted()
	case store.ActionUpdate:
		w.tracker.IncUpdated()
	case store.ActionNoChange:
		w.tracker.IncUnchanged()
	}

	w.publish(listing, result)

	w.logger.Info().
		Str("zpid", listing.ZPID).
		Str("action", string(result.Action)).
		Int("page", d.Page).
		Msg("Listing processed")
	return nil
}

func (w *Worker) skip(d crawler.Discovery, stage string, err error) {
	w.tracker.IncSkipped()
	w.logger.Warn().Err(err).Str("zpid", d.ZPID).Str("stage", stage).Msg("Listing skipped")
}

// publish emits the persisted-listing event. Publish failures are logged and
// dropped; losing an event must not lose the scrape.
func (w *Worker) publish(l *record.Listing, result store.Result) {
	if w.publisher == nil {
		return
	}

	event := publisher.Event{
		ZPID:   l.ZPID,
		URL:    l.URL,
		Action: string(result.Action),
		Price:  l.Price,
		City:   l.City,
		State:  l.State,
	}
	encoded, err := event.Encode()
	if err != nil {
		w.logger.Warn().Err(err).Str("zpid", l.ZPID).Msg("Event encoding failed")
		return
	}
	if err := w.publisher.Publish("listing", encoded); err != nil {
		w.logger.Warn().Err(err).Str("zpid", l.ZPID).Msg("Event publish failed")
	}
}

// populatedFields maps each tracked field to whether the listing carries it
func populatedFields(l *record.Listing) map[string]bool {
	out := map[string]bool{
		"price":               l.Price != nil,
		"bedrooms":            l.Beds != nil,
		"bathrooms":           l.Baths != nil,
		"home_size_sqft":      l.HomeSizeSqft != nil,
		"year_built":          l.YearBuilt != nil,
		"price_per_sqft":      l.PricePerSqft != nil,
		"lot_size":            l.LotSize != "",
		"home_status":         l.HomeStatus != "",
		"mls_id":              l.MLSID != "",
		"description":         l.Description != "",
		"waterfront_features": l.WaterfrontFeatures != "",
		"water_view":          l.WaterView != "",
		"water_body_name":     l.WaterBodyName != "",
		"dock_info":           l.DockInfo != "",
		"bridge_height":       l.BridgeHeight != "",
		"water_depth":         l.WaterDepth != "",
		"canal_info":          l.CanalInfo != "",
		"ocean_access":        l.OceanAccess != "",
		"photos":              len(l.Photos) > 0,
	}
	return out
}
