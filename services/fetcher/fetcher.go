package fetcher

import (
	"context"
	"time"

	"github.com/obedier/zillow-wf/logger"
	errs "github.com/obedier/zillow-wf/pkg/errors"
)

// FetchFunc retrieves one URL's content. Implementations are the gateway
// client or the direct header-randomizing fetch from helpers.
type FetchFunc func(ctx context.Context, url string) (string, error)

// Bounded wraps a FetchFunc with a concurrency ceiling and a per-request
// timeout. Calls beyond the ceiling block until a slot frees up.
type Bounded struct {
	fetch   FetchFunc
	slots   chan struct{}
	timeout time.Duration
	logger  *logger.Logger
}

// NewBounded builds a bounded fetcher with the given ceiling and timeout
func NewBounded(fetch FetchFunc, maxConcurrent int, timeout time.Duration) *Bounded {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Bounded{
		fetch:   fetch,
		slots:   make(chan struct{}, maxConcurrent),
		timeout: timeout,
		logger:  logger.ForFetcher(),
	}
}

// Fetch acquires a slot and retrieves the URL, enforcing the timeout.
// Errors come back typed as fetch errors so the pipeline can treat them as
// non-fatal.
func (b *Bounded) Fetch(ctx context.Context, url string) (string, error) {
	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		return "", errs.NewFetch(url, "canceled while waiting for fetch slot", ctx.Err())
	}
	defer func() { <-b.slots }()

	fetchCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	started := time.Now()
	content, err := b.fetch(fetchCtx, url)
	if err != nil {
		return "", errs.NewFetch(url, "page fetch failed", err)
	}

	b.logger.Debug().
		Str("url", url).
		Dur("elapsed", time.Since(started)).
		Int("bytes", len(content)).
		Msg("Page fetched")
	return content, nil
}
