package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obedier/zillow-wf/internal/crawler"
	"github.com/obedier/zillow-wf/internal/fields"
	"github.com/obedier/zillow-wf/internal/record"
	errs "github.com/obedier/zillow-wf/pkg/errors"
	"github.com/obedier/zillow-wf/services/publisher"
	"github.com/obedier/zillow-wf/services/stats"
	"github.com/obedier/zillow-wf/services/store"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	html, ok := f.pages[url]
	if !ok {
		return "", errors.New("not found: " + url)
	}
	return html, nil
}

type fakeIndex struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeIndex) Seen(zpid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[zpid]
}

func (f *fakeIndex) Add(zpid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[zpid] = true
}

type fakeStore struct {
	mu      sync.Mutex
	stored  []*record.Listing
	failAll bool
}

func (s *fakeStore) Upsert(ctx context.Context, l *record.Listing) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return store.Result{}, errs.NewPersistence(l.ZPID, "db down", errors.New("connection refused"))
	}
	s.stored = append(s.stored, l)
	return store.Result{ZPID: l.ZPID, Action: store.ActionInsert}, nil
}

func (s *fakeStore) LoadZPIDs() ([]string, error) { return nil, nil }
func (s *fakeStore) Close() error                 { return nil }

type fakePublisher struct {
	mu     sync.Mutex
	events [][]byte
}

func (p *fakePublisher) Publish(key string, message []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, message)
	return nil
}

func (p *fakePublisher) TrimStreams() error { return nil }
func (p *fakePublisher) Close() error       { return nil }

func detailPage(t *testing.T, zpid string, price float64) string {
	t.Helper()

	cacheJSON, err := json.Marshal(map[string]interface{}{
		"Query{}": map[string]interface{}{
			"property": map[string]interface{}{
				"zpid":  zpid,
				"price": price,
				"address": map[string]interface{}{
					"city": "Fort Lauderdale", "state": "FL",
				},
				"description": "Waterfront home with private dock.",
			},
		},
	})
	require.NoError(t, err)

	nextJSON, err := json.Marshal(map[string]interface{}{
		"props": map[string]interface{}{
			"pageProps": map[string]interface{}{
				"componentProps": map[string]interface{}{"gdpClientCache": string(cacheJSON)},
			},
		},
	})
	require.NoError(t, err)

	return `<html><script id="__NEXT_DATA__" type="application/json">` + string(nextJSON) + `</script></html>`
}

func listingURL(zpid string) string {
	return fmt.Sprintf("https://www.zillow.com/homedetails/home-%s_zpid/", zpid)
}

func newTestWorker(t *testing.T, st store.Store, pub *fakePublisher) (*Worker, *stats.Tracker) {
	t.Helper()

	fetch := &fakeFetcher{pages: map[string]string{
		"https://example.com/search": `<html>` +
			`"` + listingURL("101") + `" "` + listingURL("102") + `"</html>`,
		listingURL("101"): detailPage(t, "101", 500000),
		listingURL("102"): detailPage(t, "102", 750000),
	}}

	c := crawler.New(crawler.Config{SearchURL: "https://example.com/search", MaxPages: 1},
		fetch, &fakeIndex{seen: make(map[string]bool)})

	builder := record.NewBuilder(fields.NewResolver(fields.DefaultConfig()))
	tracker := stats.NewTracker()

	var p publisher.Publisher
	if pub != nil {
		p = pub
	}
	w := New(c, fetch, builder, st, p, tracker, 4)
	return w, tracker
}

func TestWorkerRun(t *testing.T) {
	st := &fakeStore{}
	pub := &fakePublisher{}
	w, tracker := newTestWorker(t, st, pub)

	require.NoError(t, w.Run(context.Background()))

	c := tracker.Snapshot()
	assert.Equal(t, 2, c.Discovered)
	assert.Equal(t, 2, c.Fetched)
	assert.Equal(t, 2, c.Extracted)
	assert.Equal(t, 2, c.Inserted)
	assert.Equal(t, 0, c.Failed)
	assert.Equal(t, 0, c.Skipped)

	assert.Len(t, st.stored, 2)
	assert.Len(t, pub.events, 2)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.events[0], &event))
	assert.Equal(t, "insert", event["action"])
	assert.Contains(t, []interface{}{"101", "102"}, event["zpid"])
}

type countingFetcher struct {
	fakeFetcher
	active int32
	peak   int32
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) (string, error) {
	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if cur <= p || atomic.CompareAndSwapInt32(&f.peak, p, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return f.fakeFetcher.Fetch(ctx, url)
}

func TestWorkerRunBoundedPool(t *testing.T) {
	pages := map[string]string{}
	search := `<html>`
	for i := 0; i < 8; i++ {
		zpid := fmt.Sprintf("20%d", i)
		pages[listingURL(zpid)] = detailPage(t, zpid, 400000)
		search += `"` + listingURL(zpid) + `" `
	}
	pages["https://example.com/search"] = search + `</html>`

	fetch := &countingFetcher{fakeFetcher: fakeFetcher{pages: pages}}
	c := crawler.New(crawler.Config{SearchURL: "https://example.com/search", MaxPages: 1},
		fetch, &fakeIndex{seen: make(map[string]bool)})
	st := &fakeStore{}
	tracker := stats.NewTracker()
	w := New(c, fetch, record.NewBuilder(fields.NewResolver(fields.DefaultConfig())), st, nil, tracker, 2)

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, 8, tracker.Snapshot().Inserted)
	assert.LessOrEqual(t, atomic.LoadInt32(&fetch.peak), int32(2))
}

func TestWorkerRunPersistenceFatal(t *testing.T) {
	st := &fakeStore{failAll: true}
	w, tracker := newTestWorker(t, st, nil)

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsFatal(err))
	assert.GreaterOrEqual(t, tracker.Snapshot().Failed, 1)
}

func TestWorkerSkipsBrokenPages(t *testing.T) {
	fetch := &fakeFetcher{pages: map[string]string{
		"https://example.com/search": `<html>"` + listingURL("101") + `" "` + listingURL("102") + `"</html>`,
		listingURL("101"):            detailPage(t, "101", 500000),
		listingURL("102"):            "<html><body>bot check</body></html>",
	}}

	c := crawler.New(crawler.Config{SearchURL: "https://example.com/search", MaxPages: 1},
		fetch, &fakeIndex{seen: make(map[string]bool)})
	st := &fakeStore{}
	tracker := stats.NewTracker()
	w := New(c, fetch, record.NewBuilder(fields.NewResolver(fields.DefaultConfig())), st, nil, tracker, 4)

	require.NoError(t, w.Run(context.Background()))

	counters := tracker.Snapshot()
	assert.Equal(t, 1, counters.Inserted)
	assert.Equal(t, 1, counters.Skipped)
	assert.Len(t, st.stored, 1)
}
