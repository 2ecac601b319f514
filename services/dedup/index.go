package dedup

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/obedier/zillow-wf/logger"
	"github.com/obedier/zillow-wf/services/cache"
)

const snapshotKey = "zillow-wf:known-zpids"

// ZPIDLoader supplies the identifiers already persisted, normally the
// Postgres store.
type ZPIDLoader interface {
	LoadZPIDs() ([]string, error)
}

// Index is the in-memory set of listing identifiers known to this run. It is
// seeded from the store at startup, with a cache snapshot as fallback when
// the store scan fails, and is safe for concurrent use.
type Index struct {
	mu     sync.Mutex
	seen   map[string]bool
	cache  cache.CacheService
	ttl    time.Duration
	logger *logger.Logger
}

// NewIndex returns an empty index. The cache may be nil, which disables
// snapshotting.
func NewIndex(c cache.CacheService, ttl time.Duration) *Index {
	return &Index{
		seen:   make(map[string]bool),
		cache:  c,
		ttl:    ttl,
		logger: logger.ForCache(),
	}
}

// Load seeds the index from the store and refreshes the cache snapshot. When
// the store scan fails the previous snapshot is used instead, so a transient
// database problem does not turn every stored listing into a rediscovery.
func (i *Index) Load(loader ZPIDLoader) error {
	zpids, err := loader.LoadZPIDs()
	if err != nil {
		i.logger.Warn().Err(err).Msg("Store scan failed, falling back to cache snapshot")
		if restored := i.restoreSnapshot(); restored {
			return nil
		}
		return err
	}

	i.mu.Lock()
	for _, z := range zpids {
		i.seen[z] = true
	}
	i.mu.Unlock()

	i.writeSnapshot()
	i.logger.Info().Int("count", len(zpids)).Msg("Dedup index loaded")
	return nil
}

// Seen reports whether the identifier is already known
func (i *Index) Seen(zpid string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.seen[zpid]
}

// Add marks the identifier as known
func (i *Index) Add(zpid string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.seen[zpid] = true
}

// Size returns the number of known identifiers
func (i *Index) Size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.seen)
}

// Snapshot writes the current set to the cache so the next run can recover
// without a store scan.
func (i *Index) Snapshot() {
	i.writeSnapshot()
}

func (i *Index) writeSnapshot() {
	if i.cache == nil {
		return
	}

	i.mu.Lock()
	zpids := make([]string, 0, len(i.seen))
	for z := range i.seen {
		zpids = append(zpids, z)
	}
	i.mu.Unlock()

	encoded, err := json.Marshal(zpids)
	if err != nil {
		return
	}
	if err := i.cache.Set(snapshotKey, encoded, i.ttl); err != nil {
		i.logger.Warn().Err(err).Msg("Dedup snapshot write failed")
	}
}

func (i *Index) restoreSnapshot() bool {
	if i.cache == nil {
		return false
	}

	encoded, err := i.cache.Get(snapshotKey)
	if err != nil {
		return false
	}

	var zpids []string
	if err := json.Unmarshal(encoded, &zpids); err != nil {
		return false
	}

	i.mu.Lock()
	for _, z := range zpids {
		i.seen[z] = true
	}
	i.mu.Unlock()

	i.logger.Info().Int("count", len(zpids)).Msg("Dedup index restored from snapshot")
	return true
}
