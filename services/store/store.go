package store

import (
	"context"

	"github.com/obedier/zillow-wf/internal/record"
)

// Action reports what an upsert did to the stored row
type Action string

const (
	ActionInsert   Action = "insert"
	ActionUpdate   Action = "update"
	ActionNoChange Action = "no_change"
)

// Result is the outcome of persisting one listing
type Result struct {
	ZPID   string
	Action Action
}

// Store persists extracted listings
type Store interface {
	// Upsert writes the listing and reports whether it was new, changed,
	// or identical on the key fields. The write happens in all three cases.
	Upsert(ctx context.Context, l *record.Listing) (Result, error)

	// LoadZPIDs returns every stored listing identifier
	LoadZPIDs() ([]string, error)

	// Close releases the underlying connections
	Close() error
}

// KeyFields are the columns compared for change detection. Drift in any of
// them classifies a re-scrape as an update rather than no_change.
type KeyFields struct {
	Price        *float64
	Beds         *float64
	Baths        *float64
	HomeSizeSqft *float64
	HomeStatus   string
	DaysOnZillow *int
}

// decideAction classifies an upsert by comparing the listing against the key
// fields stored before the write. A listing with no prior row is an insert;
// a prior row with identical key fields is no_change even though the write
// still happened.
func decideAction(existing KeyFields, found bool, l *record.Listing) Action {
	switch {
	case !found:
		return ActionInsert
	case !existing.Equal(KeyFieldsOf(l)):
		return ActionUpdate
	}
	return ActionNoChange
}

// KeyFieldsOf extracts the comparison fields from a listing
func KeyFieldsOf(l *record.Listing) KeyFields {
	return KeyFields{
		Price:        l.Price,
		Beds:         l.Beds,
		Baths:        l.Baths,
		HomeSizeSqft: l.HomeSizeSqft,
		HomeStatus:   l.HomeStatus,
		DaysOnZillow: l.DaysOnZillow,
	}
}

// Equal compares field by field, treating two nils as equal
func (k KeyFields) Equal(o KeyFields) bool {
	return floatEq(k.Price, o.Price) &&
		floatEq(k.Beds, o.Beds) &&
		floatEq(k.Baths, o.Baths) &&
		floatEq(k.HomeSizeSqft, o.HomeSizeSqft) &&
		k.HomeStatus == o.HomeStatus &&
		intEq(k.DaysOnZillow, o.DaysOnZillow)
}

func floatEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
