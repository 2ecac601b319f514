package store

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/obedier/zillow-wf/internal/record"
)

func fptr(f float64) *float64 { return &f }
func iptr(i int) *int         { return &i }

func TestKeyFieldsEqual(t *testing.T) {
	a := KeyFields{
		Price:        fptr(500000),
		Beds:         fptr(3),
		Baths:        fptr(2),
		HomeSizeSqft: fptr(1800),
		HomeStatus:   "FOR_SALE",
		DaysOnZillow: iptr(10),
	}
	b := a
	assert.True(t, a.Equal(b))

	b.Price = fptr(510000)
	assert.False(t, a.Equal(b))

	b = a
	b.HomeStatus = "PENDING"
	assert.False(t, a.Equal(b))

	b = a
	b.DaysOnZillow = iptr(11)
	assert.False(t, a.Equal(b))
}

func TestKeyFieldsEqualNils(t *testing.T) {
	assert.True(t, KeyFields{}.Equal(KeyFields{}))

	a := KeyFields{Price: fptr(100)}
	assert.False(t, a.Equal(KeyFields{}))
	assert.False(t, KeyFields{}.Equal(a))
}

func TestKeyFieldsOf(t *testing.T) {
	l := &record.Listing{
		Price:        fptr(250000),
		Beds:         fptr(2),
		HomeStatus:   "FOR_SALE",
		DaysOnZillow: iptr(5),
	}

	kf := KeyFieldsOf(l)
	assert.Equal(t, 250000.0, *kf.Price)
	assert.Equal(t, 2.0, *kf.Beds)
	assert.Nil(t, kf.Baths)
	assert.Equal(t, "FOR_SALE", kf.HomeStatus)
	assert.Equal(t, 5, *kf.DaysOnZillow)
}

func TestDecideAction(t *testing.T) {
	l := &record.Listing{
		ZPID:         "101",
		Price:        fptr(500000),
		Beds:         fptr(3),
		HomeStatus:   "FOR_SALE",
		DaysOnZillow: iptr(10),
	}

	// First write has no prior row
	assert.Equal(t, ActionInsert, decideAction(KeyFields{}, false, l))

	// Second write of the identical listing compares against its own key fields
	assert.Equal(t, ActionNoChange, decideAction(KeyFieldsOf(l), true, l))

	// Any key-field drift makes the re-scrape an update
	changed := KeyFieldsOf(l)
	changed.Price = fptr(475000)
	assert.Equal(t, ActionUpdate, decideAction(changed, true, l))

	changed = KeyFieldsOf(l)
	changed.DaysOnZillow = iptr(11)
	assert.Equal(t, ActionUpdate, decideAction(changed, true, l))
}

func TestPreviewOf(t *testing.T) {
	assert.Equal(t, "short text", previewOf("short text"))

	exact := strings.Repeat("a", descriptionPreviewLen)
	assert.Equal(t, exact, previewOf(exact+" and more"))

	// A multi-byte character straddling the cut must not be torn
	curly := strings.Repeat("a", descriptionPreviewLen-1) + "’s dock" // ’ is 3 bytes
	preview := previewOf(curly)
	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, strings.Repeat("a", descriptionPreviewLen-1), preview)

	accented := strings.Repeat("é", descriptionPreviewLen)
	preview = previewOf(accented)
	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, descriptionPreviewLen/2, utf8.RuneCountInString(preview))
}

func TestNullConversions(t *testing.T) {
	assert.False(t, nullStr("").Valid)
	assert.True(t, nullStr("x").Valid)

	assert.False(t, nullFloat(nil).Valid)
	assert.Equal(t, 1.5, nullFloat(fptr(1.5)).Float64)

	assert.False(t, nullInt(nil).Valid)
	assert.Equal(t, int64(7), nullInt(iptr(7)).Int64)
}

func TestJoinAddress(t *testing.T) {
	l := &record.Listing{StreetAddress: "123 Ocean Dr", City: "Fort Lauderdale", State: "FL"}
	assert.Equal(t, "123 Ocean Dr, Fort Lauderdale, FL", joinAddress(l))

	l = &record.Listing{City: "Miami"}
	assert.Equal(t, "Miami", joinAddress(l))

	assert.Equal(t, "", joinAddress(&record.Listing{}))
}
