package st

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dpt/internal/errors"
)

func testRangeTable() map[string][]string {
	table := make(map[string][]string)
	for _, key := range RangeKeys() {
		table[key] = nil
	}
	table["range_jmj_local"] = []string{"100", "101-199"}
	table["range_tey_local"] = []string{"200-299"}
	table["range_lkd_local"] = []string{"300-399"}
	table["range_son_local"] = []string{"400-499"}
	table["range_nws_local"] = []string{"500-599"}
	// Overlaps the local jmj list; local wins.
	table["range_jmj"] = []string{"150-1099"}
	table["range_tey"] = []string{"1100-1199"}
	table["range_lkd"] = []string{"1200-1299"}
	table["range_son"] = []string{"1300-1399"}
	table["range_nws"] = []string{"1400-1499"}
	table["range_outer_warehouse"] = []string{"9000-9999"}
	return table
}

func testRanges(t *testing.T) StoreRanges {
	t.Helper()
	ranges, err := ParseStoreRanges(testRangeTable())
	require.NoError(t, err)
	return ranges
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		input   string
		want    Range
		wantErr bool
	}{
		{"7", Range{7, 7}, false},
		{"10-20", Range{10, 20}, false},
		{" 10 - 20 ", Range{10, 20}, false},
		{"x", Range{}, true},
		{"10-", Range{}, true},
		{"-5", Range{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRange(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeFromStr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRange_Contains(t *testing.T) {
	r := Range{10, 20}
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(9))
	assert.False(t, r.Contains(21))
	assert.False(t, Range{20, 10}.Contains(15))
}

func TestParseStoreRanges_MissingList(t *testing.T) {
	table := testRangeTable()
	delete(table, "range_outer_warehouse")

	_, err := ParseStoreRanges(table)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	assert.Contains(t, err.Error(), "range.range_outer_warehouse")

	_, err = ParseStoreRanges(nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestParseStoreRanges_BadEntry(t *testing.T) {
	table := testRangeTable()
	table["range_son"] = []string{"1300-13x"}

	_, err := ParseStoreRanges(table)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeFromStr))
}

func TestStoreRanges_Classify(t *testing.T) {
	ranges := testRanges(t)

	tests := []struct {
		id      uint32
		wantT   StoreType
		wantLoc StoreLoc
	}{
		{100, StoreJmj, LocLocal},
		{150, StoreJmj, LocLocal},
		{250, StoreTey, LocLocal},
		{350, StoreLkd, LocLocal},
		{450, StoreSon, LocLocal},
		{550, StoreNws, LocLocal},
		{600, StoreJmj, LocOuter},
		{1150, StoreTey, LocOuter},
		{1250, StoreLkd, LocOuter},
		{1350, StoreSon, LocOuter},
		{1450, StoreNws, LocOuter},
		{9500, StoreDc, LocOuter},
		{0, StoreOth, LocUnknown},
		{5000, StoreOth, LocUnknown},
	}

	for _, tt := range tests {
		gotT, gotLoc := ranges.Classify(tt.id)
		assert.Equal(t, tt.wantT, gotT, "store %d", tt.id)
		assert.Equal(t, tt.wantLoc, gotLoc, "store %d", tt.id)
	}
}

func TestStoreRanges_ClassifyTotal(t *testing.T) {
	ranges := testRanges(t)
	valid := make(map[storeClass]bool)
	for class := range bucketTable {
		valid[class] = true
	}

	for id := uint32(0); id < 12000; id += 7 {
		st, loc := ranges.Classify(id)
		assert.True(t, valid[storeClass{st, loc}], "store %d classified as (%s, %s)", id, st, loc)
	}

	var empty StoreRanges
	st, loc := empty.Classify(42)
	assert.Equal(t, StoreOth, st)
	assert.Equal(t, LocUnknown, loc)
}

func TestNewBrandType(t *testing.T) {
	tests := []struct {
		t    StoreType
		loc  StoreLoc
		want BrandType
	}{
		{StoreJmj, LocLocal, BrandJmj},
		{StoreTey, LocLocal, BrandTey},
		{StoreLkd, LocLocal, BrandLkd},
		{StoreSon, LocLocal, BrandSon},
		{StoreNws, LocLocal, BrandNws},
		{StoreJmj, LocOuter, BrandOs},
		{StoreNws, LocOuter, BrandOs},
		{StoreDc, LocOuter, BrandDc},
		{StoreDc, LocLocal, BrandOth},
		{StoreOth, LocUnknown, BrandOth},
		{StoreJmj, LocUnknown, BrandOth},
		{StoreOth, LocOuter, BrandOth},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NewBrandType(tt.t, tt.loc), "(%s, %s)", tt.t, tt.loc)
	}
}

func TestBrandType_Less(t *testing.T) {
	for i, a := range BrandTypes {
		for j, b := range BrandTypes {
			assert.Equal(t, i < j, a.Less(b), "%s < %s", a, b)
		}
	}
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, BucketLocalJmj, BucketFor(StoreJmj, LocLocal))
	assert.Equal(t, BucketLocalNws, BucketFor(StoreNws, LocLocal))
	assert.Equal(t, BucketOuterStore, BucketFor(StoreSon, LocOuter))
	assert.Equal(t, BucketOuterDc, BucketFor(StoreDc, LocOuter))
	assert.Equal(t, BucketOther, BucketFor(StoreOth, LocUnknown))
	assert.Equal(t, BucketOther, BucketFor(StoreDc, LocLocal))
	assert.Equal(t, "outer_dc", BucketOuterDc.String())
}

func TestSlots_Sum(t *testing.T) {
	f := FSlots{1, 2, 3, 0, 0, 0, 0, 4.5}
	i := ISlots{1, 0, 0, 0, 0, 0, 2, 3}
	assert.Equal(t, 10.5, f.Sum())
	assert.Equal(t, uint32(6), i.Sum())
}

func TestWarehouses(t *testing.T) {
	w, err := NewWarehouses([]uint16{11751, 11752, 11753, 11754, 11755, 11756, 11759})
	require.NoError(t, err)
	assert.Equal(t, 0, w.Slot(11751))
	assert.Equal(t, 6, w.Slot(11759))
	assert.Equal(t, WarehouseSlots-1, w.Slot(11757))

	_, err = NewWarehouses([]uint16{1, 2})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}
