package st

import (
	"strconv"
	"strings"

	apperrors "dpt/internal/errors"
)

// Range is an inclusive store id interval.
type Range struct {
	Lo, Hi uint64
}

// Contains reports whether id lies in r.
func (r Range) Contains(id uint32) bool {
	return uint64(id) >= r.Lo && uint64(id) <= r.Hi
}

// ParseRange parses "N" or "N-M".
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if left, right, ok := strings.Cut(s, "-"); ok {
		lo, err := strconv.ParseUint(strings.TrimSpace(left), 10, 64)
		if err != nil {
			return Range{}, apperrors.NewFromStrError(left, "usize")
		}
		hi, err := strconv.ParseUint(strings.TrimSpace(right), 10, 64)
		if err != nil {
			return Range{}, apperrors.NewFromStrError(right, "usize")
		}
		return Range{Lo: lo, Hi: hi}, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Range{}, apperrors.NewFromStrError(s, "usize")
	}
	return Range{Lo: n, Hi: n}, nil
}

// Ranges is an ordered list of inclusive ranges.
type Ranges []Range

// Contains reports whether any range holds id.
func (rs Ranges) Contains(id uint32) bool {
	for _, r := range rs {
		if r.Contains(id) {
			return true
		}
	}
	return false
}

// rangeRule binds one configured range list to the class it yields.
type rangeRule struct {
	key string
	t   StoreType
	loc StoreLoc
}

// classifyOrder is the priority in which range lists are checked: local
// brands, outer brands, then outer warehouses.
var classifyOrder = [...]rangeRule{
	{"range_jmj_local", StoreJmj, LocLocal},
	{"range_tey_local", StoreTey, LocLocal},
	{"range_lkd_local", StoreLkd, LocLocal},
	{"range_son_local", StoreSon, LocLocal},
	{"range_nws_local", StoreNws, LocLocal},
	{"range_jmj", StoreJmj, LocOuter},
	{"range_tey", StoreTey, LocOuter},
	{"range_lkd", StoreLkd, LocOuter},
	{"range_son", StoreSon, LocOuter},
	{"range_nws", StoreNws, LocOuter},
	{"range_outer_warehouse", StoreDc, LocOuter},
}

// RangeKeys returns the range table keys in priority order.
func RangeKeys() []string {
	keys := make([]string, len(classifyOrder))
	for i, rule := range classifyOrder {
		keys[i] = rule.key
	}
	return keys
}

// StoreRanges holds the eleven range lists, indexed like classifyOrder.
type StoreRanges [len(classifyOrder)]Ranges

// ParseStoreRanges reads the range configuration table. All eleven lists
// must be present; a list may be empty.
func ParseStoreRanges(table map[string][]string) (StoreRanges, error) {
	var out StoreRanges
	if table == nil {
		return out, apperrors.NewConfigError("range")
	}
	for i, rule := range classifyOrder {
		entries, ok := table[rule.key]
		if !ok {
			return out, apperrors.NewConfigError("range." + rule.key)
		}
		list := make(Ranges, 0, len(entries))
		for _, e := range entries {
			r, err := ParseRange(e)
			if err != nil {
				return out, err
			}
			list = append(list, r)
		}
		out[i] = list
	}
	return out, nil
}

// Classify returns the class of the first range list holding id, or
// (StoreOth, LocUnknown) when none does.
func (sr *StoreRanges) Classify(id uint32) (StoreType, StoreLoc) {
	for i, rule := range classifyOrder {
		if sr[i].Contains(id) {
			return rule.t, rule.loc
		}
	}
	return StoreOth, LocUnknown
}
