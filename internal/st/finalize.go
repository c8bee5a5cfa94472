package st

import (
	"sort"
	"time"
)

type dailyValue struct {
	day   time.Time
	value float64
}

// summarize computes DailyStats from a non-empty per-day series.
func summarize(byDay map[time.Time]float64) DailyStats {
	series := make([]dailyValue, 0, len(byDay))
	for day, v := range byDay {
		series = append(series, dailyValue{day, v})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].day.Before(series[j].day)
	})

	var ds DailyStats
	if len(series) == 0 {
		return ds
	}

	first := series[0]
	ds.FirstDate = first.day
	ds.LastDate = series[len(series)-1].day
	ds.Max, ds.MaxDate = first.value, first.day
	ds.Min, ds.MinDate = first.value, first.day
	for _, dv := range series[1:] {
		if dv.value > ds.Max {
			ds.Max, ds.MaxDate = dv.value, dv.day
		}
		if dv.value < ds.Min {
			ds.Min, ds.MinDate = dv.value, dv.day
		}
	}

	ds.MaxGap, ds.MinGap = computeGaps(series)
	return ds
}

// computeGaps walks the day gaps between consecutive active days. Both
// results start at the first gap; a gap larger than the one just before it
// replaces MaxGap and a smaller one replaces MinGap. This compares neighbours
// only, so [1 5 2] yields (5, 2) rather than the global (5, 1).
func computeGaps(series []dailyValue) (maxGap, minGap int) {
	if len(series) < 2 {
		return 0, 0
	}

	prev := daysBetween(series[0].day, series[1].day)
	maxGap, minGap = prev, prev
	for i := 2; i < len(series); i++ {
		gap := daysBetween(series[i-1].day, series[i].day)
		if gap > prev {
			maxGap = gap
		}
		if gap < prev {
			minGap = gap
		}
		prev = gap
	}
	return maxGap, minGap
}

func daysBetween(a, b time.Time) int {
	d := int(b.Sub(a) / (24 * time.Hour))
	if d < 0 {
		return -d
	}
	return d
}
