package grading

import (
	"math"
)

// InterpolateSeries fills bounded gaps in a daily-complete early-window
// series with linear interpolation between the bracketing measured values.
// A gap is filled only when its full length is at most maxGapDays; longer
// gaps stay absent end to end. Values before the first or after the last
// measured point are never extrapolated.
//
// Interpolated values are rounded to the nearest multiple of 10 to match
// clinical instrument resolution. FinalANC is set on every row: the raw
// value when measured, else the interpolated value, else absent.
//
// The input series must be ordered by day with one row per day; the slice
// is returned with values filled in place.
func InterpolateSeries(series []TimePoint, maxGapDays int) []TimePoint {
	// Seed final values from raw measurements.
	for i := range series {
		if series[i].RawANC != nil {
			v := *series[i].RawANC
			series[i].FinalANC = &v
		}
	}

	prevKnown := -1
	for i := 0; i < len(series); i++ {
		if series[i].RawANC == nil {
			continue
		}
		if prevKnown >= 0 && i-prevKnown > 1 {
			fillGap(series, prevKnown, i, maxGapDays)
		}
		prevKnown = i
	}
	return series
}

// fillGap interpolates the missing rows strictly between known indices
// lo and hi when the gap fits the bound.
func fillGap(series []TimePoint, lo, hi, maxGapDays int) {
	gapLen := hi - lo - 1
	if gapLen > maxGapDays {
		return
	}
	startVal := *series[lo].RawANC
	endVal := *series[hi].RawANC
	span := float64(series[hi].Day - series[lo].Day)
	for i := lo + 1; i < hi; i++ {
		fraction := float64(series[i].Day-series[lo].Day) / span
		rounded := roundToTen(startVal + fraction*(endVal-startVal))
		series[i].InterpolatedANC = &rounded
		final := float64(rounded)
		series[i].FinalANC = &final
	}
}

// roundToTen rounds to the nearest multiple of 10, halves away from zero.
func roundToTen(v float64) int {
	return int(math.Round(v/10) * 10)
}
