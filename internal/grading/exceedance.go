package grading

// detectorState is the two-state machine used when scanning a series for
// threshold crossings.
type detectorState int

const (
	stateOutside detectorState = iota
	stateInside
)

// DetectExceedances scans a finished early-window series for maximal runs
// of days with final ANC at or below the threshold. Rows with an absent
// final ANC are skipped entirely: they neither start, extend, nor end an
// interval, and they do not reset the machine. An interval still open at
// the end of the series closes on the last evaluated day.
//
// The returned intervals are raw; apply MergeExceedances before grading.
func DetectExceedances(patientID string, series []TimePoint, threshold float64) []Exceedance {
	var intervals []Exceedance
	state := stateOutside
	var current Exceedance

	for _, tp := range series {
		if !tp.HasFinal() {
			continue
		}
		below := *tp.FinalANC <= threshold

		switch state {
		case stateOutside:
			if below {
				state = stateInside
				current = Exceedance{
					PatientID: patientID,
					Threshold: threshold,
					StartDay:  tp.Day,
					EndDay:    tp.Day,
					Duration:  1,
				}
			}
		case stateInside:
			if below {
				current.EndDay = tp.Day
				current.Duration = current.spanDuration()
			} else {
				state = stateOutside
				intervals = append(intervals, current)
			}
		}
	}
	if state == stateInside {
		intervals = append(intervals, current)
	}
	return intervals
}

// MergeExceedances joins intervals separated by an insufficient recovery
// gap. The gap between interval i and i+1 is the number of good days
// between them (start(i+1) - end(i) - 1); the pair merges when that gap is
// strictly less than recoveryDays. The pass is a single left-to-right fold
// over intervals in day order; a merged interval is never re-split.
func MergeExceedances(intervals []Exceedance, recoveryDays int) []Exceedance {
	if len(intervals) <= 1 {
		return intervals
	}

	merged := make([]Exceedance, 0, len(intervals))
	current := intervals[0]
	for _, next := range intervals[1:] {
		gap := next.StartDay - current.EndDay - 1
		if gap < recoveryDays {
			current.EndDay = next.EndDay
			current.Duration = current.spanDuration()
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// maxDuration returns the longest interval duration, zero when none exist.
func maxDuration(intervals []Exceedance) int {
	max := 0
	for _, e := range intervals {
		if e.Duration > max {
			max = e.Duration
		}
	}
	return max
}

// lastObservedDay returns the last day in the series carrying a non-absent
// final ANC value. The second return value is false when no day does.
func lastObservedDay(series []TimePoint) (int, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].HasFinal() {
			return series[i].Day, true
		}
	}
	return 0, false
}

// neverRecovered reports the grade 4 special case: a merged 500-threshold
// interval that starts within the first four days post-infusion and runs
// through the patient's last day with any observed final ANC value.
func neverRecovered(series []TimePoint, merged500 []Exceedance) bool {
	if len(merged500) == 0 {
		return false
	}
	lastDay, ok := lastObservedDay(series)
	if !ok {
		return false
	}
	for _, e := range merged500 {
		if e.StartDay <= earlyOnsetMaxDay && e.EndDay == lastDay {
			return true
		}
	}
	return false
}
