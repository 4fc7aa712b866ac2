package grading

import (
	"sort"
	"time"

	"icahtcli/pkg/contracts/domain"
)

// patientMeta carries the per-patient anchor dates used when constructing
// the series. Values come from the first row that carries them, in input
// order, mirroring the tabular source where anchors repeat on every row.
type patientMeta struct {
	baseline          *time.Time
	lastFollowUp      *time.Time
	subsequentTherapy *time.Time
	progression       *time.Time
}

// collectMeta extracts anchor dates for one patient's observations.
func collectMeta(observations []domain.Observation) patientMeta {
	var m patientMeta
	for _, obs := range observations {
		if m.baseline == nil && obs.BaselineDate != nil {
			m.baseline = obs.BaselineDate
		}
		if m.lastFollowUp == nil && obs.LastFollowUpDate != nil {
			m.lastFollowUp = obs.LastFollowUpDate
		}
		if m.subsequentTherapy == nil && obs.SubsequentTherapy != nil {
			m.subsequentTherapy = obs.SubsequentTherapy
		}
		if m.progression == nil && obs.ProgressionDate != nil {
			m.progression = obs.ProgressionDate
		}
	}
	return m
}

// GroupByPatient groups observations by patient identifier, preserving
// input order within each patient. Rows without a patient identifier are
// dropped (the ingest layer already rejects them; this keeps the engine
// total over arbitrary input).
func GroupByPatient(observations []domain.Observation) map[string][]domain.Observation {
	grouped := make(map[string][]domain.Observation)
	for _, obs := range observations {
		if obs.PatientID == "" {
			continue
		}
		grouped[obs.PatientID] = append(grouped[obs.PatientID], obs)
	}
	return grouped
}

// BuildEarlySeries constructs the daily-complete early-window series for one
// patient: exactly one TimePoint per day offset from 0 through the follow-up
// horizon, with absent ANC on days without an observation and the minimum
// value on days with several. The horizon is the configured early window,
// shortened to the last-follow-up date when one is present.
//
// Patients without a baseline date produce an empty series; day offsets are
// undefined without the infusion anchor.
func BuildEarlySeries(patientID string, observations []domain.Observation, settings domain.GradingSettings) []TimePoint {
	meta := collectMeta(observations)
	if meta.baseline == nil {
		return nil
	}
	baseline := *meta.baseline

	// Worst-case selection for same-day duplicates.
	byDay := make(map[int]float64)
	for _, obs := range observations {
		day, ok := obs.DayOffset()
		if !ok || day < 0 || day > settings.EarlyDays || obs.ANC == nil {
			continue
		}
		if existing, seen := byDay[day]; !seen || *obs.ANC < existing {
			byDay[day] = *obs.ANC
		}
	}

	horizon := settings.EarlyDays
	if meta.lastFollowUp != nil {
		if fu := domain.DaysBetween(baseline, *meta.lastFollowUp); fu < horizon {
			horizon = fu
		}
	}
	if horizon < 0 {
		return nil
	}

	series := make([]TimePoint, 0, horizon+1)
	for day := 0; day <= horizon; day++ {
		tp := TimePoint{
			PatientID: patientID,
			Day:       day,
			Date:      baseline.AddDate(0, 0, day),
		}
		if value, ok := byDay[day]; ok {
			v := value
			tp.RawANC = &v
		}
		series = append(series, tp)
	}
	return series
}

// BuildLateSeries selects the observed late-window rows for one patient:
// day offset at or beyond the late window start, observation date no later
// than the censoring date. No gap filling is performed; same-day duplicates
// resolve to the minimum ANC and days without any measured value are kept
// as rows with an absent final ANC.
//
// The censoring date is the earliest of the subsequent-therapy, progression
// and last-follow-up dates, defaulting to baseline + the configured late
// horizon when all three are absent.
func BuildLateSeries(patientID string, observations []domain.Observation, settings domain.GradingSettings) []TimePoint {
	meta := collectMeta(observations)
	if meta.baseline == nil {
		return nil
	}
	baseline := *meta.baseline
	end := lateEndDate(baseline, meta, settings)

	type dayValue struct {
		value *float64
		date  time.Time
	}
	byDay := make(map[int]dayValue)
	for _, obs := range observations {
		day, ok := obs.DayOffset()
		if !ok || day < domain.LateWindowStartDay || obs.Date.After(end) {
			continue
		}
		existing, seen := byDay[day]
		if !seen {
			byDay[day] = dayValue{value: obs.ANC, date: *obs.Date}
			continue
		}
		if obs.ANC != nil && (existing.value == nil || *obs.ANC < *existing.value) {
			byDay[day] = dayValue{value: obs.ANC, date: existing.date}
		}
	}

	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)

	series := make([]TimePoint, 0, len(days))
	for _, day := range days {
		dv := byDay[day]
		tp := TimePoint{
			PatientID: patientID,
			Day:       day,
			Date:      dv.date,
		}
		if dv.value != nil {
			v := *dv.value
			tp.RawANC = &v
			tp.FinalANC = &v
		}
		series = append(series, tp)
	}
	return series
}

// lateEndDate computes the late-window censoring date.
func lateEndDate(baseline time.Time, meta patientMeta, settings domain.GradingSettings) time.Time {
	var end *time.Time
	for _, candidate := range []*time.Time{meta.subsequentTherapy, meta.progression, meta.lastFollowUp} {
		if candidate == nil {
			continue
		}
		if end == nil || candidate.Before(*end) {
			end = candidate
		}
	}
	if end == nil {
		d := baseline.AddDate(0, 0, settings.LateDays)
		return d
	}
	return *end
}
