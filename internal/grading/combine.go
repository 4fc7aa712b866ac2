package grading

import (
	"sort"

	"icahtcli/pkg/contracts/domain"
)

// Combine unions the per-patient early and late results into one record per
// patient. Patients present on only one side carry the other side's
// defaults: grade 0 with zero durations for the early phase, grade 0 with
// absent nadir values for the late phase. The output is sorted by patient
// identifier so identical input always yields identical output.
func Combine(early map[string]EarlyResult, late map[string]LateResult) []domain.CombinedResult {
	ids := make(map[string]struct{}, len(early)+len(late))
	for id := range early {
		ids[id] = struct{}{}
	}
	for id := range late {
		ids[id] = struct{}{}
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	results := make([]domain.CombinedResult, 0, len(sorted))
	for _, id := range sorted {
		combined := domain.CombinedResult{PatientID: id}
		if e, ok := early[id]; ok {
			combined.EarlyGrade = e.Grade
			combined.DurationBelow500 = e.DurationBelow500
			combined.DurationBelow100 = e.DurationBelow100
			combined.Grade4Special = e.Grade4Special
		}
		if l, ok := late[id]; ok {
			combined.LateGrade = l.Grade
			combined.ANC1 = l.ANC1
			combined.ANC2 = l.ANC2
			combined.ANCCount = l.ANCCount
		}
		results = append(results, combined)
	}
	return results
}
