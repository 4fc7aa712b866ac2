package exporter

import (
	"fmt"
	"strconv"
)

// formatANC renders an optional absolute neutrophil count. Counts are
// recorded as whole cells/µL but interpolation can introduce fractions, so
// trim trailing zeros instead of forcing a precision.
func formatANC(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// formatRate formats a percentage with exactly 2 decimal places so 13.4
// appears as 13.40 across exports.
func formatRate(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
