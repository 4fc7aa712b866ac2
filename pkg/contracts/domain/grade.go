package domain

import "fmt"

// Grade represents an ICAHT toxicity grade on the consensus 0-4 scale.
type Grade int

const (
	Grade0 Grade = iota
	Grade1
	Grade2
	Grade3
	Grade4
)

// String returns the clinical label used in reports and exports.
func (g Grade) String() string {
	return fmt.Sprintf("Grade %d", int(g))
}

// IsValid reports whether the grade is on the 0-4 scale.
func (g Grade) IsValid() bool {
	return g >= Grade0 && g <= Grade4
}
