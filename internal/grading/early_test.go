package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"icahtcli/pkg/contracts/domain"
)

func TestEarlyGrade(t *testing.T) {
	tests := []struct {
		name    string
		dur500  int
		dur100  int
		special bool
		want    domain.Grade
	}{
		{"no exceedances", 0, 0, false, domain.Grade0},
		{"one day below 500", 1, 0, false, domain.Grade1},
		{"six days below 500", 6, 0, false, domain.Grade1},
		{"seven days below 500", 7, 0, false, domain.Grade2},
		{"thirteen days below 500", 13, 3, false, domain.Grade2},
		{"fourteen days below 500", 14, 0, false, domain.Grade3},
		{"thirty days below 500", 30, 6, false, domain.Grade3},
		{"short aplasia with a week below 100", 10, 7, false, domain.Grade3},
		{"thirteen days below 100", 20, 13, false, domain.Grade3},
		{"thirty-one days below 500", 31, 0, false, domain.Grade4},
		{"fourteen days below 100", 20, 14, false, domain.Grade4},
		{"special case overrides short duration", 4, 0, true, domain.Grade4},
		{"special case overrides zero durations", 0, 0, true, domain.Grade4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EarlyGrade(tt.dur500, tt.dur100, tt.special))
		})
	}
}

func TestGradeEarlySeries(t *testing.T) {
	settings := domain.DefaultGradingSettings()

	t.Run("all values absent grades zero", func(t *testing.T) {
		series := seriesFromValues(make([]*float64, 31))
		result := GradeEarlySeries("P1", series, settings)
		assert.Equal(t, 0, result.DurationBelow500)
		assert.Equal(t, 0, result.DurationBelow100)
		assert.False(t, result.Grade4Special)
		assert.Equal(t, domain.Grade0, result.Grade)
	})

	t.Run("empty series grades zero", func(t *testing.T) {
		result := GradeEarlySeries("P1", nil, settings)
		assert.Equal(t, domain.Grade0, result.Grade)
	})

	t.Run("never recovered from day two", func(t *testing.T) {
		// Entered aplasia on day 2 and never recovered through day 30.
		// Duration alone (29 days) would grade 3.
		values := make([]*float64, 31)
		values[0] = fp(1100)
		values[1] = fp(800)
		for day := 2; day <= 30; day++ {
			values[day] = fp(350)
		}
		result := GradeEarlySeries("P1", seriesFromValues(values), settings)
		assert.Equal(t, 29, result.DurationBelow500)
		assert.True(t, result.Grade4Special)
		assert.Equal(t, domain.Grade4, result.Grade)
	})

	t.Run("merged intervals drive the duration", func(t *testing.T) {
		// [0,4] below, 2 good days, [7,9] below: merges to duration 10.
		values := make([]*float64, 31)
		for day := 0; day <= 4; day++ {
			values[day] = fp(300)
		}
		values[5] = fp(900)
		values[6] = fp(900)
		for day := 7; day <= 9; day++ {
			values[day] = fp(400)
		}
		for day := 10; day <= 30; day++ {
			values[day] = fp(1200)
		}
		result := GradeEarlySeries("P1", seriesFromValues(values), settings)
		assert.Equal(t, 10, result.DurationBelow500)
		assert.Equal(t, 1, result.Exceedances500)
		assert.False(t, result.Grade4Special)
		assert.Equal(t, domain.Grade2, result.Grade)
	})

	t.Run("deep aplasia tracked on both thresholds", func(t *testing.T) {
		values := make([]*float64, 31)
		for day := 0; day <= 30; day++ {
			values[day] = fp(1200)
		}
		for day := 3; day <= 12; day++ {
			values[day] = fp(50)
		}
		result := GradeEarlySeries("P1", seriesFromValues(values), settings)
		assert.Equal(t, 10, result.DurationBelow500)
		assert.Equal(t, 10, result.DurationBelow100)
		assert.Equal(t, domain.Grade3, result.Grade)
	})
}
