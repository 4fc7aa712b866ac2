package grading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icahtcli/pkg/contracts/domain"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func obs(patientID string, baseline, day *time.Time, anc *float64) domain.Observation {
	return domain.Observation{
		PatientID:    patientID,
		BaselineDate: baseline,
		Date:         day,
		ANC:          anc,
	}
}

func TestBuildEarlySeries(t *testing.T) {
	baseline := date(2024, time.March, 1)
	settings := domain.DefaultGradingSettings()

	t.Run("emits one row per day with absent gaps", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.March, 1), fp(1200)),
			obs("P1", baseline, date(2024, time.March, 6), fp(400)),
		}
		series := BuildEarlySeries("P1", observations, settings)
		require.Len(t, series, 31)
		for i, tp := range series {
			assert.Equal(t, i, tp.Day)
			assert.Equal(t, baseline.AddDate(0, 0, i), tp.Date)
		}
		assert.Equal(t, 1200.0, *series[0].RawANC)
		assert.Nil(t, series[1].RawANC)
		assert.Equal(t, 400.0, *series[5].RawANC)
	})

	t.Run("same-day duplicates keep the minimum", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.March, 3), fp(800)),
			obs("P1", baseline, date(2024, time.March, 3), fp(450)),
			obs("P1", baseline, date(2024, time.March, 3), fp(900)),
		}
		series := BuildEarlySeries("P1", observations, settings)
		require.NotNil(t, series[2].RawANC)
		assert.Equal(t, 450.0, *series[2].RawANC)
	})

	t.Run("follow-up date shortens the horizon", func(t *testing.T) {
		observations := []domain.Observation{
			{
				PatientID:        "P1",
				BaselineDate:     baseline,
				Date:             date(2024, time.March, 2),
				ANC:              fp(500),
				LastFollowUpDate: date(2024, time.March, 11),
			},
		}
		series := BuildEarlySeries("P1", observations, settings)
		assert.Len(t, series, 11) // days 0..10
	})

	t.Run("absent follow-up uses the full window", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.March, 2), fp(500)),
		}
		assert.Len(t, BuildEarlySeries("P1", observations, settings), 31)
	})

	t.Run("negative day offsets are excluded", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.February, 25), fp(100)),
			obs("P1", baseline, date(2024, time.March, 1), fp(1500)),
		}
		series := BuildEarlySeries("P1", observations, settings)
		assert.Equal(t, 1500.0, *series[0].RawANC)
		for _, tp := range series[1:] {
			assert.Nil(t, tp.RawANC)
		}
	})

	t.Run("observations beyond the window are excluded", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.March, 1), fp(900)),
			obs("P1", baseline, date(2024, time.April, 15), fp(100)),
		}
		series := BuildEarlySeries("P1", observations, settings)
		assert.Len(t, series, 31)
		for _, tp := range series[1:] {
			assert.Nil(t, tp.RawANC)
		}
	})

	t.Run("missing baseline yields empty series", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", nil, date(2024, time.March, 5), fp(700)),
		}
		assert.Empty(t, BuildEarlySeries("P1", observations, settings))
	})

	t.Run("follow-up before baseline yields empty series", func(t *testing.T) {
		observations := []domain.Observation{
			{
				PatientID:        "P1",
				BaselineDate:     baseline,
				LastFollowUpDate: date(2024, time.February, 20),
			},
		}
		assert.Empty(t, BuildEarlySeries("P1", observations, settings))
	})
}

func TestBuildLateSeries(t *testing.T) {
	baseline := date(2024, time.March, 1)
	settings := domain.DefaultGradingSettings()

	t.Run("keeps only observed rows from day 31", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.March, 15), fp(800)),  // day 14
			obs("P1", baseline, date(2024, time.April, 1), fp(600)),   // day 31
			obs("P1", baseline, date(2024, time.April, 20), fp(1100)), // day 50
		}
		series := BuildLateSeries("P1", observations, settings)
		require.Len(t, series, 2)
		assert.Equal(t, 31, series[0].Day)
		assert.Equal(t, 600.0, *series[0].FinalANC)
		assert.Equal(t, 50, series[1].Day)
	})

	t.Run("rows past the censoring date are excluded", func(t *testing.T) {
		observations := []domain.Observation{
			{
				PatientID:         "P1",
				BaselineDate:      baseline,
				Date:              date(2024, time.April, 5), // day 35
				ANC:               fp(900),
				SubsequentTherapy: date(2024, time.April, 10),
			},
			obs("P1", baseline, date(2024, time.April, 15), fp(200)), // day 45, past therapy
		}
		series := BuildLateSeries("P1", observations, settings)
		require.Len(t, series, 1)
		assert.Equal(t, 35, series[0].Day)
	})

	t.Run("censoring date is the earliest of the three anchors", func(t *testing.T) {
		observations := []domain.Observation{
			{
				PatientID:         "P1",
				BaselineDate:      baseline,
				Date:              date(2024, time.April, 5),
				ANC:               fp(900),
				SubsequentTherapy: date(2024, time.May, 1),
				ProgressionDate:   date(2024, time.April, 2), // earliest
				LastFollowUpDate:  date(2024, time.June, 1),
			},
		}
		// Observation on day 35 is after the April 2 progression date.
		assert.Empty(t, BuildLateSeries("P1", observations, settings))
	})

	t.Run("default horizon is baseline plus late_days", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.June, 8), fp(700)),  // day 99
			obs("P1", baseline, date(2024, time.June, 10), fp(100)), // day 101, past default horizon
		}
		series := BuildLateSeries("P1", observations, settings)
		require.Len(t, series, 1)
		assert.Equal(t, 99, series[0].Day)
	})

	t.Run("same-day duplicates keep the minimum", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.April, 10), fp(700)),
			obs("P1", baseline, date(2024, time.April, 10), fp(350)),
		}
		series := BuildLateSeries("P1", observations, settings)
		require.Len(t, series, 1)
		assert.Equal(t, 350.0, *series[0].FinalANC)
	})

	t.Run("observed row without a value is kept as absent", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.April, 10), nil),
		}
		series := BuildLateSeries("P1", observations, settings)
		require.Len(t, series, 1)
		assert.False(t, series[0].HasFinal())
	})
}
