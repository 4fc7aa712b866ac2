package grading

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icahtcli/pkg/contracts/domain"
)

func TestEngineRun(t *testing.T) {
	ctx := context.Background()
	baseline := date(2024, time.January, 10)

	t.Run("patient with all values absent grades zero everywhere", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.January, 12), nil),
			obs("P1", baseline, date(2024, time.January, 20), nil),
		}
		engine := NewEngine(domain.GradingSettings{}, nil)
		batch, err := engine.Run(ctx, observations)
		require.NoError(t, err)
		require.Len(t, batch.Results, 1)

		r := batch.Results[0]
		assert.Equal(t, domain.Grade0, r.EarlyGrade)
		assert.Equal(t, 0, r.DurationBelow500)
		assert.Equal(t, 0, r.DurationBelow100)
		assert.Equal(t, domain.Grade0, r.LateGrade)
		assert.Nil(t, r.ANC1)
	})

	t.Run("full scenario across both phases", func(t *testing.T) {
		observations := []domain.Observation{
			// Early: below 500 on days 2-9 (duration 8 after interpolation
			// bridges days 4-8), recovered on day 10.
			obs("P1", baseline, date(2024, time.January, 10), fp(1500)),
			obs("P1", baseline, date(2024, time.January, 12), fp(450)),
			obs("P1", baseline, date(2024, time.January, 13), fp(380)),
			obs("P1", baseline, date(2024, time.January, 19), fp(420)),
			obs("P1", baseline, date(2024, time.January, 20), fp(900)),
			obs("P1", baseline, date(2024, time.January, 30), fp(1300)),
			// Late: nadir 420 on day 40.
			obs("P1", baseline, date(2024, time.February, 19), fp(420)),
			obs("P1", baseline, date(2024, time.March, 1), fp(1100)),
		}
		engine := NewEngine(domain.GradingSettings{}, nil)
		batch, err := engine.Run(ctx, observations)
		require.NoError(t, err)
		require.Len(t, batch.Results, 1)

		r := batch.Results[0]
		assert.Equal(t, 8, r.DurationBelow500)
		assert.Equal(t, domain.Grade2, r.EarlyGrade)
		assert.False(t, r.Grade4Special)
		require.NotNil(t, r.ANC1)
		assert.Equal(t, 420.0, *r.ANC1)
		assert.Equal(t, domain.Grade3, r.LateGrade)
		assert.Equal(t, 2, r.ANCCount)

		assert.Equal(t, 1, batch.Summary.TotalPatients)
		assert.Equal(t, 1, batch.Summary.EarlyQuality.PatientsWithData)
		assert.Equal(t, 1, batch.Summary.LateQuality.PatientsWithData)
	})

	t.Run("never recovered patient grades four", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.January, 10), fp(1200)),
			obs("P1", baseline, date(2024, time.January, 12), fp(400)),
		}
		// Measurements every few days, all below 500, through day 30.
		for day := 5; day <= 30; day += 5 {
			observations = append(observations,
				obs("P1", baseline, date(2024, time.January, 10+day), fp(300)))
		}
		engine := NewEngine(domain.GradingSettings{}, nil)
		batch, err := engine.Run(ctx, observations)
		require.NoError(t, err)
		require.Len(t, batch.Results, 1)
		assert.True(t, batch.Results[0].Grade4Special)
		assert.Equal(t, domain.Grade4, batch.Results[0].EarlyGrade)
	})

	t.Run("deterministic output across runs and patient order", func(t *testing.T) {
		var observations []domain.Observation
		for _, id := range []string{"P9", "P1", "P5", "P3"} {
			observations = append(observations,
				obs(id, baseline, date(2024, time.January, 11), fp(700)),
				obs(id, baseline, date(2024, time.January, 25), fp(250)),
				obs(id, baseline, date(2024, time.February, 20), fp(950)),
			)
		}
		engine := NewEngine(domain.GradingSettings{}, nil)

		first, err := engine.Run(ctx, observations)
		require.NoError(t, err)
		second, err := engine.Run(ctx, observations)
		require.NoError(t, err)

		firstJSON, err := json.Marshal(first)
		require.NoError(t, err)
		secondJSON, err := json.Marshal(second)
		require.NoError(t, err)
		assert.Equal(t, string(firstJSON), string(secondJSON))

		ids := make([]string, 0, len(first.Results))
		for _, r := range first.Results {
			ids = append(ids, r.PatientID)
		}
		assert.Equal(t, []string{"P1", "P3", "P5", "P9"}, ids)
	})

	t.Run("rows without patient identifiers are dropped", func(t *testing.T) {
		observations := []domain.Observation{
			obs("", baseline, date(2024, time.January, 12), fp(400)),
			obs("P1", baseline, date(2024, time.January, 12), fp(900)),
		}
		engine := NewEngine(domain.GradingSettings{}, nil)
		batch, err := engine.Run(ctx, observations)
		require.NoError(t, err)
		require.Len(t, batch.Results, 1)
		assert.Equal(t, "P1", batch.Results[0].PatientID)
	})

	t.Run("panic in one patient's computation does not abort the batch", func(t *testing.T) {
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.January, 12), fp(900)),
			obs("P2", baseline, date(2024, time.January, 12), fp(850)),
		}
		engine := NewEngine(domain.GradingSettings{}, nil)
		stages := engine.stages
		engine.stages = func(ctx context.Context, patientID string, o []domain.Observation) patientOutcome {
			if patientID == "P1" {
				panic("corrupt record")
			}
			return stages(ctx, patientID, o)
		}

		batch, err := engine.Run(ctx, observations)
		require.NoError(t, err)
		require.Len(t, batch.Results, 2)

		defaulted := batch.Results[0]
		assert.Equal(t, "P1", defaulted.PatientID)
		assert.True(t, defaulted.ComputeFailed)
		assert.Equal(t, domain.Grade0, defaulted.EarlyGrade)
		assert.Equal(t, domain.Grade0, defaulted.LateGrade)
		assert.Nil(t, defaulted.ANC1)

		healthy := batch.Results[1]
		assert.Equal(t, "P2", healthy.PatientID)
		assert.False(t, healthy.ComputeFailed)

		assert.Equal(t, 2, batch.Summary.TotalPatients)
		assert.Equal(t, 1, batch.Summary.FailedPatients)
	})

	t.Run("cancelled context aborts the batch", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		observations := []domain.Observation{
			obs("P1", baseline, date(2024, time.January, 12), fp(400)),
		}
		engine := NewEngine(domain.GradingSettings{}, nil)
		_, err := engine.Run(cancelled, observations)
		assert.Error(t, err)
	})

	t.Run("invalid settings are rejected", func(t *testing.T) {
		engine := NewEngine(domain.GradingSettings{Threshold100: 900, Threshold500: 500}, nil)
		_, err := engine.Run(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("empty batch yields empty result", func(t *testing.T) {
		engine := NewEngine(domain.GradingSettings{}, nil)
		batch, err := engine.Run(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, batch.Results)
		assert.Equal(t, 0, batch.Summary.TotalPatients)
	})
}

func TestEngineSettings(t *testing.T) {
	engine := NewEngine(domain.GradingSettings{EarlyDays: 14}, nil)
	settings := engine.Settings()
	assert.Equal(t, 14, settings.EarlyDays)
	assert.Equal(t, domain.DefaultLateDays, settings.LateDays)
	assert.Equal(t, domain.DefaultRecoveryDays, settings.RecoveryDays)
}
