package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/crewdispatch/pkg/model"
)

const tuesday = "2024-03-12"

func assigned(id, techID string, minutes int) model.Job {
	return model.Job{
		ID:                id,
		ScheduledDate:     tuesday,
		ScheduledTime:     "08:00",
		EstimatedDuration: model.Minutes(minutes),
		AssignedTechID:    techID,
	}
}

func TestWorkloadAnalyzer_Analyze(t *testing.T) {
	techs := []model.Technician{{ID: "a", Name: "Ann"}, {ID: "b", Name: "Bo"}, {ID: "c", Name: "Cy"}}
	jobs := []model.Job{
		assigned("j1", "a", 240),
		assigned("j2", "a", 120),
		assigned("j3", "b", 180),
		{ID: "other-day", ScheduledDate: "2024-03-13", AssignedTechID: "c", EstimatedDuration: 60},
	}

	m := NewWorkloadAnalyzer(nil).Analyze(jobs, techs, tuesday)

	require.Len(t, m.TechStats, 3)
	assert.Equal(t, "a", m.TechStats[0].TechID)
	assert.Equal(t, 2, m.TechStats[0].JobCount)
	assert.Equal(t, 360, m.TechStats[0].Minutes)
	assert.Equal(t, 0.67, m.TechStats[0].Utilization, "360 / 540")
	assert.Equal(t, "c", m.TechStats[2].TechID)
	assert.Equal(t, 0, m.TechStats[2].Minutes)

	assert.Equal(t, 1, m.IdleTechs)
	assert.Equal(t, 360, m.MaxMinutes)
	assert.Equal(t, 0, m.MinMinutes)
	assert.Equal(t, 180.0, m.AvgMinutes)
	assert.Equal(t, 100.0, m.TechStats[0].Deviation)
	assert.Greater(t, m.WorkloadGini, 0.0)
	assert.Less(t, m.BalanceScore, 100.0)
}

func TestWorkloadAnalyzer_Balanced(t *testing.T) {
	techs := []model.Technician{{ID: "a"}, {ID: "b"}}
	jobs := []model.Job{assigned("j1", "a", 120), assigned("j2", "b", 120)}

	m := NewWorkloadAnalyzer(nil).Analyze(jobs, techs, tuesday)
	assert.Equal(t, 0.0, m.WorkloadGini)
	assert.Equal(t, 100.0, m.BalanceScore)
	assert.Equal(t, 0, m.IdleTechs)
}

func TestWorkloadAnalyzer_Empty(t *testing.T) {
	m := NewWorkloadAnalyzer(nil).Analyze(nil, nil, tuesday)
	assert.Empty(t, m.TechStats)
	assert.Equal(t, 100.0, m.BalanceScore)
}

func TestGini(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"空输入", nil, 0},
		{"全为零", []float64{0, 0}, 0},
		{"完全均衡", []float64{5, 5, 5}, 0},
		{"一人承担全部", []float64{0, 0, 0, 10}, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, gini(tt.values), 1e-9)
		})
	}
}
