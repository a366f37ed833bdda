package dispatcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/crewdispatch/pkg/availability"
	"github.com/paiban/crewdispatch/pkg/geo"
	"github.com/paiban/crewdispatch/pkg/model"
	"github.com/paiban/crewdispatch/pkg/scoring"
)

const tuesday = "2024-03-12"

func newEngine(workers int) *Engine {
	return NewEngine(Config{
		Scorer:  scoring.NewScorer(scoring.Config{Estimator: geo.ZipEstimator{}}),
		Workers: workers,
	})
}

func tech(id string) model.Technician {
	return model.Technician{ID: id, Name: "Tech " + id, HomeZip: "94107"}
}

func job(id string, crewSize, minutes int, start string) model.Job {
	j := model.Job{
		ID:                id,
		EstimatedDuration: model.Minutes(minutes),
		ScheduledTime:     start,
		Location:          model.Location{Zip: "94110"},
	}
	if crewSize > 0 {
		j.CrewRequirements = &model.CrewRequirements{RequiredCrewSize: crewSize, MinimumCrewSize: 1}
	}
	return j
}

func entryByJob(plan model.AssignmentPlan, id string) model.PlanEntry {
	for _, e := range plan.Entries {
		if e.JobID == id {
			return e
		}
	}
	return model.PlanEntry{}
}

func TestAutoAssignAll_DiscardIgnoresCrewShortfall(t *testing.T) {
	// 195 基础分 - 100 人数罚分 - 150 历史减分 = -55，排名分 45
	history := scoring.LearningFunc(func(ctx context.Context, tech model.Technician, job model.Job) (scoring.LearningBonus, error) {
		return scoring.LearningBonus{Delta: -150}, nil
	})
	engine := NewEngine(Config{
		Scorer: scoring.NewScorer(scoring.Config{Estimator: geo.ZipEstimator{}, Learning: history}),
	})

	plan := engine.AutoAssignAll(context.Background(), Request{
		Date:        tuesday,
		Jobs:        []model.Job{job("crew3", 3, 60, "")},
		Technicians: []model.Technician{tech("a"), tech("b"), tech("c")},
	})

	entry := entryByJob(plan, "crew3")
	require.False(t, entry.Failed)
	assert.Equal(t, []string{"a", "b", "c"}, entry.TechIDs)
	require.Len(t, entry.Scores, 3)
	assert.Equal(t, -55.0, entry.Scores[0].Score)
	assert.LessOrEqual(t, entry.Scores[0].Score, engine.scorer.Weights().DiscardThreshold)
	assert.Equal(t, 45.0, entry.Scores[0].RankingScore())
}

func TestAutoAssignAll_PriorityOrder(t *testing.T) {
	plan := newEngine(2).AutoAssignAll(context.Background(), Request{
		Date: tuesday,
		Jobs: []model.Job{
			job("short", 1, 30, ""),
			job("crew3", 3, 60, ""),
			job("long", 1, 240, ""),
			job("crew2", 2, 60, ""),
		},
		Technicians: []model.Technician{tech("a"), tech("b"), tech("c"), tech("d")},
	})

	var order []string
	for _, e := range plan.Entries {
		order = append(order, e.JobID)
	}
	assert.Equal(t, []string{"crew3", "crew2", "long", "short"}, order)
	assert.Equal(t, model.PlanSummary{Total: 4, Assigned: 4, FullyStaffed: 4}, plan.Summary)
	assert.NotEmpty(t, plan.ID)
}

func TestAutoAssignAll_LaterJobsSeeEarlierCommitments(t *testing.T) {
	plan := newEngine(4).AutoAssignAll(context.Background(), Request{
		Date:        tuesday,
		Jobs:        []model.Job{job("first", 1, 120, ""), job("second", 1, 60, "")},
		Technicians: []model.Technician{tech("a"), tech("b")},
	})

	assert.Equal(t, []string{"a"}, entryByJob(plan, "first").TechIDs)
	assert.Equal(t, []string{"b"}, entryByJob(plan, "second").TechIDs)
}

func TestAutoAssignAll_BlockedTechExcluded(t *testing.T) {
	timeOff := []model.TimeOffEntry{{TechID: "a", StartDate: "2024-03-11", EndDate: "2024-03-15"}}
	plan := newEngine(2).AutoAssignAll(context.Background(), Request{
		Date:        tuesday,
		Jobs:        []model.Job{job("j1", 2, 60, "09:00"), job("j2", 1, 60, "13:00")},
		Technicians: []model.Technician{tech("a"), tech("b")},
		TimeOff:     timeOff,
	})

	for _, e := range plan.Entries {
		assert.NotContains(t, e.TechIDs, "a")
	}
}

func TestAutoAssignAll_NoTechAvailable(t *testing.T) {
	plan := newEngine(1).AutoAssignAll(context.Background(), Request{
		Date:        "2024-03-16", // 周六
		Jobs:        []model.Job{job("weekend", 1, 60, "")},
		Technicians: []model.Technician{tech("a")},
	})

	require.Len(t, plan.Entries, 1)
	e := plan.Entries[0]
	assert.True(t, e.Failed)
	assert.Equal(t, []string{WarningNoTech}, e.Warnings)
	assert.Equal(t, 1, plan.Summary.Unassigned)
}

func TestAutoAssignAll_Understaffed(t *testing.T) {
	plan := newEngine(2).AutoAssignAll(context.Background(), Request{
		Date:        tuesday,
		Jobs:        []model.Job{job("big", 3, 240, "08:00")},
		Technicians: []model.Technician{tech("a"), tech("b")},
	})

	e := plan.Entries[0]
	assert.False(t, e.Failed)
	assert.False(t, e.IsFullyStaffed)
	assert.Equal(t, 2, e.AssignedCrewSize)
	require.Len(t, e.Warnings, 1)
	assert.Contains(t, e.Warnings[0], "needs 1 more")
	assert.Equal(t, 1, plan.Summary.Understaffed)
}

func TestAutoAssignAll_NoDoubleBooking(t *testing.T) {
	var jobs []model.Job
	starts := []string{"08:00", "08:30", "09:15", "10:00", "10:45", "12:00", "12:20", "14:00", "15:30", "16:00"}
	for i, s := range starts {
		jobs = append(jobs, job(fmt.Sprintf("j%d", i), 1+i%2, 45+15*(i%3), s))
	}
	techs := []model.Technician{tech("a"), tech("b"), tech("c")}

	plan := newEngine(3).AutoAssignAll(context.Background(), Request{Date: tuesday, Jobs: jobs, Technicians: techs})

	type window struct{ start, end int }
	byTech := make(map[string][]window)
	byID := make(map[string]model.Job)
	for _, j := range jobs {
		byID[j.ID] = j
	}
	for _, e := range plan.Entries {
		if e.Failed {
			continue
		}
		j := byID[e.JobID]
		j.ScheduledDate = tuesday
		s, end, ok := j.WindowOn(tuesday)
		require.True(t, ok)
		for _, id := range e.TechIDs {
			byTech[id] = append(byTech[id], window{s, end})
		}
	}

	for id, windows := range byTech {
		for i := 0; i < len(windows); i++ {
			for k := i + 1; k < len(windows); k++ {
				assert.False(t,
					availability.Overlaps(windows[i].start, windows[i].end, windows[k].start, windows[k].end, 30),
					"tech %s double-booked: %v vs %v", id, windows[i], windows[k])
			}
		}
	}
}

func TestAutoAssignAll_ExistingAssignmentsRespected(t *testing.T) {
	existing := []model.Job{{
		ID:                "booked",
		AssignedTechID:    "a",
		ScheduledDate:     tuesday,
		ScheduledTime:     "09:00",
		EstimatedDuration: 120,
	}}
	plan := newEngine(2).AutoAssignAll(context.Background(), Request{
		Date:                tuesday,
		Jobs:                []model.Job{job("overlapping", 1, 60, "10:00")},
		Technicians:         []model.Technician{tech("a"), tech("b")},
		ExistingAssignments: existing,
	})

	assert.Equal(t, []string{"b"}, plan.Entries[0].TechIDs)
}

func TestAutoAssignAll_VehiclePick(t *testing.T) {
	vehicles := []model.Vehicle{
		{ID: "van", PassengerCapacity: 6},
		{ID: "truck", PassengerCapacity: 3},
		{ID: "car", PassengerCapacity: 2},
		{ID: "broken", PassengerCapacity: 3, OutOfService: true},
	}
	plan := newEngine(2).AutoAssignAll(context.Background(), Request{
		Date:        tuesday,
		Jobs:        []model.Job{job("three", 3, 60, "08:00"), job("two", 2, 60, "13:00"), job("one", 1, 30, "16:00")},
		Technicians: []model.Technician{tech("a"), tech("b"), tech("c")},
		Vehicles:    vehicles,
	})

	assert.Equal(t, "truck", entryByJob(plan, "three").VehicleID)
	assert.Equal(t, "car", entryByJob(plan, "two").VehicleID)
	assert.Equal(t, "van", entryByJob(plan, "one").VehicleID)
}

func TestAutoAssignAll_CustomPriority(t *testing.T) {
	shortestFirst := func(a, b model.Job) bool { return a.DurationMinutes() < b.DurationMinutes() }
	e := NewEngine(Config{
		Scorer:   scoring.NewScorer(scoring.Config{Estimator: geo.ZipEstimator{}}),
		Priority: shortestFirst,
	})

	plan := e.AutoAssignAll(context.Background(), Request{
		Date:        tuesday,
		Jobs:        []model.Job{job("long", 1, 240, "09:00"), job("short", 1, 30, "09:30")},
		Technicians: []model.Technician{tech("a")},
	})

	// 同一技师时段冲突，先处理的工单获得技师
	assert.Equal(t, "short", plan.Entries[0].JobID)
	assert.False(t, plan.Entries[0].Failed)
	assert.True(t, plan.Entries[1].Failed)
}

func TestSortJobs_Stable(t *testing.T) {
	jobs := []model.Job{job("x", 1, 60, ""), job("y", 1, 60, ""), job("z", 2, 30, "")}
	sorted := SortJobs(jobs, nil)
	assert.Equal(t, "z", sorted[0].ID)
	assert.Equal(t, "x", sorted[1].ID)
	assert.Equal(t, "y", sorted[2].ID)
	assert.Equal(t, "x", jobs[0].ID)
}
