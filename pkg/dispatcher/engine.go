// Package dispatcher 提供批量自动派工
//
// 派工采用单遍贪心：工单按优先级依次处理，先处理的工单占用的时段对后续工单可见。
// 结果依赖处理顺序，更换优先级得到不同结果属于预期行为，不保证全局最优。
package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/crewdispatch/pkg/availability"
	"github.com/paiban/crewdispatch/pkg/crew"
	"github.com/paiban/crewdispatch/pkg/logger"
	"github.com/paiban/crewdispatch/pkg/model"
	"github.com/paiban/crewdispatch/pkg/scoring"
	"github.com/paiban/crewdispatch/pkg/timeutil"
)

// WarningNoTech 无可用技师时的提示
const WarningNoTech = "No suitable tech available"

// Config 派工引擎配置
type Config struct {
	Scorer   *scoring.Scorer
	Workers  int
	Priority JobLess
}

// Engine 批量派工引擎
type Engine struct {
	scorer   *scoring.Scorer
	checker  *availability.Checker
	workers  int
	priority JobLess
	log      *logger.EngineLogger
}

// NewEngine 创建派工引擎
func NewEngine(cfg Config) *Engine {
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.Config{})
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	priority := cfg.Priority
	if priority == nil {
		priority = CrewThenDuration
	}
	defaults := scorer.Defaults()
	return &Engine{
		scorer:   scorer,
		checker:  availability.NewChecker(&defaults),
		workers:  workers,
		priority: priority,
		log:      logger.NewEngineLogger(),
	}
}

// Request 批量派工请求
type Request struct {
	Jobs                []model.Job          `json:"jobs"`
	Technicians         []model.Technician   `json:"technicians"`
	ExistingAssignments []model.Job          `json:"existing_assignments,omitempty"`
	Date                string               `json:"date"`
	TimeOff             []model.TimeOffEntry `json:"time_off,omitempty"`
	Vehicles            []model.Vehicle      `json:"vehicles,omitempty"`
}

// AutoAssignAll 为一批未分配工单派工
// 每个输入工单都会在结果中出现，无法派工的工单标记为 failed
func (e *Engine) AutoAssignAll(ctx context.Context, req Request) model.AssignmentPlan {
	started := time.Now()
	e.log.AutoAssignStart(req.Date, len(req.Jobs), len(req.Technicians))

	defaults := e.scorer.Defaults()
	techs := make([]model.Technician, len(req.Technicians))
	for i, t := range req.Technicians {
		techs[i] = t.WithDefaults(defaults)
	}

	annotated := make([]model.Job, len(req.Jobs))
	for i, j := range req.Jobs {
		annotated[i] = crew.Annotate(j, false)
	}
	ordered := SortJobs(annotated, e.priority)

	working := make([]model.Job, len(req.ExistingAssignments))
	copy(working, req.ExistingAssignments)

	var vehicles *vehiclePool
	if len(req.Vehicles) > 0 {
		vehicles = newVehiclePool(req.Vehicles, req.ExistingAssignments, req.Date)
	}

	plan := model.AssignmentPlan{
		ID:      uuid.New().String(),
		Date:    req.Date,
		Entries: make([]model.PlanEntry, 0, len(ordered)),
	}

	for _, job := range ordered {
		entry, committed := e.assignJob(ctx, job, techs, working, req.Date, req.TimeOff, vehicles)
		plan.Entries = append(plan.Entries, entry)
		if committed != nil {
			working = append(working, *committed)
		}
	}

	plan.Summarize()
	plan.GeneratedAt = time.Now()

	e.log.AutoAssignComplete(req.Date, time.Since(started),
		plan.Summary.Assigned, plan.Summary.Unassigned, plan.Summary.Understaffed)
	return plan
}

// assignJob 为单个工单选择技师，返回计划条目和应加入工作集的工单
func (e *Engine) assignJob(
	ctx context.Context,
	job model.Job,
	techs []model.Technician,
	working []model.Job,
	date string,
	timeOff []model.TimeOffEntry,
	vehicles *vehiclePool,
) (model.PlanEntry, *model.Job) {
	required := job.RequiredCrewSize()
	duration := job.DurationMinutes()

	start := availability.NoStart
	if job.ScheduledDate == "" || job.ScheduledDate == date {
		if m, ok := timeutil.ClockToMinutes(job.ScheduledTime); ok {
			start = m
		}
	}

	entry := model.PlanEntry{
		JobID:            job.ID,
		Date:             date,
		RequiredCrewSize: required,
		TechIDs:          []string{},
		TechNames:        []string{},
		Warnings:         []string{},
	}
	if start != availability.NoStart {
		entry.StartTime = timeutil.MinutesToClock(start)
	}

	scores := e.scoreAll(ctx, techs, job, working, date, timeOff)
	threshold := e.scorer.Weights().DiscardThreshold

	type candidate struct {
		tech  model.Technician
		score model.ScoreResult
	}
	var candidates []candidate
	for i, res := range scores {
		if res.IsBlocked || res.RankingScore() <= threshold {
			continue
		}
		if !e.checker.IsTechAvailable(techs[i], date, start, duration, working, timeOff) {
			continue
		}
		candidates = append(candidates, candidate{tech: techs[i], score: res})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score.Score != candidates[j].score.Score {
			return candidates[i].score.Score > candidates[j].score.Score
		}
		return candidates[i].tech.ID < candidates[j].tech.ID
	})

	if len(candidates) == 0 {
		entry.Failed = true
		entry.Warnings = append(entry.Warnings, WarningNoTech)
		e.log.JobUnassigned(job.ID, len(techs))
		return entry, nil
	}

	take := required
	if len(candidates) < take {
		take = len(candidates)
	}
	for _, c := range candidates[:take] {
		entry.TechIDs = append(entry.TechIDs, c.tech.ID)
		entry.TechNames = append(entry.TechNames, c.tech.Name)
		entry.Scores = append(entry.Scores, c.score)
	}
	entry.AssignedCrewSize = take
	entry.IsFullyStaffed = take >= required

	if !entry.IsFullyStaffed {
		entry.Warnings = append(entry.Warnings,
			fmt.Sprintf("Understaffed: assigned %d of %d techs, needs %d more", take, required, required-take))
	}

	if vehicles != nil {
		if v, ok := vehicles.take(take); ok {
			entry.VehicleID = v.ID
		} else {
			entry.Warnings = append(entry.Warnings, fmt.Sprintf("No vehicle available that seats %d", take))
		}
	}

	committed := job
	committed.ScheduledDate = date
	committed.ScheduledTime = entry.StartTime
	committed.AssignedCrew = entry.Crew()
	committed.AssignedTechID = entry.TechIDs[0]
	committed.AssignedVehicleID = entry.VehicleID
	return entry, &committed
}
