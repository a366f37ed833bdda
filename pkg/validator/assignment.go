// Package validator 提供派工结果校验
package validator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/paiban/crewdispatch/pkg/availability"
	"github.com/paiban/crewdispatch/pkg/crew"
	"github.com/paiban/crewdispatch/pkg/model"
	"github.com/paiban/crewdispatch/pkg/scoring"
	"github.com/paiban/crewdispatch/pkg/timeutil"
)

// IssueType 问题类型
type IssueType string

const (
	IssueNoCrew          IssueType = "no_crew"          // 未分配人员
	IssueCrewShortfall   IssueType = "crew_shortfall"   // 人数不足
	IssueOverMaximum     IssueType = "over_maximum"     // 超过人数上限
	IssueUnknownTech     IssueType = "unknown_tech"     // 技师不存在
	IssueTechBlocked     IssueType = "tech_blocked"     // 技师被阻断（请假）
	IssueTechWarning     IssueType = "tech_warning"     // 技师评分提示
	IssueOverlap         IssueType = "overlap"          // 时间重叠
	IssueVehicleCapacity IssueType = "vehicle_capacity" // 车辆座位不足
	IssueNoVehicle       IssueType = "no_vehicle"       // 未分配车辆
)

// Issue 单条校验问题
type Issue struct {
	Type     IssueType      `json:"type"`
	Severity model.Severity `json:"severity"`
	Message  string         `json:"message"`
	TechID   string         `json:"tech_id,omitempty"`
}

// Suggestion 修正建议
type Suggestion struct {
	Type       IssueType `json:"type"`
	Message    string    `json:"message"`
	TechIDs    []string  `json:"tech_ids,omitempty"`
	VehicleIDs []string  `json:"vehicle_ids,omitempty"`
	// EarliestStarts 工单未定开始时间时，各推荐技师最早可开工的时间
	EarliestStarts map[string]string `json:"earliest_starts,omitempty"`
}

// Result 校验结果，errors 为空即有效，warnings 不阻断
type Result struct {
	IsValid                bool         `json:"is_valid"`
	CanProceedWithWarnings bool         `json:"can_proceed_with_warnings"`
	Errors                 []Issue      `json:"errors"`
	Warnings               []Issue      `json:"warnings"`
	Suggestions            []Suggestion `json:"suggestions"`
}

// Request 校验请求
type Request struct {
	Job          model.Job            `json:"job"`
	Date         string               `json:"date"`
	AssignedCrew []model.CrewMember   `json:"assigned_crew"`
	Vehicle      *model.Vehicle       `json:"vehicle,omitempty"`
	Technicians  []model.Technician   `json:"technicians"`
	ExistingJobs []model.Job          `json:"existing_jobs,omitempty"`
	TimeOff      []model.TimeOffEntry `json:"time_off,omitempty"`
	Vehicles     []model.Vehicle      `json:"vehicles,omitempty"`
}

// AssignmentValidator 派工校验器
type AssignmentValidator struct {
	scorer  *scoring.Scorer
	checker *availability.Checker
}

// NewAssignmentValidator 创建校验器
func NewAssignmentValidator(scorer *scoring.Scorer) *AssignmentValidator {
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.Config{})
	}
	defaults := scorer.Defaults()
	return &AssignmentValidator{
		scorer:  scorer,
		checker: availability.NewChecker(&defaults),
	}
}

// ValidateSchedulingAssignment 校验人员与车辆是否满足工单需求
func (v *AssignmentValidator) ValidateSchedulingAssignment(ctx context.Context, req Request) Result {
	res := Result{
		Errors:      []Issue{},
		Warnings:    []Issue{},
		Suggestions: []Suggestion{},
	}

	job := crew.Annotate(req.Job, false)
	required := job.RequiredCrewSize()
	members := uniqueCrew(req.AssignedCrew)
	size := len(members)

	techByID := make(map[string]model.Technician, len(req.Technicians))
	for _, t := range req.Technicians {
		techByID[t.ID] = t
	}

	start := availability.NoStart
	if m, ok := timeutil.ClockToMinutes(job.ScheduledTime); ok && (job.ScheduledDate == "" || job.ScheduledDate == req.Date) {
		start = m
	}

	// 人数
	switch {
	case size == 0 && required >= 1:
		res.Errors = append(res.Errors, Issue{
			Type:     IssueNoCrew,
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("No technicians assigned, job needs %d", required),
		})
		v.suggestTechs(ctx, &res, IssueNoCrew, job, req, start, members, required)
	case size < required:
		res.Errors = append(res.Errors, Issue{
			Type:     IssueCrewShortfall,
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("Assigned %d of %d required techs", size, required),
		})
		v.suggestTechs(ctx, &res, IssueCrewShortfall, job, req, start, members, required-size)
	}

	if maxCrew := job.CrewRequirements.MaximumCrewSize; maxCrew != nil && size > *maxCrew {
		res.Warnings = append(res.Warnings, Issue{
			Type:     IssueOverMaximum,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("Crew of %d exceeds the maximum of %d", size, *maxCrew),
		})
	}

	// 逐个技师复核
	for _, m := range members {
		tech, ok := techByID[m.TechID]
		if !ok {
			res.Warnings = append(res.Warnings, Issue{
				Type:     IssueUnknownTech,
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("Technician %s not found", m.TechID),
				TechID:   m.TechID,
			})
			continue
		}
		v.checkTech(ctx, &res, tech, job, req, start)
	}

	// 车辆
	vehicle := req.Vehicle
	if vehicle == nil && job.AssignedVehicleID != "" {
		for i := range req.Vehicles {
			if req.Vehicles[i].ID == job.AssignedVehicleID {
				vehicle = &req.Vehicles[i]
				break
			}
		}
	}
	switch {
	case vehicle != nil && vehicle.PassengerCapacity < size:
		res.Errors = append(res.Errors, Issue{
			Type:     IssueVehicleCapacity,
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("Vehicle %s seats %d but crew is %d", vehicleLabel(*vehicle), vehicle.PassengerCapacity, size),
		})
		if alts := alternativeVehicles(req.Vehicles, size, vehicle.ID); len(alts) > 0 {
			res.Suggestions = append(res.Suggestions, Suggestion{
				Type:       IssueVehicleCapacity,
				Message:    fmt.Sprintf("Vehicles that seat %d", size),
				VehicleIDs: alts,
			})
		}
	case vehicle == nil && size > 0:
		res.Warnings = append(res.Warnings, Issue{
			Type:     IssueNoVehicle,
			Severity: model.SeverityWarning,
			Message:  "Crew assigned without a vehicle",
		})
		if alts := alternativeVehicles(req.Vehicles, size, ""); len(alts) > 0 {
			res.Suggestions = append(res.Suggestions, Suggestion{
				Type:       IssueNoVehicle,
				Message:    fmt.Sprintf("Vehicles that seat %d", size),
				VehicleIDs: alts,
			})
		}
	}

	res.IsValid = len(res.Errors) == 0
	res.CanProceedWithWarnings = res.IsValid && len(res.Warnings) > 0
	return res
}

// checkTech 以检测模式复用评分，只取阻断与提示
func (v *AssignmentValidator) checkTech(ctx context.Context, res *Result, tech model.Technician, job model.Job, req Request, start int) {
	score := v.scorer.ScoreTechForJob(ctx, tech, job, req.ExistingJobs, req.Date, req.TimeOff)
	if score.IsBlocked {
		for _, w := range score.Warnings {
			res.Errors = append(res.Errors, Issue{
				Type:     IssueTechBlocked,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("%s: %s", techLabel(tech), w),
				TechID:   tech.ID,
			})
		}
		return
	}
	for _, w := range score.Warnings {
		res.Warnings = append(res.Warnings, Issue{
			Type:     IssueTechWarning,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("%s: %s", techLabel(tech), w),
			TechID:   tech.ID,
		})
	}

	if start == availability.NoStart {
		return
	}
	for _, c := range v.checker.CheckConflicts(tech, job, req.Date, start, req.ExistingJobs, req.TimeOff) {
		if c.Type != availability.ConflictOverlap {
			continue
		}
		res.Errors = append(res.Errors, Issue{
			Type:     IssueOverlap,
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("%s: %s", techLabel(tech), c.Message),
			TechID:   tech.ID,
		})
	}
}

// suggestTechs 推荐可补充的技师
func (v *AssignmentValidator) suggestTechs(
	ctx context.Context,
	res *Result,
	issue IssueType,
	job model.Job,
	req Request,
	start int,
	members []model.CrewMember,
	needed int,
) {
	assigned := make(map[string]bool, len(members))
	for _, m := range members {
		assigned[m.TechID] = true
	}

	type ranked struct {
		tech  model.Technician
		score float64
	}
	var available []ranked
	for _, t := range req.Technicians {
		if assigned[t.ID] {
			continue
		}
		if !v.checker.IsTechAvailable(t, req.Date, start, job.DurationMinutes(), req.ExistingJobs, req.TimeOff) {
			continue
		}
		s := v.scorer.ScoreTechForJob(ctx, t, job, req.ExistingJobs, req.Date, req.TimeOff)
		if s.IsBlocked {
			continue
		}
		available = append(available, ranked{tech: t, score: s.Score})
	}
	sort.SliceStable(available, func(i, j int) bool {
		if available[i].score != available[j].score {
			return available[i].score > available[j].score
		}
		return available[i].tech.ID < available[j].tech.ID
	})

	if len(available) == 0 {
		res.Suggestions = append(res.Suggestions, Suggestion{
			Type:    issue,
			Message: fmt.Sprintf("No available techs on %s, needs %d more", req.Date, needed),
		})
		return
	}
	if len(available) > needed {
		available = available[:needed]
	}
	ids := make([]string, len(available))
	for i, a := range available {
		ids[i] = a.tech.ID
	}
	suggestion := Suggestion{
		Type:    issue,
		Message: fmt.Sprintf("Needs %d more: available %s", needed, strings.Join(ids, ", ")),
		TechIDs: ids,
	}
	if start == availability.NoStart {
		for _, a := range available {
			slot, ok := v.checker.FindEarliestSlot(a.tech, req.Date, job.DurationMinutes(), req.ExistingJobs)
			if !ok {
				continue
			}
			if suggestion.EarliestStarts == nil {
				suggestion.EarliestStarts = make(map[string]string)
			}
			suggestion.EarliestStarts[a.tech.ID] = timeutil.MinutesToClock(slot)
		}
	}
	res.Suggestions = append(res.Suggestions, suggestion)
}

// alternativeVehicles 可容纳该人数的车辆，按座位数与人数差值升序
func alternativeVehicles(vehicles []model.Vehicle, crewSize int, excludeID string) []string {
	var fits []model.Vehicle
	for _, v := range vehicles {
		if v.ID != excludeID && v.Seats(crewSize) {
			fits = append(fits, v)
		}
	}
	sort.SliceStable(fits, func(i, j int) bool {
		return fits[i].PassengerCapacity-crewSize < fits[j].PassengerCapacity-crewSize
	})
	ids := make([]string, len(fits))
	for i, v := range fits {
		ids[i] = v.ID
	}
	return ids
}

func uniqueCrew(members []model.CrewMember) []model.CrewMember {
	seen := make(map[string]bool, len(members))
	out := make([]model.CrewMember, 0, len(members))
	for _, m := range members {
		if m.TechID == "" || seen[m.TechID] {
			continue
		}
		seen[m.TechID] = true
		out = append(out, m)
	}
	return out
}

func techLabel(t model.Technician) string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

func vehicleLabel(v model.Vehicle) string {
	if v.Name != "" {
		return v.Name
	}
	return v.ID
}
