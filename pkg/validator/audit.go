package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/crewdispatch/pkg/availability"
	"github.com/paiban/crewdispatch/pkg/model"
	"github.com/paiban/crewdispatch/pkg/timeutil"
)

// ScheduleAuditor 整日派工结果复核
type ScheduleAuditor struct {
	defaults model.TechDefaults
}

// NewScheduleAuditor 创建复核器
func NewScheduleAuditor(defaults *model.TechDefaults) *ScheduleAuditor {
	d := model.DefaultTechDefaults()
	if defaults != nil {
		d = *defaults
	}
	return &ScheduleAuditor{defaults: d}
}

// AuditDay 按技师分组检查当日全部工单的重叠、工单数与工时
func (a *ScheduleAuditor) AuditDay(jobs []model.Job, techs []model.Technician, date string) []availability.Conflict {
	var conflicts []availability.Conflict

	for _, t := range techs {
		tech := t.WithDefaults(a.defaults)
		own := model.JobsForTechOn(jobs, tech.ID, date, "")
		if len(own) == 0 {
			continue
		}

		conflicts = append(conflicts, a.detectOverlaps(tech, own, date)...)

		minutes := 0
		for _, j := range own {
			minutes += j.MinutesOn(date)
		}
		if len(own) > tech.MaxJobsPerDay {
			conflicts = append(conflicts, availability.Conflict{
				Type:     availability.ConflictMaxJobs,
				Severity: model.SeverityError,
				TechID:   tech.ID,
				Date:     date,
				Message:  fmt.Sprintf("%d jobs exceeds max %d per day", len(own), tech.MaxJobsPerDay),
			})
		}
		if minutes > tech.MaxHoursPerDay*60 {
			conflicts = append(conflicts, availability.Conflict{
				Type:     availability.ConflictMaxHours,
				Severity: model.SeverityWarning,
				TechID:   tech.ID,
				Date:     date,
				Message:  fmt.Sprintf("%.1f hours exceeds max %d per day", float64(minutes)/60, tech.MaxHoursPerDay),
			})
		}
	}

	return conflicts
}

// detectOverlaps 按开始时间排序后检查相邻工单
func (a *ScheduleAuditor) detectOverlaps(tech model.Technician, jobs []model.Job, date string) []availability.Conflict {
	type slot struct {
		id         string
		start, end int
	}
	var slots []slot
	for _, j := range jobs {
		if s, e, ok := j.WindowOn(date); ok {
			slots = append(slots, slot{id: j.ID, start: s, end: e})
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].start < slots[j].start
	})

	var conflicts []availability.Conflict
	for i := 0; i < len(slots)-1; i++ {
		cur, next := slots[i], slots[i+1]
		if availability.Overlaps(cur.start, cur.end, next.start, next.end, tech.DefaultBufferMinutes) {
			conflicts = append(conflicts, availability.Conflict{
				Type:     availability.ConflictOverlap,
				Severity: model.SeverityError,
				TechID:   tech.ID,
				Date:     date,
				Message: fmt.Sprintf("%s (%s) and %s (%s) are closer than %d min",
					cur.id, timeutil.MinutesToClock(cur.start), next.id, timeutil.MinutesToClock(next.start), tech.DefaultBufferMinutes),
				JobIDs: []string{cur.id, next.id},
			})
		}
	}
	return conflicts
}

// PlanJobs 将派工计划转换为工单列表，用于复核与持久化
func PlanJobs(plan model.AssignmentPlan, jobs []model.Job) []model.Job {
	byID := make(map[string]model.Job, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}

	var out []model.Job
	for _, e := range plan.Entries {
		if e.Failed || len(e.TechIDs) == 0 {
			continue
		}
		j, ok := byID[e.JobID]
		if !ok {
			j = model.Job{ID: e.JobID}
		}
		j.ScheduledDate = e.Date
		if e.StartTime != "" {
			j.ScheduledTime = e.StartTime
		}
		j.AssignedTechID = e.TechIDs[0]
		j.AssignedCrew = e.Crew()
		j.AssignedVehicleID = e.VehicleID
		out = append(out, j)
	}
	return out
}
