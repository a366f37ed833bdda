// Package availability 检查技师在指定日期和时段是否可用
package availability

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paiban/crewdispatch/pkg/model"
	"github.com/paiban/crewdispatch/pkg/timeutil"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictTimeOff      ConflictType = "time_off"      // 请假
	ConflictDayOff       ConflictType = "day_off"       // 非工作日
	ConflictOutsideHours ConflictType = "outside_hours" // 超出工作时间
	ConflictMaxJobs      ConflictType = "max_jobs"      // 超过每日工单数
	ConflictMaxHours     ConflictType = "max_hours"     // 超过每日工时
	ConflictSkill        ConflictType = "skill"         // 技能不匹配
	ConflictOverlap      ConflictType = "overlap"       // 时间重叠
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType   `json:"type"`
	Severity model.Severity `json:"severity"`
	TechID   string         `json:"tech_id"`
	Date     string         `json:"date"`
	Message  string         `json:"message"`
	JobIDs   []string       `json:"job_ids,omitempty"`
}

// NoStart 开始时间未知
const NoStart = -1

// Checker 可用性检查器
type Checker struct {
	defaults model.TechDefaults
}

// NewChecker 创建可用性检查器，defaults 为 nil 时使用默认值
func NewChecker(defaults *model.TechDefaults) *Checker {
	d := model.DefaultTechDefaults()
	if defaults != nil {
		d = *defaults
	}
	return &Checker{defaults: d}
}

// Defaults 返回技师缺省值
func (c *Checker) Defaults() model.TechDefaults {
	return c.defaults
}

// Overlaps 判断 [aStart,aEnd) 与 [bStart,bEnd) 在加上缓冲后是否相交
func Overlaps(aStart, aEnd, bStart, bEnd, buffer int) bool {
	return !(aEnd+buffer <= bStart || aStart >= bEnd+buffer)
}

// Load 技师在某日已占用的工单数与分钟数
func Load(techID, date string, jobs []model.Job, excludeJobID string) (count, minutes int) {
	for _, j := range model.JobsForTechOn(jobs, techID, date, excludeJobID) {
		count++
		minutes += j.MinutesOn(date)
	}
	return count, minutes
}

// IsSlotAvailable 仅检查与已有工单的时间重叠（含缓冲）
func (c *Checker) IsSlotAvailable(tech model.Technician, date string, start, duration int, existing []model.Job) bool {
	tech = tech.WithDefaults(c.defaults)
	return len(c.overlapping(tech, date, start, duration, existing, "")) == 0
}

// IsTechAvailable 检查请假、工作日、工作时段与时间重叠
// start 为自零点起的分钟数，NoStart 表示不限定开始时间
func (c *Checker) IsTechAvailable(
	tech model.Technician,
	date string,
	start, duration int,
	existing []model.Job,
	timeOff []model.TimeOffEntry,
) bool {
	tech = tech.WithDefaults(c.defaults)

	if _, off := model.FindTimeOff(timeOff, tech.ID, date); off {
		return false
	}

	workStart, workEnd, ok := tech.WorkingHours.WindowOn(date)
	if !ok {
		return false
	}

	if start == NoStart {
		return true
	}

	if start < workStart || start+duration > workEnd {
		return false
	}

	return len(c.overlapping(tech, date, start, duration, existing, "")) == 0
}

// CheckConflicts 返回结构化冲突列表
func (c *Checker) CheckConflicts(
	tech model.Technician,
	job model.Job,
	date string,
	start int,
	existing []model.Job,
	timeOff []model.TimeOffEntry,
) []Conflict {
	tech = tech.WithDefaults(c.defaults)
	duration := job.DurationMinutes()
	var conflicts []Conflict

	add := func(t ConflictType, sev model.Severity, msg string, jobIDs ...string) {
		conflicts = append(conflicts, Conflict{
			Type:     t,
			Severity: sev,
			TechID:   tech.ID,
			Date:     date,
			Message:  msg,
			JobIDs:   jobIDs,
		})
	}

	if entry, off := model.FindTimeOff(timeOff, tech.ID, date); off {
		msg := fmt.Sprintf("%s is on time off %s to %s", displayName(tech), entry.StartDate, endDate(entry))
		if entry.Reason != "" {
			msg += " (" + entry.Reason + ")"
		}
		add(ConflictTimeOff, model.SeverityError, msg)
	}

	workStart, workEnd, working := tech.WorkingHours.WindowOn(date)
	if !working {
		add(ConflictDayOff, model.SeverityError,
			fmt.Sprintf("%s does not work on %s", displayName(tech), timeutil.WeekdayName(date)))
	} else if start != NoStart && (start < workStart || start+duration > workEnd) {
		add(ConflictOutsideHours, model.SeverityError,
			fmt.Sprintf("%s-%s is outside working hours %s-%s",
				timeutil.MinutesToClock(start), timeutil.EndMinutesToClock(start+duration),
				timeutil.MinutesToClock(workStart), timeutil.EndMinutesToClock(workEnd)))
	}

	count, booked := Load(tech.ID, date, existing, job.ID)
	if count >= tech.MaxJobsPerDay {
		add(ConflictMaxJobs, model.SeverityError,
			fmt.Sprintf("Already has %d jobs (max %d per day)", count, tech.MaxJobsPerDay))
	}
	if total := booked + duration; total > tech.MaxHoursPerDay*60 {
		add(ConflictMaxHours, model.SeverityWarning,
			fmt.Sprintf("Would work %.1f hours (max %d per day)", float64(total)/60, tech.MaxHoursPerDay))
	}

	if required := JobSkills(job); !SkillMatch(tech.Skills, required) {
		add(ConflictSkill, model.SeverityWarning,
			fmt.Sprintf("Missing required skills: %s", strings.Join(required, ", ")))
	}

	if start != NoStart {
		for _, other := range c.overlapping(tech, date, start, duration, existing, job.ID) {
			s, e, _ := other.WindowOn(date)
			add(ConflictOverlap, model.SeverityError,
				fmt.Sprintf("Overlaps job %s (%s-%s) with %d min buffer",
					other.ID, timeutil.MinutesToClock(s), timeutil.MinutesToClock(e), tech.DefaultBufferMinutes),
				other.ID)
		}
	}

	return conflicts
}

// HasErrors 冲突列表中是否有阻断项
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == model.SeverityError {
			return true
		}
	}
	return false
}

// FindEarliestSlot 返回工作时段内最早可用的开始时间
func (c *Checker) FindEarliestSlot(tech model.Technician, date string, duration int, existing []model.Job) (int, bool) {
	tech = tech.WithDefaults(c.defaults)
	workStart, workEnd, ok := tech.WorkingHours.WindowOn(date)
	if !ok {
		return 0, false
	}

	candidates := []int{workStart}
	for _, j := range model.JobsForTechOn(existing, tech.ID, date, "") {
		if _, e, ok := j.WindowOn(date); ok {
			candidates = append(candidates, e+tech.DefaultBufferMinutes)
		}
	}
	sort.Ints(candidates)

	for _, start := range candidates {
		if start < workStart || start+duration > workEnd {
			continue
		}
		if len(c.overlapping(tech, date, start, duration, existing, "")) == 0 {
			return start, true
		}
	}
	return 0, false
}

// overlapping 返回与提议时段冲突的已有工单
func (c *Checker) overlapping(tech model.Technician, date string, start, duration int, existing []model.Job, excludeJobID string) []model.Job {
	var out []model.Job
	for _, j := range model.JobsForTechOn(existing, tech.ID, date, excludeJobID) {
		s, e, ok := j.WindowOn(date)
		if !ok {
			continue
		}
		if Overlaps(start, start+duration, s, e, tech.DefaultBufferMinutes) {
			out = append(out, j)
		}
	}
	return out
}

func displayName(t model.Technician) string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

func endDate(e model.TimeOffEntry) string {
	if e.EndDate == "" {
		return e.StartDate
	}
	return e.EndDate
}
