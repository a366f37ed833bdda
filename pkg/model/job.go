package model

import (
	"bytes"
	"encoding/json"

	"github.com/paiban/crewdispatch/pkg/timeutil"
)

// Minutes 分钟数，反序列化时接受数字或 "2 hours" 之类的文本
type Minutes int

// UnmarshalJSON 通过 timeutil.ParseDurationToMinutes 规范化
func (m *Minutes) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = 0
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*m = Minutes(timeutil.ParseDurationToMinutes(raw))
	return nil
}

// Int 返回有效分钟数，未设置或非正数时为默认时长
func (m Minutes) Int() int {
	return timeutil.ParseDurationToMinutes(int(m))
}

// Hours 返回小时数
func (m Minutes) Hours() float64 {
	return float64(m.Int()) / 60
}

// 需求来源
const (
	SourceSpecified = "specified" // 明细中声明
	SourceInferred  = "inferred"  // 按工时推断
	SourceDefault   = "default"   // 无明细时的默认值
)

// LineItem 报价/工单明细
type LineItem struct {
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type,omitempty"`
	Category    string  `json:"category,omitempty"`
	IsLabor     bool    `json:"is_labor,omitempty"`
	CrewSize    int     `json:"crew_size,omitempty"` // 0 表示未声明
	Hours       float64 `json:"hours,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`
}

// LaborHours 明细工时，缺少 hours 时取 quantity
func (li LineItem) LaborHours() float64 {
	if li.Hours > 0 {
		return li.Hours
	}
	if li.Quantity > 0 {
		return li.Quantity
	}
	return 0
}

// CrewRequirements 人员需求
type CrewRequirements struct {
	RequiredCrewSize      int     `json:"required_crew_size"`
	MinimumCrewSize       int     `json:"minimum_crew_size"`
	MaximumCrewSize       *int    `json:"maximum_crew_size"` // nil 表示不限
	Source                string  `json:"source"`
	TotalLaborHours       float64 `json:"total_labor_hours"`
	RequiresMultipleTechs bool    `json:"requires_multiple_techs"`
	Notes                 string  `json:"notes,omitempty"`
}

// DefaultCrewRequirements 无明细时的默认需求
func DefaultCrewRequirements() CrewRequirements {
	return CrewRequirements{
		RequiredCrewSize: 1,
		MinimumCrewSize:  1,
		MaximumCrewSize:  nil,
		Source:           SourceDefault,
	}
}

// CrewMember 已分配的工作人员
type CrewMember struct {
	TechID string `json:"tech_id"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"` // lead/helper
}

// Segment 多日工单的单日片段
type Segment struct {
	Date            string `json:"date"`       // YYYY-MM-DD
	StartTime       string `json:"start_time"` // HH:MM
	EndTime         string `json:"end_time"`   // HH:MM
	DurationMinutes int    `json:"duration_minutes"`
	DayIndex        int    `json:"day_index"` // 从 1 开始
}

// Job 工单
type Job struct {
	ID                     string            `json:"id" db:"id"`
	Title                  string            `json:"title,omitempty" db:"title"`
	Category               string            `json:"category,omitempty" db:"category"`
	ServiceType            string            `json:"service_type,omitempty" db:"service_type"`
	RequiredSkills         []string          `json:"required_skills,omitempty" db:"required_skills"`
	RequiredCertifications []string          `json:"required_certifications,omitempty" db:"required_certifications"`
	EstimatedDuration      Minutes           `json:"estimated_duration" db:"estimated_duration"`
	ScheduledDate          string            `json:"scheduled_date,omitempty" db:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime          string            `json:"scheduled_time,omitempty" db:"scheduled_time"` // HH:MM
	Location               Location          `json:"location" db:"-"`
	Zone                   string            `json:"zone,omitempty" db:"zone"`
	CrewRequirements       *CrewRequirements `json:"crew_requirements,omitempty" db:"crew_requirements"`
	AssignedTechID         string            `json:"assigned_tech_id,omitempty" db:"assigned_tech_id"`
	AssignedCrew           []CrewMember      `json:"assigned_crew,omitempty" db:"assigned_crew"`
	AssignedVehicleID      string            `json:"assigned_vehicle_id,omitempty" db:"assigned_vehicle_id"`
	LineItems              []LineItem        `json:"line_items,omitempty" db:"line_items"`
	MultiDaySchedule       []Segment         `json:"multi_day_schedule,omitempty" db:"multi_day_schedule"`
}

// DurationMinutes 预计时长（分钟）
func (j Job) DurationMinutes() int {
	return j.EstimatedDuration.Int()
}

// RequiredCrewSize 需求人数，未计算需求时为 1
func (j Job) RequiredCrewSize() int {
	if j.CrewRequirements == nil || j.CrewRequirements.RequiredCrewSize < 1 {
		return 1
	}
	return j.CrewRequirements.RequiredCrewSize
}

// TechIDs 已分配技师（主技师在前，去重）
func (j Job) TechIDs() []string {
	ids := make([]string, 0, len(j.AssignedCrew)+1)
	seen := make(map[string]bool)
	if j.AssignedTechID != "" {
		ids = append(ids, j.AssignedTechID)
		seen[j.AssignedTechID] = true
	}
	for _, m := range j.AssignedCrew {
		if m.TechID != "" && !seen[m.TechID] {
			ids = append(ids, m.TechID)
			seen[m.TechID] = true
		}
	}
	return ids
}

// HasTech 是否分配给该技师
func (j Job) HasTech(techID string) bool {
	for _, id := range j.TechIDs() {
		if id == techID {
			return true
		}
	}
	return false
}

// SegmentOn 返回该日期的多日片段
func (j Job) SegmentOn(date string) (Segment, bool) {
	for _, s := range j.MultiDaySchedule {
		if s.Date == date {
			return s, true
		}
	}
	return Segment{}, false
}

// OccursOn 工单是否占用该日期
func (j Job) OccursOn(date string) bool {
	if _, ok := j.SegmentOn(date); ok {
		return true
	}
	return j.ScheduledDate == date
}

// WindowOn 工单在该日期的时间窗口（分钟），开始时间未知时 ok=false
func (j Job) WindowOn(date string) (start, end int, ok bool) {
	if seg, found := j.SegmentOn(date); found {
		s, ok1 := timeutil.ClockToMinutes(seg.StartTime)
		e, ok2 := timeutil.EndClockToMinutes(seg.EndTime)
		if ok1 && ok2 && e > s {
			return s, e, true
		}
	}
	if j.ScheduledDate != date {
		return 0, 0, false
	}
	s, ok := timeutil.ClockToMinutes(j.ScheduledTime)
	if !ok {
		return 0, 0, false
	}
	return s, s + j.DurationMinutes(), true
}

// MinutesOn 工单在该日期占用的分钟数
func (j Job) MinutesOn(date string) int {
	if seg, ok := j.SegmentOn(date); ok {
		if seg.DurationMinutes > 0 {
			return seg.DurationMinutes
		}
		if s, e, ok := j.WindowOn(date); ok {
			return e - s
		}
	}
	if j.ScheduledDate == date {
		return j.DurationMinutes()
	}
	return 0
}

// JobsForTechOn 筛选该技师在该日期的其他工单
func JobsForTechOn(jobs []Job, techID, date, excludeJobID string) []Job {
	var out []Job
	for _, j := range jobs {
		if j.ID != "" && j.ID == excludeJobID {
			continue
		}
		if j.HasTech(techID) && j.OccursOn(date) {
			out = append(out, j)
		}
	}
	return out
}
