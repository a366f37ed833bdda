package model

import (
	"strings"

	"github.com/paiban/crewdispatch/pkg/timeutil"
)

// DayHours 单日工作时间
type DayHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"` // HH:MM
	End     string `json:"end"`   // HH:MM
}

// WorkingHours 按小写星期名索引的工作时间
type WorkingHours map[string]DayHours

// Weekdays 一周七天（从周一开始）
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// StandardWorkingHours 周一至周五 08:00-17:00
func StandardWorkingHours() WorkingHours {
	wh := make(WorkingHours, len(Weekdays))
	for i, day := range Weekdays {
		wh[day] = DayHours{Enabled: i < 5, Start: "08:00", End: "17:00"}
	}
	return wh
}

// Window 返回某天的工作窗口（分钟），未启用或时间无效时 ok=false
func (wh WorkingHours) Window(day string) (start, end int, ok bool) {
	h, exists := wh[strings.ToLower(day)]
	if !exists || !h.Enabled {
		return 0, 0, false
	}
	start, ok1 := timeutil.ClockToMinutes(h.Start)
	end, ok2 := timeutil.EndClockToMinutes(h.End)
	if !ok1 || !ok2 || end <= start {
		return 0, 0, false
	}
	return start, end, true
}

// WindowOn 返回某日期的工作窗口
func (wh WorkingHours) WindowOn(date string) (start, end int, ok bool) {
	return wh.Window(timeutil.WeekdayName(date))
}

// WorksOn 该日期是否为工作日
func (wh WorkingHours) WorksOn(date string) bool {
	_, _, ok := wh.WindowOn(date)
	return ok
}

// HasEnabledDay 一周内是否至少有一天可工作
func (wh WorkingHours) HasEnabledDay() bool {
	for _, day := range Weekdays {
		if _, _, ok := wh.Window(day); ok {
			return true
		}
	}
	return false
}

// MaxDailyMinutes 一周内单日最长可用分钟数
func (wh WorkingHours) MaxDailyMinutes() int {
	best := 0
	for _, day := range Weekdays {
		if s, e, ok := wh.Window(day); ok && e-s > best {
			best = e - s
		}
	}
	return best
}

// Technician 技师
type Technician struct {
	ID                   string       `json:"id" db:"id"`
	Name                 string       `json:"name" db:"name"`
	WorkingHours         WorkingHours `json:"working_hours,omitempty" db:"working_hours"`
	Skills               []string     `json:"skills,omitempty" db:"skills"`
	Certifications       []string     `json:"certifications,omitempty" db:"certifications"`
	HomeZip              string       `json:"home_zip,omitempty" db:"home_zip"`
	Location             *Location    `json:"location,omitempty" db:"-"`
	MaxTravelMiles       int          `json:"max_travel_miles,omitempty" db:"max_travel_miles"`
	MaxJobsPerDay        int          `json:"max_jobs_per_day,omitempty" db:"max_jobs_per_day"`
	MaxHoursPerDay       int          `json:"max_hours_per_day,omitempty" db:"max_hours_per_day"`
	DefaultBufferMinutes int          `json:"default_buffer_minutes,omitempty" db:"default_buffer_minutes"`
	PreferredZones       []string     `json:"preferred_zones,omitempty" db:"preferred_zones"`
}

// TechDefaults 技师缺省值配置
type TechDefaults struct {
	BufferMinutes  int          `json:"buffer_minutes"`
	MaxJobsPerDay  int          `json:"max_jobs_per_day"`
	MaxHoursPerDay int          `json:"max_hours_per_day"`
	MaxTravelMiles int          `json:"max_travel_miles"`
	WorkingHours   WorkingHours `json:"working_hours"`
}

// DefaultTechDefaults 返回默认技师缺省值
func DefaultTechDefaults() TechDefaults {
	return TechDefaults{
		BufferMinutes:  30,
		MaxJobsPerDay:  4,
		MaxHoursPerDay: 8,
		MaxTravelMiles: 25,
		WorkingHours:   StandardWorkingHours(),
	}
}

// WithDefaults 返回补齐缺省值后的副本，原值不变
// 非正数的容量、缓冲与半径字段视为未设置
func (t Technician) WithDefaults(d TechDefaults) Technician {
	out := t
	if out.DefaultBufferMinutes <= 0 {
		out.DefaultBufferMinutes = d.BufferMinutes
	}
	if out.MaxJobsPerDay <= 0 {
		out.MaxJobsPerDay = d.MaxJobsPerDay
	}
	if out.MaxHoursPerDay <= 0 {
		out.MaxHoursPerDay = d.MaxHoursPerDay
	}
	if out.MaxTravelMiles <= 0 {
		out.MaxTravelMiles = d.MaxTravelMiles
	}
	if out.WorkingHours == nil {
		wh := d.WorkingHours
		if wh == nil {
			wh = StandardWorkingHours()
		}
		out.WorkingHours = make(WorkingHours, len(wh))
		for k, v := range wh {
			out.WorkingHours[strings.ToLower(k)] = v
		}
	} else {
		normalized := make(WorkingHours, len(out.WorkingHours))
		for k, v := range out.WorkingHours {
			normalized[strings.ToLower(k)] = v
		}
		out.WorkingHours = normalized
	}
	return out
}

// BaseLocation 技师出发位置，缺少位置时以住址邮编代替
func (t Technician) BaseLocation() Location {
	var loc Location
	if t.Location != nil {
		loc = *t.Location
	}
	if loc.ZipCode() == "" && t.HomeZip != "" {
		loc.Zip = t.HomeZip
	}
	return loc
}

// HasCertification 是否持有证书
func (t Technician) HasCertification(cert string) bool {
	return containsFold(t.Certifications, cert)
}

// PrefersZone 是否为偏好区域
func (t Technician) PrefersZone(zone string) bool {
	if strings.TrimSpace(zone) == "" {
		return false
	}
	return containsFold(t.PreferredZones, zone)
}

// TimeOffEntry 请假记录，起止日期均包含在内
type TimeOffEntry struct {
	TechID    string `json:"tech_id" db:"tech_id"`
	StartDate string `json:"start_date" db:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date" db:"end_date"`     // YYYY-MM-DD
	Reason    string `json:"reason,omitempty" db:"reason"`
}

// Covers 是否覆盖该技师在该日期
func (e TimeOffEntry) Covers(techID, date string) bool {
	return e.TechID == techID && timeutil.DateInRange(date, e.StartDate, e.EndDate)
}

// FindTimeOff 查找覆盖该日期的请假记录
func FindTimeOff(entries []TimeOffEntry, techID, date string) (TimeOffEntry, bool) {
	for _, e := range entries {
		if e.Covers(techID, date) {
			return e, true
		}
	}
	return TimeOffEntry{}, false
}

// Vehicle 车辆
type Vehicle struct {
	ID                string `json:"id" db:"id"`
	Name              string `json:"name" db:"name"`
	Plate             string `json:"plate,omitempty" db:"plate"`
	PassengerCapacity int    `json:"passenger_capacity" db:"passenger_capacity"`
	OutOfService      bool   `json:"out_of_service,omitempty" db:"out_of_service"`
}

// Seats 是否可容纳该人数
func (v Vehicle) Seats(crewSize int) bool {
	return !v.OutOfService && v.PassengerCapacity >= crewSize
}
