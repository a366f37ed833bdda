package model

import "time"

// Insight 历史学习给出的提示
type Insight struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ScoreResult 技师与工单的匹配评分
type ScoreResult struct {
	TechID               string    `json:"tech_id"`
	TechName             string    `json:"tech_name,omitempty"`
	Score                float64   `json:"score"`
	Reasons              []string  `json:"reasons"`
	Warnings             []string  `json:"warnings"`
	IsBlocked            bool      `json:"is_blocked"`
	IsRecommended        bool      `json:"is_recommended"`
	CrewShortfallPenalty float64   `json:"crew_shortfall_penalty,omitempty"`
	DistanceMiles        *float64  `json:"distance_miles,omitempty"`
	Insights             []Insight `json:"insights,omitempty"`
}

// RankingScore 排名用分数（不含人数不足罚分，同一工单的所有候选罚分相同）
func (r ScoreResult) RankingScore() float64 {
	return r.Score - r.CrewShortfallPenalty
}

// PlanEntry 批量派工中单个工单的结果
type PlanEntry struct {
	JobID            string        `json:"job_id"`
	Date             string        `json:"date"`
	StartTime        string        `json:"start_time,omitempty"`
	TechIDs          []string      `json:"tech_ids"`
	TechNames        []string      `json:"tech_names"`
	RequiredCrewSize int           `json:"required_crew_size"`
	AssignedCrewSize int           `json:"assigned_crew_size"`
	IsFullyStaffed   bool          `json:"is_fully_staffed"`
	VehicleID        string        `json:"vehicle_id,omitempty"`
	Warnings         []string      `json:"warnings"`
	Failed           bool          `json:"failed"`
	Scores           []ScoreResult `json:"scores,omitempty"`
}

// Crew 转换为工作人员列表，第一位为 lead
func (e PlanEntry) Crew() []CrewMember {
	crew := make([]CrewMember, 0, len(e.TechIDs))
	for i, id := range e.TechIDs {
		m := CrewMember{TechID: id, Role: "helper"}
		if i < len(e.TechNames) {
			m.Name = e.TechNames[i]
		}
		if i == 0 {
			m.Role = "lead"
		}
		crew = append(crew, m)
	}
	return crew
}

// PlanSummary 批量派工汇总
type PlanSummary struct {
	Total        int `json:"total"`
	Assigned     int `json:"assigned"`
	Unassigned   int `json:"unassigned"`
	FullyStaffed int `json:"fully_staffed"`
	Understaffed int `json:"understaffed"`
}

// AssignmentPlan 批量派工计划
type AssignmentPlan struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	Entries     []PlanEntry `json:"entries"`
	Summary     PlanSummary `json:"summary"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// Summarize 根据条目重新计算汇总
func (p *AssignmentPlan) Summarize() {
	s := PlanSummary{Total: len(p.Entries)}
	for _, e := range p.Entries {
		if e.Failed || e.AssignedCrewSize == 0 {
			s.Unassigned++
			continue
		}
		s.Assigned++
		if e.IsFullyStaffed {
			s.FullyStaffed++
		} else {
			s.Understaffed++
		}
	}
	p.Summary = s
}
