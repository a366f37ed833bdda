// Package stats 提供派工结果的统计分析
package stats

import (
	"math"
	"sort"

	"github.com/paiban/crewdispatch/pkg/model"
)

// WorkloadMetrics 当日工作量均衡指标
type WorkloadMetrics struct {
	Date          string     `json:"date"`
	WorkloadGini  float64    `json:"workload_gini"` // 0=完全均衡, 1=完全集中
	StdDevMinutes float64    `json:"std_dev_minutes"`
	AvgMinutes    float64    `json:"avg_minutes"`
	MaxMinutes    int        `json:"max_minutes"`
	MinMinutes    int        `json:"min_minutes"`
	IdleTechs     int        `json:"idle_techs"`
	TechStats     []TechStat `json:"tech_stats"`
	BalanceScore  float64    `json:"balance_score"` // 0-100
}

// TechStat 单个技师当日统计
type TechStat struct {
	TechID      string  `json:"tech_id"`
	TechName    string  `json:"tech_name,omitempty"`
	JobCount    int     `json:"job_count"`
	Minutes     int     `json:"minutes"`
	Utilization float64 `json:"utilization"` // 占当日工作窗口的比例
	Deviation   float64 `json:"deviation"`   // 与平均值的偏差百分比
}

// WorkloadAnalyzer 工作量分析器
type WorkloadAnalyzer struct {
	defaults model.TechDefaults
}

// NewWorkloadAnalyzer 创建工作量分析器
func NewWorkloadAnalyzer(defaults *model.TechDefaults) *WorkloadAnalyzer {
	d := model.DefaultTechDefaults()
	if defaults != nil {
		d = *defaults
	}
	return &WorkloadAnalyzer{defaults: d}
}

// Analyze 统计每位技师在该日期的工单数与工时，未派工的技师计为0
func (a *WorkloadAnalyzer) Analyze(jobs []model.Job, techs []model.Technician, date string) WorkloadMetrics {
	m := WorkloadMetrics{Date: date, TechStats: []TechStat{}, BalanceScore: 100}
	if len(techs) == 0 {
		return m
	}

	minutes := make([]float64, 0, len(techs))
	for _, t := range techs {
		t = t.WithDefaults(a.defaults)
		stat := TechStat{TechID: t.ID, TechName: t.Name}
		for _, j := range jobs {
			if j.OccursOn(date) && j.HasTech(t.ID) {
				stat.JobCount++
				stat.Minutes += j.MinutesOn(date)
			}
		}
		if start, end, ok := t.WorkingHours.WindowOn(date); ok && end > start {
			stat.Utilization = round2(float64(stat.Minutes) / float64(end-start))
		}
		if stat.JobCount == 0 {
			m.IdleTechs++
		}
		m.TechStats = append(m.TechStats, stat)
		minutes = append(minutes, float64(stat.Minutes))
	}

	m.AvgMinutes = round2(mean(minutes))
	m.StdDevMinutes = round2(math.Sqrt(variance(minutes, mean(minutes))))
	maxV, minV := valueRange(minutes)
	m.MaxMinutes, m.MinMinutes = int(maxV), int(minV)
	m.WorkloadGini = round2(gini(minutes))

	avg := mean(minutes)
	for i := range m.TechStats {
		if avg > 0 {
			m.TechStats[i].Deviation = round2((float64(m.TechStats[i].Minutes) - avg) / avg * 100)
		}
	}
	sort.SliceStable(m.TechStats, func(i, j int) bool {
		if m.TechStats[i].Minutes != m.TechStats[j].Minutes {
			return m.TechStats[i].Minutes > m.TechStats[j].Minutes
		}
		return m.TechStats[i].TechID < m.TechStats[j].TechID
	})

	m.BalanceScore = round2(balanceScore(gini(minutes), math.Sqrt(variance(minutes, avg)), avg))
	return m
}

// balanceScore 基尼系数占 70%，变异系数占 30%
func balanceScore(g, stdDev, avg float64) float64 {
	const (
		giniWeight = 0.7
		cvWeight   = 0.3
	)
	cvScore := 100.0
	if avg > 0 {
		cvScore = math.Max(0, 100-stdDev/avg*100)
	}
	score := giniWeight*(1-g)*100 + cvWeight*cvScore
	return math.Max(0, math.Min(100, score))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func valueRange(values []float64) (hi, lo float64) {
	if len(values) == 0 {
		return 0, 0
	}
	hi, lo = values[0], values[0]
	for _, v := range values[1:] {
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	return hi, lo
}

// gini 基尼系数，输入全为0时返回0
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g /= float64(n) * sum
	return math.Max(0, math.Min(1, g))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
