// Package crew 从报价明细推导工单的人员需求
package crew

import (
	"fmt"
	"math"
	"strings"

	"github.com/paiban/crewdispatch/pkg/model"
)

// 按工时推断人数的阈值（小时）
const (
	ThreeTechHours = 16.0
	TwoTechHours   = 8.0
)

// IsLaborItem 是否为人工明细
func IsLaborItem(item model.LineItem) bool {
	return strings.EqualFold(strings.TrimSpace(item.Type), "labor") ||
		strings.EqualFold(strings.TrimSpace(item.Category), "labor") ||
		item.IsLabor
}

// ExtractRequirements 计算人员需求
// 输入不变时结果相同，且声明的 crew_size 增大不会使需求人数减少
func ExtractRequirements(items []model.LineItem) model.CrewRequirements {
	if len(items) == 0 {
		return model.DefaultCrewRequirements()
	}

	var (
		maxCrew    int
		totalHours float64
		notes      []string
	)

	for _, item := range items {
		if !IsLaborItem(item) {
			continue
		}
		if item.CrewSize > maxCrew {
			maxCrew = item.CrewSize
		}
		crew := item.CrewSize
		if crew < 1 {
			crew = 1
		}
		totalHours += item.LaborHours() * float64(crew)
		if item.CrewSize > 1 {
			label := item.Description
			if label == "" {
				label = "labor item"
			}
			notes = append(notes, fmt.Sprintf("%s requires %d techs", label, item.CrewSize))
		}
	}

	totalHours = math.Round(totalHours*100) / 100

	req := model.CrewRequirements{
		TotalLaborHours: totalHours,
		Source:          model.SourceSpecified,
	}

	if maxCrew == 0 {
		req.Source = model.SourceInferred
		switch {
		case totalHours >= ThreeTechHours:
			maxCrew = 3
			notes = append(notes, fmt.Sprintf("%.1f labor hours suggests a 3-person crew", totalHours))
		case totalHours >= TwoTechHours:
			maxCrew = 2
			notes = append(notes, fmt.Sprintf("%.1f labor hours suggests a 2-person crew", totalHours))
		default:
			maxCrew = 1
			notes = append(notes, fmt.Sprintf("%.1f labor hours fits a single tech", totalHours))
		}
	}

	req.RequiredCrewSize = maxCrew
	req.MinimumCrewSize = maxCrew - 1
	if req.MinimumCrewSize < 1 {
		req.MinimumCrewSize = 1
	}
	maximum := maxCrew + 2
	req.MaximumCrewSize = &maximum
	req.RequiresMultipleTechs = maxCrew > 1
	req.Notes = strings.Join(notes, "; ")

	return req
}

// Annotate 返回带有人员需求的工单副本
// 已保存的需求保持不变，除非 force 为 true（例如明细已修改）
func Annotate(job model.Job, force bool) model.Job {
	if job.CrewRequirements != nil && !force {
		return job
	}
	req := ExtractRequirements(job.LineItems)
	job.CrewRequirements = &req
	return job
}
