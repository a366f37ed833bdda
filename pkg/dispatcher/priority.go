package dispatcher

import (
	"sort"

	"github.com/paiban/crewdispatch/pkg/model"
)

// JobLess 工单处理优先级，返回 true 表示 a 先于 b 处理
type JobLess func(a, b model.Job) bool

// CrewThenDuration 默认优先级：需求人数多的在前，其次时长长的在前
func CrewThenDuration(a, b model.Job) bool {
	if ra, rb := a.RequiredCrewSize(), b.RequiredCrewSize(); ra != rb {
		return ra > rb
	}
	return a.DurationMinutes() > b.DurationMinutes()
}

// SortJobs 按优先级稳定排序，返回新切片
func SortJobs(jobs []model.Job, less JobLess) []model.Job {
	if less == nil {
		less = CrewThenDuration
	}
	sorted := make([]model.Job, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}
