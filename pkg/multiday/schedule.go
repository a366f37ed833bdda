// Package multiday 将超过一个工作日的工单拆分为按天的片段
package multiday

import (
	"fmt"
	"strings"

	"github.com/paiban/crewdispatch/pkg/availability"
	apperrors "github.com/paiban/crewdispatch/pkg/errors"
	"github.com/paiban/crewdispatch/pkg/model"
	"github.com/paiban/crewdispatch/pkg/timeutil"
)

// MaxSegments 默认最多拆分的天数
const MaxSegments = 14

// CreateMultiDaySchedule 从 startDate 起逐日拆分 totalMinutes
func CreateMultiDaySchedule(startDate string, totalMinutes int, wh model.WorkingHours) ([]model.Segment, error) {
	return CreateScheduleWithLimit(startDate, totalMinutes, wh, MaxSegments)
}

// CreateScheduleWithLimit 逐日拆分，跳过非工作日
// 达到 limit 仍有剩余分钟时返回已生成的片段和 SEGMENT_LIMIT_EXCEEDED 错误
func CreateScheduleWithLimit(startDate string, totalMinutes int, wh model.WorkingHours, limit int) ([]model.Segment, error) {
	day, err := timeutil.ParseDate(startDate)
	if err != nil {
		return nil, apperrors.InvalidInput("start_date", "日期格式应为 YYYY-MM-DD")
	}
	if !wh.HasEnabledDay() {
		return nil, apperrors.New(apperrors.CodeNoWorkingDays, "一周内没有可用的工作日")
	}
	if limit <= 0 {
		limit = MaxSegments
	}

	segments := []model.Segment{}
	remaining := totalMinutes

	for remaining > 0 && len(segments) < limit {
		date := day.Format(timeutil.DateLayout)
		if start, end, ok := wh.WindowOn(date); ok {
			consumed := end - start
			if remaining < consumed {
				consumed = remaining
			}
			segments = append(segments, model.Segment{
				Date:            date,
				StartTime:       timeutil.MinutesToClock(start),
				EndTime:         timeutil.EndMinutesToClock(start + consumed),
				DurationMinutes: consumed,
				DayIndex:        len(segments) + 1,
			})
			remaining -= consumed
		}
		day = day.AddDate(0, 0, 1)
	}

	if remaining > 0 {
		return segments, apperrors.SegmentLimit(limit, remaining)
	}
	return segments, nil
}

// TotalMinutes 片段总分钟数
func TotalMinutes(segments []model.Segment) int {
	total := 0
	for _, s := range segments {
		total += s.DurationMinutes
	}
	return total
}

// NeedsMultiDay 工单时长是否超过开始日期当天的工作时间
func NeedsMultiDay(job model.Job, date string, wh model.WorkingHours) bool {
	start, end, ok := wh.WindowOn(date)
	if !ok {
		return true
	}
	return job.DurationMinutes() > end-start
}

// DayConflict 某一天的片段冲突
type DayConflict struct {
	DayIndex int      `json:"day_index"`
	Date     string   `json:"date"`
	JobIDs   []string `json:"job_ids"`
	Message  string   `json:"message"`
}

// CheckMultiDayConflicts 检查每个片段与已有工单是否重叠
// techID 为空时检查全部工单，已有工单自身的多日片段按天参与比较
func CheckMultiDayConflicts(segments []model.Segment, existing []model.Job, techID string) []DayConflict {
	conflicts := []DayConflict{}

	for _, seg := range segments {
		segStart, ok1 := timeutil.ClockToMinutes(seg.StartTime)
		segEnd, ok2 := timeutil.EndClockToMinutes(seg.EndTime)
		if !ok1 || !ok2 {
			continue
		}

		var ids []string
		for _, j := range existing {
			if techID != "" && !j.HasTech(techID) {
				continue
			}
			s, e, ok := j.WindowOn(seg.Date)
			if !ok {
				continue
			}
			if availability.Overlaps(segStart, segEnd, s, e, 0) {
				ids = append(ids, j.ID)
			}
		}

		if len(ids) > 0 {
			conflicts = append(conflicts, DayConflict{
				DayIndex: seg.DayIndex,
				Date:     seg.Date,
				JobIDs:   ids,
				Message: fmt.Sprintf("Day %d (%s %s-%s) overlaps %s",
					seg.DayIndex, seg.Date, seg.StartTime, seg.EndTime, strings.Join(ids, ", ")),
			})
		}
	}

	return conflicts
}
