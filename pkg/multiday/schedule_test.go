package multiday

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/crewdispatch/pkg/errors"
	"github.com/paiban/crewdispatch/pkg/model"
)

const monday = "2024-03-11"

func weekdays() model.WorkingHours {
	return model.StandardWorkingHours()
}

func TestCreateMultiDaySchedule_ThreeDays(t *testing.T) {
	segments, err := CreateMultiDaySchedule(monday, 1200, weekdays())
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, model.Segment{Date: "2024-03-11", StartTime: "08:00", EndTime: "17:00", DurationMinutes: 540, DayIndex: 1}, segments[0])
	assert.Equal(t, model.Segment{Date: "2024-03-12", StartTime: "08:00", EndTime: "17:00", DurationMinutes: 540, DayIndex: 2}, segments[1])
	assert.Equal(t, model.Segment{Date: "2024-03-13", StartTime: "08:00", EndTime: "10:00", DurationMinutes: 120, DayIndex: 3}, segments[2])
}

func TestCreateMultiDaySchedule_SkipsWeekend(t *testing.T) {
	segments, err := CreateMultiDaySchedule("2024-03-15", 1000, weekdays()) // 周五开始
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "2024-03-15", segments[0].Date)
	assert.Equal(t, "2024-03-18", segments[1].Date)
	assert.Equal(t, 460, segments[1].DurationMinutes)
}

func TestCreateMultiDaySchedule_SegmentSum(t *testing.T) {
	maxDaily := weekdays().MaxDailyMinutes()
	for _, total := range []int{30, 540, 541, 2700, 7560, 7561, 20000} {
		segments, err := CreateMultiDaySchedule(monday, total, weekdays())
		want := total
		if limit := MaxSegments * maxDaily; want > limit {
			want = limit
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeSegmentLimit))
			assert.Len(t, segments, MaxSegments)
		} else {
			require.NoError(t, err)
		}
		assert.Equal(t, want, TotalMinutes(segments), "total=%d", total)
	}
}

func TestCreateMultiDaySchedule_Errors(t *testing.T) {
	_, err := CreateMultiDaySchedule("not-a-date", 600, weekdays())
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	closed := model.WorkingHours{"monday": {Enabled: false, Start: "08:00", End: "17:00"}}
	_, err = CreateMultiDaySchedule(monday, 600, closed)
	assert.True(t, apperrors.Is(err, apperrors.CodeNoWorkingDays))

	segments, err := CreateMultiDaySchedule(monday, 0, weekdays())
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestCreateMultiDaySchedule_EveningShiftToMidnight(t *testing.T) {
	wh := model.WorkingHours{
		"monday":  {Enabled: true, Start: "16:00", End: "24:00"},
		"tuesday": {Enabled: true, Start: "16:00", End: "24:00"},
	}
	segments, err := CreateMultiDaySchedule(monday, 600, wh)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, model.Segment{Date: "2024-03-11", StartTime: "16:00", EndTime: "24:00", DurationMinutes: 480, DayIndex: 1}, segments[0])
	assert.Equal(t, "18:00", segments[1].EndTime)

	existing := []model.Job{{ID: "late", AssignedTechID: "t1", ScheduledDate: monday, ScheduledTime: "22:00", EstimatedDuration: 60}}
	conflicts := CheckMultiDayConflicts(segments, existing, "t1")
	require.Len(t, conflicts, 1)
	assert.Equal(t, []string{"late"}, conflicts[0].JobIDs)
}

func TestNeedsMultiDay(t *testing.T) {
	assert.True(t, NeedsMultiDay(model.Job{EstimatedDuration: 600}, monday, weekdays()))
	assert.False(t, NeedsMultiDay(model.Job{EstimatedDuration: 540}, monday, weekdays()))
}

func TestCheckMultiDayConflicts(t *testing.T) {
	segments, err := CreateMultiDaySchedule(monday, 1200, weekdays())
	require.NoError(t, err)

	existing := []model.Job{
		{ID: "tue-morning", AssignedTechID: "t1", ScheduledDate: "2024-03-12", ScheduledTime: "09:00", EstimatedDuration: 60},
		{ID: "wed-afternoon", AssignedTechID: "t1", ScheduledDate: "2024-03-13", ScheduledTime: "13:00", EstimatedDuration: 60},
		{ID: "other-tech", AssignedTechID: "t2", ScheduledDate: "2024-03-11", ScheduledTime: "09:00", EstimatedDuration: 60},
		{
			ID:           "multi",
			AssignedCrew: []model.CrewMember{{TechID: "t1"}},
			MultiDaySchedule: []model.Segment{
				{Date: "2024-03-13", StartTime: "08:00", EndTime: "09:00", DurationMinutes: 60, DayIndex: 2},
			},
		},
	}

	conflicts := CheckMultiDayConflicts(segments, existing, "t1")
	require.Len(t, conflicts, 2)
	assert.Equal(t, 2, conflicts[0].DayIndex)
	assert.Equal(t, []string{"tue-morning"}, conflicts[0].JobIDs)
	assert.Equal(t, 3, conflicts[1].DayIndex)
	assert.Equal(t, []string{"multi"}, conflicts[1].JobIDs)

	all := CheckMultiDayConflicts(segments, existing, "")
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].DayIndex)
}
