package timeutil

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeClockTime(t *testing.T) {
	tests := []struct {
		name  string
		value any
		tz    string
		want  ClockTime
	}{
		{"时钟文本", "09:30", "UTC", ClockTime{9, 30}},
		{"带秒文本", "14:05:59", "UTC", ClockTime{14, 5}},
		{"24点归零", "24:00", "UTC", ClockTime{0, 0}},
		{"越界归零", []int{25, 10}, "UTC", ClockTime{0, 0}},
		{"数组", [2]int{7, 45}, "UTC", ClockTime{7, 45}},
		{"接口数组", []any{float64(16), float64(20)}, "UTC", ClockTime{16, 20}},
		{"ISO转纽约时区", "2024-03-15T14:00:00Z", "America/New_York", ClockTime{10, 0}},
		{"无效时区按UTC", "2024-03-15T14:00:00Z", "Mars/Base", ClockTime{14, 0}},
		{"缺省时区按UTC", "2024-03-15T08:15:00Z", "", ClockTime{8, 15}},
		{"无法解析", "lunch time", "UTC", ClockTime{0, 0}},
		{"time值", time.Date(2024, 1, 2, 11, 40, 0, 0, time.UTC), "UTC", ClockTime{11, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeClockTime(tt.value, tt.tz))
		})
	}
}

func TestClockConversions(t *testing.T) {
	m, ok := ClockToMinutes("08:30")
	require.True(t, ok)
	assert.Equal(t, 510, m)

	_, ok = ClockToMinutes("8h")
	assert.False(t, ok)

	assert.Equal(t, "17:05", MinutesToClock(17*60+5))
	assert.Equal(t, "00:30", MinutesToClock(24*60+30))
}

func TestEndClockConversions(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
		ok    bool
	}{
		{"午夜结束", "24:00", 1440, true},
		{"普通时间", "17:00", 1020, true},
		{"24点后无效", "24:30", 0, false},
		{"格式错误", "late", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := EndClockToMinutes(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, m)
		})
	}

	assert.Equal(t, "24:00", EndMinutesToClock(1440))
	assert.Equal(t, "17:00", EndMinutesToClock(1020))
}

func TestClockTimeJSON(t *testing.T) {
	var c ClockTime
	require.NoError(t, json.Unmarshal([]byte(`"13:15"`), &c))
	assert.Equal(t, ClockTime{13, 15}, c)

	require.NoError(t, json.Unmarshal([]byte(`[6, 5]`), &c))
	assert.Equal(t, "06:05", c.String())

	out, err := json.Marshal(ClockTime{9, 0})
	require.NoError(t, err)
	assert.JSONEq(t, `[9,0]`, string(out))
}

func TestWeekdayAndRange(t *testing.T) {
	assert.Equal(t, "friday", WeekdayName("2024-03-15"))
	assert.Equal(t, "", WeekdayName("bad"))

	assert.True(t, DateInRange("2024-03-15", "2024-03-14", "2024-03-16"))
	assert.True(t, DateInRange("2024-03-15", "2024-03-15", ""))
	assert.False(t, DateInRange("2024-03-17", "2024-03-14", "2024-03-16"))
	assert.False(t, DateInRange("2024-03-16", "2024-03-15", ""))
}
