package timeutil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paiban/crewdispatch/pkg/logger"
)

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// ClockTime 一天内的时钟时间
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Minutes 返回自零点起的分钟数
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// String 返回 HH:MM 格式
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MarshalJSON 序列化为 [hour, minute]
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Hour, c.Minute})
}

// UnmarshalJSON 接受 [h, m]、"HH:MM" 或 ISO 时间戳
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = NormalizeClockTime(raw, "UTC")
	return nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DateLayout,
}

// NormalizeClockTime 将多种时间表示规范化为时钟时间
// 支持 [hour, minute]、time.Time、ISO-8601 时间戳/日期（按 timezone 转换为当地时间）
// 以及 "HH:MM" 字符串。无法识别时返回 00:00，24:00 归一化为 00:00。
func NormalizeClockTime(value any, timezone string) ClockTime {
	switch v := value.(type) {
	case ClockTime:
		return clamp(v.Hour, v.Minute)
	case *ClockTime:
		if v == nil {
			return ClockTime{}
		}
		return clamp(v.Hour, v.Minute)
	case [2]int:
		return clamp(v[0], v[1])
	case []int:
		if len(v) < 2 {
			return ClockTime{}
		}
		return clamp(v[0], v[1])
	case []float64:
		if len(v) < 2 {
			return ClockTime{}
		}
		return clamp(int(v[0]), int(v[1]))
	case []any:
		if len(v) < 2 {
			return ClockTime{}
		}
		h, ok1 := toInt(v[0])
		m, ok2 := toInt(v[1])
		if !ok1 || !ok2 {
			return ClockTime{}
		}
		return clamp(h, m)
	case time.Time:
		t := v.In(resolveLocation(timezone))
		return clamp(t.Hour(), t.Minute())
	case string:
		return normalizeClockString(v, timezone)
	default:
		return ClockTime{}
	}
}

func normalizeClockString(s, timezone string) ClockTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return ClockTime{}
	}

	if c, ok := ParseClock(s); ok {
		return c
	}

	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t = t.In(resolveLocation(timezone))
		return clamp(t.Hour(), t.Minute())
	}

	return ClockTime{}
}

// ParseClock 严格解析 "HH:MM" 或 "HH:MM:SS"
func ParseClock(s string) (ClockTime, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ClockTime{}, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return ClockTime{}, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, false
	}
	return clamp(h, m), true
}

// ClockToMinutes 将 "HH:MM" 转换为分钟数，ok 表示是否成功解析
func ClockToMinutes(s string) (int, bool) {
	c, ok := ParseClock(s)
	if !ok {
		return 0, false
	}
	return c.Minutes(), true
}

// EndClockToMinutes 解析时段结束时间，"24:00" 表示当天结束即 1440
func EndClockToMinutes(s string) (int, bool) {
	if parts := strings.Split(strings.TrimSpace(s), ":"); len(parts) >= 2 && parts[0] == "24" {
		if m, err := strconv.Atoi(parts[1]); err == nil && m == 0 {
			return 24 * 60, true
		}
		return 0, false
	}
	return ClockToMinutes(s)
}

// MinutesToClock 将分钟数格式化为 "HH:MM"（跨天取模）
func MinutesToClock(minutes int) string {
	minutes = ((minutes % (24 * 60)) + 24*60) % (24 * 60)
	return ClockTime{Hour: minutes / 60, Minute: minutes % 60}.String()
}

// EndMinutesToClock 格式化时段结束时间，1440 输出 "24:00"
func EndMinutesToClock(minutes int) string {
	if minutes == 24*60 {
		return "24:00"
	}
	return MinutesToClock(minutes)
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(date))
}

// WeekdayName 返回日期对应的小写星期名（monday...sunday），无法解析时返回空串
func WeekdayName(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return ""
	}
	return strings.ToLower(t.Weekday().String())
}

// DateInRange 检查日期是否落在闭区间 [start, end] 内
func DateInRange(date, start, end string) bool {
	d, err := ParseDate(date)
	if err != nil {
		return false
	}
	s, err := ParseDate(start)
	if err != nil {
		return false
	}
	e, err := ParseDate(end)
	if err != nil {
		// 缺少结束日期视为单日
		e = s
	}
	return !d.Before(s) && !d.After(e)
}

func clamp(h, m int) ClockTime {
	if h == 24 && m == 0 {
		return ClockTime{}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return ClockTime{}
	}
	return ClockTime{Hour: h, Minute: m}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

func resolveLocation(timezone string) *time.Location {
	if timezone == "" {
		logger.Debug().Msg("未指定时区，按 UTC 转换时间")
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn().Str("timezone", timezone).Err(err).Msg("无法识别时区，按 UTC 转换时间")
		return time.UTC
	}
	return loc
}
