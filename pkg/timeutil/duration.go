// Package timeutil 提供时长与时钟时间的解析和规范化
package timeutil

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultDurationMinutes 无法解析时的默认时长（分钟）
	DefaultDurationMinutes = 60
	// MinutesPerDay 一个工作日折算的分钟数
	MinutesPerDay = 480
)

// 数字前紧邻的负号单独捕获，"2-3 hours" 中的连字符不算负号
var durationPattern = regexp.MustCompile(`(?:^|[^\d.])(-)?\s*(\d+(?:\.\d+)?)\s*(days?|hours?|hrs?|minutes?|mins?)\b`)

// ParseDurationToMinutes 将任意形式的时长转换为分钟数
// 支持数字（已是分钟）以及 "2 hours"、"90 mins"、"1.5 days" 等文本，
// 多个片段会累加（"1 hour 30 mins" = 90）。无法解析、带负号或非正数时返回 60。
func ParseDurationToMinutes(value any) int {
	switch v := value.(type) {
	case nil:
		return DefaultDurationMinutes
	case int:
		return positiveOrDefault(float64(v))
	case int32:
		return positiveOrDefault(float64(v))
	case int64:
		return positiveOrDefault(float64(v))
	case float32:
		return positiveOrDefault(float64(v))
	case float64:
		return positiveOrDefault(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return DefaultDurationMinutes
		}
		return positiveOrDefault(f)
	case string:
		return parseDurationText(v)
	case *string:
		if v == nil {
			return DefaultDurationMinutes
		}
		return parseDurationText(*v)
	default:
		return DefaultDurationMinutes
	}
}

// parseDurationText 解析文本时长
func parseDurationText(s string) int {
	text := strings.ToLower(strings.TrimSpace(s))
	if text == "" {
		return DefaultDurationMinutes
	}

	// 纯数字按分钟处理
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return positiveOrDefault(f)
	}

	matches := durationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return DefaultDurationMinutes
	}

	total := 0.0
	for _, m := range matches {
		if m[1] != "" {
			return DefaultDurationMinutes
		}
		n, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(m[3], "day"):
			total += n * MinutesPerDay
		case strings.HasPrefix(m[3], "h"):
			total += n * 60
		default:
			total += n
		}
	}

	return positiveOrDefault(total)
}

func positiveOrDefault(minutes float64) int {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return DefaultDurationMinutes
	}
	rounded := int(math.Round(minutes))
	if rounded <= 0 {
		return DefaultDurationMinutes
	}
	return rounded
}
