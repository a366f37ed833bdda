package timeutil

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDurationToMinutes(t *testing.T) {
	text := "3 hrs"
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"空值默认", nil, 60},
		{"整数分钟", 45, 45},
		{"浮点四舍五入", 29.6, 30},
		{"零值默认", 0, 60},
		{"负数默认", -15, 60},
		{"NaN默认", math.NaN(), 60},
		{"小时文本", "2 hours", 120},
		{"分钟文本", "90 mins", 90},
		{"天文本", "1 day", 480},
		{"复合文本", "1 hour 30 minutes", 90},
		{"小数小时", "1.5 hr", 90},
		{"纯数字文本", "75", 75},
		{"无法解析", "soon-ish", 60},
		{"负数文本默认", "-5 hours", 60},
		{"片段带负号默认", "1 hour -30 mins", 60},
		{"区间取后值", "2-3 hours", 180},
		{"json数字", json.Number("40"), 40},
		{"字符串指针", &text, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDurationToMinutes(tt.value))
		})
	}
}
