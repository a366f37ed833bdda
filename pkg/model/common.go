// Package model 定义派工引擎的核心数据模型
package model

import (
	"math"
	"regexp"
	"strings"
)

// Severity 冲突严重程度
type Severity string

const (
	SeverityError   Severity = "error"   // 阻断
	SeverityWarning Severity = "warning" // 仅提示
)

// Location 地理位置
type Location struct {
	Address   string  `json:"address,omitempty"`
	Zip       string  `json:"zip,omitempty"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

var zipPattern = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)

// HasCoordinates 是否带有经纬度
func (l Location) HasCoordinates() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

// IsKnown 有坐标或可识别的邮编
func (l Location) IsKnown() bool {
	return l.HasCoordinates() || l.ZipCode() != ""
}

// ZipCode 提取5位邮编，优先使用 Zip 字段，其次从地址中识别
func (l Location) ZipCode() string {
	if m := zipPattern.FindStringSubmatch(strings.TrimSpace(l.Zip)); m != nil {
		return m[1]
	}
	if m := zipPattern.FindStringSubmatch(l.Address); m != nil {
		return m[1]
	}
	return ""
}

// Distance 计算两个位置之间的距离（英里）
// 使用 Haversine 公式
func (l Location) Distance(other Location) float64 {
	const earthRadius = 3958.8 // 地球半径（英里）

	lat1Rad := l.Latitude * math.Pi / 180
	lat2Rad := other.Latitude * math.Pi / 180
	deltaLat := (other.Latitude - l.Latitude) * math.Pi / 180
	deltaLon := (other.Longitude - l.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// containsFold 大小写不敏感的集合包含
func containsFold(list []string, value string) bool {
	value = strings.TrimSpace(value)
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return true
		}
	}
	return false
}
