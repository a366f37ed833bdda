// Package geo 提供距离估算与路线优化
package geo

import (
	"context"
	"errors"

	"github.com/paiban/crewdispatch/pkg/model"
)

// 邮编前缀估算距离（英里）
const (
	ZipSame3Miles   = 5.0
	ZipSame2Miles   = 15.0
	ZipFarMiles     = 25.0
	ZipUnknownMiles = 10.0
)

// ErrNoCoordinates 位置缺少经纬度
var ErrNoCoordinates = errors.New("location has no coordinates")

// Estimator 距离估算器，返回英里数
type Estimator interface {
	Estimate(ctx context.Context, a, b model.Location) (float64, error)
	Name() string
}

// EstimatorFunc 函数形式的估算器
type EstimatorFunc func(ctx context.Context, a, b model.Location) (float64, error)

// Estimate 实现 Estimator
func (f EstimatorFunc) Estimate(ctx context.Context, a, b model.Location) (float64, error) {
	return f(ctx, a, b)
}

// Name 实现 Estimator
func (f EstimatorFunc) Name() string { return "func" }

// HaversineEstimator 按经纬度计算球面距离
type HaversineEstimator struct{}

// Estimate 两端都有经纬度时返回大圆距离，否则返回 ErrNoCoordinates
func (HaversineEstimator) Estimate(_ context.Context, a, b model.Location) (float64, error) {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return 0, ErrNoCoordinates
	}
	return a.Distance(b), nil
}

// Name 实现 Estimator
func (HaversineEstimator) Name() string { return "haversine" }

// ZipEstimate 邮编前缀粗略估算
// 前缀相同不代表地理相近，仅作为降级使用
func ZipEstimate(a, b model.Location) float64 {
	za, zb := a.ZipCode(), b.ZipCode()
	switch {
	case za == "" || zb == "":
		return ZipUnknownMiles
	case za[:3] == zb[:3]:
		return ZipSame3Miles
	case za[:2] == zb[:2]:
		return ZipSame2Miles
	default:
		return ZipFarMiles
	}
}

// ZipEstimator 邮编前缀估算器
type ZipEstimator struct{}

// Estimate 实现 Estimator，从不返回错误
func (ZipEstimator) Estimate(_ context.Context, a, b model.Location) (float64, error) {
	return ZipEstimate(a, b), nil
}

// Name 实现 Estimator
func (ZipEstimator) Name() string { return "zip_prefix" }
