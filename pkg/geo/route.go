package geo

import (
	"context"
	"math"

	"github.com/paiban/crewdispatch/pkg/logger"
	"github.com/paiban/crewdispatch/pkg/model"
)

// AverageSpeedMPH 估算行驶时间使用的平均车速
const AverageSpeedMPH = 30.0

// milesPerDegree 每纬度约合英里数
const milesPerDegree = 69.17

// RouteStop 路线中的一站
type RouteStop struct {
	JobID         string  `json:"job_id"`
	LegMiles      float64 `json:"leg_miles"`
	TravelMinutes int     `json:"travel_minutes"`
}

// RoutePlan 路线规划结果
type RoutePlan struct {
	Stops                []RouteStop `json:"stops"`
	Jobs                 []model.Job `json:"jobs"`
	TotalMiles           float64     `json:"total_miles"`
	TotalDurationMinutes int         `json:"total_duration_minutes"`
	Optimizer            string      `json:"optimizer"`
}

// RouteOptimizer 路线优化器
type RouteOptimizer interface {
	Optimize(ctx context.Context, start model.Location, jobs []model.Job) (RoutePlan, error)
}

// NearestNeighborRoute 最近邻贪心路线
// 有经纬度时使用局部平面欧氏距离，否则使用邮编估算
type NearestNeighborRoute struct{}

// Optimize 每次选择距当前位置最近的工单
func (NearestNeighborRoute) Optimize(_ context.Context, start model.Location, jobs []model.Job) (RoutePlan, error) {
	plan := RoutePlan{Optimizer: "nearest_neighbor"}
	if len(jobs) == 0 {
		return plan, nil
	}

	remaining := make([]model.Job, len(jobs))
	copy(remaining, jobs)
	current := start

	for len(remaining) > 0 {
		minIdx := 0
		minDist := math.Inf(1)
		for i, job := range remaining {
			d := planarDistance(current, job.Location)
			if d < minDist {
				minDist = d
				minIdx = i
			}
		}

		next := remaining[minIdx]
		travel := int(math.Round(minDist / AverageSpeedMPH * 60))
		plan.Stops = append(plan.Stops, RouteStop{
			JobID:         next.ID,
			LegMiles:      math.Round(minDist*100) / 100,
			TravelMinutes: travel,
		})
		plan.Jobs = append(plan.Jobs, next)
		plan.TotalMiles += minDist
		plan.TotalDurationMinutes += travel + next.DurationMinutes()

		current = next.Location
		remaining = append(remaining[:minIdx], remaining[minIdx+1:]...)
	}

	plan.TotalMiles = math.Round(plan.TotalMiles*100) / 100
	return plan, nil
}

// planarDistance 等距投影下的欧氏距离（英里）
func planarDistance(a, b model.Location) float64 {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return ZipEstimate(a, b)
	}
	meanLat := (a.Latitude + b.Latitude) / 2 * math.Pi / 180
	dx := (b.Longitude - a.Longitude) * math.Cos(meanLat) * milesPerDegree
	dy := (b.Latitude - a.Latitude) * milesPerDegree
	return math.Sqrt(dx*dx + dy*dy)
}

// OptimizeRoute 优先使用外部优化器，不可用或失败时使用最近邻路线
func OptimizeRoute(ctx context.Context, optimizer RouteOptimizer, start model.Location, jobs []model.Job) RoutePlan {
	if optimizer != nil {
		plan, err := optimizer.Optimize(ctx, start, jobs)
		if err == nil {
			return plan
		}
		logger.Warn().Err(err).Int("jobs", len(jobs)).Msg("路线优化服务失败，使用最近邻路线")
	}
	plan, _ := NearestNeighborRoute{}.Optimize(ctx, start, jobs)
	return plan
}
