package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/crewdispatch/pkg/model"
)

func TestZipEstimate(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Location
		want float64
	}{
		{"前三位相同", model.Location{Zip: "94107"}, model.Location{Zip: "94110"}, ZipSame3Miles},
		{"前两位相同", model.Location{Zip: "94107"}, model.Location{Zip: "94501"}, ZipSame2Miles},
		{"不同区域", model.Location{Zip: "94107"}, model.Location{Zip: "10001"}, ZipFarMiles},
		{"缺少邮编", model.Location{Zip: "94107"}, model.Location{Address: "somewhere"}, ZipUnknownMiles},
		{"从地址识别", model.Location{Address: "1 Main St, CA 94107"}, model.Location{Zip: "94107"}, ZipSame3Miles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ZipEstimate(tt.a, tt.b))
		})
	}
}

func TestHaversineEstimator(t *testing.T) {
	h := HaversineEstimator{}
	_, err := h.Estimate(context.Background(), model.Location{Zip: "10001"}, model.Location{Latitude: 1, Longitude: 1})
	assert.ErrorIs(t, err, ErrNoCoordinates)

	miles, err := h.Estimate(context.Background(),
		model.Location{Latitude: 40.7128, Longitude: -74.0060},
		model.Location{Latitude: 40.7306, Longitude: -73.9352})
	require.NoError(t, err)
	assert.InDelta(t, 3.9, miles, 0.5)
}

func TestResilientEstimator_Fallback(t *testing.T) {
	var fellBack []string
	onFallback := func(provider string, err error) { fellBack = append(fellBack, provider) }

	a := model.Location{Zip: "94107"}
	b := model.Location{Zip: "94110"}

	failing := EstimatorFunc(func(ctx context.Context, a, b model.Location) (float64, error) {
		return 0, errors.New("provider down")
	})
	r := NewResilientEstimator(failing, time.Second, onFallback)
	miles, err := r.Estimate(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, ZipSame3Miles, miles)

	slow := EstimatorFunc(func(ctx context.Context, a, b model.Location) (float64, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	r = NewResilientEstimator(slow, 20*time.Millisecond, onFallback)
	started := time.Now()
	miles, err = r.Estimate(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, ZipSame3Miles, miles)
	assert.Less(t, time.Since(started), 150*time.Millisecond)

	assert.Len(t, fellBack, 2)
}

func TestResilientEstimator_Primary(t *testing.T) {
	fixed := EstimatorFunc(func(ctx context.Context, a, b model.Location) (float64, error) {
		return 7.5, nil
	})
	r := NewResilientEstimator(fixed, time.Second, nil)
	miles, err := r.Estimate(context.Background(), model.Location{}, model.Location{})
	require.NoError(t, err)
	assert.Equal(t, 7.5, miles)
}

func TestPairKey_Unordered(t *testing.T) {
	a := model.Location{Latitude: 40.71281, Longitude: -74.00601}
	b := model.Location{Zip: "10001"}
	assert.Equal(t, PairKey(a, b), PairKey(b, a))
	assert.Contains(t, PairKey(a, b), "zip:10001")
}

func TestCachedEstimator_RedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewCachedEstimator(client, ZipEstimator{}, time.Minute)
	miles, err := c.Estimate(context.Background(), model.Location{Zip: "94107"}, model.Location{Zip: "10001"})
	require.NoError(t, err)
	assert.Equal(t, ZipFarMiles, miles)
}

func TestNearestNeighborRoute(t *testing.T) {
	start := model.Location{Latitude: 40.0, Longitude: -75.0}
	jobs := []model.Job{
		{ID: "far", Location: model.Location{Latitude: 40.5, Longitude: -75.0}, EstimatedDuration: 60},
		{ID: "near", Location: model.Location{Latitude: 40.1, Longitude: -75.0}, EstimatedDuration: 30},
		{ID: "mid", Location: model.Location{Latitude: 40.3, Longitude: -75.0}, EstimatedDuration: 45},
	}

	plan, err := NearestNeighborRoute{}.Optimize(context.Background(), start, jobs)
	require.NoError(t, err)
	require.Len(t, plan.Stops, 3)
	assert.Equal(t, "near", plan.Stops[0].JobID)
	assert.Equal(t, "mid", plan.Stops[1].JobID)
	assert.Equal(t, "far", plan.Stops[2].JobID)
	assert.InDelta(t, 0.5*milesPerDegree, plan.TotalMiles, 0.1)
	assert.Equal(t, "far", jobs[0].ID, "输入顺序不应被修改")
}

type brokenOptimizer struct{}

func (brokenOptimizer) Optimize(context.Context, model.Location, []model.Job) (RoutePlan, error) {
	return RoutePlan{}, errors.New("unavailable")
}

func TestOptimizeRoute_Fallback(t *testing.T) {
	plan := OptimizeRoute(context.Background(), brokenOptimizer{}, model.Location{},
		[]model.Job{{ID: "a"}, {ID: "b"}})
	assert.Equal(t, "nearest_neighbor", plan.Optimizer)
	assert.Len(t, plan.Jobs, 2)
}
