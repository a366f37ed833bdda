package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/paiban/crewdispatch/pkg/model"
)

// DefaultTimeout 距离服务默认超时
const DefaultTimeout = 2 * time.Second

// FallbackFunc 降级回调
type FallbackFunc func(provider string, err error)

// ResilientEstimator 带超时和邮编降级的估算器
type ResilientEstimator struct {
	primary    Estimator
	timeout    time.Duration
	onFallback FallbackFunc
}

// NewResilientEstimator 创建带降级的估算器，primary 为 nil 时直接使用邮编估算
func NewResilientEstimator(primary Estimator, timeout time.Duration, onFallback FallbackFunc) *ResilientEstimator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ResilientEstimator{
		primary:    primary,
		timeout:    timeout,
		onFallback: onFallback,
	}
}

type estimateResult struct {
	miles float64
	err   error
}

// Estimate 在超时内调用主估算器，失败或超时时使用邮编估算，不返回错误
func (r *ResilientEstimator) Estimate(ctx context.Context, a, b model.Location) (float64, error) {
	if r.primary == nil {
		return ZipEstimate(a, b), nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// 主估算器可能不响应 ctx，用通道保证上限
	done := make(chan estimateResult, 1)
	go func() {
		miles, err := r.primary.Estimate(ctx, a, b)
		done <- estimateResult{miles: miles, err: err}
	}()

	var err error
	select {
	case res := <-done:
		if res.err == nil && res.miles >= 0 {
			return res.miles, nil
		}
		err = res.err
		if err == nil {
			err = fmt.Errorf("negative distance %.2f", res.miles)
		}
	case <-ctx.Done():
		err = ctx.Err()
	}

	if r.onFallback != nil {
		r.onFallback(r.primary.Name(), err)
	}
	return ZipEstimate(a, b), nil
}

// Name 实现 Estimator
func (r *ResilientEstimator) Name() string {
	if r.primary == nil {
		return "zip_prefix"
	}
	return "resilient(" + r.primary.Name() + ")"
}
