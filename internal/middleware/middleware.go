// Package middleware 提供HTTP中间件
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/paiban/crewdispatch/internal/metrics"
	apperrors "github.com/paiban/crewdispatch/pkg/errors"
	"github.com/paiban/crewdispatch/pkg/logger"
)

// RequestIDHeader 请求ID头
const RequestIDHeader = "X-Request-ID"

// RequestID 为每个请求分配ID并写入上下文
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), logger.RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLog 访问日志和请求指标
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		path := routePattern(r)
		metrics.RecordRequestMetrics(r.Method, path, status, duration)

		event := logger.WithContext(r.Context()).Info()
		if status >= http.StatusInternalServerError {
			event = logger.WithContext(r.Context()).Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", duration).
			Msg("请求完成")
	})
}

// routePattern 使用路由模板作为指标标签，避免路径参数导致标签膨胀
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// Recoverer 捕获panic并返回500
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.WithContext(r.Context()).Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("请求处理发生panic")
				writeError(w, apperrors.New(apperrors.CodeInternal, "internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// writeError 以统一响应结构输出错误
func writeError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.GetHTTPStatus(appErr))
	_ = json.NewEncoder(w).Encode(struct {
		Success bool                `json:"success"`
		Error   *apperrors.AppError `json:"error"`
	}{Success: false, Error: appErr})
}

// SecurityHeaders 安全响应头
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		next.ServeHTTP(w, r)
	})
}
