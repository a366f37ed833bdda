package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/paiban/crewdispatch/internal/metrics"
	"github.com/paiban/crewdispatch/internal/middleware"
)

// BuildInfo 版本信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// RouterOptions 路由依赖
type RouterOptions struct {
	Engine      *EngineHandler
	Store       *StoreHandler
	RateLimiter *middleware.RateLimiter // 可选
	CORSOrigins []string
	Timeout     time.Duration
	MetricsPath string // 为空时不暴露指标
	Build       BuildInfo
	Health      func(ctx context.Context) map[string]string
}

// NewRouter 创建HTTP路由
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.SecurityHeaders)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := map[string]string{"status": "healthy"}
		if opts.Health != nil {
			for k, v := range opts.Health(req.Context()) {
				status[k] = v
			}
		}
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: status})
	})
	r.Get("/version", func(w http.ResponseWriter, req *http.Request) {
		sendData(w, opts.Build)
	})
	if opts.MetricsPath != "" {
		r.Handle(opts.MetricsPath, metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if opts.RateLimiter != nil {
			api.Use(opts.RateLimiter.Middleware)
		}
		if opts.Timeout > 0 {
			api.Use(chimw.Timeout(opts.Timeout))
		}

		api.Post("/score", opts.Engine.Score)
		api.Post("/conflicts", opts.Engine.Conflicts)
		api.Post("/crew-requirements", opts.Engine.CrewRequirements)
		api.Post("/auto-assign", opts.Engine.AutoAssign)
		api.Post("/validate-assignment", opts.Engine.ValidateAssignment)
		api.Post("/multi-day-schedule", opts.Engine.MultiDaySchedule)
		api.Post("/route", opts.Engine.Route)
		api.Post("/audit", opts.Engine.Audit)

		if opts.Store != nil {
			api.Put("/technicians/{id}", opts.Store.PutTechnician)
			api.Put("/jobs/{id}", opts.Store.PutJob)
			api.Post("/plans/draft", opts.Store.DraftPlan)
			api.Post("/plans/commit", opts.Store.CommitPlan)
		}
	})

	return r
}
