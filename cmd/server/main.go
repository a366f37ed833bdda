// CrewDispatch 技师派工引擎服务
// 主程序入口

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paiban/crewdispatch/internal/config"
	"github.com/paiban/crewdispatch/internal/database"
	"github.com/paiban/crewdispatch/internal/events"
	"github.com/paiban/crewdispatch/internal/handler"
	"github.com/paiban/crewdispatch/internal/metrics"
	"github.com/paiban/crewdispatch/internal/middleware"
	"github.com/paiban/crewdispatch/internal/repository"
	"github.com/paiban/crewdispatch/pkg/geo"
	"github.com/paiban/crewdispatch/pkg/logger"
	"github.com/paiban/crewdispatch/pkg/scoring"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("CrewDispatch 派工引擎启动")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := connectRedis(ctx, &cfg.Redis)

	// 距离估算：Haversine，可选 Redis 缓存，超时或失败时降级为邮编估算
	var estimator geo.Estimator = geo.HaversineEstimator{}
	if rdb != nil {
		estimator = geo.NewCachedEstimator(rdb, estimator, cfg.Redis.DistanceTTL)
	}
	engineLog := logger.NewEngineLogger()
	estimator = geo.NewResilientEstimator(estimator, cfg.Engine.DistanceTimeout, func(provider string, err error) {
		engineLog.DistanceFallback(provider, err)
		metrics.RecordDistanceFallback(provider)
	})

	weights := cfg.Engine.Weights()
	defaults := cfg.Engine.TechDefaults()
	scorer := scoring.NewScorer(scoring.Config{
		Weights:         &weights,
		Defaults:        &defaults,
		Estimator:       estimator,
		LearningTimeout: cfg.Engine.LearningTimeout,
	})

	engineHandler := handler.NewEngineHandler(handler.EngineOptions{
		Scorer:      scorer,
		Workers:     cfg.Engine.ScoringWorkers,
		MaxSegments: cfg.Engine.MaxSegments,
	})

	db, store := connectDatabase(ctx, &cfg.Database)
	if db != nil {
		defer db.Close()
		go reportDBStats(ctx, db)
	}

	publisher := events.NewNopPublisher()
	if rdb != nil {
		publisher = events.NewRedisPublisher(rdb, cfg.Redis.PlanStream)
	}
	defer publisher.Close()

	limiter := middleware.NewRateLimiter(cfg.API.RateLimit, time.Minute)
	defer limiter.Stop()

	opts := handler.RouterOptions{
		Engine:      engineHandler,
		Store:       handler.NewStoreHandler(store, engineHandler, publisher),
		RateLimiter: limiter,
		Timeout:     cfg.API.Timeout,
		Build:       handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		Health: func(ctx context.Context) map[string]string {
			return dependencyHealth(ctx, db, rdb)
		},
	}
	if cfg.API.CORS.Enabled {
		opts.CORSOrigins = cfg.API.CORS.Origins
	}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler.NewRouter(opts),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Bool("persistence", store != nil).
			Bool("redis", rdb != nil).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		return
	}

	logger.Info().Msg("服务器已关闭")
}

// connectRedis 连接 Redis，不可用时返回 nil 并以无缓存模式运行
func connectRedis(ctx context.Context, cfg *config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis 不可用，距离缓存与计划事件已禁用")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Addr).Msg("Redis 连接成功")
	return client
}

// connectDatabase 连接数据库并迁移，未启用时返回 nil store
func connectDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*database.DB, *handler.Store) {
	if !cfg.Enabled {
		logger.Info().Msg("数据库未启用，持久化接口不可用")
		return nil, nil
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("数据库连接失败")
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("数据库迁移失败")
	}

	return db, &handler.Store{
		Technicians: repository.NewTechnicianRepository(db),
		Jobs:        repository.NewJobRepository(db),
		TimeOff:     repository.NewTimeOffRepository(db),
		Vehicles:    repository.NewVehicleRepository(db),
		Plans:       repository.NewPlanRepository(db),
	}
}

func reportDBStats(ctx context.Context, db *database.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			metrics.SetDBConnections(stats.InUse, stats.Idle)
		}
	}
}

func dependencyHealth(ctx context.Context, db *database.DB, rdb *redis.Client) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := map[string]string{"database": "disabled", "redis": "disabled"}
	if db != nil {
		status["database"] = "ok"
		if err := db.Health(ctx); err != nil {
			status["database"] = "unavailable"
		}
	}
	if rdb != nil {
		status["redis"] = "ok"
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = "unavailable"
		}
	}
	return status
}
