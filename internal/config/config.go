// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/paiban/crewdispatch/pkg/model"
	"github.com/paiban/crewdispatch/pkg/scoring"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	API      APIConfig      `yaml:"api"`
	Engine   EngineConfig   `yaml:"engine"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json/console
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	DistanceTTL time.Duration `yaml:"distance_ttl"`
	PlanStream  string        `yaml:"plan_stream"`
}

// APIConfig API配置
type APIConfig struct {
	RateLimit int           `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	CORS      CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// EngineConfig 派工引擎配置
type EngineConfig struct {
	DistanceTimeout       time.Duration `yaml:"distance_timeout"`
	LearningTimeout       time.Duration `yaml:"learning_timeout"`
	ScoringWorkers        int           `yaml:"scoring_workers"`
	MaxSegments           int           `yaml:"max_segments"`
	DefaultBufferMinutes  int           `yaml:"default_buffer_minutes"`
	DefaultMaxJobsPerDay  int           `yaml:"default_max_jobs_per_day"`
	DefaultMaxHoursPerDay int           `yaml:"default_max_hours_per_day"`
	DefaultMaxTravelMiles int           `yaml:"default_max_travel_miles"`
	CrewShortfallWeight   float64       `yaml:"crew_shortfall_weight"`
	RecommendThreshold    float64       `yaml:"recommend_threshold"`
	DiscardThreshold      float64       `yaml:"discard_threshold"`
}

// TechDefaults 转换为技师缺省值
func (c EngineConfig) TechDefaults() model.TechDefaults {
	d := model.DefaultTechDefaults()
	d.BufferMinutes = c.DefaultBufferMinutes
	d.MaxJobsPerDay = c.DefaultMaxJobsPerDay
	d.MaxHoursPerDay = c.DefaultMaxHoursPerDay
	d.MaxTravelMiles = c.DefaultMaxTravelMiles
	return d
}

// Weights 转换为评分权重
func (c EngineConfig) Weights() scoring.Weights {
	w := scoring.DefaultWeights()
	w.CrewShortfall = c.CrewShortfallWeight
	w.RecommendThreshold = c.RecommendThreshold
	w.DiscardThreshold = c.DiscardThreshold
	return w
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 从环境变量加载配置，存在 .env 文件时先载入
func Load() (*Config, error) {
	// .env 可选，缺失时只读取进程环境变量
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "crewdispatch"),
			Env:       getEnv("APP_ENV", "development"),
			Port:      getEnvInt("APP_PORT", 7012),
			LogLevel:  getEnv("APP_LOG_LEVEL", "info"),
			LogFormat: getEnv("APP_LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "crewdispatch"),
			User:            getEnv("DB_USER", "crewdispatch"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:     getEnvBool("REDIS_ENABLED", false),
			Addr:        getEnv("REDIS_ADDR", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			PoolSize:    getEnvInt("REDIS_POOL_SIZE", 10),
			DistanceTTL: getEnvDuration("REDIS_DISTANCE_TTL", 24*time.Hour),
			PlanStream:  getEnv("REDIS_PLAN_STREAM", "crewdispatch:plans"),
		},
		API: APIConfig{
			RateLimit: getEnvInt("API_RATE_LIMIT", 100),
			Timeout:   getEnvDuration("API_TIMEOUT", 30*time.Second),
			CORS: CORSConfig{
				Enabled: getEnvBool("API_CORS_ENABLED", true),
				Origins: getEnvList("API_CORS_ORIGINS", []string{"*"}),
			},
		},
		Engine: EngineConfig{
			DistanceTimeout:       getEnvDuration("ENGINE_DISTANCE_TIMEOUT", 2*time.Second),
			LearningTimeout:       getEnvDuration("ENGINE_LEARNING_TIMEOUT", time.Second),
			ScoringWorkers:        getEnvInt("ENGINE_SCORING_WORKERS", 4),
			MaxSegments:           getEnvInt("ENGINE_MAX_SEGMENTS", 14),
			DefaultBufferMinutes:  getEnvInt("ENGINE_DEFAULT_BUFFER_MINUTES", 30),
			DefaultMaxJobsPerDay:  getEnvInt("ENGINE_DEFAULT_MAX_JOBS", 4),
			DefaultMaxHoursPerDay: getEnvInt("ENGINE_DEFAULT_MAX_HOURS", 8),
			DefaultMaxTravelMiles: getEnvInt("ENGINE_DEFAULT_MAX_TRAVEL_MILES", 25),
			CrewShortfallWeight:   getEnvFloat("ENGINE_CREW_SHORTFALL_WEIGHT", -50),
			RecommendThreshold:    getEnvFloat("ENGINE_RECOMMEND_THRESHOLD", 80),
			DiscardThreshold:      getEnvFloat("ENGINE_DISCARD_THRESHOLD", -50),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT 无效: %d", c.App.Port)
	}
	if c.Engine.ScoringWorkers <= 0 {
		return fmt.Errorf("ENGINE_SCORING_WORKERS 必须大于0")
	}
	if c.Engine.MaxSegments <= 0 {
		return fmt.Errorf("ENGINE_MAX_SEGMENTS 必须大于0")
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("启用数据库时 DB_HOST 不能为空")
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
