// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

type ctxKey string

// RequestIDKey 上下文中请求ID的键
const RequestIDKey ctxKey = "request_id"

// Config 日志配置
type Config struct {
	Level      string `json:"level"`
	Format     string `json:"format"` // json/console
	Output     string `json:"output"` // stdout/stderr/file
	FilePath   string `json:"file_path,omitempty"`
	TimeFormat string `json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，只有第一次调用生效
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			output = os.Stdout
			if cfg.FilePath != "" {
				if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
					output = f
				}
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			timeFormat := cfg.TimeFormat
			if timeFormat == "" {
				timeFormat = time.RFC3339
			}
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: timeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器，未初始化时使用默认配置
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		l = l.With().Str("request_id", reqID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// EngineLogger 派工引擎专用日志器
type EngineLogger struct {
	base *zerolog.Logger
}

// NewEngineLogger 创建派工引擎日志器
func NewEngineLogger() *EngineLogger {
	l := Get().With().Str("component", "engine").Logger()
	return &EngineLogger{base: &l}
}

// AutoAssignStart 记录批量派工开始
func (l *EngineLogger) AutoAssignStart(date string, jobs, techs int) {
	l.base.Info().
		Str("date", date).
		Int("jobs", jobs).
		Int("technicians", techs).
		Msg("开始批量派工")
}

// AutoAssignComplete 记录批量派工完成
func (l *EngineLogger) AutoAssignComplete(date string, duration time.Duration, assigned, unassigned, understaffed int) {
	l.base.Info().
		Str("date", date).
		Dur("duration", duration).
		Int("assigned", assigned).
		Int("unassigned", unassigned).
		Int("understaffed", understaffed).
		Msg("批量派工完成")
}

// JobUnassigned 记录无法派工的工单
func (l *EngineLogger) JobUnassigned(jobID string, candidates int) {
	l.base.Warn().
		Str("job_id", jobID).
		Int("candidates", candidates).
		Msg("工单无可用技师")
}

// DistanceFallback 记录距离服务降级
func (l *EngineLogger) DistanceFallback(provider string, err error) {
	l.base.Warn().
		Str("provider", provider).
		Err(err).
		Msg("距离服务不可用，使用邮编前缀估算")
}

// LearningHookFailed 记录历史学习加分失败
func (l *EngineLogger) LearningHookFailed(techID, jobID string, err error) {
	l.base.Debug().
		Str("tech_id", techID).
		Str("job_id", jobID).
		Err(err).
		Msg("历史学习加分失败，使用基础分")
}
