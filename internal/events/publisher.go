// Package events 发布派工计划事件到 Redis Stream
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/paiban/crewdispatch/pkg/logger"
	"github.com/paiban/crewdispatch/pkg/model"
)

// EventPlanCommitted 计划已提交事件类型
const EventPlanCommitted = "plan.committed"

// PlanEvent 计划提交事件
type PlanEvent struct {
	EventID     string
	PlanID      string
	Date        string
	JobsUpdated int
	Summary     model.PlanSummary
	OccurredAt  time.Time
}

// NewPlanEvent 根据计划生成事件
func NewPlanEvent(plan model.AssignmentPlan, jobsUpdated int) PlanEvent {
	return PlanEvent{
		EventID:     uuid.NewString(),
		PlanID:      plan.ID,
		Date:        plan.Date,
		JobsUpdated: jobsUpdated,
		Summary:     plan.Summary,
		OccurredAt:  time.Now().UTC(),
	}
}

// Values 转换为 Stream 字段
func (e PlanEvent) Values() (map[string]any, error) {
	summary, err := json.Marshal(e.Summary)
	if err != nil {
		return nil, fmt.Errorf("序列化计划汇总失败: %w", err)
	}
	return map[string]any{
		"event_id":     e.EventID,
		"event_type":   EventPlanCommitted,
		"plan_id":      e.PlanID,
		"date":         e.Date,
		"jobs_updated": e.JobsUpdated,
		"summary":      string(summary),
		"occurred_at":  e.OccurredAt.Format(time.RFC3339),
	}, nil
}

// Publisher 计划事件发布者
type Publisher interface {
	PublishPlanCommitted(ctx context.Context, event PlanEvent) error
	Close() error
}

type redisPublisher struct {
	client *redis.Client
	stream string
	log    *zerolog.Logger
}

// NewRedisPublisher 创建 Redis Stream 发布者
func NewRedisPublisher(client *redis.Client, stream string) Publisher {
	return &redisPublisher{
		client: client,
		stream: stream,
		log:    logger.WithField("component", "events"),
	}
}

func (p *redisPublisher) PublishPlanCommitted(ctx context.Context, event PlanEvent) error {
	values, err := event.Values()
	if err != nil {
		return err
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("发布计划事件失败: %w", err)
	}

	p.log.Info().
		Str("event_id", event.EventID).
		Str("plan_id", event.PlanID).
		Int("jobs_updated", event.JobsUpdated).
		Msg("计划事件已发布")
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

type nopPublisher struct{}

// NewNopPublisher 未启用 Redis 时使用的发布者
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) PublishPlanCommitted(ctx context.Context, event PlanEvent) error {
	logger.Debug().Str("plan_id", event.PlanID).Msg("事件发布未启用，跳过")
	return nil
}

func (nopPublisher) Close() error { return nil }
