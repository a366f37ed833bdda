package scoring

import (
	"context"

	"github.com/paiban/crewdispatch/pkg/model"
)

// LearningBonus 历史学习加分
type LearningBonus struct {
	Delta    float64         `json:"delta"`
	Insights []model.Insight `json:"insights,omitempty"`
}

// LearningProvider 根据历史派工结果给出加分
type LearningProvider interface {
	HistoryBonus(ctx context.Context, tech model.Technician, job model.Job) (LearningBonus, error)
}

// LearningFunc 函数形式的 LearningProvider
type LearningFunc func(ctx context.Context, tech model.Technician, job model.Job) (LearningBonus, error)

// HistoryBonus 实现 LearningProvider
func (f LearningFunc) HistoryBonus(ctx context.Context, tech model.Technician, job model.Job) (LearningBonus, error) {
	return f(ctx, tech, job)
}
