package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "github.com/paiban/crewdispatch/pkg/errors"
	"github.com/paiban/crewdispatch/pkg/model"
)

// JobUpdate 提交计划时单个工单的写入内容
type JobUpdate struct {
	JobID          string
	AssignedTechID string
	AssignedCrew   []model.CrewMember
	VehicleID      string
	ScheduledDate  string
	ScheduledTime  string
}

// BuildJobUpdates 将计划转换为工单更新，失败条目不写入
func BuildJobUpdates(plan model.AssignmentPlan) []JobUpdate {
	updates := make([]JobUpdate, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		if e.Failed || len(e.TechIDs) == 0 {
			continue
		}
		date := e.Date
		if date == "" {
			date = plan.Date
		}
		updates = append(updates, JobUpdate{
			JobID:          e.JobID,
			AssignedTechID: e.TechIDs[0],
			AssignedCrew:   e.Crew(),
			VehicleID:      e.VehicleID,
			ScheduledDate:  date,
			ScheduledTime:  e.StartTime,
		})
	}
	return updates
}

// PlanRepository 派工计划仓储
type PlanRepository struct {
	db Transactor
}

// NewPlanRepository 创建派工计划仓储
func NewPlanRepository(db Transactor) *PlanRepository {
	return &PlanRepository{db: db}
}

// ApplyPlan 在单个事务内写入计划涉及的全部工单，任一失败则整体回滚
func (r *PlanRepository) ApplyPlan(ctx context.Context, plan model.AssignmentPlan) (int, error) {
	updates := BuildJobUpdates(plan)
	summary, err := json.Marshal(plan.Summary)
	if err != nil {
		return 0, fmt.Errorf("序列化计划汇总失败: %w", err)
	}
	entries, err := json.Marshal(plan.Entries)
	if err != nil {
		return 0, fmt.Errorf("序列化计划条目失败: %w", err)
	}

	err = r.db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, u := range updates {
			if err := applyJobUpdate(ctx, tx, u); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assignment_plans (id, plan_date, summary, entries)
			VALUES ($1, $2, $3, $4)
		`, plan.ID, plan.Date, summary, entries)
		if err != nil {
			return fmt.Errorf("保存派工计划失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(updates), nil
}

func applyJobUpdate(ctx context.Context, db DB, u JobUpdate) error {
	crew, err := toJSON(u.AssignedCrew)
	if err != nil {
		return err
	}
	query := `
		UPDATE jobs SET
			assigned_tech_id = $2, assigned_crew = $3, assigned_vehicle_id = $4,
			scheduled_date = $5, scheduled_time = $6, updated_at = NOW()
		WHERE id = $1
	`
	result, err := db.ExecContext(ctx, query,
		u.JobID, u.AssignedTechID, crew, u.VehicleID, u.ScheduledDate, u.ScheduledTime)
	if err != nil {
		return fmt.Errorf("更新工单失败: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("获取影响行数失败: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("job", u.JobID)
	}
	return nil
}
