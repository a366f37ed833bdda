package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paiban/crewdispatch/pkg/model"
)

// JobRepository 工单仓储
type JobRepository struct {
	db DB
}

// NewJobRepository 创建工单仓储
func NewJobRepository(db DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, title, category, service_type, required_skills, required_certifications,
	estimated_duration, COALESCE(TO_CHAR(scheduled_date, 'YYYY-MM-DD'), ''), scheduled_time, location, zone,
	crew_requirements, assigned_tech_id, assigned_crew, assigned_vehicle_id, line_items, multi_day_schedule`

// Upsert 新增或更新工单
func (r *JobRepository) Upsert(ctx context.Context, j model.Job) error {
	skills, err := toJSON(j.RequiredSkills)
	if err != nil {
		return err
	}
	certs, _ := toJSON(j.RequiredCertifications)
	loc, _ := json.Marshal(j.Location)
	crew, _ := toJSON(j.AssignedCrew)
	items, _ := toJSON(j.LineItems)
	segments, _ := toJSON(j.MultiDaySchedule)
	var reqs []byte
	if j.CrewRequirements != nil {
		reqs, _ = json.Marshal(j.CrewRequirements)
	}
	var date interface{}
	if j.ScheduledDate != "" {
		date = j.ScheduledDate
	}

	query := `
		INSERT INTO jobs (id, title, category, service_type, required_skills, required_certifications,
			estimated_duration, scheduled_date, scheduled_time, location, zone, crew_requirements,
			assigned_tech_id, assigned_crew, assigned_vehicle_id, line_items, multi_day_schedule)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, category = EXCLUDED.category, service_type = EXCLUDED.service_type,
			required_skills = EXCLUDED.required_skills,
			required_certifications = EXCLUDED.required_certifications,
			estimated_duration = EXCLUDED.estimated_duration, scheduled_date = EXCLUDED.scheduled_date,
			scheduled_time = EXCLUDED.scheduled_time, location = EXCLUDED.location, zone = EXCLUDED.zone,
			crew_requirements = EXCLUDED.crew_requirements,
			assigned_tech_id = EXCLUDED.assigned_tech_id, assigned_crew = EXCLUDED.assigned_crew,
			assigned_vehicle_id = EXCLUDED.assigned_vehicle_id, line_items = EXCLUDED.line_items,
			multi_day_schedule = EXCLUDED.multi_day_schedule, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query,
		j.ID, j.Title, j.Category, j.ServiceType, skills, certs,
		j.EstimatedDuration.Int(), date, j.ScheduledTime, loc, j.Zone, reqs,
		j.AssignedTechID, crew, j.AssignedVehicleID, items, segments,
	); err != nil {
		return fmt.Errorf("保存工单失败: %w", err)
	}
	return nil
}

// ListOnDate 查询占用某日期的已分配工单（含多日片段）
func (r *JobRepository) ListOnDate(ctx context.Context, date string) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE (assigned_tech_id <> '' OR assigned_crew <> '[]'::jsonb)
		AND (scheduled_date = $1::date OR multi_day_schedule @> jsonb_build_array(jsonb_build_object('date', $2::text)))
		ORDER BY id`
	return r.query(ctx, query, date, date)
}

// List 按过滤条件查询未分配工单
func (r *JobRepository) List(ctx context.Context, filter ListFilter) ([]model.Job, error) {
	conditions := []string{"assigned_tech_id = ''", "assigned_crew = '[]'::jsonb"}
	var args []interface{}
	argIndex := 1

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("(scheduled_date IS NULL OR scheduled_date >= $%d)", argIndex))
		args = append(args, filter.StartDate)
		argIndex++
	}
	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("(scheduled_date IS NULL OR scheduled_date <= $%d)", argIndex))
		args = append(args, filter.EndDate)
		argIndex++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR category ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListFilter().Limit
	}

	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		jobColumns, strings.Join(conditions, " AND "),
		safeOrderBy(filter, "id", "scheduled_date", "estimated_duration"),
		argIndex, argIndex+1)
	args = append(args, limit, filter.Offset)

	return r.query(ctx, query, args...)
}

func (r *JobRepository) query(ctx context.Context, query string, args ...interface{}) ([]model.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询工单失败: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func scanJob(s Scanner) (*model.Job, error) {
	var (
		j                              model.Job
		duration                       int
		skills, certs, loc, reqs, crew []byte
		items, segments                []byte
	)
	if err := s.Scan(&j.ID, &j.Title, &j.Category, &j.ServiceType, &skills, &certs,
		&duration, &j.ScheduledDate, &j.ScheduledTime, &loc, &j.Zone,
		&reqs, &j.AssignedTechID, &crew, &j.AssignedVehicleID, &items, &segments); err != nil {
		return nil, fmt.Errorf("扫描工单失败: %w", err)
	}
	j.EstimatedDuration = model.Minutes(duration)

	for _, f := range []struct {
		data []byte
		dest interface{}
	}{
		{skills, &j.RequiredSkills},
		{certs, &j.RequiredCertifications},
		{loc, &j.Location},
		{crew, &j.AssignedCrew},
		{items, &j.LineItems},
		{segments, &j.MultiDaySchedule},
	} {
		if err := fromJSON(f.data, f.dest); err != nil {
			return nil, err
		}
	}
	if len(reqs) > 0 && string(reqs) != "null" {
		j.CrewRequirements = &model.CrewRequirements{}
		if err := fromJSON(reqs, j.CrewRequirements); err != nil {
			return nil, err
		}
	}
	return &j, nil
}
