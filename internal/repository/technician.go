package repository

import (
	"context"
	"fmt"

	"github.com/paiban/crewdispatch/pkg/model"
)

// TechnicianRepository 技师仓储
type TechnicianRepository struct {
	db DB
}

// NewTechnicianRepository 创建技师仓储
func NewTechnicianRepository(db DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

const technicianColumns = `id, name, working_hours, skills, certifications, home_zip, location,
	max_travel_miles, max_jobs_per_day, max_hours_per_day, default_buffer_minutes, preferred_zones`

// Upsert 新增或更新技师
func (r *TechnicianRepository) Upsert(ctx context.Context, t model.Technician) error {
	hours, err := toJSON(t.WorkingHours)
	if err != nil {
		return err
	}
	if t.WorkingHours == nil {
		hours = []byte("null")
	}
	skills, _ := toJSON(t.Skills)
	certs, _ := toJSON(t.Certifications)
	zones, _ := toJSON(t.PreferredZones)
	var loc []byte
	if t.Location != nil {
		loc, _ = toJSON(t.Location)
	}

	query := `
		INSERT INTO technicians (` + technicianColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, working_hours = EXCLUDED.working_hours,
			skills = EXCLUDED.skills, certifications = EXCLUDED.certifications,
			home_zip = EXCLUDED.home_zip, location = EXCLUDED.location,
			max_travel_miles = EXCLUDED.max_travel_miles, max_jobs_per_day = EXCLUDED.max_jobs_per_day,
			max_hours_per_day = EXCLUDED.max_hours_per_day,
			default_buffer_minutes = EXCLUDED.default_buffer_minutes,
			preferred_zones = EXCLUDED.preferred_zones
	`
	if _, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, hours, skills, certs, t.HomeZip, loc,
		t.MaxTravelMiles, t.MaxJobsPerDay, t.MaxHoursPerDay, t.DefaultBufferMinutes, zones,
	); err != nil {
		return fmt.Errorf("保存技师失败: %w", err)
	}
	return nil
}

// ListActive 查询在职技师
func (r *TechnicianRepository) ListActive(ctx context.Context) ([]model.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE active ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询技师失败: %w", err)
	}
	defer rows.Close()

	var techs []model.Technician
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		techs = append(techs, *t)
	}
	return techs, rows.Err()
}

func scanTechnician(s Scanner) (*model.Technician, error) {
	var (
		t                         model.Technician
		hours, skills, certs, loc []byte
		zones                     []byte
	)
	if err := s.Scan(&t.ID, &t.Name, &hours, &skills, &certs, &t.HomeZip, &loc,
		&t.MaxTravelMiles, &t.MaxJobsPerDay, &t.MaxHoursPerDay, &t.DefaultBufferMinutes, &zones); err != nil {
		return nil, fmt.Errorf("扫描技师失败: %w", err)
	}
	for _, f := range []struct {
		data []byte
		dest interface{}
	}{
		{hours, &t.WorkingHours},
		{skills, &t.Skills},
		{certs, &t.Certifications},
		{zones, &t.PreferredZones},
	} {
		if err := fromJSON(f.data, f.dest); err != nil {
			return nil, err
		}
	}
	if len(loc) > 0 && string(loc) != "null" {
		t.Location = &model.Location{}
		if err := fromJSON(loc, t.Location); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
