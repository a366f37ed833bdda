package repository

import (
	"context"
	"fmt"

	"github.com/paiban/crewdispatch/pkg/model"
)

// TimeOffRepository 请假记录仓储
type TimeOffRepository struct {
	db DB
}

// NewTimeOffRepository 创建请假仓储
func NewTimeOffRepository(db DB) *TimeOffRepository {
	return &TimeOffRepository{db: db}
}

// ListCovering 查询覆盖该日期的请假
func (r *TimeOffRepository) ListCovering(ctx context.Context, date string) ([]model.TimeOffEntry, error) {
	query := `
		SELECT tech_id, TO_CHAR(start_date, 'YYYY-MM-DD'), TO_CHAR(end_date, 'YYYY-MM-DD'), reason
		FROM time_off
		WHERE start_date <= $1 AND end_date >= $1
		ORDER BY tech_id
	`
	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("查询请假记录失败: %w", err)
	}
	defer rows.Close()

	var entries []model.TimeOffEntry
	for rows.Next() {
		var e model.TimeOffEntry
		if err := rows.Scan(&e.TechID, &e.StartDate, &e.EndDate, &e.Reason); err != nil {
			return nil, fmt.Errorf("扫描请假记录失败: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// VehicleRepository 车辆仓储
type VehicleRepository struct {
	db DB
}

// NewVehicleRepository 创建车辆仓储
func NewVehicleRepository(db DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// ListInService 查询可用车辆
func (r *VehicleRepository) ListInService(ctx context.Context) ([]model.Vehicle, error) {
	query := `
		SELECT id, name, plate, passenger_capacity, out_of_service
		FROM vehicles
		WHERE NOT out_of_service
		ORDER BY passenger_capacity, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询车辆失败: %w", err)
	}
	defer rows.Close()

	var vehicles []model.Vehicle
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Plate, &v.PassengerCapacity, &v.OutOfService); err != nil {
			return nil, fmt.Errorf("扫描车辆失败: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}
