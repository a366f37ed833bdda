package dispatcher

import (
	"sort"

	"github.com/paiban/crewdispatch/pkg/model"
)

// vehiclePool 批量派工中的车辆占用情况
type vehiclePool struct {
	vehicles []model.Vehicle
	used     map[string]bool
}

// newVehiclePool 按座位数升序排列，已有工单占用的车辆标记为已用
func newVehiclePool(vehicles []model.Vehicle, existing []model.Job, date string) *vehiclePool {
	sorted := make([]model.Vehicle, len(vehicles))
	copy(sorted, vehicles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PassengerCapacity < sorted[j].PassengerCapacity
	})

	used := make(map[string]bool)
	for _, j := range existing {
		if j.AssignedVehicleID != "" && j.OccursOn(date) {
			used[j.AssignedVehicleID] = true
		}
	}
	return &vehiclePool{vehicles: sorted, used: used}
}

// take 取出能容纳该人数的最小车辆
func (p *vehiclePool) take(crewSize int) (model.Vehicle, bool) {
	for _, v := range p.vehicles {
		if p.used[v.ID] || !v.Seats(crewSize) {
			continue
		}
		p.used[v.ID] = true
		return v, true
	}
	return model.Vehicle{}, false
}
