// Package scoring 计算技师与工单的匹配分数
package scoring

// Weights 评分权重
// 所有分值集中在此，评分逻辑中不出现裸常量
type Weights struct {
	TimeOffBlock        float64 `json:"time_off_block"`         // 请假直接阻断
	CrewShortfall       float64 `json:"crew_shortfall"`         // 每缺一人
	SkillMatch          float64 `json:"skill_match"`            // 技能匹配
	CertificationMatch  float64 `json:"certification_match"`    // 证书匹配
	DayAvailable        float64 `json:"day_available"`          // 当天工作
	DayUnavailable      float64 `json:"day_unavailable"`        // 当天不工作
	JobCapacity         float64 `json:"job_capacity"`           // 剩余工单容量，按比例
	JobCapacityExceeded float64 `json:"job_capacity_exceeded"`  // 工单数已满
	HoursExceeded       float64 `json:"hours_exceeded"`         // 超过每日工时
	WorkloadBalance     float64 `json:"workload_balance"`       // 负载均衡，按比例
	WithinRadius        float64 `json:"within_radius"`          // 在出行半径内
	NearbyJobBonus      float64 `json:"nearby_job_bonus"`       // 当天附近有其他工单
	NearbyJobMiles      float64 `json:"nearby_job_miles"`       // 附近工单距离阈值
	PerMileBeyondRadius float64 `json:"per_mile_beyond_radius"` // 超出半径每英里
	PreferredZone       float64 `json:"preferred_zone"`         // 偏好区域
	RecommendThreshold  float64 `json:"recommend_threshold"`    // 推荐分数线
	DiscardThreshold    float64 `json:"discard_threshold"`      // 批量派工淘汰线（含）
}

// DefaultWeights 返回默认权重
func DefaultWeights() Weights {
	return Weights{
		TimeOffBlock:        -200,
		CrewShortfall:       -50,
		SkillMatch:          50,
		CertificationMatch:  30,
		DayAvailable:        40,
		DayUnavailable:      -100,
		JobCapacity:         30,
		JobCapacityExceeded: -50,
		HoursExceeded:       -30,
		WorkloadBalance:     20,
		WithinRadius:        25,
		NearbyJobBonus:      15,
		NearbyJobMiles:      10,
		PerMileBeyondRadius: -2,
		PreferredZone:       15,
		RecommendThreshold:  80,
		DiscardThreshold:    -50,
	}
}
