package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/paiban/crewdispatch/pkg/availability"
	"github.com/paiban/crewdispatch/pkg/geo"
	"github.com/paiban/crewdispatch/pkg/logger"
	"github.com/paiban/crewdispatch/pkg/model"
	"github.com/paiban/crewdispatch/pkg/timeutil"
)

// Config 评分器配置
type Config struct {
	Weights         *Weights
	Defaults        *model.TechDefaults
	Estimator       geo.Estimator
	Learning        LearningProvider
	LearningTimeout time.Duration
}

// Scorer 评分器，无内部可变状态，可并发调用
type Scorer struct {
	weights         Weights
	defaults        model.TechDefaults
	estimator       geo.Estimator
	learning        LearningProvider
	learningTimeout time.Duration
	log             *logger.EngineLogger
}

// NewScorer 创建评分器
func NewScorer(cfg Config) *Scorer {
	s := &Scorer{
		weights:         DefaultWeights(),
		defaults:        model.DefaultTechDefaults(),
		estimator:       cfg.Estimator,
		learning:        cfg.Learning,
		learningTimeout: cfg.LearningTimeout,
		log:             logger.NewEngineLogger(),
	}
	if cfg.Weights != nil {
		s.weights = *cfg.Weights
	}
	if cfg.Defaults != nil {
		s.defaults = *cfg.Defaults
	}
	if s.estimator == nil {
		s.estimator = geo.NewResilientEstimator(geo.HaversineEstimator{}, geo.DefaultTimeout, nil)
	}
	if s.learningTimeout <= 0 {
		s.learningTimeout = time.Second
	}
	return s
}

// Weights 返回当前权重
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Defaults 返回技师缺省值
func (s *Scorer) Defaults() model.TechDefaults {
	return s.defaults
}

// ScoreTechForJob 计算技师在指定日期执行工单的匹配分数
// 只有请假会提前返回，其余各项依次累加
func (s *Scorer) ScoreTechForJob(
	ctx context.Context,
	tech model.Technician,
	job model.Job,
	otherJobs []model.Job,
	date string,
	timeOff []model.TimeOffEntry,
) model.ScoreResult {
	w := s.weights
	tech = tech.WithDefaults(s.defaults)

	res := model.ScoreResult{
		TechID:   tech.ID,
		TechName: tech.Name,
		Reasons:  []string{},
		Warnings: []string{},
	}

	// 1. 请假
	if entry, off := model.FindTimeOff(timeOff, tech.ID, date); off {
		res.Score = w.TimeOffBlock
		res.IsBlocked = true
		msg := fmt.Sprintf("On time off %s", date)
		if entry.Reason != "" {
			msg += " (" + entry.Reason + ")"
		}
		res.Warnings = append(res.Warnings, msg)
		return res
	}

	// 2. 人数不足罚分
	if required := job.RequiredCrewSize(); required > 1 {
		penalty := w.CrewShortfall * float64(required-1)
		res.Score += penalty
		res.CrewShortfallPenalty = penalty
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("Job needs %d techs, one tech alone is short by %d (%+.0f)", required, required-1, penalty))
	}

	// 3. 技能
	skills := availability.JobSkills(job)
	switch {
	case len(skills) == 0:
		res.Score += w.SkillMatch
		res.Reasons = append(res.Reasons, "No specific skills required")
	case availability.SkillMatch(tech.Skills, skills):
		res.Score += w.SkillMatch
		res.Reasons = append(res.Reasons, "Skills match "+strings.Join(skills, "/"))
	default:
		res.Warnings = append(res.Warnings, "Missing skills: "+strings.Join(skills, ", "))
	}

	// 4. 证书
	if certOK(tech, job.RequiredCertifications) {
		res.Score += w.CertificationMatch
		if len(job.RequiredCertifications) > 0 {
			res.Reasons = append(res.Reasons, "Holds required certification")
		}
	} else {
		res.Warnings = append(res.Warnings,
			"Missing certification: "+strings.Join(job.RequiredCertifications, ", "))
	}

	// 5. 工作日
	day := timeutil.WeekdayName(date)
	if tech.WorkingHours.WorksOn(date) {
		res.Score += w.DayAvailable
		res.Reasons = append(res.Reasons, "Works on "+day)
	} else {
		res.Score += w.DayUnavailable
		res.Warnings = append(res.Warnings, "Does not work on "+day)
	}

	// 6. 工单数容量
	sameDay := model.JobsForTechOn(otherJobs, tech.ID, date, job.ID)
	count, bookedMinutes := availability.Load(tech.ID, date, sameDay, job.ID)
	maxJobs := float64(tech.MaxJobsPerDay)
	if count < tech.MaxJobsPerDay {
		open := tech.MaxJobsPerDay - count
		res.Score += w.JobCapacity * float64(open) / maxJobs
		res.Reasons = append(res.Reasons, fmt.Sprintf("%d of %d job slots open", open, tech.MaxJobsPerDay))
	} else {
		res.Score += w.JobCapacityExceeded
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Already at max jobs (%d/%d)", count, tech.MaxJobsPerDay))
	}

	// 7. 工时容量
	if total := bookedMinutes + job.DurationMinutes(); total > tech.MaxHoursPerDay*60 {
		res.Score += w.HoursExceeded
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Would exceed %d hours (%.1f booked)", tech.MaxHoursPerDay, float64(total)/60))
	}

	// 8. 负载均衡
	res.Score += w.WorkloadBalance * (1 - float64(count)/maxJobs)

	// 9. 距离
	s.scoreProximity(ctx, tech, job, sameDay, &res)

	// 10. 偏好区域
	if tech.PrefersZone(job.Zone) {
		res.Score += w.PreferredZone
		res.Reasons = append(res.Reasons, "Preferred zone "+job.Zone)
	}

	// 历史学习加分
	s.applyLearning(ctx, tech, job, &res)

	res.Score = math.Round(res.Score*100) / 100
	res.IsRecommended = res.Score >= w.RecommendThreshold && len(res.Warnings) == 0
	return res
}

// scoreProximity 距离评分
func (s *Scorer) scoreProximity(ctx context.Context, tech model.Technician, job model.Job, sameDay []model.Job, res *model.ScoreResult) {
	w := s.weights
	miles := s.distance(ctx, tech.BaseLocation(), job.Location)
	rounded := math.Round(miles*10) / 10
	res.DistanceMiles = &rounded

	radius := float64(tech.MaxTravelMiles)
	if miles <= radius {
		res.Score += w.WithinRadius
		res.Reasons = append(res.Reasons, fmt.Sprintf("%.1f mi away, within %d mi radius", rounded, tech.MaxTravelMiles))

		// 位置未知时邮编估算只给出默认值，不能据此判断相邻
		for _, other := range sameDay {
			if !job.Location.IsKnown() || !other.Location.IsKnown() {
				continue
			}
			if s.distance(ctx, other.Location, job.Location) <= w.NearbyJobMiles {
				res.Score += w.NearbyJobBonus
				res.Reasons = append(res.Reasons, "Near job "+other.ID+" on the same day")
				break
			}
		}
		return
	}

	beyond := miles - radius
	penalty := w.PerMileBeyondRadius * beyond
	res.Score += penalty
	res.Reasons = append(res.Reasons, fmt.Sprintf("%.1f mi beyond %d mi radius (%+.0f)", beyond, tech.MaxTravelMiles, penalty))
}

// distance 估算失败时使用邮编估算
func (s *Scorer) distance(ctx context.Context, a, b model.Location) float64 {
	miles, err := s.estimator.Estimate(ctx, a, b)
	if err != nil {
		s.log.DistanceFallback(s.estimator.Name(), err)
		return geo.ZipEstimate(a, b)
	}
	return miles
}

// applyLearning 调用历史学习加分，失败时保持原分数
func (s *Scorer) applyLearning(ctx context.Context, tech model.Technician, job model.Job, res *model.ScoreResult) {
	if s.learning == nil {
		return
	}
	bonus, err := s.callLearning(ctx, tech, job)
	if err != nil {
		s.log.LearningHookFailed(tech.ID, job.ID, err)
		return
	}
	if bonus.Delta != 0 {
		res.Score += bonus.Delta
		res.Reasons = append(res.Reasons, fmt.Sprintf("History bonus %+.1f", bonus.Delta))
	}
	res.Insights = append(res.Insights, bonus.Insights...)
}

type learningResult struct {
	bonus LearningBonus
	err   error
}

// callLearning 在超时内调用学习钩子，超时或 panic 均按错误处理，迟到的结果丢弃
func (s *Scorer) callLearning(ctx context.Context, tech model.Technician, job model.Job) (LearningBonus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.learningTimeout)
	defer cancel()

	// 钩子可能不响应 ctx，用通道保证上限
	done := make(chan learningResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- learningResult{err: fmt.Errorf("learning hook panic: %v", p)}
			}
		}()
		bonus, err := s.learning.HistoryBonus(ctx, tech, job)
		done <- learningResult{bonus: bonus, err: err}
	}()

	select {
	case res := <-done:
		return res.bonus, res.err
	case <-ctx.Done():
		return LearningBonus{}, ctx.Err()
	}
}

func certOK(tech model.Technician, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, c := range required {
		if tech.HasCertification(c) {
			return true
		}
	}
	return false
}
