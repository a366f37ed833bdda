package handler

import (
	"net/http"
	"time"

	"github.com/paiban/crewdispatch/internal/metrics"
	"github.com/paiban/crewdispatch/pkg/availability"
	"github.com/paiban/crewdispatch/pkg/crew"
	"github.com/paiban/crewdispatch/pkg/dispatcher"
	apperrors "github.com/paiban/crewdispatch/pkg/errors"
	"github.com/paiban/crewdispatch/pkg/geo"
	"github.com/paiban/crewdispatch/pkg/logger"
	"github.com/paiban/crewdispatch/pkg/model"
	"github.com/paiban/crewdispatch/pkg/multiday"
	"github.com/paiban/crewdispatch/pkg/scoring"
	"github.com/paiban/crewdispatch/pkg/stats"
	"github.com/paiban/crewdispatch/pkg/timeutil"
	"github.com/paiban/crewdispatch/pkg/validator"
)

// EngineHandler 派工引擎处理器，所有输入随请求提供
type EngineHandler struct {
	scorer      *scoring.Scorer
	engine      *dispatcher.Engine
	checker     *availability.Checker
	validator   *validator.AssignmentValidator
	auditor     *validator.ScheduleAuditor
	workload    *stats.WorkloadAnalyzer
	router      geo.RouteOptimizer
	maxSegments int
}

// EngineOptions 引擎处理器依赖
type EngineOptions struct {
	Scorer      *scoring.Scorer
	Workers     int
	Router      geo.RouteOptimizer // 可选，缺省使用最近邻路线
	MaxSegments int
}

// NewEngineHandler 创建派工引擎处理器
func NewEngineHandler(opts EngineOptions) *EngineHandler {
	scorer := opts.Scorer
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.Config{})
	}
	defaults := scorer.Defaults()
	maxSegments := opts.MaxSegments
	if maxSegments <= 0 {
		maxSegments = multiday.MaxSegments
	}
	return &EngineHandler{
		scorer:      scorer,
		engine:      dispatcher.NewEngine(dispatcher.Config{Scorer: scorer, Workers: opts.Workers}),
		checker:     availability.NewChecker(&defaults),
		validator:   validator.NewAssignmentValidator(scorer),
		auditor:     validator.NewScheduleAuditor(&defaults),
		workload:    stats.NewWorkloadAnalyzer(&defaults),
		router:      opts.Router,
		maxSegments: maxSegments,
	}
}

// ScoreRequest 评分请求
type ScoreRequest struct {
	Technician  model.Technician     `json:"technician"`
	Job         model.Job            `json:"job"`
	Date        string               `json:"date"`
	SameDayJobs []model.Job          `json:"same_day_jobs,omitempty"`
	TimeOff     []model.TimeOffEntry `json:"time_off,omitempty"`
}

// Score 计算单个技师对工单的匹配分数
func (h *EngineHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !decode(w, r, &req) {
		return
	}

	var ve apperrors.ValidationErrors
	if req.Technician.ID == "" {
		ve.Add("technician.id", "required")
	}
	validateDate(&ve, "date", req.Date)
	if ve.HasErrors() {
		sendError(w, r, ve.ToAppError())
		return
	}

	job := crew.Annotate(req.Job, false)
	res := h.scorer.ScoreTechForJob(r.Context(), req.Technician, job, req.SameDayJobs, req.Date, req.TimeOff)
	metrics.RecordScoreEvaluation(res.IsBlocked, res.IsRecommended)
	sendData(w, res)
}

// ConflictsRequest 冲突检查请求
type ConflictsRequest struct {
	Technician   model.Technician     `json:"technician"`
	Job          model.Job            `json:"job"`
	Date         string               `json:"date"`
	StartTime    string               `json:"start_time,omitempty"` // HH:MM，缺省使用工单时间
	ExistingJobs []model.Job          `json:"existing_jobs,omitempty"`
	TimeOff      []model.TimeOffEntry `json:"time_off,omitempty"`
}

// ConflictsResponse 冲突检查结果
type ConflictsResponse struct {
	Available bool                    `json:"available"`
	HasErrors bool                    `json:"has_errors"`
	Conflicts []availability.Conflict `json:"conflicts"`
}

// Conflicts 检查技师在指定时间执行工单的冲突
func (h *EngineHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	var req ConflictsRequest
	if !decode(w, r, &req) {
		return
	}

	var ve apperrors.ValidationErrors
	if req.Technician.ID == "" {
		ve.Add("technician.id", "required")
	}
	validateDate(&ve, "date", req.Date)

	start := availability.NoStart
	clock := req.StartTime
	if clock == "" {
		clock = req.Job.ScheduledTime
	}
	if clock != "" {
		m, ok := timeutil.ClockToMinutes(clock)
		if !ok {
			ve.Add("start_time", "expected HH:MM")
		}
		start = m
	}
	if ve.HasErrors() {
		sendError(w, r, ve.ToAppError())
		return
	}

	conflicts := h.checker.CheckConflicts(req.Technician, req.Job, req.Date, start, req.ExistingJobs, req.TimeOff)
	if conflicts == nil {
		conflicts = []availability.Conflict{}
	}
	sendData(w, ConflictsResponse{
		Available: h.checker.IsTechAvailable(req.Technician, req.Date, start, req.Job.DurationMinutes(), req.ExistingJobs, req.TimeOff),
		HasErrors: availability.HasErrors(conflicts),
		Conflicts: conflicts,
	})
}

// CrewRequirementsRequest 人数需求请求
type CrewRequirementsRequest struct {
	LineItems []model.LineItem `json:"line_items"`
}

// CrewRequirements 从报价明细推导人数需求
func (h *EngineHandler) CrewRequirements(w http.ResponseWriter, r *http.Request) {
	var req CrewRequirementsRequest
	if !decode(w, r, &req) {
		return
	}
	sendData(w, crew.ExtractRequirements(req.LineItems))
}

// AutoAssign 批量派工
func (h *EngineHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	var req dispatcher.Request
	if !decode(w, r, &req) {
		return
	}

	var ve apperrors.ValidationErrors
	validateDate(&ve, "date", req.Date)
	if ve.HasErrors() {
		sendError(w, r, ve.ToAppError())
		return
	}

	logger.WithContext(r.Context()).Info().
		Str("date", req.Date).
		Int("jobs", len(req.Jobs)).
		Int("technicians", len(req.Technicians)).
		Msg("接收批量派工请求")

	sendData(w, h.autoAssign(r, req))
}

// autoAssign 执行批量派工并记录指标
func (h *EngineHandler) autoAssign(r *http.Request, req dispatcher.Request) model.AssignmentPlan {
	done := metrics.AutoAssignStarted()
	defer done()

	started := time.Now()
	plan := h.engine.AutoAssignAll(r.Context(), req)
	metrics.RecordAutoAssign(time.Since(started),
		plan.Summary.Assigned, plan.Summary.Understaffed, plan.Summary.Unassigned)
	for _, e := range plan.Entries {
		for _, s := range e.Scores {
			metrics.RecordScoreEvaluation(s.IsBlocked, s.IsRecommended)
		}
	}
	return plan
}

// ValidateAssignment 校验人工派工
func (h *EngineHandler) ValidateAssignment(w http.ResponseWriter, r *http.Request) {
	var req validator.Request
	if !decode(w, r, &req) {
		return
	}

	var ve apperrors.ValidationErrors
	if req.Job.ID == "" {
		ve.Add("job.id", "required")
	}
	validateDate(&ve, "date", req.Date)
	if ve.HasErrors() {
		sendError(w, r, ve.ToAppError())
		return
	}

	sendData(w, h.validator.ValidateSchedulingAssignment(r.Context(), req))
}

// MultiDayRequest 多日拆分请求
type MultiDayRequest struct {
	Job          model.Job          `json:"job"`
	StartDate    string             `json:"start_date"`
	WorkingHours model.WorkingHours `json:"working_hours,omitempty"` // 缺省使用标准工作时间
	ExistingJobs []model.Job        `json:"existing_jobs,omitempty"`
	TechID       string             `json:"tech_id,omitempty"`
}

// MultiDayResponse 多日拆分结果
type MultiDayResponse struct {
	Segments     []model.Segment        `json:"segments"`
	TotalMinutes int                    `json:"total_minutes"`
	Conflicts    []multiday.DayConflict `json:"conflicts"`
}

// MultiDaySchedule 按工作时间拆分多日工单并检查每日冲突
func (h *EngineHandler) MultiDaySchedule(w http.ResponseWriter, r *http.Request) {
	var req MultiDayRequest
	if !decode(w, r, &req) {
		return
	}

	// 缺省工作时间与星期键大小写统一由技师缺省值处理
	wh := model.Technician{WorkingHours: req.WorkingHours}.WithDefaults(h.scorer.Defaults()).WorkingHours

	segments, err := multiday.CreateScheduleWithLimit(req.StartDate, req.Job.DurationMinutes(), wh, h.maxSegments)
	resp := MultiDayResponse{
		Segments:     segments,
		TotalMinutes: multiday.TotalMinutes(segments),
		Conflicts:    multiday.CheckMultiDayConflicts(segments, req.ExistingJobs, req.TechID),
	}
	if resp.Segments == nil {
		resp.Segments = []model.Segment{}
	}

	if err != nil {
		if apperrors.Is(err, apperrors.CodeSegmentLimit) {
			sendErrorWithData(w, r, err, resp)
			return
		}
		sendError(w, r, err)
		return
	}
	sendData(w, resp)
}

// RouteRequest 路线请求
type RouteRequest struct {
	Jobs  []model.Job    `json:"jobs"`
	Start model.Location `json:"start"`
}

// Route 计算技师当日路线
func (h *EngineHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decode(w, r, &req) {
		return
	}
	sendData(w, geo.OptimizeRoute(r.Context(), h.router, req.Start, req.Jobs))
}

// AuditRequest 整日复核请求
type AuditRequest struct {
	Date        string             `json:"date"`
	Jobs        []model.Job        `json:"jobs"`
	Technicians []model.Technician `json:"technicians"`
}

// Audit 复核一天内所有技师的工单冲突
func (h *EngineHandler) Audit(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if !decode(w, r, &req) {
		return
	}

	var ve apperrors.ValidationErrors
	validateDate(&ve, "date", req.Date)
	if ve.HasErrors() {
		sendError(w, r, ve.ToAppError())
		return
	}

	conflicts := h.auditor.AuditDay(req.Jobs, req.Technicians, req.Date)
	if conflicts == nil {
		conflicts = []availability.Conflict{}
	}
	sendData(w, conflicts)
}

func validateDate(ve *apperrors.ValidationErrors, field, date string) {
	if date == "" {
		ve.Add(field, "required")
		return
	}
	if _, err := timeutil.ParseDate(date); err != nil {
		ve.Add(field, "expected YYYY-MM-DD")
	}
}
