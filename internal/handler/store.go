package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paiban/crewdispatch/internal/events"
	"github.com/paiban/crewdispatch/internal/metrics"
	"github.com/paiban/crewdispatch/internal/repository"
	"github.com/paiban/crewdispatch/pkg/availability"
	"github.com/paiban/crewdispatch/pkg/crew"
	"github.com/paiban/crewdispatch/pkg/dispatcher"
	apperrors "github.com/paiban/crewdispatch/pkg/errors"
	"github.com/paiban/crewdispatch/pkg/logger"
	"github.com/paiban/crewdispatch/pkg/model"
	"github.com/paiban/crewdispatch/pkg/stats"
	"github.com/paiban/crewdispatch/pkg/validator"
)

// TechnicianStore 技师读写
type TechnicianStore interface {
	Upsert(ctx context.Context, t model.Technician) error
	ListActive(ctx context.Context) ([]model.Technician, error)
}

// JobStore 工单读写
type JobStore interface {
	Upsert(ctx context.Context, j model.Job) error
	ListOnDate(ctx context.Context, date string) ([]model.Job, error)
	List(ctx context.Context, filter repository.ListFilter) ([]model.Job, error)
}

// TimeOffStore 请假读取
type TimeOffStore interface {
	ListCovering(ctx context.Context, date string) ([]model.TimeOffEntry, error)
}

// VehicleStore 车辆读取
type VehicleStore interface {
	ListInService(ctx context.Context) ([]model.Vehicle, error)
}

// PlanStore 计划原子提交
type PlanStore interface {
	ApplyPlan(ctx context.Context, plan model.AssignmentPlan) (int, error)
}

// Store 持久化依赖，数据库未启用时为 nil
type Store struct {
	Technicians TechnicianStore
	Jobs        JobStore
	TimeOff     TimeOffStore
	Vehicles    VehicleStore
	Plans       PlanStore
}

// StoreHandler 基于数据库的派工处理器
type StoreHandler struct {
	store     *Store
	engine    *EngineHandler
	publisher events.Publisher
}

// NewStoreHandler 创建持久化处理器，store 为 nil 时所有接口返回 503
func NewStoreHandler(store *Store, engine *EngineHandler, publisher events.Publisher) *StoreHandler {
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &StoreHandler{store: store, engine: engine, publisher: publisher}
}

func (h *StoreHandler) enabled(w http.ResponseWriter, r *http.Request) bool {
	if h.store == nil {
		sendError(w, r, apperrors.ErrPersistenceDisabled)
		return false
	}
	return true
}

// PutTechnician 保存技师
func (h *StoreHandler) PutTechnician(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w, r) {
		return
	}
	var tech model.Technician
	if !decode(w, r, &tech) {
		return
	}
	tech.ID = chi.URLParam(r, "id")
	if tech.Name == "" {
		var ve apperrors.ValidationErrors
		ve.Add("name", "required")
		sendError(w, r, ve.ToAppError())
		return
	}

	if err := h.store.Technicians.Upsert(r.Context(), tech); err != nil {
		sendError(w, r, err)
		return
	}
	sendData(w, tech)
}

// PutJob 保存工单，缺少人数需求时根据报价明细推导
// 明细修改后可通过 recompute_crew=true 重新推导
func (h *StoreHandler) PutJob(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w, r) {
		return
	}
	var job model.Job
	if !decode(w, r, &job) {
		return
	}
	job.ID = chi.URLParam(r, "id")

	var ve apperrors.ValidationErrors
	if job.ScheduledDate != "" {
		validateDate(&ve, "scheduled_date", job.ScheduledDate)
	}
	if ve.HasErrors() {
		sendError(w, r, ve.ToAppError())
		return
	}

	job = crew.Annotate(job, r.URL.Query().Get("recompute_crew") == "true")
	if err := h.store.Jobs.Upsert(r.Context(), job); err != nil {
		sendError(w, r, err)
		return
	}
	sendData(w, job)
}

// DraftRequest 基于库存数据生成计划
type DraftRequest struct {
	Date  string `json:"date"`
	Limit int    `json:"limit,omitempty"`
}

// DraftResponse 计划草稿、复核结果与工作量分布
type DraftResponse struct {
	Plan      model.AssignmentPlan    `json:"plan"`
	Conflicts []availability.Conflict `json:"conflicts"`
	Workload  stats.WorkloadMetrics   `json:"workload"`
}

// DraftPlan 读取当日技师、工单、请假与车辆，生成派工计划但不写入
func (h *StoreHandler) DraftPlan(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w, r) {
		return
	}
	var req DraftRequest
	if !decode(w, r, &req) {
		return
	}
	var ve apperrors.ValidationErrors
	validateDate(&ve, "date", req.Date)
	if ve.HasErrors() {
		sendError(w, r, ve.ToAppError())
		return
	}

	dreq, err := h.loadRequest(r.Context(), req)
	if err != nil {
		sendError(w, r, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load scheduling data"))
		return
	}

	plan := h.engine.autoAssign(r, dreq)

	// 复核计划与已有工单合并后的整日安排
	dayJobs := append(validator.PlanJobs(plan, dreq.Jobs), dreq.ExistingAssignments...)
	conflicts := h.engine.auditor.AuditDay(dayJobs, dreq.Technicians, req.Date)
	if conflicts == nil {
		conflicts = []availability.Conflict{}
	}

	sendData(w, DraftResponse{
		Plan:      plan,
		Conflicts: conflicts,
		Workload:  h.engine.workload.Analyze(dayJobs, dreq.Technicians, req.Date),
	})
}

func (h *StoreHandler) loadRequest(ctx context.Context, req DraftRequest) (dispatcher.Request, error) {
	out := dispatcher.Request{Date: req.Date}
	var err error

	if out.Technicians, err = h.store.Technicians.ListActive(ctx); err != nil {
		return out, err
	}
	filter := repository.DefaultListFilter().WithDateRange(req.Date, req.Date)
	if req.Limit > 0 {
		filter = filter.WithLimit(req.Limit)
	}
	if out.Jobs, err = h.store.Jobs.List(ctx, filter); err != nil {
		return out, err
	}
	if out.ExistingAssignments, err = h.store.Jobs.ListOnDate(ctx, req.Date); err != nil {
		return out, err
	}
	if out.TimeOff, err = h.store.TimeOff.ListCovering(ctx, req.Date); err != nil {
		return out, err
	}
	if out.Vehicles, err = h.store.Vehicles.ListInService(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// CommitResponse 提交结果
type CommitResponse struct {
	Committed   bool   `json:"committed"`
	PlanID      string `json:"plan_id"`
	JobsUpdated int    `json:"jobs_updated"`
}

// CommitPlan 原子写入整个计划，成功后发布事件
func (h *StoreHandler) CommitPlan(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w, r) {
		return
	}
	var plan model.AssignmentPlan
	if !decode(w, r, &plan) {
		return
	}

	var ve apperrors.ValidationErrors
	if plan.ID == "" {
		ve.Add("id", "required")
	}
	validateDate(&ve, "date", plan.Date)
	if ve.HasErrors() {
		sendError(w, r, ve.ToAppError())
		return
	}

	updated, err := h.store.Plans.ApplyPlan(r.Context(), plan)
	metrics.RecordPlanCommit(err == nil)
	if err != nil {
		// 计划引用了不存在的工单时整体回滚并返回 404
		if apperrors.Is(err, apperrors.CodeNotFound) {
			sendError(w, r, err)
			return
		}
		sendError(w, r, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to commit plan"))
		return
	}

	log := logger.WithContext(r.Context())
	log.Info().Str("plan_id", plan.ID).Int("jobs_updated", updated).Msg("派工计划已提交")

	// 写入已成功，事件发布失败只记录日志
	if err := h.publisher.PublishPlanCommitted(r.Context(), events.NewPlanEvent(plan, updated)); err != nil {
		log.Warn().Err(err).Str("plan_id", plan.ID).Msg("计划事件发布失败")
	}

	sendData(w, CommitResponse{Committed: true, PlanID: plan.ID, JobsUpdated: updated})
}
