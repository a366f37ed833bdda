// Package metrics 提供Prometheus文本格式的监控指标
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 指标名称
const (
	HTTPRequestsTotal     = "crewdispatch_http_requests_total"
	HTTPRequestDuration   = "crewdispatch_http_request_duration_seconds"
	AutoAssignRunsTotal   = "crewdispatch_auto_assign_runs_total"
	AutoAssignDuration    = "crewdispatch_auto_assign_duration_seconds"
	AutoAssignJobsTotal   = "crewdispatch_auto_assign_jobs_total"
	ScoreEvaluationsTotal = "crewdispatch_score_evaluations_total"
	DistanceFallbackTotal = "crewdispatch_distance_fallbacks_total"
	PlanCommitsTotal      = "crewdispatch_plan_commits_total"
	ActiveAutoAssigns     = "crewdispatch_active_auto_assigns"
	DBConnections         = "crewdispatch_db_connections"
)

// MetricsRegistry 指标注册表
type MetricsRegistry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *MetricsRegistry
	once     sync.Once
)

// NewRegistry 创建带默认指标的注册表
func NewRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
	r.registerDefaults()
	return r
}

// GetRegistry 获取全局注册表
func GetRegistry() *MetricsRegistry {
	once.Do(func() {
		registry = NewRegistry()
	})
	return registry
}

func (r *MetricsRegistry) registerDefaults() {
	r.NewCounter(HTTPRequestsTotal, "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram(HTTPRequestDuration, "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0})

	r.NewCounter(AutoAssignRunsTotal, "批量派工次数", []string{"status"})
	r.NewHistogram(AutoAssignDuration, "批量派工耗时", nil,
		[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0})
	r.NewCounter(AutoAssignJobsTotal, "批量派工工单结果", []string{"outcome"})

	r.NewCounter(ScoreEvaluationsTotal, "技师评分次数", []string{"result"})
	r.NewCounter(DistanceFallbackTotal, "距离估算降级次数", []string{"provider"})
	r.NewCounter(PlanCommitsTotal, "计划提交次数", []string{"status"})

	r.NewGauge(ActiveAutoAssigns, "进行中的批量派工数", nil)
	r.NewGauge(DBConnections, "数据库连接数", []string{"state"})
}

// NewCounter 创建计数器
func (r *MetricsRegistry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *MetricsRegistry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *MetricsRegistry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *MetricsRegistry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *MetricsRegistry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *MetricsRegistry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Add 增加指定值
func (g *Gauge) Add(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}

	// 每个观测值只落入第一个满足的 bucket，输出时再累加
	idx := len(h.Buckets)
	for i, bucket := range h.Buckets {
		if value <= bucket {
			idx = i
			break
		}
	}
	h.counts[key][idx]++
	h.sums[key] += value
}

// labelSep 标签值分隔符，不会出现在路径或状态码中
const labelSep = "\x1f"

func labelKey(labels []string) string {
	return strings.Join(labels, labelSep)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatLabels 格式化标签，extra 追加在末尾（如 le）
func formatLabels(names []string, key string, extra ...string) string {
	var parts []string
	if len(names) > 0 {
		vals := strings.Split(key, labelSep)
		for i, name := range names {
			val := ""
			if i < len(vals) {
				val = vals[i]
			}
			parts = append(parts, fmt.Sprintf("%s=%q", name, val))
		}
	}
	parts = append(parts, extra...)
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Render 以Prometheus文本格式输出全部指标
func (r *MetricsRegistry) Render(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.Name, c.Help, c.Name)
		c.mu.RLock()
		for _, key := range sortedKeys(c.values) {
			fmt.Fprintf(w, "%s%s %s\n", c.Name, formatLabels(c.Labels, key), formatFloat(c.values[key]))
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.Name, g.Help, g.Name)
		g.mu.RLock()
		for _, key := range sortedKeys(g.values) {
			fmt.Fprintf(w, "%s%s %s\n", g.Name, formatLabels(g.Labels, key), formatFloat(g.values[key]))
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.histograms) {
		h := r.histograms[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.Name, h.Help, h.Name)
		h.mu.RLock()
		for _, key := range sortedKeys(h.counts) {
			counts := h.counts[key]
			cumulative := 0
			for i, bucket := range h.Buckets {
				cumulative += counts[i]
				le := fmt.Sprintf("le=%q", formatFloat(bucket))
				fmt.Fprintf(w, "%s_bucket%s %d\n", h.Name, formatLabels(h.Labels, key, le), cumulative)
			}
			cumulative += counts[len(h.Buckets)]
			fmt.Fprintf(w, "%s_bucket%s %d\n", h.Name, formatLabels(h.Labels, key, `le="+Inf"`), cumulative)
			fmt.Fprintf(w, "%s_sum%s %s\n", h.Name, formatLabels(h.Labels, key), formatFloat(h.sums[key]))
			fmt.Fprintf(w, "%s_count%s %d\n", h.Name, formatLabels(h.Labels, key), cumulative)
		}
		h.mu.RUnlock()
	}
}

// Handler 返回Prometheus格式的指标HTTP处理器
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		GetRegistry().Render(w)
	})
}

// RecordRequestMetrics 记录请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	reg := GetRegistry()
	reg.GetCounter(HTTPRequestsTotal).Inc(method, path, strconv.Itoa(status))
	reg.GetHistogram(HTTPRequestDuration).Observe(duration.Seconds(), method, path)
}

// AutoAssignStarted 记录批量派工开始，返回结束回调
func AutoAssignStarted() func() {
	gauge := GetRegistry().GetGauge(ActiveAutoAssigns)
	gauge.Add(1)
	return func() { gauge.Add(-1) }
}

// RecordAutoAssign 记录批量派工结果
func RecordAutoAssign(duration time.Duration, assigned, understaffed, unassigned int) {
	reg := GetRegistry()
	reg.GetCounter(AutoAssignRunsTotal).Inc("completed")
	reg.GetHistogram(AutoAssignDuration).Observe(duration.Seconds())

	jobs := reg.GetCounter(AutoAssignJobsTotal)
	jobs.Add(float64(assigned-understaffed), "fully_staffed")
	jobs.Add(float64(understaffed), "understaffed")
	jobs.Add(float64(unassigned), "unassigned")
}

// RecordScoreEvaluation 记录评分结果
func RecordScoreEvaluation(blocked, recommended bool) {
	result := "candidate"
	switch {
	case blocked:
		result = "blocked"
	case recommended:
		result = "recommended"
	}
	GetRegistry().GetCounter(ScoreEvaluationsTotal).Inc(result)
}

// RecordDistanceFallback 记录距离估算降级
func RecordDistanceFallback(provider string) {
	GetRegistry().GetCounter(DistanceFallbackTotal).Inc(provider)
}

// RecordPlanCommit 记录计划提交
func RecordPlanCommit(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	GetRegistry().GetCounter(PlanCommitsTotal).Inc(status)
}

// SetDBConnections 设置数据库连接数
func SetDBConnections(inUse, idle int) {
	gauge := GetRegistry().GetGauge(DBConnections)
	gauge.Set(float64(inUse), "in_use")
	gauge.Set(float64(idle), "idle")
}
