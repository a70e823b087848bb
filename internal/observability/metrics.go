package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	aggregateOps       *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	batchRuns        *CounterVec
	batchDuration    *HistogramVec
	batchMatches     *CounterVec
	batchWaitlisted  *CounterVec
	reallocations    *CounterVec
	predictorCalls   *CounterVec
	predictorLatency *HistogramVec
	scorerFallbacks  *CounterVec

	candidatesByStatus *GaugeVec
	pgStats            *GaugeVec
	redisUp            *Gauge
	redisPing          *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// Current returns the process-wide metrics, or nil when disabled.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered metrics set. Every method is nil-safe.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("ia_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"ia_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("ia_api_inflight_requests", "In-flight API requests."),
		aggregateOps: NewHistogramVec(
			"ia_aggregate_operation_duration_seconds",
			"Aggregate write latency by operation/status.",
			[]string{"operation", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		aggregateConflicts: NewCounterVec("ia_aggregate_conflicts_total", "Aggregate writes rejected by a concurrency guard.", []string{"operation"}),
		aggregateRetries:   NewCounterVec("ia_aggregate_retryable_total", "Aggregate writes failing with a transient error.", []string{"operation"}),
		batchRuns:          NewCounterVec("ia_allocation_batch_runs_total", "Batch allocation runs by trigger/status.", []string{"trigger", "status"}),
		batchDuration: NewHistogramVec(
			"ia_allocation_batch_duration_seconds",
			"Batch allocation duration in seconds by trigger.",
			[]string{"trigger"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		),
		batchMatches:    NewCounterVec("ia_allocation_matches_total", "Allocations proposed by batch runs.", []string{"trigger"}),
		batchWaitlisted: NewCounterVec("ia_allocation_waitlisted_total", "Candidates left unmatched by batch runs.", []string{"trigger"}),
		reallocations:   NewCounterVec("ia_reallocations_total", "Freed slots by action/initiator.", []string{"action", "initiated_by"}),
		predictorCalls:  NewCounterVec("ia_predictor_requests_total", "Predictor requests by status.", []string{"status"}),
		predictorLatency: NewHistogramVec(
			"ia_predictor_request_duration_seconds",
			"Predictor request latency in seconds by status.",
			[]string{"status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		scorerFallbacks:    NewCounterVec("ia_scorer_fallback_total", "Hybrid scores that fell back to the rule score.", []string{"reason"}),
		candidatesByStatus: NewGaugeVec("ia_candidates", "Candidates by allocation status.", []string{"status"}),
		pgStats:            NewGaugeVec("ia_postgres_pool", "Postgres connection pool stats.", []string{"stat"}),
		redisUp:            NewGauge("ia_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:          NewGauge("ia_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func scrapeInterval() time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS")))
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, pw := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateConflicts, m.aggregateRetries,
		m.batchRuns, m.batchDuration, m.batchMatches, m.batchWaitlisted,
		m.reallocations, m.predictorCalls, m.predictorLatency, m.scorerFallbacks,
		m.candidatesByStatus, m.pgStats, m.redisUp, m.redisPing,
	} {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Observe(dur.Seconds(), op, status)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(op)
}

// ObserveBatch records one batch run. trigger is "api", "cron" or "cli".
func (m *Metrics) ObserveBatch(trigger, status string, matches, waitlisted int, dur time.Duration) {
	if m == nil {
		return
	}
	m.batchRuns.Inc(trigger, status)
	m.batchDuration.Observe(dur.Seconds(), trigger)
	m.batchMatches.Add(float64(matches), trigger)
	m.batchWaitlisted.Add(float64(waitlisted), trigger)
}

func (m *Metrics) IncReallocation(action, initiatedBy string) {
	if m == nil {
		return
	}
	m.reallocations.Inc(action, initiatedBy)
}

func (m *Metrics) ObservePredictor(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.predictorCalls.Inc(status)
	m.predictorLatency.Observe(dur.Seconds(), status)
}

func (m *Metrics) IncScorerFallback(reason string) {
	if m == nil {
		return
	}
	m.scorerFallbacks.Inc(reason)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go m.tick(ctx, func() {
		sqlDB, err := db.DB()
		if err != nil {
			if log != nil {
				log.Warn("metrics: postgres stats unavailable", "error", err)
			}
			return
		}
		stats := sqlDB.Stats()
		m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
		m.pgStats.Set(float64(stats.InUse), "in_use")
		m.pgStats.Set(float64(stats.Idle), "idle")
		m.pgStats.Set(float64(stats.WaitCount), "wait_count")
		m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
	})
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	go m.tick(ctx, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

// StartPoolCollector publishes how many candidates sit in each allocation status.
func (m *Metrics) StartPoolCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	statuses := []placement.CandidateStatus{placement.CandidatePending, placement.CandidateMatched, placement.CandidateAccepted}
	go m.tick(ctx, func() {
		for _, s := range statuses {
			m.candidatesByStatus.Set(0, string(s))
		}
		var rows []struct {
			AllocationStatus string
			Count            int64
		}
		if err := db.WithContext(ctx).
			Model(&placement.Candidate{}).
			Select("allocation_status, count(*) as count").
			Group("allocation_status").
			Scan(&rows).Error; err != nil {
			if log != nil {
				log.Warn("metrics: candidate pool query failed", "error", err)
			}
			return
		}
		for _, row := range rows {
			m.candidatesByStatus.Set(float64(row.Count), row.AllocationStatus)
		}
	})
}

func (m *Metrics) tick(ctx context.Context, fn func()) {
	ticker := time.NewTicker(scrapeInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
