package aggregates

import (
	"time"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/observability"
)

const OutcomeSuccess = "success"

// WriteOutcome describes one finished aggregate write. Code is
// OutcomeSuccess or a domain error code.
type WriteOutcome struct {
	Op       string
	Code     string
	Duration time.Duration
}

func (o WriteOutcome) Conflict() bool  { return o.Code == string(domainagg.CodeConflict) }
func (o WriteOutcome) Retryable() bool { return o.Code == string(domainagg.CodeRetryable) }

// WriteObserver receives every aggregate write outcome.
type WriteObserver interface {
	ObserveWrite(WriteOutcome)
}

type nopObserver struct{}

func (nopObserver) ObserveWrite(WriteOutcome) {}

type metricsObserver struct {
	metrics *observability.Metrics
}

// NewMetricsObserver reports aggregate writes as latency plus conflict and
// retry counters. Nil metrics yields a no-op observer.
func NewMetricsObserver(metrics *observability.Metrics) WriteObserver {
	if metrics == nil {
		return nopObserver{}
	}
	return metricsObserver{metrics: metrics}
}

func (o metricsObserver) ObserveWrite(w WriteOutcome) {
	o.metrics.ObserveAggregateOperation(w.Op, w.Code, w.Duration)
	switch {
	case w.Conflict():
		o.metrics.IncAggregateConflict(w.Op)
	case w.Retryable():
		o.metrics.IncAggregateRetry(w.Op)
	}
}
