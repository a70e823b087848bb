package aggregates

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/dbctx"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/aggregates")

// BaseDeps is what every aggregate write needs besides its repos. Zero
// fields are filled from DB.
type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Observer WriteObserver
	Versions VersionGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Versions.db == nil {
		d.Versions = NewVersionGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// inWriteTx runs fn as one transaction, maps the failure onto an error code
// and reports the outcome.
func inWriteTx(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	start := time.Now()
	err := MapError(op, deps.Runner.InTx(ctx, fn))
	outcome := WriteOutcome{Op: op, Code: outcomeCode(err), Duration: time.Since(start)}

	span.SetAttributes(attribute.String("aggregate.outcome", outcome.Code))
	if err != nil {
		span.SetStatus(codes.Error, outcome.Code)
	}
	if outcome.Code == string(domainagg.CodeInternal) {
		deps.Log.Error("Placement write failed", "op", op, "error", err)
	}
	deps.Observer.ObserveWrite(outcome)
	return err
}

func outcomeCode(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	return string(domainagg.CodeInternal)
}
