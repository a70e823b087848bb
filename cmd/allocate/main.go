package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/app"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/services"
)

// allocate runs one engine operation against the configured database and
// prints the result as JSON.
//
//	allocate -batch [-batch-id ID]
//	allocate -dropout ALLOCATION_ID [-reason R] [-initiated-by STUDENT|ORG|SYSTEM]
//	allocate -accept ALLOCATION_ID
//	allocate -explain -candidate ID -position ID
type options struct {
	runBatch    bool
	batchID     string
	dropoutID   string
	acceptID    string
	reason      string
	initiatedBy string
	explain     bool
	candidateID string
	positionID  string
}

var errUsage = errors.New("usage")

func main() {
	var opts options
	flag.BoolVar(&opts.runBatch, "batch", false, "run one batch allocation")
	flag.StringVar(&opts.batchID, "batch-id", "", "batch id (default MATCH-<unix-millis>)")
	flag.StringVar(&opts.dropoutID, "dropout", "", "allocation id to release")
	flag.StringVar(&opts.acceptID, "accept", "", "allocation id to accept")
	flag.StringVar(&opts.reason, "reason", "", "dropout reason")
	flag.StringVar(&opts.initiatedBy, "initiated-by", "SYSTEM", "dropout initiator")
	flag.BoolVar(&opts.explain, "explain", false, "score one candidate against one position")
	flag.StringVar(&opts.candidateID, "candidate", "", "candidate id for -explain")
	flag.StringVar(&opts.positionID, "position", "", "position id for -explain")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(context.Background(), opts); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	op, err := parse(opts)
	if err != nil {
		return err
	}

	application, err := app.New(ctx)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer application.Close(ctx)

	out, err := op(ctx, application.Services.Allocation)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type operation func(ctx context.Context, svc services.AllocationService) (any, error)

// parse validates the flags before any connection is opened.
func parse(opts options) (operation, error) {
	switch {
	case opts.runBatch:
		batchID := strings.TrimSpace(opts.batchID)
		return func(ctx context.Context, svc services.AllocationService) (any, error) {
			return svc.RunBatchAllocation(ctx, batchID, services.TriggerCLI)
		}, nil
	case opts.dropoutID != "":
		id, err := uuid.Parse(strings.TrimSpace(opts.dropoutID))
		if err != nil {
			return nil, fmt.Errorf("invalid -dropout id: %w", err)
		}
		initiator, ok := placement.ParseInitiator(opts.initiatedBy)
		if !ok {
			return nil, fmt.Errorf("invalid -initiated-by %q", opts.initiatedBy)
		}
		// Inline: the CLI runs no Temporal worker.
		return func(ctx context.Context, svc services.AllocationService) (any, error) {
			return svc.HandleSlotFreed(ctx, id, opts.reason, initiator)
		}, nil
	case opts.acceptID != "":
		id, err := uuid.Parse(strings.TrimSpace(opts.acceptID))
		if err != nil {
			return nil, fmt.Errorf("invalid -accept id: %w", err)
		}
		return func(ctx context.Context, svc services.AllocationService) (any, error) {
			return svc.AcceptAllocation(ctx, id)
		}, nil
	case opts.explain:
		cid, cerr := uuid.Parse(strings.TrimSpace(opts.candidateID))
		pid, perr := uuid.Parse(strings.TrimSpace(opts.positionID))
		if cerr != nil || perr != nil {
			return nil, fmt.Errorf("-explain needs valid -candidate and -position ids")
		}
		return func(ctx context.Context, svc services.AllocationService) (any, error) {
			return svc.CalculateScore(ctx, cid, pid)
		}, nil
	default:
		return nil, errUsage
	}
}
