package app

import (
	"gorm.io/gorm"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/repos"
	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/observability"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type Repos struct {
	Placement repos.Placement
	Aggregate domainagg.PlacementAggregate
}

func wireRepos(db *gorm.DB, log *logger.Logger, metrics *observability.Metrics) Repos {
	log.Info("Wiring repos...")
	placement := repos.NewPlacement(db, log)
	agg := aggregates.NewPlacementAggregate(aggregates.PlacementAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:       db,
			Log:      log,
			Observer: aggregates.NewMetricsObserver(metrics),
		},
		Candidates:  placement.Candidates,
		Positions:   placement.Positions,
		Allocations: placement.Allocations,
		Dropouts:    placement.Dropouts,
	})
	c := agg.Contract()
	log.Info("Placement aggregate ready", "contract", c.Name, "owns_tx", c.OwnsTx, "invariants", len(c.Invariants))
	return Repos{Placement: placement, Aggregate: agg}
}
