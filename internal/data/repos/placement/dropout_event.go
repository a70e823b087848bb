package placement

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/dbctx"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type DropoutEventRepo interface {
	Create(dbc dbctx.Context, event *types.DropoutEvent) (*types.DropoutEvent, error)
	GetByAllocationID(dbc dbctx.Context, allocationID uuid.UUID) (*types.DropoutEvent, error)
	ListByPositionID(dbc dbctx.Context, positionID uuid.UUID, limit int) ([]*types.DropoutEvent, error)
}

type dropoutEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDropoutEventRepo(db *gorm.DB, baseLog *logger.Logger) DropoutEventRepo {
	return &dropoutEventRepo{db: db, log: baseLog.With("repo", "DropoutEventRepo")}
}

// Create appends the event. A second event for the same allocation violates
// the unique index on allocation_id.
func (r *dropoutEventRepo) Create(dbc dbctx.Context, event *types.DropoutEvent) (*types.DropoutEvent, error) {
	if err := dbc.DB(r.db).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *dropoutEventRepo) GetByAllocationID(dbc dbctx.Context, allocationID uuid.UUID) (*types.DropoutEvent, error) {
	var ev types.DropoutEvent
	if err := dbc.DB(r.db).
		Where("allocation_id = ?", allocationID).
		Limit(1).
		Find(&ev).Error; err != nil {
		return nil, err
	}
	if ev.ID == uuid.Nil {
		return nil, nil
	}
	return &ev, nil
}

func (r *dropoutEventRepo) ListByPositionID(dbc dbctx.Context, positionID uuid.UUID, limit int) ([]*types.DropoutEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*types.DropoutEvent
	if err := dbc.DB(r.db).
		Where("position_id = ?", positionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
