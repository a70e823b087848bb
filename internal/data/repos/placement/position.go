package placement

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/dbctx"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type PositionRepo interface {
	Create(dbc dbctx.Context, positions []*types.Position) ([]*types.Position, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Position, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Position, error)
	// ListOpen returns OPEN positions with their organization, ordered by id.
	ListOpen(dbc dbctx.Context) ([]*types.Position, error)
	// LockByID reads one position FOR UPDATE with its organization.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Position, error)
}

type positionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPositionRepo(db *gorm.DB, baseLog *logger.Logger) PositionRepo {
	return &positionRepo{db: db, log: baseLog.With("repo", "PositionRepo")}
}

func (r *positionRepo) Create(dbc dbctx.Context, positions []*types.Position) ([]*types.Position, error) {
	if len(positions) == 0 {
		return []*types.Position{}, nil
	}
	if err := dbc.DB(r.db).Omit(clause.Associations).Create(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *positionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Position, error) {
	var p types.Position
	if err := dbc.DB(r.db).Preload("Org").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *positionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Position, error) {
	var out []*types.Position
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Preload("Org").Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *positionRepo) ListOpen(dbc dbctx.Context) ([]*types.Position, error) {
	var out []*types.Position
	if err := dbc.DB(r.db).
		Preload("Org").
		Where("status = ?", types.PositionOpen).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *positionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Position, error) {
	var p types.Position
	if err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error; err != nil {
		return nil, err
	}
	if p.OrgID != uuid.Nil {
		var org types.Organization
		err := dbc.DB(r.db).Where("id = ?", p.OrgID).Limit(1).Find(&org).Error
		if err != nil {
			return nil, err
		}
		if org.ID != uuid.Nil {
			p.Org = &org
		}
	}
	return &p, nil
}
