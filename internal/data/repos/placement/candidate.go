package placement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/dbctx"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type CandidateRepo interface {
	Create(dbc dbctx.Context, candidates []*types.Candidate) ([]*types.Candidate, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Candidate, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Candidate, error)
	// ListEligible returns available PENDING candidates ordered by id.
	ListEligible(dbc dbctx.Context) ([]*types.Candidate, error)
	// LockByIDs reads candidates FOR UPDATE in id order.
	LockByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Candidate, error)
	// UpdateStatusIf moves candidates from one allocation status to another
	// and returns how many rows changed.
	UpdateStatusIf(dbc dbctx.Context, ids []uuid.UUID, from []types.CandidateStatus, to types.CandidateStatus, at time.Time) (int64, error)
	SetStatus(dbc dbctx.Context, id uuid.UUID, to types.CandidateStatus, at time.Time) error
}

type candidateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCandidateRepo(db *gorm.DB, baseLog *logger.Logger) CandidateRepo {
	return &candidateRepo{db: db, log: baseLog.With("repo", "CandidateRepo")}
}

func (r *candidateRepo) Create(dbc dbctx.Context, candidates []*types.Candidate) ([]*types.Candidate, error) {
	if len(candidates) == 0 {
		return []*types.Candidate{}, nil
	}
	if err := dbc.DB(r.db).Create(&candidates).Error; err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *candidateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Candidate, error) {
	var c types.Candidate
	if err := dbc.DB(r.db).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *candidateRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Candidate, error) {
	var out []*types.Candidate
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *candidateRepo) ListEligible(dbc dbctx.Context) ([]*types.Candidate, error) {
	var out []*types.Candidate
	if err := dbc.DB(r.db).
		Where("available = ? AND allocation_status = ?", true, types.CandidatePending).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *candidateRepo) LockByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Candidate, error) {
	var out []*types.Candidate
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *candidateRepo) UpdateStatusIf(dbc dbctx.Context, ids []uuid.UUID, from []types.CandidateStatus, to types.CandidateStatus, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Model(&types.Candidate{}).
		Where("id IN ? AND allocation_status IN ?", ids, from).
		Updates(map[string]interface{}{
			"allocation_status": to,
			"updated_at":        at,
		})
	return res.RowsAffected, res.Error
}

func (r *candidateRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, to types.CandidateStatus, at time.Time) error {
	return dbc.DB(r.db).
		Model(&types.Candidate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"allocation_status": to,
			"updated_at":        at,
		}).Error
}
