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

type AllocationRepo interface {
	Create(dbc dbctx.Context, allocations []*types.Allocation) ([]*types.Allocation, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Allocation, error)
	// LockByID reads one allocation FOR UPDATE.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Allocation, error)
	ListByBatchID(dbc dbctx.Context, batchID string) ([]*types.Allocation, error)
	ListByCandidateID(dbc dbctx.Context, candidateID uuid.UUID) ([]*types.Allocation, error)
	// ActiveCandidateIDs returns which of ids hold a PROPOSED or ACCEPTED allocation.
	ActiveCandidateIDs(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	// CountUnreserved counts PROPOSED allocations per position that are not
	// yet in the position's filled count, ignoring skip.
	CountUnreserved(dbc dbctx.Context, positionIDs []uuid.UUID, skip uuid.UUID) (map[uuid.UUID]int, error)
	// UpdateStatusIf transitions one allocation when its status is in from.
	UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, from []types.AllocationStatus, updates map[string]interface{}) (bool, error)
}

type allocationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAllocationRepo(db *gorm.DB, baseLog *logger.Logger) AllocationRepo {
	return &allocationRepo{db: db, log: baseLog.With("repo", "AllocationRepo")}
}

func (r *allocationRepo) Create(dbc dbctx.Context, allocations []*types.Allocation) ([]*types.Allocation, error) {
	if len(allocations) == 0 {
		return []*types.Allocation{}, nil
	}
	if err := dbc.DB(r.db).Create(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *allocationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Allocation, error) {
	var a types.Allocation
	if err := dbc.DB(r.db).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *allocationRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Allocation, error) {
	var a types.Allocation
	if err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *allocationRepo) ListByBatchID(dbc dbctx.Context, batchID string) ([]*types.Allocation, error) {
	var out []*types.Allocation
	if batchID == "" {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("batch_id = ?", batchID).
		Order("score DESC, candidate_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *allocationRepo) ListByCandidateID(dbc dbctx.Context, candidateID uuid.UUID) ([]*types.Allocation, error) {
	var out []*types.Allocation
	if err := dbc.DB(r.db).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *allocationRepo) ActiveCandidateIDs(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := map[uuid.UUID]bool{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.Allocation{}).
		Where("candidate_id IN ? AND status IN ?", ids, []types.AllocationStatus{types.AllocationProposed, types.AllocationAccepted}).
		Distinct("candidate_id").
		Pluck("candidate_id", &rows).Error; err != nil {
		return nil, err
	}
	for _, id := range rows {
		out[id] = true
	}
	return out, nil
}

func (r *allocationRepo) CountUnreserved(dbc dbctx.Context, positionIDs []uuid.UUID, skip uuid.UUID) (map[uuid.UUID]int, error) {
	out := map[uuid.UUID]int{}
	if len(positionIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PositionID uuid.UUID
		Count      int
	}
	q := dbc.DB(r.db).
		Model(&types.Allocation{}).
		Select("position_id, count(*) as count").
		Where("position_id IN ? AND status = ? AND capacity_reserved = ?", positionIDs, types.AllocationProposed, false)
	if skip != uuid.Nil {
		q = q.Where("id <> ?", skip)
	}
	if err := q.Group("position_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PositionID] = row.Count
	}
	return out, nil
}

func (r *allocationRepo) UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, from []types.AllocationStatus, updates map[string]interface{}) (bool, error) {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := dbc.DB(r.db).
		Model(&types.Allocation{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
