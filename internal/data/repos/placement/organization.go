package placement

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/dbctx"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type OrganizationRepo interface {
	Create(dbc dbctx.Context, orgs []*types.Organization) ([]*types.Organization, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Organization, error)
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return &organizationRepo{db: db, log: baseLog.With("repo", "OrganizationRepo")}
}

func (r *organizationRepo) Create(dbc dbctx.Context, orgs []*types.Organization) ([]*types.Organization, error) {
	if len(orgs) == 0 {
		return []*types.Organization{}, nil
	}
	if err := dbc.DB(r.db).Create(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *organizationRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Organization, error) {
	var out []*types.Organization
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
