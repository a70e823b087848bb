package aggregates

import (
	"fmt"
	"maps"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/dbctx"
)

// VersionGuard advances the version column of a locked row. Every write that
// changes a position's capacity bookkeeping goes through Bump so batch
// commits holding an older snapshot lose with CodeConflict.
type VersionGuard struct {
	db *gorm.DB
}

func NewVersionGuard(db *gorm.DB) VersionGuard {
	return VersionGuard{db: db}
}

// Bump sets columns and moves the row from version from to from+1. A row
// that is missing or already past from is a conflict.
func (g VersionGuard) Bump(dbc dbctx.Context, table string, id uuid.UUID, from int, columns map[string]any) error {
	if dbc.Tx == nil && g.db == nil {
		return ValidationError("version guard has no db")
	}
	if table == "" || id == uuid.Nil || from < 0 {
		return ValidationError(fmt.Sprintf("bad version bump %s/%s@%d", table, id, from))
	}
	updates := maps.Clone(columns)
	if updates == nil {
		updates = map[string]any{}
	}
	updates["version"] = from + 1
	res := dbc.DB(g.db).Table(table).
		Where("id = ? AND version = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ConflictError(fmt.Sprintf("%s %s moved past version %d", table, id, from))
	}
	return nil
}

// requireApplied turns a conditional update that matched nothing into a
// conflict.
func requireApplied(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return ConflictError(fmt.Sprintf(format, args...))
}
