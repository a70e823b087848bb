package db

import (
	"fmt"

	types "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.Organization{},
		&types.Candidate{},
		&types.Position{},
		&types.Allocation{},
		&types.DropoutEvent{},
	); err != nil {
		return err
	}
	return EnsurePlacementIndexes(db)
}

// EnsurePlacementIndexes adds the constraints AutoMigrate cannot express.
// Postgres and SQLite both accept these partial indexes.
func EnsurePlacementIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			// At most one PROPOSED or ACCEPTED allocation per candidate.
			name: "ux_allocation_active_candidate",
			sql: `CREATE UNIQUE INDEX IF NOT EXISTS ux_allocation_active_candidate
				ON allocation (candidate_id)
				WHERE status IN ('PROPOSED', 'ACCEPTED')`,
		},
		{
			name: "idx_allocation_position_status",
			sql:  `CREATE INDEX IF NOT EXISTS idx_allocation_position_status ON allocation (position_id, status)`,
		},
		{
			name: "idx_candidate_pool",
			sql:  `CREATE INDEX IF NOT EXISTS idx_candidate_pool ON candidate (available, allocation_status)`,
		},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(`
			DO $$ BEGIN
				ALTER TABLE "position" ADD CONSTRAINT chk_position_filled
					CHECK (filled_count >= 0 AND filled_count <= capacity);
			EXCEPTION WHEN duplicate_object THEN NULL;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("create chk_position_filled: %w", err)
		}
	}
	return nil
}
