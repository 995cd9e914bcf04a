// internal/store/audit.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditStore appends status change records. Audit rows are written
// best-effort after the primary mutation commits.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Record(ctx context.Context, entity, entityID, action, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (entity, entity_id, action, detail, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		entity, entityID, action, detail, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}
