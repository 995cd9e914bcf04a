// internal/store/franchises.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"prmcms-workers/internal/models"
)

type FranchiseStore struct {
	db *sql.DB
}

func NewFranchiseStore(db *sql.DB) *FranchiseStore {
	return &FranchiseStore{db: db}
}

const selectFranchiseSQL = `
SELECT id, name, municipality, email, phone, status, created_at, updated_at
FROM franchises
WHERE id = $1`

func (s *FranchiseStore) GetByID(ctx context.Context, id string) (*models.Franchise, error) {
	var f models.Franchise
	err := s.db.QueryRowContext(ctx, selectFranchiseSQL, id).Scan(
		&f.ID, &f.Name, &f.Municipality, &f.Email, &f.Phone,
		&f.Status, &f.CreatedAt, &f.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: franchise", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan franchise: %w", err)
	}
	return &f, nil
}

func (s *FranchiseStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM franchises WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check franchise existence: %w", err)
	}
	return exists, nil
}
