// internal/store/feestructures.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"prmcms-workers/internal/models"
)

// FeeStructureStore reads the fee structure registry. The registry is
// maintained by headquarters; workers only ever read it.
type FeeStructureStore struct {
	db *sql.DB
}

func NewFeeStructureStore(db *sql.DB) *FeeStructureStore {
	return &FeeStructureStore{db: db}
}

const listActiveFeeStructuresSQL = `
SELECT id, name, description, fee_type, calculation_method, rate,
       min_amount, max_amount, tiers, effective_date, expiry_date,
       is_active, applicable_franchises
FROM fee_structures
WHERE is_active = TRUE`

// ListActive returns every active structure. Date filtering and
// applicability are resolved by the billing package so tie-break rules
// live in one place.
func (s *FeeStructureStore) ListActive(ctx context.Context) ([]models.FeeStructure, error) {
	rows, err := s.db.QueryContext(ctx, listActiveFeeStructuresSQL)
	if err != nil {
		return nil, fmt.Errorf("list fee structures: %w", err)
	}
	defer rows.Close()

	var out []models.FeeStructure
	for rows.Next() {
		fs, err := scanFeeStructure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fs)
	}
	return out, rows.Err()
}

func scanFeeStructure(rows *sql.Rows) (*models.FeeStructure, error) {
	var (
		fs         models.FeeStructure
		minAmount  sql.NullFloat64
		maxAmount  sql.NullFloat64
		tiersJSON  []byte
		expiryDate sql.NullString
		franchises pq.StringArray
	)

	err := rows.Scan(
		&fs.ID, &fs.Name, &fs.Description, &fs.FeeType, &fs.CalculationMethod,
		&fs.Rate, &minAmount, &maxAmount, &tiersJSON, &fs.EffectiveDate,
		&expiryDate, &fs.IsActive, &franchises,
	)
	if err != nil {
		return nil, fmt.Errorf("scan fee structure: %w", err)
	}

	if minAmount.Valid {
		fs.MinAmount = &minAmount.Float64
	}
	if maxAmount.Valid {
		fs.MaxAmount = &maxAmount.Float64
	}
	if expiryDate.Valid {
		fs.ExpiryDate = expiryDate.String
	}
	if len(tiersJSON) > 0 {
		if err := json.Unmarshal(tiersJSON, &fs.Tiers); err != nil {
			return nil, fmt.Errorf("decode tiers for structure %s: %w", fs.ID, err)
		}
	}
	fs.ApplicableFranchises = []string(franchises)

	return &fs, nil
}
