package repository

import (
	"context"
	"database/sql"
	"fmt"

	"metargb/transfusion-service/internal/eligibility"
	"metargb/transfusion-service/pkg/jalali"
)

// HolidayRepository stores official holidays in MySQL. It also serves as a
// holiday source for the loader.
type HolidayRepository struct {
	db *sql.DB
}

func NewHolidayRepository(db *sql.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

func (r *HolidayRepository) Name() string {
	return "mysql"
}

// FetchAll returns every holiday that has not been soft-deleted.
func (r *HolidayRepository) FetchAll(ctx context.Context) ([]eligibility.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT jalali_date FROM holidays WHERE deleted_at IS NULL ORDER BY jalali_date")
	if err != nil {
		return nil, fmt.Errorf("failed to get holidays: %w", err)
	}
	defer rows.Close()

	var records []eligibility.Record
	for rows.Next() {
		var rec eligibility.Record
		if err := rows.Scan(&rec.Date); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holidays: %w", err)
	}

	return records, nil
}

// SaveAll upserts records tagged with source in one transaction and returns
// how many were written. Records that are not valid Jalali dates are skipped;
// stored dates are in canonical YYYY/MM/DD form.
func (r *HolidayRepository) SaveAll(ctx context.Context, source string, records []eligibility.Record) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO holidays (jalali_date, source, created_at, updated_at)
		VALUES (?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE source = VALUES(source), deleted_at = NULL, updated_at = NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare holiday upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, rec := range records {
		d, err := jalali.Parse(rec.Date)
		if err != nil || d.Validate() != nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, d.String(), source); err != nil {
			return 0, fmt.Errorf("failed to save holiday %s: %w", d, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit holidays: %w", err)
	}
	return written, nil
}
