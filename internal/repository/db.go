package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// PoolConfig holds connection pool settings. Zero values select defaults.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int
}

// Open connects to MySQL, retrying the initial ping with a linear backoff.
func Open(ctx context.Context, dsn string, cfg PoolConfig) (*sql.DB, error) {
	retries := cfg.Retries
	if retries <= 0 {
		retries = 5
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for i := 0; ; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if i == retries-1 {
			db.Close()
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", retries, err)
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second * time.Duration(i+1)):
		}
	}

	db.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, 10))
	db.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, 5))
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return db, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// Column is an expected column of a table.
type Column struct {
	Name     string
	DataType string
}

// TableSchema is the expected shape of a table.
type TableSchema struct {
	Name    string
	Columns []Column
}

// HolidaysSchema is the table layout HolidayRepository relies on.
var HolidaysSchema = TableSchema{
	Name: "holidays",
	Columns: []Column{
		{Name: "jalali_date", DataType: "varchar"},
		{Name: "source", DataType: "varchar"},
		{Name: "deleted_at", DataType: "timestamp"},
	},
}

// ValidateSchema checks that table exists with the expected columns, so a
// misconfigured database fails at startup instead of on first query.
func ValidateSchema(ctx context.Context, db *sql.DB, schema TableSchema) error {
	rows, err := db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, schema.Name)
	if err != nil {
		return fmt.Errorf("failed to query table schema for %s: %w", schema.Name, err)
	}
	defer rows.Close()

	actual := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}
		actual[name] = strings.ToLower(dataType)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(actual) == 0 {
		return fmt.Errorf("table %s does not exist", schema.Name)
	}

	for _, col := range schema.Columns {
		dataType, ok := actual[col.Name]
		if !ok {
			return fmt.Errorf("table %s missing expected column: %s", schema.Name, col.Name)
		}
		// varchar(191) reports as varchar; accept any size suffix.
		if !strings.HasPrefix(dataType, col.DataType) {
			return fmt.Errorf("table %s column %s has type %s, expected %s",
				schema.Name, col.Name, dataType, col.DataType)
		}
	}

	return nil
}
