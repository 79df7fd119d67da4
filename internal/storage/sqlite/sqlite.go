package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
)

// plantingPrefix is the prefix used for generated planting IDs,
// e.g. "pl-42".
const plantingPrefix = "pl"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	// Ensure directory exists (not applicable for in-memory databases)
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// In-memory databases exist per-connection; collapsing the pool to a
	// single connection keeps every query on the same database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// beginImmediate acquires a dedicated connection and starts an IMMEDIATE
// transaction on it. IMMEDIATE acquires a RESERVED lock up front,
// serializing concurrent writers; database/sql's BeginTx cannot express
// transaction modes, so raw BEGIN/COMMIT/ROLLBACK run on one connection.
//
// The returned finish func rolls back unless commit succeeded; call it
// in a defer. Rollback uses context.Background() so cleanup happens even
// if ctx is canceled.
func (s *SQLiteStorage) beginImmediate(ctx context.Context) (*sql.Conn, func(committed *bool), error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to begin immediate transaction: %w", err)
	}
	finish := func(committed *bool) {
		if !*committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
		conn.Close()
	}
	return conn, finish, nil
}

// nextPlantingID atomically increments the planting counter and returns
// the next ID. Must be called inside an IMMEDIATE transaction.
func nextPlantingID(ctx context.Context, conn *sql.Conn) (string, error) {
	var nextID int
	err := conn.QueryRowContext(ctx, `
		INSERT INTO planting_counters (prefix, last_id)
		VALUES (?, 1)
		ON CONFLICT(prefix) DO UPDATE SET last_id = last_id + 1
		RETURNING last_id
	`, plantingPrefix).Scan(&nextID)
	if err != nil {
		return "", fmt.Errorf("failed to generate next planting ID: %w", err)
	}
	return fmt.Sprintf("%s-%d", plantingPrefix, nextID), nil
}

// CreateCrop creates a new crop variety
func (s *SQLiteStorage) CreateCrop(ctx context.Context, crop *types.Crop) error {
	if err := crop.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if crop.ID == "" {
		crop.ID = uuid.New().String()
	}
	now := time.Now()
	crop.CreatedAt = now
	crop.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crops (id, name, species, days_to_maturity, spacing_cm, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, crop.ID, crop.Name, crop.Species, crop.DaysToMaturity, crop.SpacingCM,
		crop.Notes, crop.CreatedAt, crop.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert crop: %w", err)
	}
	return nil
}

// GetCrop retrieves a crop by ID. Returns (nil, nil) if not found.
func (s *SQLiteStorage) GetCrop(ctx context.Context, id string) (*types.Crop, error) {
	var crop types.Crop
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, species, days_to_maturity, spacing_cm, notes, created_at, updated_at
		FROM crops
		WHERE id = ?
	`, id).Scan(
		&crop.ID, &crop.Name, &crop.Species, &crop.DaysToMaturity,
		&crop.SpacingCM, &crop.Notes, &crop.CreatedAt, &crop.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crop: %w", err)
	}
	return &crop, nil
}

// ListCrops returns all crop varieties ordered by name
func (s *SQLiteStorage) ListCrops(ctx context.Context) ([]*types.Crop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, species, days_to_maturity, spacing_cm, notes, created_at, updated_at
		FROM crops
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list crops: %w", err)
	}
	defer rows.Close()

	var crops []*types.Crop
	for rows.Next() {
		var crop types.Crop
		if err := rows.Scan(
			&crop.ID, &crop.Name, &crop.Species, &crop.DaysToMaturity,
			&crop.SpacingCM, &crop.Notes, &crop.CreatedAt, &crop.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan crop: %w", err)
		}
		crops = append(crops, &crop)
	}
	return crops, rows.Err()
}

// UpdateCrop updates a crop variety
func (s *SQLiteStorage) UpdateCrop(ctx context.Context, crop *types.Crop) error {
	if err := crop.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	crop.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE crops
		SET name = ?, species = ?, days_to_maturity = ?, spacing_cm = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, crop.Name, crop.Species, crop.DaysToMaturity, crop.SpacingCM,
		crop.Notes, crop.UpdatedAt, crop.ID)
	if err != nil {
		return fmt.Errorf("failed to update crop: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("crop %s: %w", crop.ID, storeerr.ErrNotFound)
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
