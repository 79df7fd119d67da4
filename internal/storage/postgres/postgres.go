package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
)

// PostgresStorage implements the Storage interface using PostgreSQL.
// Planting lifecycle writes call the fn_* functions defined in the
// schema so transitions commit atomically on the server.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL storage backend with connection pooling
func New(ctx context.Context, dsn string) (*PostgresStorage, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// mapError translates database errors raised by the fn_* functions and
// constraints into the shared typed errors. The plpgsql functions RAISE
// with recognizable message prefixes; the partial unique index backstops
// the duplicate check under concurrency.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.Detail, storeerr.ErrDuplicatePlanting)
	}
	if pgErr.Code == "P0001" {
		msg := pgErr.Message
		switch {
		case strings.Contains(msg, "not found"):
			return fmt.Errorf("%s: %w", msg, storeerr.ErrNotFound)
		case strings.Contains(msg, "duplicate planting"):
			return fmt.Errorf("%s: %w", msg, storeerr.ErrDuplicatePlanting)
		case strings.Contains(msg, "bed capacity"):
			return fmt.Errorf("%s: %w", msg, storeerr.ErrBedCapacity)
		case strings.Contains(msg, "invalid transition"):
			return fmt.Errorf("%s: %w", msg, storeerr.ErrInvalidTransition)
		case strings.Contains(msg, "wrong location kind"):
			return fmt.Errorf("%s: %w", msg, storeerr.ErrWrongLocationKind)
		}
	}
	return err
}

// CreateCrop creates a new crop variety
func (s *PostgresStorage) CreateCrop(ctx context.Context, crop *types.Crop) error {
	if err := crop.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if crop.ID == "" {
		crop.ID = uuid.New().String()
	}
	now := time.Now()
	crop.CreatedAt = now
	crop.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO crops (id, name, species, days_to_maturity, spacing_cm, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, crop.ID, crop.Name, crop.Species, crop.DaysToMaturity, crop.SpacingCM,
		crop.Notes, crop.CreatedAt, crop.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert crop: %w", err)
	}
	return nil
}

// GetCrop retrieves a crop by ID. Returns (nil, nil) if not found.
func (s *PostgresStorage) GetCrop(ctx context.Context, id string) (*types.Crop, error) {
	var crop types.Crop
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, species, days_to_maturity, spacing_cm, notes, created_at, updated_at
		FROM crops WHERE id = $1
	`, id).Scan(
		&crop.ID, &crop.Name, &crop.Species, &crop.DaysToMaturity,
		&crop.SpacingCM, &crop.Notes, &crop.CreatedAt, &crop.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crop: %w", err)
	}
	return &crop, nil
}

// ListCrops returns all crop varieties ordered by name
func (s *PostgresStorage) ListCrops(ctx context.Context) ([]*types.Crop, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, species, days_to_maturity, spacing_cm, notes, created_at, updated_at
		FROM crops ORDER BY name
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
func (s *PostgresStorage) UpdateCrop(ctx context.Context, crop *types.Crop) error {
	if err := crop.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	crop.UpdatedAt = time.Now()

	tag, err := s.pool.Exec(ctx, `
		UPDATE crops
		SET name = $1, species = $2, days_to_maturity = $3, spacing_cm = $4, notes = $5, updated_at = $6
		WHERE id = $7
	`, crop.Name, crop.Species, crop.DaysToMaturity, crop.SpacingCM,
		crop.Notes, crop.UpdatedAt, crop.ID)
	if err != nil {
		return fmt.Errorf("failed to update crop: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("crop %s: %w", crop.ID, storeerr.ErrNotFound)
	}
	return nil
}

// CreateLocation creates a new farm location
func (s *PostgresStorage) CreateLocation(ctx context.Context, loc *types.Location) error {
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	loc.CreatedAt = time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO locations (id, name, kind, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, loc.ID, loc.Name, loc.Kind, loc.Notes, loc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

// GetLocation retrieves a location by ID. Returns (nil, nil) if not found.
func (s *PostgresStorage) GetLocation(ctx context.Context, id string) (*types.Location, error) {
	var loc types.Location
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, kind, notes, created_at FROM locations WHERE id = $1
	`, id).Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.Notes, &loc.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &loc, nil
}

// ListLocations returns all locations ordered by name
func (s *PostgresStorage) ListLocations(ctx context.Context) ([]*types.Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, kind, notes, created_at FROM locations ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var locs []*types.Location
	for rows.Next() {
		var loc types.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.Notes, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locs = append(locs, &loc)
	}
	return locs, rows.Err()
}

// CreatePlot creates a new plot within a location
func (s *PostgresStorage) CreatePlot(ctx context.Context, plot *types.Plot) error {
	if err := plot.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if plot.ID == "" {
		plot.ID = uuid.New().String()
	}
	plot.CreatedAt = time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO plots (id, location_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, plot.ID, plot.LocationID, plot.Name, plot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert plot: %w", err)
	}
	return nil
}

// GetPlot retrieves a plot by ID. Returns (nil, nil) if not found.
func (s *PostgresStorage) GetPlot(ctx context.Context, id string) (*types.Plot, error) {
	var plot types.Plot
	err := s.pool.QueryRow(ctx, `
		SELECT id, location_id, name, created_at FROM plots WHERE id = $1
	`, id).Scan(&plot.ID, &plot.LocationID, &plot.Name, &plot.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plot: %w", err)
	}
	return &plot, nil
}

// ListPlots returns plots, optionally filtered by location
func (s *PostgresStorage) ListPlots(ctx context.Context, locationID string) ([]*types.Plot, error) {
	query := `SELECT id, location_id, name, created_at FROM plots`
	args := []interface{}{}
	if locationID != "" {
		query += ` WHERE location_id = $1`
		args = append(args, locationID)
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plots: %w", err)
	}
	defer rows.Close()

	var plots []*types.Plot
	for rows.Next() {
		var plot types.Plot
		if err := rows.Scan(&plot.ID, &plot.LocationID, &plot.Name, &plot.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plot: %w", err)
		}
		plots = append(plots, &plot)
	}
	return plots, rows.Err()
}

// CreateBed creates a new bed within a plot
func (s *PostgresStorage) CreateBed(ctx context.Context, bed *types.Bed) error {
	if err := bed.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if bed.ID == "" {
		bed.ID = uuid.New().String()
	}
	bed.CreatedAt = time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO beds (id, plot_id, name, capacity, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, bed.ID, bed.PlotID, bed.Name, bed.Capacity, bed.Notes, bed.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bed: %w", err)
	}
	return nil
}

// GetBed retrieves a bed by ID. Returns (nil, nil) if not found.
func (s *PostgresStorage) GetBed(ctx context.Context, id string) (*types.Bed, error) {
	var bed types.Bed
	err := s.pool.QueryRow(ctx, `
		SELECT id, plot_id, name, capacity, notes, created_at FROM beds WHERE id = $1
	`, id).Scan(&bed.ID, &bed.PlotID, &bed.Name, &bed.Capacity, &bed.Notes, &bed.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bed: %w", err)
	}
	return &bed, nil
}

// ListBeds returns beds, optionally filtered by plot
func (s *PostgresStorage) ListBeds(ctx context.Context, plotID string) ([]*types.Bed, error) {
	query := `SELECT id, plot_id, name, capacity, notes, created_at FROM beds`
	args := []interface{}{}
	if plotID != "" {
		query += ` WHERE plot_id = $1`
		args = append(args, plotID)
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", err)
	}
	defer rows.Close()

	var beds []*types.Bed
	for rows.Next() {
		var bed types.Bed
		if err := rows.Scan(&bed.ID, &bed.PlotID, &bed.Name, &bed.Capacity, &bed.Notes, &bed.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bed: %w", err)
		}
		beds = append(beds, &bed)
	}
	return beds, rows.Err()
}

// DeleteBed deletes a bed. Refused while the bed holds active plantings.
func (s *PostgresStorage) DeleteBed(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var active int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM plantings
		WHERE bed_id = $1 AND stage IN ('planted', 'harvested')
	`, id).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to check bed occupancy: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("bed %s: %w", id, storeerr.ErrBedOccupied)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM beds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bed %s: %w", id, storeerr.ErrNotFound)
	}

	return tx.Commit(ctx)
}

// BedUsage returns the total quantity of active plantings in a bed
func (s *PostgresStorage) BedUsage(ctx context.Context, bedID string) (int, error) {
	var used int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM plantings
		WHERE bed_id = $1 AND stage IN ('planted', 'harvested')
	`, bedID).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("failed to compute bed usage: %w", err)
	}
	return used, nil
}

// FindActivePlanting returns the active planting of the given crop in
// the given bed, or (nil, nil) if there is none.
func (s *PostgresStorage) FindActivePlanting(ctx context.Context, cropID, bedID string) (*types.Planting, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM plantings
		WHERE crop_id = $1 AND bed_id = $2 AND stage IN ('planted', 'harvested')
	`, cropID, bedID).Scan(&id)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active planting: %w", err)
	}
	return s.GetPlanting(ctx, id)
}

// Ping verifies the database connection is alive
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
