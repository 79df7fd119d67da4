package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
)

// CreateLocation creates a new farm location
func (s *SQLiteStorage) CreateLocation(ctx context.Context, loc *types.Location) error {
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	loc.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, kind, notes, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, loc.ID, loc.Name, loc.Kind, loc.Notes, loc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

// GetLocation retrieves a location by ID. Returns (nil, nil) if not found.
func (s *SQLiteStorage) GetLocation(ctx context.Context, id string) (*types.Location, error) {
	var loc types.Location
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, notes, created_at FROM locations WHERE id = ?
	`, id).Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.Notes, &loc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &loc, nil
}

// ListLocations returns all locations ordered by name
func (s *SQLiteStorage) ListLocations(ctx context.Context) ([]*types.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
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
func (s *SQLiteStorage) CreatePlot(ctx context.Context, plot *types.Plot) error {
	if err := plot.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if plot.ID == "" {
		plot.ID = uuid.New().String()
	}
	plot.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plots (id, location_id, name, created_at)
		VALUES (?, ?, ?, ?)
	`, plot.ID, plot.LocationID, plot.Name, plot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert plot: %w", err)
	}
	return nil
}

// GetPlot retrieves a plot by ID. Returns (nil, nil) if not found.
func (s *SQLiteStorage) GetPlot(ctx context.Context, id string) (*types.Plot, error) {
	var plot types.Plot
	err := s.db.QueryRowContext(ctx, `
		SELECT id, location_id, name, created_at FROM plots WHERE id = ?
	`, id).Scan(&plot.ID, &plot.LocationID, &plot.Name, &plot.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plot: %w", err)
	}
	return &plot, nil
}

// ListPlots returns plots, optionally filtered by location
func (s *SQLiteStorage) ListPlots(ctx context.Context, locationID string) ([]*types.Plot, error) {
	query := `SELECT id, location_id, name, created_at FROM plots`
	args := []interface{}{}
	if locationID != "" {
		query += ` WHERE location_id = ?`
		args = append(args, locationID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SQLiteStorage) CreateBed(ctx context.Context, bed *types.Bed) error {
	if err := bed.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if bed.ID == "" {
		bed.ID = uuid.New().String()
	}
	bed.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO beds (id, plot_id, name, capacity, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, bed.ID, bed.PlotID, bed.Name, bed.Capacity, bed.Notes, bed.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bed: %w", err)
	}
	return nil
}

// GetBed retrieves a bed by ID. Returns (nil, nil) if not found.
func (s *SQLiteStorage) GetBed(ctx context.Context, id string) (*types.Bed, error) {
	var bed types.Bed
	err := s.db.QueryRowContext(ctx, `
		SELECT id, plot_id, name, capacity, notes, created_at FROM beds WHERE id = ?
	`, id).Scan(&bed.ID, &bed.PlotID, &bed.Name, &bed.Capacity, &bed.Notes, &bed.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bed: %w", err)
	}
	return &bed, nil
}

// ListBeds returns beds, optionally filtered by plot
func (s *SQLiteStorage) ListBeds(ctx context.Context, plotID string) ([]*types.Bed, error) {
	query := `SELECT id, plot_id, name, capacity, notes, created_at FROM beds`
	args := []interface{}{}
	if plotID != "" {
		query += ` WHERE plot_id = ?`
		args = append(args, plotID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
// Historical plantings and activities survive with their bed reference
// cleared by the ON DELETE SET NULL foreign keys.
func (s *SQLiteStorage) DeleteBed(ctx context.Context, id string) error {
	var committed bool
	conn, finish, err := s.beginImmediate(ctx)
	if err != nil {
		return err
	}
	defer finish(&committed)

	var active int
	err = conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM plantings
		WHERE bed_id = ? AND stage IN ('planted', 'harvested')
	`, id).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to check bed occupancy: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("bed %s: %w", id, storeerr.ErrBedOccupied)
	}

	res, err := conn.ExecContext(ctx, `DELETE FROM beds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bed %s: %w", id, storeerr.ErrNotFound)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// BedUsage returns the total quantity of active plantings in a bed
func (s *SQLiteStorage) BedUsage(ctx context.Context, bedID string) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM plantings
		WHERE bed_id = ? AND stage IN ('planted', 'harvested')
	`, bedID).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("failed to compute bed usage: %w", err)
	}
	return used, nil
}

// FindActivePlanting returns the active planting of the given crop in
// the given bed, or (nil, nil) if there is none. Used for the duplicate
// pre-check before direct seeding and transplanting.
func (s *SQLiteStorage) FindActivePlanting(ctx context.Context, cropID, bedID string) (*types.Planting, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM plantings
		WHERE crop_id = ? AND bed_id = ? AND stage IN ('planted', 'harvested')
	`, cropID, bedID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active planting: %w", err)
	}
	return s.GetPlanting(ctx, id)
}
