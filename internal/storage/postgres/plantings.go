package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
)

// CreateNurseryPlanting sows a new planting via fn_create_nursery_planting
func (s *PostgresStorage) CreateNurseryPlanting(ctx context.Context, planting *types.Planting, actor string) error {
	planting.Stage = types.StageNursery
	if err := planting.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if planting.SownAt.IsZero() {
		planting.SownAt = time.Now()
	}

	err := s.pool.QueryRow(ctx, `
		SELECT fn_create_nursery_planting($1, $2, $3, $4, $5, $6)
	`, planting.CropID, planting.NurseryLocationID, planting.Quantity,
		planting.SownAt, planting.Notes, actor).Scan(&planting.ID)
	if err != nil {
		return mapError(err)
	}

	created, err := s.GetPlanting(ctx, planting.ID)
	if err != nil {
		return err
	}
	*planting = *created
	return nil
}

// DirectSeedPlanting sows a new planting via fn_direct_seed_planting
func (s *PostgresStorage) DirectSeedPlanting(ctx context.Context, planting *types.Planting, actor string) error {
	planting.Stage = types.StagePlanted
	if err := planting.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if planting.SownAt.IsZero() {
		planting.SownAt = time.Now()
	}

	err := s.pool.QueryRow(ctx, `
		SELECT fn_direct_seed_planting($1, $2, $3, $4, $5, $6)
	`, planting.CropID, planting.BedID, planting.Quantity,
		planting.SownAt, planting.Notes, actor).Scan(&planting.ID)
	if err != nil {
		return mapError(err)
	}

	created, err := s.GetPlanting(ctx, planting.ID)
	if err != nil {
		return err
	}
	*planting = *created
	return nil
}

// TransplantPlanting moves a nursery planting into a bed via fn_transplant_planting
func (s *PostgresStorage) TransplantPlanting(ctx context.Context, id, bedID string, when time.Time, actor string) error {
	if when.IsZero() {
		when = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		SELECT fn_transplant_planting($1, $2, $3, $4)
	`, id, bedID, when, actor)
	return mapError(err)
}

// HarvestPlanting records a harvest via fn_harvest_planting
func (s *PostgresStorage) HarvestPlanting(ctx context.Context, harvest *types.HarvestRecord, actor string) error {
	if err := harvest.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if harvest.HarvestedAt.IsZero() {
		harvest.HarvestedAt = time.Now()
	}

	err := s.pool.QueryRow(ctx, `
		SELECT fn_harvest_planting($1, $2, $3, $4, $5, $6)
	`, harvest.PlantingID, harvest.Quantity, harvest.Unit,
		harvest.HarvestedAt, harvest.Notes, actor).Scan(&harvest.ID)
	return mapError(err)
}

// RemovePlanting marks a planting removed via fn_remove_planting
func (s *PostgresStorage) RemovePlanting(ctx context.Context, id, reason string, when time.Time, actor string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("removal reason is required")
	}
	if when.IsZero() {
		when = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		SELECT fn_remove_planting($1, $2, $3, $4)
	`, id, reason, when, actor)
	return mapError(err)
}

const plantingColumns = `id, crop_id, bed_id, nursery_location_id, stage, quantity,
	sown_at, transplanted_at, first_harvest_at, removed_at, removal_reason,
	notes, created_at, updated_at`

func scanPlanting(row pgx.Row) (*types.Planting, error) {
	var p types.Planting
	var bedID, nurseryLocID sql.NullString
	var transplantedAt, firstHarvestAt, removedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.CropID, &bedID, &nurseryLocID, &p.Stage, &p.Quantity,
		&p.SownAt, &transplantedAt, &firstHarvestAt, &removedAt, &p.RemovalReason,
		&p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bedID.Valid {
		p.BedID = bedID.String
	}
	if nurseryLocID.Valid {
		p.NurseryLocationID = nurseryLocID.String
	}
	if transplantedAt.Valid {
		p.TransplantedAt = &transplantedAt.Time
	}
	if firstHarvestAt.Valid {
		p.FirstHarvestAt = &firstHarvestAt.Time
	}
	if removedAt.Valid {
		p.RemovedAt = &removedAt.Time
	}
	return &p, nil
}

// GetPlanting retrieves a planting by ID. Returns (nil, nil) if not found.
func (s *PostgresStorage) GetPlanting(ctx context.Context, id string) (*types.Planting, error) {
	p, err := scanPlanting(s.pool.QueryRow(ctx,
		`SELECT `+plantingColumns+` FROM plantings WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get planting: %w", err)
	}
	return p, nil
}

// ListPlantings finds plantings matching the filter
func (s *PostgresStorage) ListPlantings(ctx context.Context, filter types.PlantingFilter) ([]*types.Planting, error) {
	whereClauses := []string{}
	args := []interface{}{}
	argNum := 1

	if filter.Stage != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("stage = $%d", argNum))
		args = append(args, *filter.Stage)
		argNum++
	}
	if filter.CropID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("crop_id = $%d", argNum))
		args = append(args, *filter.CropID)
		argNum++
	}
	if filter.BedID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("bed_id = $%d", argNum))
		args = append(args, *filter.BedID)
		argNum++
	}
	if filter.ActiveOnly {
		whereClauses = append(whereClauses, "stage IN ('nursery', 'planted', 'harvested')")
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	limitSQL := ""
	if filter.Limit > 0 {
		limitSQL = fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM plantings %s ORDER BY sown_at DESC, id DESC%s`,
		plantingColumns, whereSQL, limitSQL), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plantings: %w", err)
	}
	defer rows.Close()

	var plantings []*types.Planting
	for rows.Next() {
		p, err := scanPlanting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planting: %w", err)
		}
		plantings = append(plantings, p)
	}
	return plantings, rows.Err()
}

// AddPlantingNote appends a note event to a planting's audit trail
func (s *PostgresStorage) AddPlantingNote(ctx context.Context, id, actor, note string) error {
	p, err := s.GetPlanting(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("planting %s: %w", id, storeerr.ErrNotFound)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO planting_events (planting_id, event_type, actor, comment)
		VALUES ($1, $2, $3, $4)
	`, id, types.EventNote, actor, note)
	if err != nil {
		return fmt.Errorf("failed to record note: %w", err)
	}
	return nil
}

// GetPlantingEvents returns the audit trail for a planting, oldest first
func (s *PostgresStorage) GetPlantingEvents(ctx context.Context, id string, limit int) ([]*types.PlantingEvent, error) {
	query := `
		SELECT id, planting_id, event_type, actor, old_value, new_value, comment, created_at
		FROM planting_events
		WHERE planting_id = $1
		ORDER BY created_at, id`
	args := []interface{}{id}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get planting events: %w", err)
	}
	defer rows.Close()

	var events []*types.PlantingEvent
	for rows.Next() {
		var e types.PlantingEvent
		if err := rows.Scan(&e.ID, &e.PlantingID, &e.EventType, &e.Actor,
			&e.OldValue, &e.NewValue, &e.Comment, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// GetHarvests returns the harvest records for a planting, oldest first
func (s *PostgresStorage) GetHarvests(ctx context.Context, plantingID string) ([]*types.HarvestRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, planting_id, quantity, unit, harvested_at, notes
		FROM harvests
		WHERE planting_id = $1
		ORDER BY harvested_at, id
	`, plantingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get harvests: %w", err)
	}
	defer rows.Close()

	var harvests []*types.HarvestRecord
	for rows.Next() {
		var h types.HarvestRecord
		if err := rows.Scan(&h.ID, &h.PlantingID, &h.Quantity, &h.Unit, &h.HarvestedAt, &h.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan harvest: %w", err)
		}
		harvests = append(harvests, &h)
	}
	return harvests, rows.Err()
}
