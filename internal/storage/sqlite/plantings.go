package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
)

// nullStr converts an empty string to NULL for nullable columns.
// Plantings store NULL bed IDs while in the nursery so the partial
// unique index on (crop_id, bed_id) only covers real beds.
func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// CreateNurseryPlanting sows a new planting in a nursery location.
// SQLite equivalent of fn_create_nursery_planting: ID generation, the
// insert, and the created event are one immediate transaction.
func (s *SQLiteStorage) CreateNurseryPlanting(ctx context.Context, planting *types.Planting, actor string) error {
	planting.Stage = types.StageNursery
	if err := planting.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	planting.CreatedAt = now
	planting.UpdatedAt = now
	if planting.SownAt.IsZero() {
		planting.SownAt = now
	}

	var committed bool
	conn, finish, err := s.beginImmediate(ctx)
	if err != nil {
		return err
	}
	defer finish(&committed)

	if err := checkCropExists(ctx, conn, planting.CropID); err != nil {
		return err
	}

	// The nursery location must exist and actually be a nursery
	var kind string
	err = conn.QueryRowContext(ctx, `SELECT kind FROM locations WHERE id = ?`,
		planting.NurseryLocationID).Scan(&kind)
	if err == sql.ErrNoRows {
		return fmt.Errorf("location %s: %w", planting.NurseryLocationID, storeerr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check nursery location: %w", err)
	}
	if types.LocationKind(kind) != types.LocationNursery {
		return fmt.Errorf("location %s: %w", planting.NurseryLocationID, storeerr.ErrWrongLocationKind)
	}

	if planting.ID == "" {
		planting.ID, err = nextPlantingID(ctx, conn)
		if err != nil {
			return err
		}
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO plantings (
			id, crop_id, bed_id, nursery_location_id, stage, quantity,
			sown_at, notes, created_at, updated_at
		) VALUES (?, ?, NULL, ?, ?, ?, ?, ?, ?, ?)
	`, planting.ID, planting.CropID, planting.NurseryLocationID,
		planting.Stage, planting.Quantity, planting.SownAt, planting.Notes,
		planting.CreatedAt, planting.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert planting: %w", err)
	}

	if err := recordEvent(ctx, conn, planting.ID, types.EventCreated, actor, nil, planting, ""); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// DirectSeedPlanting sows a new planting directly into a bed.
// SQLite equivalent of fn_direct_seed_planting: enforces the
// one-active-planting-per-crop-per-bed rule and the bed capacity limit
// inside the transaction, then inserts the planting in the planted stage.
func (s *SQLiteStorage) DirectSeedPlanting(ctx context.Context, planting *types.Planting, actor string) error {
	planting.Stage = types.StagePlanted
	if err := planting.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	planting.CreatedAt = now
	planting.UpdatedAt = now
	if planting.SownAt.IsZero() {
		planting.SownAt = now
	}

	var committed bool
	conn, finish, err := s.beginImmediate(ctx)
	if err != nil {
		return err
	}
	defer finish(&committed)

	if err := checkCropExists(ctx, conn, planting.CropID); err != nil {
		return err
	}

	if err := checkBedFits(ctx, conn, planting.CropID, planting.BedID, planting.Quantity); err != nil {
		return err
	}

	if planting.ID == "" {
		planting.ID, err = nextPlantingID(ctx, conn)
		if err != nil {
			return err
		}
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO plantings (
			id, crop_id, bed_id, nursery_location_id, stage, quantity,
			sown_at, notes, created_at, updated_at
		) VALUES (?, ?, ?, NULL, ?, ?, ?, ?, ?, ?)
	`, planting.ID, planting.CropID, planting.BedID,
		planting.Stage, planting.Quantity, planting.SownAt, planting.Notes,
		planting.CreatedAt, planting.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("crop %s in bed %s: %w", planting.CropID, planting.BedID, storeerr.ErrDuplicatePlanting)
		}
		return fmt.Errorf("failed to insert planting: %w", err)
	}

	if err := recordEvent(ctx, conn, planting.ID, types.EventDirectSeeded, actor, nil, planting, ""); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// TransplantPlanting moves a nursery planting into a bed.
// SQLite equivalent of fn_transplant_planting.
func (s *SQLiteStorage) TransplantPlanting(ctx context.Context, id, bedID string, when time.Time, actor string) error {
	if when.IsZero() {
		when = time.Now()
	}

	var committed bool
	conn, finish, err := s.beginImmediate(ctx)
	if err != nil {
		return err
	}
	defer finish(&committed)

	old, err := getPlantingConn(ctx, conn, id)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("planting %s: %w", id, storeerr.ErrNotFound)
	}
	if !old.Stage.CanTransitionTo(types.StagePlanted) {
		return fmt.Errorf("cannot transplant a planting in stage %s: %w", old.Stage, storeerr.ErrInvalidTransition)
	}

	if err := checkBedFits(ctx, conn, old.CropID, bedID, old.Quantity); err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		UPDATE plantings
		SET bed_id = ?, nursery_location_id = NULL, stage = ?, transplanted_at = ?, updated_at = ?
		WHERE id = ?
	`, bedID, types.StagePlanted, when, time.Now(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("crop %s in bed %s: %w", old.CropID, bedID, storeerr.ErrDuplicatePlanting)
		}
		return fmt.Errorf("failed to transplant planting: %w", err)
	}

	updated := *old
	updated.BedID = bedID
	updated.NurseryLocationID = ""
	updated.Stage = types.StagePlanted
	updated.TransplantedAt = &when
	if err := recordEvent(ctx, conn, id, types.EventTransplanted, actor, old, &updated, ""); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// HarvestPlanting records a harvest from a planting.
// SQLite equivalent of fn_harvest_planting: the first harvest moves the
// planting to the harvested stage and stamps first_harvest_at; further
// harvests append records without a stage change.
func (s *SQLiteStorage) HarvestPlanting(ctx context.Context, harvest *types.HarvestRecord, actor string) error {
	if err := harvest.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if harvest.HarvestedAt.IsZero() {
		harvest.HarvestedAt = time.Now()
	}

	var committed bool
	conn, finish, err := s.beginImmediate(ctx)
	if err != nil {
		return err
	}
	defer finish(&committed)

	old, err := getPlantingConn(ctx, conn, harvest.PlantingID)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("planting %s: %w", harvest.PlantingID, storeerr.ErrNotFound)
	}
	if old.Stage != types.StagePlanted && old.Stage != types.StageHarvested {
		return fmt.Errorf("cannot harvest a planting in stage %s: %w", old.Stage, storeerr.ErrInvalidTransition)
	}

	res, err := conn.ExecContext(ctx, `
		INSERT INTO harvests (planting_id, quantity, unit, harvested_at, notes)
		VALUES (?, ?, ?, ?, ?)
	`, harvest.PlantingID, harvest.Quantity, harvest.Unit, harvest.HarvestedAt, harvest.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert harvest: %w", err)
	}
	if harvest.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read harvest ID: %w", err)
	}

	if old.Stage == types.StagePlanted {
		_, err = conn.ExecContext(ctx, `
			UPDATE plantings
			SET stage = ?, first_harvest_at = ?, updated_at = ?
			WHERE id = ?
		`, types.StageHarvested, harvest.HarvestedAt, time.Now(), harvest.PlantingID)
		if err != nil {
			return fmt.Errorf("failed to update planting stage: %w", err)
		}
	}

	comment := fmt.Sprintf("%g %s", harvest.Quantity, harvest.Unit)
	if err := recordEvent(ctx, conn, harvest.PlantingID, types.EventHarvested, actor, nil, harvest, comment); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// RemovePlanting marks a planting as removed with a reason.
// SQLite equivalent of fn_remove_planting. Removal is terminal and
// frees the bed slot for new plantings.
func (s *SQLiteStorage) RemovePlanting(ctx context.Context, id, reason string, when time.Time, actor string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("removal reason is required")
	}
	if when.IsZero() {
		when = time.Now()
	}

	var committed bool
	conn, finish, err := s.beginImmediate(ctx)
	if err != nil {
		return err
	}
	defer finish(&committed)

	old, err := getPlantingConn(ctx, conn, id)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("planting %s: %w", id, storeerr.ErrNotFound)
	}
	if !old.Stage.CanTransitionTo(types.StageRemoved) {
		return fmt.Errorf("cannot remove a planting in stage %s: %w", old.Stage, storeerr.ErrInvalidTransition)
	}

	_, err = conn.ExecContext(ctx, `
		UPDATE plantings
		SET stage = ?, removed_at = ?, removal_reason = ?, updated_at = ?
		WHERE id = ?
	`, types.StageRemoved, when, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to remove planting: %w", err)
	}

	if err := recordEvent(ctx, conn, id, types.EventRemoved, actor, old, nil, reason); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// plantingColumns is the SELECT list shared by planting scans
const plantingColumns = `id, crop_id, bed_id, nursery_location_id, stage, quantity,
	sown_at, transplanted_at, first_harvest_at, removed_at, removal_reason,
	notes, created_at, updated_at`

// scanPlanting scans a planting row from the shared column list
func scanPlanting(row interface {
	Scan(dest ...interface{}) error
}) (*types.Planting, error) {
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
func (s *SQLiteStorage) GetPlanting(ctx context.Context, id string) (*types.Planting, error) {
	p, err := scanPlanting(s.db.QueryRowContext(ctx,
		`SELECT `+plantingColumns+` FROM plantings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get planting: %w", err)
	}
	return p, nil
}

// getPlantingConn reads a planting on the transaction's connection so
// lifecycle checks see the locked state
func getPlantingConn(ctx context.Context, conn *sql.Conn, id string) (*types.Planting, error) {
	p, err := scanPlanting(conn.QueryRowContext(ctx,
		`SELECT `+plantingColumns+` FROM plantings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get planting: %w", err)
	}
	return p, nil
}

// ListPlantings finds plantings matching the filter
func (s *SQLiteStorage) ListPlantings(ctx context.Context, filter types.PlantingFilter) ([]*types.Planting, error) {
	whereClauses := []string{}
	args := []interface{}{}

	if filter.Stage != nil {
		whereClauses = append(whereClauses, "stage = ?")
		args = append(args, *filter.Stage)
	}
	if filter.CropID != nil {
		whereClauses = append(whereClauses, "crop_id = ?")
		args = append(args, *filter.CropID)
	}
	if filter.BedID != nil {
		whereClauses = append(whereClauses, "bed_id = ?")
		args = append(args, *filter.BedID)
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

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
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
func (s *SQLiteStorage) AddPlantingNote(ctx context.Context, id, actor, note string) error {
	p, err := s.GetPlanting(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("planting %s: %w", id, storeerr.ErrNotFound)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO planting_events (planting_id, event_type, actor, comment)
		VALUES (?, ?, ?, ?)
	`, id, types.EventNote, actor, note)
	if err != nil {
		return fmt.Errorf("failed to record note: %w", err)
	}
	return nil
}

// GetPlantingEvents returns the audit trail for a planting, oldest first
func (s *SQLiteStorage) GetPlantingEvents(ctx context.Context, id string, limit int) ([]*types.PlantingEvent, error) {
	query := `
		SELECT id, planting_id, event_type, actor, old_value, new_value, comment, created_at
		FROM planting_events
		WHERE planting_id = ?
		ORDER BY created_at, id`
	args := []interface{}{id}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SQLiteStorage) GetHarvests(ctx context.Context, plantingID string) ([]*types.HarvestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, planting_id, quantity, unit, harvested_at, notes
		FROM harvests
		WHERE planting_id = ?
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

// checkBedFits verifies the bed exists, has no active planting of the
// same crop, and has room for the requested quantity. Must run inside
// the write transaction so the checks and the insert are atomic.
// checkCropExists verifies the crop reference inside the transaction so a
// bad crop ID maps to a not-found error instead of a raw FK failure.
func checkCropExists(ctx context.Context, conn *sql.Conn, cropID string) error {
	var one int
	err := conn.QueryRowContext(ctx, `SELECT 1 FROM crops WHERE id = ?`, cropID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("crop %s: %w", cropID, storeerr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check crop: %w", err)
	}
	return nil
}

func checkBedFits(ctx context.Context, conn *sql.Conn, cropID, bedID string, quantity int) error {
	var capacity int
	err := conn.QueryRowContext(ctx, `SELECT capacity FROM beds WHERE id = ?`, bedID).Scan(&capacity)
	if err == sql.ErrNoRows {
		return fmt.Errorf("bed %s: %w", bedID, storeerr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check bed: %w", err)
	}

	var dup int
	err = conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM plantings
		WHERE crop_id = ? AND bed_id = ? AND stage IN ('planted', 'harvested')
	`, cropID, bedID).Scan(&dup)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate planting: %w", err)
	}
	if dup > 0 {
		return fmt.Errorf("crop %s in bed %s: %w", cropID, bedID, storeerr.ErrDuplicatePlanting)
	}

	var used int
	err = conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM plantings
		WHERE bed_id = ? AND stage IN ('planted', 'harvested')
	`, bedID).Scan(&used)
	if err != nil {
		return fmt.Errorf("failed to compute bed usage: %w", err)
	}
	if used+quantity > capacity {
		return fmt.Errorf("bed %s holds %d of %d, cannot add %d: %w",
			bedID, used, capacity, quantity, storeerr.ErrBedCapacity)
	}
	return nil
}

// recordEvent appends a planting event inside the current transaction.
// oldVal and newVal are JSON-marshaled when non-nil.
func recordEvent(ctx context.Context, conn *sql.Conn, plantingID string, eventType types.EventType, actor string, oldVal, newVal interface{}, comment string) error {
	var oldStr, newStr, commentVal interface{}
	if oldVal != nil {
		data, _ := json.Marshal(oldVal)
		oldStr = string(data)
	}
	if newVal != nil {
		data, _ := json.Marshal(newVal)
		newStr = string(data)
	}
	if comment != "" {
		commentVal = comment
	}

	_, err := conn.ExecContext(ctx, `
		INSERT INTO planting_events (planting_id, event_type, actor, old_value, new_value, comment)
		VALUES (?, ?, ?, ?, ?, ?)
	`, plantingID, eventType, actor, oldStr, newStr, commentVal)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether the error is a UNIQUE constraint
// failure from the sqlite3 driver
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
