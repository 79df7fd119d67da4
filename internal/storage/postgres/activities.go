package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
)

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// LogActivity records a farm activity
func (s *PostgresStorage) LogActivity(ctx context.Context, activity *types.Activity) error {
	if err := activity.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.PerformedAt.IsZero() {
		activity.PerformedAt = time.Now()
	}
	activity.CreatedAt = time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO activities (
			id, type, location_id, bed_id, material, amount,
			performed_at, performed_by, source, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, activity.ID, activity.Type, activity.LocationID, nullStr(activity.BedID),
		activity.Material, activity.Amount, activity.PerformedAt,
		activity.PerformedBy, activity.Source, activity.Notes, activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// ListActivities finds activities matching the filter, newest first
func (s *PostgresStorage) ListActivities(ctx context.Context, filter types.ActivityFilter) ([]*types.Activity, error) {
	whereClauses := []string{}
	args := []interface{}{}
	argNum := 1

	if filter.Type != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("type = $%d", argNum))
		args = append(args, *filter.Type)
		argNum++
	}
	if filter.LocationID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("location_id = $%d", argNum))
		args = append(args, *filter.LocationID)
		argNum++
	}
	if filter.BedID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("bed_id = $%d", argNum))
		args = append(args, *filter.BedID)
		argNum++
	}
	if filter.Since != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("performed_at >= $%d", argNum))
		args = append(args, *filter.Since)
		argNum++
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	limitSQL := ""
	if filter.Limit > 0 {
		limitSQL = fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, type, location_id, bed_id, material, amount,
			performed_at, performed_by, source, notes, created_at
		FROM activities %s
		ORDER BY performed_at DESC, id DESC%s
	`, whereSQL, limitSQL), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []*types.Activity
	for rows.Next() {
		var a types.Activity
		var bedID sql.NullString
		if err := rows.Scan(&a.ID, &a.Type, &a.LocationID, &bedID, &a.Material,
			&a.Amount, &a.PerformedAt, &a.PerformedBy, &a.Source, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if bedID.Valid {
			a.BedID = bedID.String
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}

// CreateSchedule creates a recurring activity schedule
func (s *PostgresStorage) CreateSchedule(ctx context.Context, schedule *types.ActivitySchedule) error {
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if schedule.NextFireAt.IsZero() {
		return fmt.Errorf("next_fire_at is required")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.New().String()
	}
	schedule.CreatedAt = time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO activity_schedules (
			id, name, type, location_id, bed_id, material, amount,
			cron_expr, enabled, next_fire_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, schedule.ID, schedule.Name, schedule.Type, schedule.LocationID,
		nullStr(schedule.BedID), schedule.Material, schedule.Amount,
		schedule.CronExpr, schedule.Enabled, schedule.NextFireAt, schedule.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

const scheduleColumns = `id, name, type, location_id, bed_id, material, amount,
	cron_expr, enabled, next_fire_at, last_fired_at, created_at`

func scanSchedule(row pgx.Row) (*types.ActivitySchedule, error) {
	var sched types.ActivitySchedule
	var bedID sql.NullString
	var lastFiredAt sql.NullTime
	err := row.Scan(&sched.ID, &sched.Name, &sched.Type, &sched.LocationID,
		&bedID, &sched.Material, &sched.Amount, &sched.CronExpr,
		&sched.Enabled, &sched.NextFireAt, &lastFiredAt, &sched.CreatedAt)
	if err != nil {
		return nil, err
	}
	if bedID.Valid {
		sched.BedID = bedID.String
	}
	if lastFiredAt.Valid {
		sched.LastFiredAt = &lastFiredAt.Time
	}
	return &sched, nil
}

// ListSchedules returns all activity schedules ordered by name
func (s *PostgresStorage) ListSchedules(ctx context.Context) ([]*types.ActivitySchedule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+scheduleColumns+` FROM activity_schedules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*types.ActivitySchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, sched)
	}
	return schedules, rows.Err()
}

// DueSchedules returns enabled schedules whose next fire time has passed
func (s *PostgresStorage) DueSchedules(ctx context.Context, now time.Time) ([]*types.ActivitySchedule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+scheduleColumns+` FROM activity_schedules
		WHERE enabled AND next_fire_at <= $1
		ORDER BY next_fire_at
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*types.ActivitySchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, sched)
	}
	return schedules, rows.Err()
}

// MarkScheduleFired records a firing and advances the next fire time
func (s *PostgresStorage) MarkScheduleFired(ctx context.Context, id string, firedAt, nextFireAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE activity_schedules
		SET last_fired_at = $1, next_fire_at = $2
		WHERE id = $3
	`, firedAt, nextFireAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark schedule fired: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schedule %s: %w", id, storeerr.ErrNotFound)
	}
	return nil
}

// SetScheduleEnabled enables or disables a schedule
func (s *PostgresStorage) SetScheduleEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE activity_schedules SET enabled = $1 WHERE id = $2
	`, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schedule %s: %w", id, storeerr.ErrNotFound)
	}
	return nil
}

// GetStatistics returns aggregate metrics across the farm
func (s *PostgresStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	stats := &types.Statistics{
		HarvestTotals: make(map[types.HarvestUnit]float64),
	}

	rows, err := s.pool.Query(ctx, `
		SELECT stage, COUNT(*) FROM plantings GROUP BY stage
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count plantings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("failed to scan planting count: %w", err)
		}
		stats.TotalPlantings += count
		switch types.Stage(stage) {
		case types.StageNursery:
			stats.NurseryPlantings = count
		case types.StagePlanted:
			stats.PlantedPlantings = count
		case types.StageHarvested:
			stats.HarvestedPlantings = count
		case types.StageRemoved:
			stats.RemovedPlantings = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM active_beds`).Scan(&stats.ActiveBeds)
	if err != nil {
		return nil, fmt.Errorf("failed to count active beds: %w", err)
	}

	unitRows, err := s.pool.Query(ctx, `
		SELECT unit, SUM(quantity) FROM harvests GROUP BY unit
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to sum harvests: %w", err)
	}
	defer unitRows.Close()

	for unitRows.Next() {
		var unit string
		var total float64
		if err := unitRows.Scan(&unit, &total); err != nil {
			return nil, fmt.Errorf("failed to scan harvest total: %w", err)
		}
		stats.HarvestTotals[types.HarvestUnit(unit)] = total
	}
	if err := unitRows.Err(); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM activities WHERE performed_at >= NOW() - INTERVAL '30 days'
	`).Scan(&stats.RecentActivities)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent activities: %w", err)
	}

	return stats, nil
}

// CleanupEventsByAge deletes old planting events in batches. Lifecycle
// events are kept for criticalRetentionDays; notes and field edits only
// for retentionDays.
func (s *PostgresStorage) CleanupEventsByAge(ctx context.Context, retentionDays, criticalRetentionDays, batchSize int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retentionDays must be positive (got %d)", retentionDays)
	}
	if criticalRetentionDays < retentionDays {
		return 0, fmt.Errorf("criticalRetentionDays (%d) must be >= retentionDays (%d)",
			criticalRetentionDays, retentionDays)
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	critical := make([]string, len(types.CriticalEventTypes))
	for i, t := range types.CriticalEventTypes {
		critical[i] = string(t)
	}

	total := 0
	for {
		tag, err := s.pool.Exec(ctx, `
			DELETE FROM planting_events
			WHERE id IN (
				SELECT id FROM planting_events
				WHERE (created_at < NOW() - make_interval(days => $1) AND NOT (event_type = ANY($3)))
				   OR (created_at < NOW() - make_interval(days => $2) AND event_type = ANY($3))
				LIMIT $4
			)
		`, retentionDays, criticalRetentionDays, critical, batchSize)
		if err != nil {
			return total, fmt.Errorf("failed to delete old events: %w", err)
		}
		n := int(tag.RowsAffected())
		total += n
		if n < batchSize {
			return total, nil
		}
	}
}

// VacuumDatabase reclaims space after large deletions
func (s *PostgresStorage) VacuumDatabase(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "VACUUM ANALYZE"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
