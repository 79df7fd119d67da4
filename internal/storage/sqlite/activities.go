package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
)

// LogActivity records a farm activity
func (s *SQLiteStorage) LogActivity(ctx context.Context, activity *types.Activity) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (
			id, type, location_id, bed_id, material, amount,
			performed_at, performed_by, source, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, activity.ID, activity.Type, activity.LocationID, nullStr(activity.BedID),
		activity.Material, activity.Amount, activity.PerformedAt,
		activity.PerformedBy, activity.Source, activity.Notes, activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// ListActivities finds activities matching the filter, newest first
func (s *SQLiteStorage) ListActivities(ctx context.Context, filter types.ActivityFilter) ([]*types.Activity, error) {
	whereClauses := []string{}
	args := []interface{}{}

	if filter.Type != nil {
		whereClauses = append(whereClauses, "type = ?")
		args = append(args, *filter.Type)
	}
	if filter.LocationID != nil {
		whereClauses = append(whereClauses, "location_id = ?")
		args = append(args, *filter.LocationID)
	}
	if filter.BedID != nil {
		whereClauses = append(whereClauses, "bed_id = ?")
		args = append(args, *filter.BedID)
	}
	if filter.Since != nil {
		whereClauses = append(whereClauses, "performed_at >= ?")
		args = append(args, *filter.Since)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	limitSQL := ""
	if filter.Limit > 0 {
		limitSQL = fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
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
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func scanActivity(rows *sql.Rows) (*types.Activity, error) {
	var a types.Activity
	var bedID sql.NullString
	err := rows.Scan(&a.ID, &a.Type, &a.LocationID, &bedID, &a.Material,
		&a.Amount, &a.PerformedAt, &a.PerformedBy, &a.Source, &a.Notes, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if bedID.Valid {
		a.BedID = bedID.String
	}
	return &a, nil
}

// CreateSchedule creates a recurring activity schedule. NextFireAt must
// already be computed from the cron expression by the caller.
func (s *SQLiteStorage) CreateSchedule(ctx context.Context, schedule *types.ActivitySchedule) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_schedules (
			id, name, type, location_id, bed_id, material, amount,
			cron_expr, enabled, next_fire_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

func scanSchedule(rows *sql.Rows) (*types.ActivitySchedule, error) {
	var sched types.ActivitySchedule
	var bedID sql.NullString
	var lastFiredAt sql.NullTime
	err := rows.Scan(&sched.ID, &sched.Name, &sched.Type, &sched.LocationID,
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
func (s *SQLiteStorage) ListSchedules(ctx context.Context) ([]*types.ActivitySchedule, error) {
	rows, err := s.db.QueryContext(ctx,
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
func (s *SQLiteStorage) DueSchedules(ctx context.Context, now time.Time) ([]*types.ActivitySchedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM activity_schedules
		WHERE enabled = 1 AND next_fire_at <= ?
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
func (s *SQLiteStorage) MarkScheduleFired(ctx context.Context, id string, firedAt, nextFireAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activity_schedules
		SET last_fired_at = ?, next_fire_at = ?
		WHERE id = ?
	`, firedAt, nextFireAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark schedule fired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("schedule %s: %w", id, storeerr.ErrNotFound)
	}
	return nil
}

// SetScheduleEnabled enables or disables a schedule
func (s *SQLiteStorage) SetScheduleEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activity_schedules SET enabled = ? WHERE id = ?
	`, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("schedule %s: %w", id, storeerr.ErrNotFound)
	}
	return nil
}

// GetStatistics returns aggregate metrics across the farm
func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	stats := &types.Statistics{
		HarvestTotals: make(map[types.HarvestUnit]float64),
	}

	rows, err := s.db.QueryContext(ctx, `
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

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM active_beds`).Scan(&stats.ActiveBeds)
	if err != nil {
		return nil, fmt.Errorf("failed to count active beds: %w", err)
	}

	unitRows, err := s.db.QueryContext(ctx, `
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

	since := time.Now().AddDate(0, 0, -30)
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activities WHERE performed_at >= ?
	`, since).Scan(&stats.RecentActivities)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent activities: %w", err)
	}

	return stats, nil
}
