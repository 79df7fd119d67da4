package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tilthlabs/tilth/internal/types"
)

// CleanupEventsByAge deletes old planting events in batches. Lifecycle
// events (created, transplanted, harvested, removed and so on) are kept
// for criticalRetentionDays; notes and field edits only for
// retentionDays. Returns the number of events deleted.
func (s *SQLiteStorage) CleanupEventsByAge(ctx context.Context, retentionDays, criticalRetentionDays, batchSize int) (int, error) {
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

	now := time.Now()
	cutoff := now.AddDate(0, 0, -retentionDays)
	criticalCutoff := now.AddDate(0, 0, -criticalRetentionDays)

	placeholders := make([]string, len(types.CriticalEventTypes))
	for i := range types.CriticalEventTypes {
		placeholders[i] = "?"
	}

	query := fmt.Sprintf(`
		DELETE FROM planting_events
		WHERE id IN (
			SELECT id FROM planting_events
			WHERE (created_at < ? AND event_type NOT IN (%[1]s))
			   OR (created_at < ? AND event_type IN (%[1]s))
			LIMIT ?
		)
	`, strings.Join(placeholders, ", "))

	// The critical IN-list appears twice in the query text
	fullArgs := make([]interface{}, 0, 2*len(types.CriticalEventTypes)+3)
	fullArgs = append(fullArgs, cutoff)
	for _, t := range types.CriticalEventTypes {
		fullArgs = append(fullArgs, t)
	}
	fullArgs = append(fullArgs, criticalCutoff)
	for _, t := range types.CriticalEventTypes {
		fullArgs = append(fullArgs, t)
	}
	fullArgs = append(fullArgs, batchSize)

	total := 0
	for {
		res, err := s.db.ExecContext(ctx, query, fullArgs...)
		if err != nil {
			return total, fmt.Errorf("failed to delete old events: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to check delete result: %w", err)
		}
		total += int(n)
		if int(n) < batchSize {
			return total, nil
		}
	}
}

// VacuumDatabase reclaims space after large deletions. VACUUM cannot
// run inside a transaction.
func (s *SQLiteStorage) VacuumDatabase(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
