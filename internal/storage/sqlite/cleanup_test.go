package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/tilthlabs/tilth/internal/types"
)

// insertAgedEvent writes an event with a backdated created_at so
// retention tests can exercise the age cutoffs.
func insertAgedEvent(t *testing.T, store *SQLiteStorage, plantingID string, eventType types.EventType, age time.Duration) {
	t.Helper()
	_, err := store.db.Exec(`
		INSERT INTO planting_events (planting_id, event_type, actor, created_at)
		VALUES (?, ?, 'tester', ?)
	`, plantingID, eventType, time.Now().Add(-age))
	if err != nil {
		t.Fatalf("failed to insert aged event: %v", err)
	}
}

func TestCleanupEventsByAge(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	cropID, nurseryID, _ := seedFarm(t, store, 50)

	p := &types.Planting{CropID: cropID, NurseryLocationID: nurseryID, Quantity: 10}
	if err := store.CreateNurseryPlanting(ctx, p, "tester"); err != nil {
		t.Fatalf("CreateNurseryPlanting failed: %v", err)
	}

	day := 24 * time.Hour
	// Old note: past the standard window, deletable
	insertAgedEvent(t, store, p.ID, types.EventNote, 400*day)
	// Old lifecycle event: past standard but inside the critical window, kept
	insertAgedEvent(t, store, p.ID, types.EventHarvested, 400*day)
	// Ancient lifecycle event: past the critical window, deletable
	insertAgedEvent(t, store, p.ID, types.EventTransplanted, 2000*day)
	// Recent note: kept
	insertAgedEvent(t, store, p.ID, types.EventNote, 10*day)

	deleted, err := store.CleanupEventsByAge(ctx, 365, 1825, 100)
	if err != nil {
		t.Fatalf("CleanupEventsByAge failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted events, got %d", deleted)
	}

	events, err := store.GetPlantingEvents(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("GetPlantingEvents failed: %v", err)
	}
	// Survivors: the created event, the old harvested, the recent note
	if len(events) != 3 {
		t.Fatalf("expected 3 surviving events, got %d", len(events))
	}
	for _, e := range events {
		if e.EventType == types.EventTransplanted {
			t.Error("ancient transplanted event should have been deleted")
		}
	}
}

func TestCleanupEventsByAgeBatching(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	cropID, nurseryID, _ := seedFarm(t, store, 50)

	p := &types.Planting{CropID: cropID, NurseryLocationID: nurseryID, Quantity: 10}
	if err := store.CreateNurseryPlanting(ctx, p, "tester"); err != nil {
		t.Fatalf("CreateNurseryPlanting failed: %v", err)
	}

	for i := 0; i < 25; i++ {
		insertAgedEvent(t, store, p.ID, types.EventNote, 400*24*time.Hour)
	}

	// Batch size smaller than the backlog: all deleted across batches
	deleted, err := store.CleanupEventsByAge(ctx, 365, 1825, 10)
	if err != nil {
		t.Fatalf("CleanupEventsByAge failed: %v", err)
	}
	if deleted != 25 {
		t.Errorf("expected 25 deleted events, got %d", deleted)
	}
}

func TestCleanupEventsByAgeValidation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.CleanupEventsByAge(ctx, 0, 100, 10); err == nil {
		t.Error("expected error for zero retentionDays")
	}
	if _, err := store.CleanupEventsByAge(ctx, 100, 50, 10); err == nil {
		t.Error("expected error when criticalRetentionDays < retentionDays")
	}
}

func TestVacuumDatabase(t *testing.T) {
	store := setupTestDB(t)
	if err := store.VacuumDatabase(context.Background()); err != nil {
		t.Fatalf("VacuumDatabase failed: %v", err)
	}
}
