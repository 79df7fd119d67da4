package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
)

func TestLogAndListActivities(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, nurseryID, _ := seedFarm(t, store, 50)

	irrigation := &types.Activity{
		Type:        types.ActivityIrrigation,
		LocationID:  nurseryID,
		Amount:      "200L",
		PerformedBy: "luis",
		Source:      types.SourceManual,
	}
	if err := store.LogActivity(ctx, irrigation); err != nil {
		t.Fatalf("LogActivity failed: %v", err)
	}

	amendment := &types.Activity{
		Type:       types.ActivitySoilAmendment,
		LocationID: nurseryID,
		Material:   "compost",
		Amount:     "2 wheelbarrows",
		Source:     types.SourceManual,
	}
	if err := store.LogActivity(ctx, amendment); err != nil {
		t.Fatalf("LogActivity failed: %v", err)
	}

	all, err := store.ListActivities(ctx, types.ActivityFilter{})
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(all))
	}

	irrType := types.ActivityIrrigation
	byType, err := store.ListActivities(ctx, types.ActivityFilter{Type: &irrType})
	if err != nil {
		t.Fatalf("ListActivities(type) failed: %v", err)
	}
	if len(byType) != 1 || byType[0].Amount != "200L" {
		t.Errorf("unexpected filtered activities: %+v", byType)
	}

	future := time.Now().Add(time.Hour)
	none, err := store.ListActivities(ctx, types.ActivityFilter{Since: &future})
	if err != nil {
		t.Fatalf("ListActivities(since) failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no activities since future, got %d", len(none))
	}
}

func TestLogActivityRequiresMaterial(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, nurseryID, _ := seedFarm(t, store, 50)

	a := &types.Activity{
		Type:       types.ActivityPestManagement,
		LocationID: nurseryID,
		Source:     types.SourceManual,
	}
	if err := store.LogActivity(ctx, a); err == nil {
		t.Error("expected validation error for pest management without material")
	}
}

func TestScheduleLifecycle(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	_, nurseryID, _ := seedFarm(t, store, 50)

	next := time.Now().Add(-time.Minute)
	sched := &types.ActivitySchedule{
		Name:       "Morning irrigation",
		Type:       types.ActivityIrrigation,
		LocationID: nurseryID,
		CronExpr:   "0 6 * * *",
		Enabled:    true,
		NextFireAt: next,
	}
	if err := store.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	schedules, err := store.ListSchedules(ctx)
	if err != nil {
		t.Fatalf("ListSchedules failed: %v", err)
	}
	if len(schedules) != 1 || schedules[0].Name != "Morning irrigation" {
		t.Fatalf("unexpected schedules: %+v", schedules)
	}

	due, err := store.DueSchedules(ctx, time.Now())
	if err != nil {
		t.Fatalf("DueSchedules failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due schedule, got %d", len(due))
	}

	// Firing advances next_fire_at past now
	fired := time.Now()
	nextFire := fired.Add(24 * time.Hour)
	if err := store.MarkScheduleFired(ctx, sched.ID, fired, nextFire); err != nil {
		t.Fatalf("MarkScheduleFired failed: %v", err)
	}
	due, err = store.DueSchedules(ctx, time.Now())
	if err != nil {
		t.Fatalf("DueSchedules failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("expected no due schedules after firing, got %d", len(due))
	}

	schedules, _ = store.ListSchedules(ctx)
	if schedules[0].LastFiredAt == nil {
		t.Error("expected last_fired_at to be set")
	}

	// Disabled schedules never come due
	if err := store.SetScheduleEnabled(ctx, sched.ID, false); err != nil {
		t.Fatalf("SetScheduleEnabled failed: %v", err)
	}
	due, _ = store.DueSchedules(ctx, nextFire.Add(time.Hour))
	if len(due) != 0 {
		t.Errorf("expected no due schedules while disabled, got %d", len(due))
	}

	err = store.SetScheduleEnabled(ctx, "nonexistent", true)
	if !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetStatistics(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	cropID, nurseryID, bedID := seedFarm(t, store, 50)

	nursed := &types.Planting{CropID: cropID, NurseryLocationID: nurseryID, Quantity: 10}
	if err := store.CreateNurseryPlanting(ctx, nursed, "tester"); err != nil {
		t.Fatalf("CreateNurseryPlanting failed: %v", err)
	}
	seeded := &types.Planting{CropID: cropID, BedID: bedID, Quantity: 20}
	if err := store.DirectSeedPlanting(ctx, seeded, "tester"); err != nil {
		t.Fatalf("DirectSeedPlanting failed: %v", err)
	}
	h := &types.HarvestRecord{PlantingID: seeded.ID, Quantity: 4.5, Unit: types.UnitKilogram}
	if err := store.HarvestPlanting(ctx, h, "tester"); err != nil {
		t.Fatalf("HarvestPlanting failed: %v", err)
	}
	if err := store.LogActivity(ctx, &types.Activity{
		Type: types.ActivityIrrigation, LocationID: nurseryID, Source: types.SourceManual,
	}); err != nil {
		t.Fatalf("LogActivity failed: %v", err)
	}

	stats, err := store.GetStatistics(ctx)
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.TotalPlantings != 2 {
		t.Errorf("expected 2 total plantings, got %d", stats.TotalPlantings)
	}
	if stats.NurseryPlantings != 1 || stats.HarvestedPlantings != 1 {
		t.Errorf("unexpected stage counts: %+v", stats)
	}
	if stats.ActiveBeds != 1 {
		t.Errorf("expected 1 active bed, got %d", stats.ActiveBeds)
	}
	if stats.HarvestTotals[types.UnitKilogram] != 4.5 {
		t.Errorf("expected 4.5 kg harvested, got %g", stats.HarvestTotals[types.UnitKilogram])
	}
	if stats.RecentActivities != 1 {
		t.Errorf("expected 1 recent activity, got %d", stats.RecentActivities)
	}
}
