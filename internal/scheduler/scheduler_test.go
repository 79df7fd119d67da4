package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/tilthlabs/tilth/internal/cache"
	"github.com/tilthlabs/tilth/internal/farm"
	"github.com/tilthlabs/tilth/internal/storage/sqlite"
	"github.com/tilthlabs/tilth/internal/types"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *farm.Service {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return farm.New(store, cache.New(time.Minute), zap.NewNop())
}

func TestTickFiresDueSchedules(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	nursery := &types.Location{Name: "Prop House", Kind: types.LocationNursery}
	if err := svc.CreateLocation(ctx, nursery); err != nil {
		t.Fatalf("CreateLocation failed: %v", err)
	}

	sched := &types.ActivitySchedule{
		Name:       "Morning irrigation",
		Type:       types.ActivityIrrigation,
		LocationID: nursery.ID,
		CronExpr:   "0 6 * * *",
		Enabled:    true,
	}
	if err := svc.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	// Backdate the fire time so the next tick sees it as due
	past := time.Now().Add(-time.Hour)
	if err := svc.Store().MarkScheduleFired(ctx, sched.ID, past.Add(-24*time.Hour), past); err != nil {
		t.Fatalf("MarkScheduleFired failed: %v", err)
	}

	s := New(Config{Service: svc, Logger: zap.NewNop()})
	s.tick(ctx)

	activities, err := svc.ListActivities(ctx, types.ActivityFilter{})
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("expected 1 activity after tick, got %d", len(activities))
	}
	if activities[0].Source != types.SourceSchedule {
		t.Errorf("expected source schedule, got %s", activities[0].Source)
	}

	// The schedule advanced, so a second tick fires nothing
	s.tick(ctx)
	activities, _ = svc.ListActivities(ctx, types.ActivityFilter{})
	if len(activities) != 1 {
		t.Errorf("expected no refire, got %d activities", len(activities))
	}
}

func TestStartStop(t *testing.T) {
	svc := newTestService(t)

	s := New(Config{Service: svc, Logger: zap.NewNop(), Interval: 10 * time.Millisecond})
	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}
