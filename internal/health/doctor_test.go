package health

import (
	"context"
	"testing"
	"time"

	"github.com/tilthlabs/tilth/internal/storage/sqlite"
	"github.com/tilthlabs/tilth/internal/types"
)

func setupStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunAllHealthy(t *testing.T) {
	store := setupStore(t)
	results := Run(context.Background(), store)

	if len(results) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(results))
	}
	if !Healthy(results) {
		t.Errorf("expected healthy results, got %+v", results)
	}
	for _, r := range results {
		if r.Status != StatusOK {
			t.Errorf("check %s: expected ok, got %s (%s)", r.Name, r.Status, r.Detail)
		}
	}
}

func TestStaleNurseryWarning(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	crop := &types.Crop{Name: "Leek", Species: "Allium porrum"}
	if err := store.CreateCrop(ctx, crop); err != nil {
		t.Fatalf("CreateCrop failed: %v", err)
	}
	nursery := &types.Location{Name: "Prop House", Kind: types.LocationNursery}
	if err := store.CreateLocation(ctx, nursery); err != nil {
		t.Fatalf("CreateLocation failed: %v", err)
	}

	p := &types.Planting{
		CropID:            crop.ID,
		NurseryLocationID: nursery.ID,
		Quantity:          10,
		SownAt:            time.Now().Add(-90 * 24 * time.Hour),
	}
	if err := store.CreateNurseryPlanting(ctx, p, "tester"); err != nil {
		t.Fatalf("CreateNurseryPlanting failed: %v", err)
	}

	results := Run(ctx, store)
	var nurseryResult *Result
	for i := range results {
		if results[i].Name == "nursery" {
			nurseryResult = &results[i]
		}
	}
	if nurseryResult == nil {
		t.Fatal("missing nursery check")
	}
	if nurseryResult.Status != StatusWarn {
		t.Errorf("expected warn for stale nursery planting, got %s", nurseryResult.Status)
	}
	// Warnings do not make the run unhealthy
	if !Healthy(results) {
		t.Error("warnings should not fail the doctor run")
	}
}
