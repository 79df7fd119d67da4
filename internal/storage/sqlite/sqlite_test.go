package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// seedFarm creates a crop, a nursery, and a field with one plot and one
// bed of the given capacity. Returns crop, nursery location, and bed IDs.
func seedFarm(t *testing.T, store *SQLiteStorage, capacity int) (cropID, nurseryID, bedID string) {
	t.Helper()
	ctx := context.Background()

	crop := &types.Crop{Name: "Cherry Belle Radish", Species: "Raphanus sativus", DaysToMaturity: 25}
	if err := store.CreateCrop(ctx, crop); err != nil {
		t.Fatalf("failed to create crop: %v", err)
	}

	nursery := &types.Location{Name: "Prop House", Kind: types.LocationNursery}
	if err := store.CreateLocation(ctx, nursery); err != nil {
		t.Fatalf("failed to create nursery: %v", err)
	}

	field := &types.Location{Name: "North Field", Kind: types.LocationField}
	if err := store.CreateLocation(ctx, field); err != nil {
		t.Fatalf("failed to create field: %v", err)
	}

	plot := &types.Plot{LocationID: field.ID, Name: "Plot A"}
	if err := store.CreatePlot(ctx, plot); err != nil {
		t.Fatalf("failed to create plot: %v", err)
	}

	bed := &types.Bed{PlotID: plot.ID, Name: "A1", Capacity: capacity}
	if err := store.CreateBed(ctx, bed); err != nil {
		t.Fatalf("failed to create bed: %v", err)
	}

	return crop.ID, nursery.ID, bed.ID
}

func TestCreateAndGetCrop(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	crop := &types.Crop{
		Name:           "Genovese Basil",
		Species:        "Ocimum basilicum",
		DaysToMaturity: 60,
		SpacingCM:      25,
	}
	if err := store.CreateCrop(ctx, crop); err != nil {
		t.Fatalf("CreateCrop failed: %v", err)
	}
	if crop.ID == "" {
		t.Fatal("expected crop ID to be generated")
	}

	got, err := store.GetCrop(ctx, crop.ID)
	if err != nil {
		t.Fatalf("GetCrop failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected crop, got nil")
	}
	if got.Name != crop.Name || got.DaysToMaturity != 60 {
		t.Errorf("crop mismatch: got %+v", got)
	}
}

func TestGetCropNotFound(t *testing.T) {
	store := setupTestDB(t)

	got, err := store.GetCrop(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetCrop failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing crop, got %+v", got)
	}
}

func TestUpdateCrop(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	crop := &types.Crop{Name: "Basil", Species: "Ocimum basilicum"}
	if err := store.CreateCrop(ctx, crop); err != nil {
		t.Fatalf("CreateCrop failed: %v", err)
	}

	crop.DaysToMaturity = 65
	if err := store.UpdateCrop(ctx, crop); err != nil {
		t.Fatalf("UpdateCrop failed: %v", err)
	}

	got, _ := store.GetCrop(ctx, crop.ID)
	if got.DaysToMaturity != 65 {
		t.Errorf("expected days_to_maturity 65, got %d", got.DaysToMaturity)
	}

	missing := &types.Crop{ID: "nope", Name: "Ghost", Species: "None"}
	err := store.UpdateCrop(ctx, missing)
	if !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListCrops(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"Zucchini", "Arugula", "Kale"} {
		crop := &types.Crop{Name: name, Species: "test"}
		if err := store.CreateCrop(ctx, crop); err != nil {
			t.Fatalf("CreateCrop failed: %v", err)
		}
	}

	crops, err := store.ListCrops(ctx)
	if err != nil {
		t.Fatalf("ListCrops failed: %v", err)
	}
	if len(crops) != 3 {
		t.Fatalf("expected 3 crops, got %d", len(crops))
	}
	// Ordered by name
	if crops[0].Name != "Arugula" || crops[2].Name != "Zucchini" {
		t.Errorf("unexpected order: %s, %s, %s", crops[0].Name, crops[1].Name, crops[2].Name)
	}
}

func TestLocationPlotBedHierarchy(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	loc := &types.Location{Name: "Greenhouse 1", Kind: types.LocationGreenhouse}
	if err := store.CreateLocation(ctx, loc); err != nil {
		t.Fatalf("CreateLocation failed: %v", err)
	}

	plot := &types.Plot{LocationID: loc.ID, Name: "Bench 1"}
	if err := store.CreatePlot(ctx, plot); err != nil {
		t.Fatalf("CreatePlot failed: %v", err)
	}

	bed := &types.Bed{PlotID: plot.ID, Name: "Tray 1", Capacity: 100}
	if err := store.CreateBed(ctx, bed); err != nil {
		t.Fatalf("CreateBed failed: %v", err)
	}

	plots, err := store.ListPlots(ctx, loc.ID)
	if err != nil {
		t.Fatalf("ListPlots failed: %v", err)
	}
	if len(plots) != 1 || plots[0].Name != "Bench 1" {
		t.Errorf("unexpected plots: %+v", plots)
	}

	beds, err := store.ListBeds(ctx, plot.ID)
	if err != nil {
		t.Fatalf("ListBeds failed: %v", err)
	}
	if len(beds) != 1 || beds[0].Capacity != 100 {
		t.Errorf("unexpected beds: %+v", beds)
	}
}

func TestDeleteBed(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	cropID, _, bedID := seedFarm(t, store, 50)

	// Occupied bed refuses deletion
	planting := &types.Planting{CropID: cropID, BedID: bedID, Quantity: 10}
	if err := store.DirectSeedPlanting(ctx, planting, "tester"); err != nil {
		t.Fatalf("DirectSeedPlanting failed: %v", err)
	}
	err := store.DeleteBed(ctx, bedID)
	if !errors.Is(err, storeerr.ErrBedOccupied) {
		t.Fatalf("expected ErrBedOccupied, got %v", err)
	}

	// Removing the planting frees the bed
	if err := store.RemovePlanting(ctx, planting.ID, "season over", time.Now(), "tester"); err != nil {
		t.Fatalf("RemovePlanting failed: %v", err)
	}
	if err := store.DeleteBed(ctx, bedID); err != nil {
		t.Fatalf("DeleteBed failed: %v", err)
	}

	err = store.DeleteBed(ctx, bedID)
	if !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted bed, got %v", err)
	}

	// The removed planting survives with its bed reference cleared
	got, err := store.GetPlanting(ctx, planting.ID)
	if err != nil {
		t.Fatalf("GetPlanting failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected historical planting to survive bed deletion")
	}
	if got.BedID != "" {
		t.Errorf("expected cleared bed reference, got %q", got.BedID)
	}
	if got.Stage != types.StageRemoved {
		t.Errorf("expected stage removed, got %s", got.Stage)
	}
}

func TestPlantingIDSequence(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	cropID, nurseryID, _ := seedFarm(t, store, 50)

	for i, want := range []string{"pl-1", "pl-2", "pl-3"} {
		p := &types.Planting{CropID: cropID, NurseryLocationID: nurseryID, Quantity: 10 + i}
		if err := store.CreateNurseryPlanting(ctx, p, "tester"); err != nil {
			t.Fatalf("CreateNurseryPlanting failed: %v", err)
		}
		if p.ID != want {
			t.Errorf("expected ID %s, got %s", want, p.ID)
		}
	}
}
