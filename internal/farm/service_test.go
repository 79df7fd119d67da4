package farm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tilthlabs/tilth/internal/cache"
	"github.com/tilthlabs/tilth/internal/storage/sqlite"
	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *cache.Cache) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := cache.New(time.Minute)
	return New(store, c, zap.NewNop()), c
}

func seedService(t *testing.T, svc *Service, capacity int) (cropID, nurseryID, bedID string) {
	t.Helper()
	ctx := context.Background()

	crop := &types.Crop{Name: "Sungold Tomato", Species: "Solanum lycopersicum", DaysToMaturity: 65}
	require.NoError(t, svc.CreateCrop(ctx, crop))

	nursery := &types.Location{Name: "Prop House", Kind: types.LocationNursery}
	require.NoError(t, svc.CreateLocation(ctx, nursery))

	field := &types.Location{Name: "West Field", Kind: types.LocationField}
	require.NoError(t, svc.CreateLocation(ctx, field))

	plot := &types.Plot{LocationID: field.ID, Name: "Plot B"}
	require.NoError(t, svc.CreatePlot(ctx, plot))

	bed := &types.Bed{PlotID: plot.ID, Name: "B1", Capacity: capacity}
	require.NoError(t, svc.CreateBed(ctx, bed))

	return crop.ID, nursery.ID, bed.ID
}

func TestSowTransplantHarvestRemove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cropID, nurseryID, bedID := seedService(t, svc, 30)

	p := &types.Planting{CropID: cropID, NurseryLocationID: nurseryID, Quantity: 12}
	require.NoError(t, svc.SowNursery(ctx, p, "maria"))
	assert.Equal(t, types.StageNursery, p.Stage)

	require.NoError(t, svc.Transplant(ctx, p.ID, bedID, time.Now(), "maria"))

	h := &types.HarvestRecord{PlantingID: p.ID, Quantity: 2.5, Unit: types.UnitKilogram}
	require.NoError(t, svc.Harvest(ctx, h, "maria"))

	got, err := svc.GetPlanting(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StageHarvested, got.Stage)

	require.NoError(t, svc.Remove(ctx, p.ID, "season over", time.Now(), "maria"))

	events, err := svc.GetPlantingEvents(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestPreChecksProduceTypedErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cropID, _, bedID := seedService(t, svc, 20)

	first := &types.Planting{CropID: cropID, BedID: bedID, Quantity: 15}
	require.NoError(t, svc.DirectSeed(ctx, first, "luis"))

	// Duplicate caught by the pre-check with a friendly message
	dup := &types.Planting{CropID: cropID, BedID: bedID, Quantity: 2}
	err := svc.DirectSeed(ctx, dup, "luis")
	require.ErrorIs(t, err, storeerr.ErrDuplicatePlanting)
	assert.Contains(t, err.Error(), first.ID)

	// Capacity caught by the pre-check, naming the bed
	other := &types.Crop{Name: "Pac Choi", Species: "Brassica rapa"}
	require.NoError(t, svc.CreateCrop(ctx, other))
	over := &types.Planting{CropID: other.ID, BedID: bedID, Quantity: 10}
	err = svc.DirectSeed(ctx, over, "luis")
	require.ErrorIs(t, err, storeerr.ErrBedCapacity)
	assert.Contains(t, err.Error(), "B1")

	// Missing bed
	missing := &types.Planting{CropID: cropID, BedID: "nope", Quantity: 1}
	err = svc.DirectSeed(ctx, missing, "luis")
	require.ErrorIs(t, err, storeerr.ErrNotFound)

	// Missing crop, on both entry points
	badCrop := &types.Planting{CropID: "nope", BedID: bedID, Quantity: 1}
	err = svc.DirectSeed(ctx, badCrop, "luis")
	require.ErrorIs(t, err, storeerr.ErrNotFound)
	assert.Contains(t, err.Error(), "nope")

	badSow := &types.Planting{CropID: "nope", NurseryLocationID: "irrelevant", Quantity: 1}
	err = svc.SowNursery(ctx, badSow, "luis")
	require.ErrorIs(t, err, storeerr.ErrNotFound)
}

func TestRemoveRequiresReason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cropID, nurseryID, _ := seedService(t, svc, 20)

	p := &types.Planting{CropID: cropID, NurseryLocationID: nurseryID, Quantity: 5}
	require.NoError(t, svc.SowNursery(ctx, p, "maria"))

	err := svc.Remove(ctx, p.ID, "  ", time.Now(), "maria")
	assert.Error(t, err)
}

func TestMutationsRevalidateCache(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()
	cropID, nurseryID, _ := seedService(t, svc, 20)

	c.Set("/api/plantings", []byte("stale"), TagPlantings)
	c.Set("/api/crops", []byte("fresh"), TagCrops)

	p := &types.Planting{CropID: cropID, NurseryLocationID: nurseryID, Quantity: 5}
	require.NoError(t, svc.SowNursery(ctx, p, "maria"))

	_, ok := c.Get("/api/plantings")
	assert.False(t, ok, "plantings entries should be revalidated")
	_, ok = c.Get("/api/crops")
	assert.True(t, ok, "crops entries should survive a planting write")
}

func TestCreateScheduleComputesNextFire(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, nurseryID, _ := seedService(t, svc, 20)

	sched := &types.ActivitySchedule{
		Name:       "Morning irrigation",
		Type:       types.ActivityIrrigation,
		LocationID: nurseryID,
		CronExpr:   "0 6 * * *",
		Enabled:    true,
	}
	require.NoError(t, svc.CreateSchedule(ctx, sched))
	assert.False(t, sched.NextFireAt.IsZero())
	assert.True(t, sched.NextFireAt.After(time.Now()))

	bad := &types.ActivitySchedule{
		Name:       "Broken",
		Type:       types.ActivityIrrigation,
		LocationID: nurseryID,
		CronExpr:   "not a cron",
	}
	err := svc.CreateSchedule(ctx, bad)
	assert.Error(t, err)
}

func TestFireSchedule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, nurseryID, _ := seedService(t, svc, 20)

	sched := &types.ActivitySchedule{
		Name:       "Weekly compost",
		Type:       types.ActivitySoilAmendment,
		LocationID: nurseryID,
		Material:   "compost",
		CronExpr:   "0 7 * * 1",
		Enabled:    true,
	}
	require.NoError(t, svc.CreateSchedule(ctx, sched))

	now := time.Now()
	require.NoError(t, svc.FireSchedule(ctx, sched, now))

	activities, err := svc.ListActivities(ctx, types.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, types.SourceSchedule, activities[0].Source)
	assert.Equal(t, "compost", activities[0].Material)

	schedules, err := svc.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	require.NotNil(t, schedules[0].LastFiredAt)
	assert.True(t, schedules[0].NextFireAt.After(now))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "not found", UserMessage(storeerr.ErrNotFound))
	assert.Contains(t, UserMessage(storeerr.ErrBedCapacity), "room")
	assert.True(t, IsUserError(storeerr.ErrDuplicatePlanting))
	assert.False(t, IsUserError(context.DeadlineExceeded))
}
