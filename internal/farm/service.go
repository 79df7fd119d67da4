// Package farm is the service layer between the transport surfaces
// (HTTP API, CLI) and the storage backends. It owns input validation,
// the friendly pre-checks ahead of lifecycle writes, cache
// revalidation, and schedule fire-time computation.
package farm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tilthlabs/tilth/internal/cache"
	"github.com/tilthlabs/tilth/internal/storage"
	"github.com/tilthlabs/tilth/internal/storage/storeerr"
	"github.com/tilthlabs/tilth/internal/types"
	"go.uber.org/zap"
)

// Cache tags revalidated by mutating operations
const (
	TagCrops      = "crops"
	TagBeds       = "beds"
	TagPlantings  = "plantings"
	TagActivities = "activities"
)

// PlantingTag returns the entry tag for one planting's detail views
func PlantingTag(id string) string {
	return "planting:" + id
}

// Service coordinates farm operations over a storage backend
type Service struct {
	store  storage.Storage
	cache  *cache.Cache
	log    *zap.Logger
	parser cron.Parser
}

// New creates a farm service. The cache may be nil when no caching
// surface is wired (CLI usage).
func New(store storage.Storage, c *cache.Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  store,
		cache:  c,
		log:    log,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// Store exposes the underlying storage for read-only callers
func (s *Service) Store() storage.Storage {
	return s.store
}

func (s *Service) revalidate(tags ...string) {
	if s.cache != nil {
		s.cache.Revalidate(tags...)
	}
}

// CreateCrop registers a new crop variety
func (s *Service) CreateCrop(ctx context.Context, crop *types.Crop) error {
	if err := s.store.CreateCrop(ctx, crop); err != nil {
		return wrap("create crop", err)
	}
	s.revalidate(TagCrops)
	s.log.Info("crop created", zap.String("id", crop.ID), zap.String("name", crop.Name))
	return nil
}

// GetCrop retrieves a crop. Returns ErrNotFound if missing.
func (s *Service) GetCrop(ctx context.Context, id string) (*types.Crop, error) {
	crop, err := s.store.GetCrop(ctx, id)
	if err != nil {
		return nil, wrap("get crop", err)
	}
	if crop == nil {
		return nil, fmt.Errorf("crop %s: %w", id, storeerr.ErrNotFound)
	}
	return crop, nil
}

// ListCrops returns all crop varieties
func (s *Service) ListCrops(ctx context.Context) ([]*types.Crop, error) {
	return s.store.ListCrops(ctx)
}

// UpdateCrop updates a crop variety
func (s *Service) UpdateCrop(ctx context.Context, crop *types.Crop) error {
	if err := s.store.UpdateCrop(ctx, crop); err != nil {
		return wrap("update crop", err)
	}
	s.revalidate(TagCrops)
	return nil
}

// CreateLocation registers a new farm location
func (s *Service) CreateLocation(ctx context.Context, loc *types.Location) error {
	if err := s.store.CreateLocation(ctx, loc); err != nil {
		return wrap("create location", err)
	}
	s.revalidate(TagBeds)
	return nil
}

// ListLocations returns all locations
func (s *Service) ListLocations(ctx context.Context) ([]*types.Location, error) {
	return s.store.ListLocations(ctx)
}

// CreatePlot registers a plot within a location
func (s *Service) CreatePlot(ctx context.Context, plot *types.Plot) error {
	loc, err := s.store.GetLocation(ctx, plot.LocationID)
	if err != nil {
		return wrap("create plot", err)
	}
	if loc == nil {
		return fmt.Errorf("location %s: %w", plot.LocationID, storeerr.ErrNotFound)
	}
	if err := s.store.CreatePlot(ctx, plot); err != nil {
		return wrap("create plot", err)
	}
	s.revalidate(TagBeds)
	return nil
}

// ListPlots returns plots, optionally scoped to a location
func (s *Service) ListPlots(ctx context.Context, locationID string) ([]*types.Plot, error) {
	return s.store.ListPlots(ctx, locationID)
}

// CreateBed registers a bed within a plot
func (s *Service) CreateBed(ctx context.Context, bed *types.Bed) error {
	plot, err := s.store.GetPlot(ctx, bed.PlotID)
	if err != nil {
		return wrap("create bed", err)
	}
	if plot == nil {
		return fmt.Errorf("plot %s: %w", bed.PlotID, storeerr.ErrNotFound)
	}
	if err := s.store.CreateBed(ctx, bed); err != nil {
		return wrap("create bed", err)
	}
	s.revalidate(TagBeds)
	return nil
}

// GetBed retrieves a bed. Returns ErrNotFound if missing.
func (s *Service) GetBed(ctx context.Context, id string) (*types.Bed, error) {
	bed, err := s.store.GetBed(ctx, id)
	if err != nil {
		return nil, wrap("get bed", err)
	}
	if bed == nil {
		return nil, fmt.Errorf("bed %s: %w", id, storeerr.ErrNotFound)
	}
	return bed, nil
}

// ListBeds returns beds, optionally scoped to a plot
func (s *Service) ListBeds(ctx context.Context, plotID string) ([]*types.Bed, error) {
	return s.store.ListBeds(ctx, plotID)
}

// DeleteBed deletes an empty bed
func (s *Service) DeleteBed(ctx context.Context, id string) error {
	if err := s.store.DeleteBed(ctx, id); err != nil {
		return wrap("delete bed", err)
	}
	s.revalidate(TagBeds)
	return nil
}

// checkCrop verifies the crop exists before a planting write so the
// caller gets a not-found error rather than a constraint failure
func (s *Service) checkCrop(ctx context.Context, cropID string) error {
	crop, err := s.store.GetCrop(ctx, cropID)
	if err != nil {
		return wrap("check crop", err)
	}
	if crop == nil {
		return fmt.Errorf("crop %s: %w", cropID, storeerr.ErrNotFound)
	}
	return nil
}

// SowNursery starts a planting in a nursery location
func (s *Service) SowNursery(ctx context.Context, planting *types.Planting, actor string) error {
	if err := s.checkCrop(ctx, planting.CropID); err != nil {
		return err
	}
	if err := s.store.CreateNurseryPlanting(ctx, planting, actor); err != nil {
		return wrap("sow nursery planting", err)
	}
	s.revalidate(TagPlantings)
	s.log.Info("nursery planting created",
		zap.String("id", planting.ID),
		zap.String("crop_id", planting.CropID),
		zap.Int("quantity", planting.Quantity))
	return nil
}

// DirectSeed starts a planting directly in a bed. The duplicate and
// capacity pre-checks produce friendly errors before the write; the
// backend enforces the same rules inside the transaction.
func (s *Service) DirectSeed(ctx context.Context, planting *types.Planting, actor string) error {
	if err := s.checkCrop(ctx, planting.CropID); err != nil {
		return err
	}
	if err := s.checkBed(ctx, planting.CropID, planting.BedID, planting.Quantity); err != nil {
		return err
	}
	if err := s.store.DirectSeedPlanting(ctx, planting, actor); err != nil {
		return wrap("direct seed planting", err)
	}
	s.revalidate(TagPlantings, TagBeds)
	s.log.Info("planting direct seeded",
		zap.String("id", planting.ID),
		zap.String("crop_id", planting.CropID),
		zap.String("bed_id", planting.BedID))
	return nil
}

// Transplant moves a nursery planting into a bed
func (s *Service) Transplant(ctx context.Context, id, bedID string, when time.Time, actor string) error {
	planting, err := s.GetPlanting(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkBed(ctx, planting.CropID, bedID, planting.Quantity); err != nil {
		return err
	}
	if err := s.store.TransplantPlanting(ctx, id, bedID, when, actor); err != nil {
		return wrap("transplant planting", err)
	}
	s.revalidate(TagPlantings, TagBeds, PlantingTag(id))
	s.log.Info("planting transplanted", zap.String("id", id), zap.String("bed_id", bedID))
	return nil
}

// Harvest records a harvest from a planting
func (s *Service) Harvest(ctx context.Context, harvest *types.HarvestRecord, actor string) error {
	if err := s.store.HarvestPlanting(ctx, harvest, actor); err != nil {
		return wrap("harvest planting", err)
	}
	s.revalidate(TagPlantings, PlantingTag(harvest.PlantingID))
	s.log.Info("harvest recorded",
		zap.String("planting_id", harvest.PlantingID),
		zap.Float64("quantity", harvest.Quantity),
		zap.String("unit", string(harvest.Unit)))
	return nil
}

// Remove ends a planting with a reason, freeing its bed slot
func (s *Service) Remove(ctx context.Context, id, reason string, when time.Time, actor string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("removal reason is required")
	}
	if err := s.store.RemovePlanting(ctx, id, reason, when, actor); err != nil {
		return wrap("remove planting", err)
	}
	s.revalidate(TagPlantings, TagBeds, PlantingTag(id))
	s.log.Info("planting removed", zap.String("id", id), zap.String("reason", reason))
	return nil
}

// checkBed runs the friendly pre-checks for planting into a bed
func (s *Service) checkBed(ctx context.Context, cropID, bedID string, quantity int) error {
	bed, err := s.store.GetBed(ctx, bedID)
	if err != nil {
		return wrap("check bed", err)
	}
	if bed == nil {
		return fmt.Errorf("bed %s: %w", bedID, storeerr.ErrNotFound)
	}

	existing, err := s.store.FindActivePlanting(ctx, cropID, bedID)
	if err != nil {
		return wrap("check bed", err)
	}
	if existing != nil {
		return fmt.Errorf("planting %s already grows this crop in bed %s: %w",
			existing.ID, bed.Name, storeerr.ErrDuplicatePlanting)
	}

	used, err := s.store.BedUsage(ctx, bedID)
	if err != nil {
		return wrap("check bed", err)
	}
	if used+quantity > bed.Capacity {
		return fmt.Errorf("bed %s holds %d of %d, cannot add %d: %w",
			bed.Name, used, bed.Capacity, quantity, storeerr.ErrBedCapacity)
	}
	return nil
}

// GetPlanting retrieves a planting. Returns ErrNotFound if missing.
func (s *Service) GetPlanting(ctx context.Context, id string) (*types.Planting, error) {
	planting, err := s.store.GetPlanting(ctx, id)
	if err != nil {
		return nil, wrap("get planting", err)
	}
	if planting == nil {
		return nil, fmt.Errorf("planting %s: %w", id, storeerr.ErrNotFound)
	}
	return planting, nil
}

// ListPlantings finds plantings matching the filter
func (s *Service) ListPlantings(ctx context.Context, filter types.PlantingFilter) ([]*types.Planting, error) {
	return s.store.ListPlantings(ctx, filter)
}

// AddNote appends a free-form note to a planting's audit trail
func (s *Service) AddNote(ctx context.Context, id, actor, note string) error {
	if strings.TrimSpace(note) == "" {
		return fmt.Errorf("note text is required")
	}
	if err := s.store.AddPlantingNote(ctx, id, actor, note); err != nil {
		return wrap("add note", err)
	}
	s.revalidate(PlantingTag(id))
	return nil
}

// GetPlantingEvents returns a planting's audit trail
func (s *Service) GetPlantingEvents(ctx context.Context, id string, limit int) ([]*types.PlantingEvent, error) {
	return s.store.GetPlantingEvents(ctx, id, limit)
}

// GetHarvests returns a planting's harvest records
func (s *Service) GetHarvests(ctx context.Context, plantingID string) ([]*types.HarvestRecord, error) {
	return s.store.GetHarvests(ctx, plantingID)
}

// LogActivity records a manual or scheduled farm activity
func (s *Service) LogActivity(ctx context.Context, activity *types.Activity) error {
	if activity.Source == "" {
		activity.Source = types.SourceManual
	}
	loc, err := s.store.GetLocation(ctx, activity.LocationID)
	if err != nil {
		return wrap("log activity", err)
	}
	if loc == nil {
		return fmt.Errorf("location %s: %w", activity.LocationID, storeerr.ErrNotFound)
	}
	if err := s.store.LogActivity(ctx, activity); err != nil {
		return wrap("log activity", err)
	}
	s.revalidate(TagActivities)
	s.log.Info("activity logged",
		zap.String("id", activity.ID),
		zap.String("type", string(activity.Type)),
		zap.String("source", string(activity.Source)))
	return nil
}

// ListActivities finds activities matching the filter
func (s *Service) ListActivities(ctx context.Context, filter types.ActivityFilter) ([]*types.Activity, error) {
	return s.store.ListActivities(ctx, filter)
}

// CreateSchedule registers a recurring activity. The cron expression is
// parsed here and the first fire time stored with the schedule.
func (s *Service) CreateSchedule(ctx context.Context, schedule *types.ActivitySchedule) error {
	sched, err := s.parser.Parse(schedule.CronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule.CronExpr, err)
	}
	schedule.NextFireAt = sched.Next(time.Now())

	loc, err := s.store.GetLocation(ctx, schedule.LocationID)
	if err != nil {
		return wrap("create schedule", err)
	}
	if loc == nil {
		return fmt.Errorf("location %s: %w", schedule.LocationID, storeerr.ErrNotFound)
	}

	if err := s.store.CreateSchedule(ctx, schedule); err != nil {
		return wrap("create schedule", err)
	}
	s.log.Info("schedule created",
		zap.String("id", schedule.ID),
		zap.String("name", schedule.Name),
		zap.Time("next_fire_at", schedule.NextFireAt))
	return nil
}

// ListSchedules returns all activity schedules
func (s *Service) ListSchedules(ctx context.Context) ([]*types.ActivitySchedule, error) {
	return s.store.ListSchedules(ctx)
}

// SetScheduleEnabled enables or disables a schedule
func (s *Service) SetScheduleEnabled(ctx context.Context, id string, enabled bool) error {
	if err := s.store.SetScheduleEnabled(ctx, id, enabled); err != nil {
		return wrap("set schedule enabled", err)
	}
	return nil
}

// FireSchedule logs the schedule's activity and advances its next fire
// time. Called by the scheduler when a schedule comes due.
func (s *Service) FireSchedule(ctx context.Context, schedule *types.ActivitySchedule, now time.Time) error {
	activity := &types.Activity{
		Type:        schedule.Type,
		LocationID:  schedule.LocationID,
		BedID:       schedule.BedID,
		Material:    schedule.Material,
		Amount:      schedule.Amount,
		PerformedAt: now,
		PerformedBy: schedule.Name,
		Source:      types.SourceSchedule,
	}
	if err := s.store.LogActivity(ctx, activity); err != nil {
		return wrap("fire schedule", err)
	}

	sched, err := s.parser.Parse(schedule.CronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule.CronExpr, err)
	}
	next := sched.Next(now)

	if err := s.store.MarkScheduleFired(ctx, schedule.ID, now, next); err != nil {
		return wrap("fire schedule", err)
	}
	s.revalidate(TagActivities)
	s.log.Info("schedule fired",
		zap.String("id", schedule.ID),
		zap.String("name", schedule.Name),
		zap.Time("next_fire_at", next))
	return nil
}

// Statistics returns aggregate metrics across the farm
func (s *Service) Statistics(ctx context.Context) (*types.Statistics, error) {
	return s.store.GetStatistics(ctx)
}

// CleanupEvents prunes the planting event log per the retention windows
func (s *Service) CleanupEvents(ctx context.Context, retentionDays, criticalRetentionDays, batchSize int, vacuum bool) (int, error) {
	deleted, err := s.store.CleanupEventsByAge(ctx, retentionDays, criticalRetentionDays, batchSize)
	if err != nil {
		return deleted, wrap("cleanup events", err)
	}
	if deleted > 0 {
		s.log.Info("event log pruned", zap.Int("deleted", deleted))
	}
	if vacuum && deleted > 0 {
		if err := s.store.VacuumDatabase(ctx); err != nil {
			return deleted, wrap("vacuum", err)
		}
	}
	return deleted, nil
}
