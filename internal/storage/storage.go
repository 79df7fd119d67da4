package storage

import (
	"context"
	"time"

	"github.com/tilthlabs/tilth/internal/config"
	"github.com/tilthlabs/tilth/internal/storage/postgres"
	"github.com/tilthlabs/tilth/internal/storage/sqlite"
	"github.com/tilthlabs/tilth/internal/types"
)

// Storage defines the interface for farm record storage backends.
// Lifecycle operations (nursery sowing, direct seeding, transplanting,
// harvesting, removal) are single transactions that enforce the stage
// state machine and append to the planting event log. On Postgres these
// map onto the fn_* stored functions; on SQLite the same semantics run
// inside immediate-mode transactions.
type Storage interface {
	// Crops
	CreateCrop(ctx context.Context, crop *types.Crop) error
	GetCrop(ctx context.Context, id string) (*types.Crop, error)
	ListCrops(ctx context.Context) ([]*types.Crop, error)
	UpdateCrop(ctx context.Context, crop *types.Crop) error

	// Locations, plots, beds
	CreateLocation(ctx context.Context, loc *types.Location) error
	GetLocation(ctx context.Context, id string) (*types.Location, error)
	ListLocations(ctx context.Context) ([]*types.Location, error)
	CreatePlot(ctx context.Context, plot *types.Plot) error
	GetPlot(ctx context.Context, id string) (*types.Plot, error)
	ListPlots(ctx context.Context, locationID string) ([]*types.Plot, error)
	CreateBed(ctx context.Context, bed *types.Bed) error
	GetBed(ctx context.Context, id string) (*types.Bed, error)
	ListBeds(ctx context.Context, plotID string) ([]*types.Bed, error)
	DeleteBed(ctx context.Context, id string) error

	// Pre-check queries used by the service layer before lifecycle writes
	BedUsage(ctx context.Context, bedID string) (int, error)
	FindActivePlanting(ctx context.Context, cropID, bedID string) (*types.Planting, error)

	// Planting lifecycle (fn_* stored-procedure equivalents)
	CreateNurseryPlanting(ctx context.Context, planting *types.Planting, actor string) error
	DirectSeedPlanting(ctx context.Context, planting *types.Planting, actor string) error
	TransplantPlanting(ctx context.Context, id, bedID string, when time.Time, actor string) error
	HarvestPlanting(ctx context.Context, harvest *types.HarvestRecord, actor string) error
	RemovePlanting(ctx context.Context, id, reason string, when time.Time, actor string) error

	// Planting reads and notes
	GetPlanting(ctx context.Context, id string) (*types.Planting, error)
	ListPlantings(ctx context.Context, filter types.PlantingFilter) ([]*types.Planting, error)
	AddPlantingNote(ctx context.Context, id, actor, note string) error
	GetPlantingEvents(ctx context.Context, id string, limit int) ([]*types.PlantingEvent, error)
	GetHarvests(ctx context.Context, plantingID string) ([]*types.HarvestRecord, error)

	// Activities
	LogActivity(ctx context.Context, activity *types.Activity) error
	ListActivities(ctx context.Context, filter types.ActivityFilter) ([]*types.Activity, error)

	// Activity schedules
	CreateSchedule(ctx context.Context, schedule *types.ActivitySchedule) error
	ListSchedules(ctx context.Context) ([]*types.ActivitySchedule, error)
	DueSchedules(ctx context.Context, now time.Time) ([]*types.ActivitySchedule, error)
	MarkScheduleFired(ctx context.Context, id string, firedAt, nextFireAt time.Time) error
	SetScheduleEnabled(ctx context.Context, id string, enabled bool) error

	// Statistics
	GetStatistics(ctx context.Context) (*types.Statistics, error)

	// Event retention (cleanup of the planting event log)
	CleanupEventsByAge(ctx context.Context, retentionDays, criticalRetentionDays, batchSize int) (int, error)
	VacuumDatabase(ctx context.Context) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// NewStorage creates a storage backend from the database configuration.
// A Postgres DSN selects the Postgres backend; otherwise SQLite at the
// configured path.
func NewStorage(ctx context.Context, cfg *config.DatabaseConfig) (Storage, error) {
	if cfg == nil {
		cfg = &config.DatabaseConfig{Path: ".tilth/tilth.db"}
	}

	if cfg.PostgresDSN != "" {
		return postgres.New(ctx, cfg.PostgresDSN)
	}

	path := cfg.Path
	if path == "" {
		path = ".tilth/tilth.db"
	}
	return sqlite.New(path)
}
