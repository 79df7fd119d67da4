package types

import (
	"fmt"
	"strings"
	"time"
)

// Crop represents a crop variety grown on the farm.
type Crop struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Species        string    `json:"species"`
	DaysToMaturity int       `json:"days_to_maturity"`
	SpacingCM      int       `json:"spacing_cm,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks if the crop has valid field values
func (c *Crop) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(c.Name) > 200 {
		return fmt.Errorf("name must be 200 characters or less (got %d)", len(c.Name))
	}
	if strings.TrimSpace(c.Species) == "" {
		return fmt.Errorf("species is required")
	}
	if c.DaysToMaturity < 0 {
		return fmt.Errorf("days_to_maturity cannot be negative (got %d)", c.DaysToMaturity)
	}
	if c.SpacingCM < 0 {
		return fmt.Errorf("spacing_cm cannot be negative (got %d)", c.SpacingCM)
	}
	return nil
}

// LocationKind categorizes a farm location
type LocationKind string

const (
	LocationField      LocationKind = "field"
	LocationGreenhouse LocationKind = "greenhouse"
	LocationNursery    LocationKind = "nursery"
)

// IsValid checks if the location kind value is valid
func (k LocationKind) IsValid() bool {
	switch k {
	case LocationField, LocationGreenhouse, LocationNursery:
		return true
	}
	return false
}

// Location represents a named area of the farm (field, greenhouse, nursery)
type Location struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Kind      LocationKind `json:"kind"`
	Notes     string       `json:"notes,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Validate checks if the location has valid field values
func (l *Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(l.Name) > 200 {
		return fmt.Errorf("name must be 200 characters or less (got %d)", len(l.Name))
	}
	if !l.Kind.IsValid() {
		return fmt.Errorf("invalid location kind: %s", l.Kind)
	}
	return nil
}

// Plot is a subdivision of a location
type Plot struct {
	ID         string    `json:"id"`
	LocationID string    `json:"location_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks if the plot has valid field values
func (p *Plot) Validate() error {
	if p.LocationID == "" {
		return fmt.Errorf("location_id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// Bed is a subdivision of a plot where plantings are placed.
// Capacity is measured in planting units (plants for transplants,
// row-feet equivalents for direct seeding).
type Bed struct {
	ID        string    `json:"id"`
	PlotID    string    `json:"plot_id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the bed has valid field values
func (b *Bed) Validate() error {
	if b.PlotID == "" {
		return fmt.Errorf("plot_id is required")
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if b.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive (got %d)", b.Capacity)
	}
	return nil
}

// Stage represents the lifecycle stage of a planting
type Stage string

const (
	StageNursery   Stage = "nursery"   // Sown in trays, not yet in a bed
	StagePlanted   Stage = "planted"   // In a bed (transplanted or direct-seeded)
	StageHarvested Stage = "harvested" // At least one harvest recorded
	StageRemoved   Stage = "removed"   // Terminal: pulled, tilled in, or failed
)

// IsValid checks if the stage value is valid
func (s Stage) IsValid() bool {
	switch s {
	case StageNursery, StagePlanted, StageHarvested, StageRemoved:
		return true
	}
	return false
}

// IsActive reports whether the planting still occupies space (nursery
// tray or bed). Removed plantings free their bed capacity.
func (s Stage) IsActive() bool {
	return s == StageNursery || s == StagePlanted || s == StageHarvested
}

// ValidTransitions defines the valid stage transitions for the planting
// lifecycle state machine.
//
// State Machine Diagram:
//
//	nursery → planted → harvested
//	    ↓        ↓          ↓
//	 removed  removed    removed
//
// Valid transitions:
//   - nursery → planted (transplant into a bed)
//   - nursery → removed (failed tray, never planted out)
//   - planted → harvested (first harvest recorded)
//   - planted → removed (crop pulled before any harvest)
//   - harvested → removed (bed turned over)
//
// Harvested plantings accept further harvest records without changing
// stage. Removed is terminal. Direct seeding creates a planting already
// in the planted stage.
func (s Stage) ValidTransitions() []Stage {
	switch s {
	case StageNursery:
		return []Stage{StagePlanted, StageRemoved}
	case StagePlanted:
		return []Stage{StageHarvested, StageRemoved}
	case StageHarvested:
		return []Stage{StageRemoved}
	case StageRemoved:
		return []Stage{} // Terminal state
	default:
		return []Stage{}
	}
}

// CanTransitionTo checks if a transition from this stage to the target stage is valid
func (s Stage) CanTransitionTo(target Stage) bool {
	for _, valid := range s.ValidTransitions() {
		if valid == target {
			return true
		}
	}
	return false
}

// Planting represents a batch of a crop variety moving through the
// nursery/direct-seed, transplant, harvest, and removal stages.
type Planting struct {
	ID                string     `json:"id"`
	CropID            string     `json:"crop_id"`
	BedID             string     `json:"bed_id,omitempty"`              // Empty while in nursery
	NurseryLocationID string     `json:"nursery_location_id,omitempty"` // Set for nursery sowings
	Stage             Stage      `json:"stage"`
	Quantity          int        `json:"quantity"`
	SownAt            time.Time  `json:"sown_at"`
	TransplantedAt    *time.Time `json:"transplanted_at,omitempty"`
	FirstHarvestAt    *time.Time `json:"first_harvest_at,omitempty"`
	RemovedAt         *time.Time `json:"removed_at,omitempty"`
	RemovalReason     string     `json:"removal_reason,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Validate checks if the planting has valid field values
func (p *Planting) Validate() error {
	if p.CropID == "" {
		return fmt.Errorf("crop_id is required")
	}
	if !p.Stage.IsValid() {
		return fmt.Errorf("invalid stage: %s", p.Stage)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive (got %d)", p.Quantity)
	}
	// A planting occupies exactly one place per stage: nursery plantings
	// live in a nursery location, planted ones in a bed.
	switch p.Stage {
	case StageNursery:
		if p.NurseryLocationID == "" {
			return fmt.Errorf("nursery_location_id is required for nursery plantings")
		}
		if p.BedID != "" {
			return fmt.Errorf("nursery plantings cannot have a bed_id")
		}
	case StagePlanted, StageHarvested:
		if p.BedID == "" {
			return fmt.Errorf("bed_id is required for %s plantings", p.Stage)
		}
	}
	if p.Stage == StageRemoved && strings.TrimSpace(p.RemovalReason) == "" {
		return fmt.Errorf("removal_reason is required for removed plantings")
	}
	return nil
}

// HarvestUnit is the unit a harvest quantity is recorded in
type HarvestUnit string

const (
	UnitKilogram HarvestUnit = "kg"
	UnitBunch    HarvestUnit = "bunch"
	UnitCount    HarvestUnit = "count"
	UnitCrate    HarvestUnit = "crate"
)

// IsValid checks if the harvest unit value is valid
func (u HarvestUnit) IsValid() bool {
	switch u {
	case UnitKilogram, UnitBunch, UnitCount, UnitCrate:
		return true
	}
	return false
}

// HarvestRecord represents a single harvest taken from a planting.
// A planting may accumulate many harvest records (cut-and-come-again
// crops, staggered picking).
type HarvestRecord struct {
	ID          int64       `json:"id"`
	PlantingID  string      `json:"planting_id"`
	Quantity    float64     `json:"quantity"`
	Unit        HarvestUnit `json:"unit"`
	HarvestedAt time.Time   `json:"harvested_at"`
	Notes       string      `json:"notes,omitempty"`
}

// Validate checks if the harvest record has valid field values
func (h *HarvestRecord) Validate() error {
	if h.PlantingID == "" {
		return fmt.Errorf("planting_id is required")
	}
	if h.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive (got %g)", h.Quantity)
	}
	if !h.Unit.IsValid() {
		return fmt.Errorf("invalid harvest unit: %s", h.Unit)
	}
	return nil
}

// PlantingEvent represents an audit trail entry for a planting
type PlantingEvent struct {
	ID         int64     `json:"id"`
	PlantingID string    `json:"planting_id"`
	EventType  EventType `json:"event_type"`
	Actor      string    `json:"actor"`
	OldValue   *string   `json:"old_value,omitempty"`
	NewValue   *string   `json:"new_value,omitempty"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventType categorizes audit trail events
type EventType string

const (
	EventCreated      EventType = "created"
	EventDirectSeeded EventType = "direct_seeded"
	EventTransplanted EventType = "transplanted"
	EventHarvested    EventType = "harvested"
	EventRemoved      EventType = "removed"
	EventUpdated      EventType = "updated"
	EventNote         EventType = "note"
)

// CriticalEventTypes are event types kept under the longer retention
// window during cleanup. Lifecycle transitions are the record of what
// happened to a crop; notes and field edits are not.
var CriticalEventTypes = []EventType{
	EventCreated, EventDirectSeeded, EventTransplanted,
	EventHarvested, EventRemoved,
}

// PlantingFilter is used to filter planting queries
type PlantingFilter struct {
	Stage      *Stage
	CropID     *string
	BedID      *string
	ActiveOnly bool
	Limit      int
}

// ActivityFilter is used to filter activity queries
type ActivityFilter struct {
	Type       *ActivityType
	LocationID *string
	BedID      *string
	Since      *time.Time
	Limit      int
}

// Statistics provides aggregate metrics across the farm
type Statistics struct {
	TotalPlantings     int                     `json:"total_plantings"`
	NurseryPlantings   int                     `json:"nursery_plantings"`
	PlantedPlantings   int                     `json:"planted_plantings"`
	HarvestedPlantings int                     `json:"harvested_plantings"`
	RemovedPlantings   int                     `json:"removed_plantings"`
	ActiveBeds         int                     `json:"active_beds"`
	HarvestTotals      map[HarvestUnit]float64 `json:"harvest_totals"`
	RecentActivities   int                     `json:"recent_activities"` // Last 30 days
}
