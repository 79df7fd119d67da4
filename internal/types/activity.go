package types

import (
	"fmt"
	"strings"
	"time"
)

// ActivityType categorizes a logged farm operation
type ActivityType string

const (
	ActivityIrrigation       ActivityType = "irrigation"
	ActivitySoilAmendment    ActivityType = "soil_amendment"
	ActivityPestManagement   ActivityType = "pest_management"
	ActivityAssetMaintenance ActivityType = "asset_maintenance"
)

// IsValid checks if the activity type value is valid
func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityIrrigation, ActivitySoilAmendment,
		ActivityPestManagement, ActivityAssetMaintenance:
		return true
	}
	return false
}

// ActivitySource records how an activity entered the log
type ActivitySource string

const (
	SourceManual   ActivitySource = "manual"   // Logged by a person
	SourceSchedule ActivitySource = "schedule" // Fired by a recurring schedule
)

// IsValid checks if the activity source value is valid
func (s ActivitySource) IsValid() bool {
	return s == SourceManual || s == SourceSchedule
}

// Activity represents a logged farm operation (irrigation, soil
// amendment, pest management, asset maintenance) associated with a
// location and optionally a specific bed.
type Activity struct {
	ID          string         `json:"id"`
	Type        ActivityType   `json:"type"`
	LocationID  string         `json:"location_id"`
	BedID       string         `json:"bed_id,omitempty"`
	Material    string         `json:"material,omitempty"` // e.g. compost, neem oil
	Amount      string         `json:"amount,omitempty"`   // Free-form: "20L", "2 wheelbarrows"
	PerformedAt time.Time      `json:"performed_at"`
	PerformedBy string         `json:"performed_by,omitempty"`
	Source      ActivitySource `json:"source"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Validate checks if the activity has valid field values
func (a *Activity) Validate() error {
	if !a.Type.IsValid() {
		return fmt.Errorf("invalid activity type: %s", a.Type)
	}
	if a.LocationID == "" {
		return fmt.Errorf("location_id is required")
	}
	if !a.Source.IsValid() {
		return fmt.Errorf("invalid activity source: %s", a.Source)
	}
	// Soil amendments and pest management record what went on the ground
	if a.Type == ActivitySoilAmendment || a.Type == ActivityPestManagement {
		if strings.TrimSpace(a.Material) == "" {
			return fmt.Errorf("material is required for %s activities", a.Type)
		}
	}
	return nil
}

// ActivitySchedule is a recurring activity template. The scheduler fires
// it when its cron expression comes due, logging an activity with
// source "schedule".
type ActivitySchedule struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        ActivityType `json:"type"`
	LocationID  string       `json:"location_id"`
	BedID       string       `json:"bed_id,omitempty"`
	Material    string       `json:"material,omitempty"`
	Amount      string       `json:"amount,omitempty"`
	CronExpr    string       `json:"cron_expr"` // 5-field: minute hour dom month dow
	Enabled     bool         `json:"enabled"`
	NextFireAt  time.Time    `json:"next_fire_at"` // Computed from CronExpr at create/fire time
	LastFiredAt *time.Time   `json:"last_fired_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Validate checks if the activity schedule has valid field values.
// Cron expression syntax is validated by the scheduler's parser at
// creation time, not here.
func (s *ActivitySchedule) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !s.Type.IsValid() {
		return fmt.Errorf("invalid activity type: %s", s.Type)
	}
	if s.LocationID == "" {
		return fmt.Errorf("location_id is required")
	}
	if strings.TrimSpace(s.CronExpr) == "" {
		return fmt.Errorf("cron_expr is required")
	}
	return nil
}
