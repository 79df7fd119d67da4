package types

import (
	"testing"
	"time"
)

func TestCropValidate(t *testing.T) {
	tests := []struct {
		name    string
		crop    Crop
		wantErr bool
	}{
		{
			name: "valid crop",
			crop: Crop{Name: "Cherokee Purple", Species: "Solanum lycopersicum", DaysToMaturity: 80},
		},
		{
			name:    "missing name",
			crop:    Crop{Species: "Solanum lycopersicum"},
			wantErr: true,
		},
		{
			name:    "whitespace name",
			crop:    Crop{Name: "   ", Species: "Solanum lycopersicum"},
			wantErr: true,
		},
		{
			name:    "missing species",
			crop:    Crop{Name: "Cherokee Purple"},
			wantErr: true,
		},
		{
			name:    "negative days to maturity",
			crop:    Crop{Name: "Cherokee Purple", Species: "Solanum lycopersicum", DaysToMaturity: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.crop.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStageTransitions(t *testing.T) {
	tests := []struct {
		from    Stage
		to      Stage
		allowed bool
	}{
		{StageNursery, StagePlanted, true},
		{StageNursery, StageRemoved, true},
		{StageNursery, StageHarvested, false},
		{StagePlanted, StageHarvested, true},
		{StagePlanted, StageRemoved, true},
		{StagePlanted, StageNursery, false},
		{StageHarvested, StageRemoved, true},
		{StageHarvested, StagePlanted, false},
		{StageRemoved, StagePlanted, false},
		{StageRemoved, StageNursery, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("CanTransitionTo(%s → %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestStageTerminal(t *testing.T) {
	if len(StageRemoved.ValidTransitions()) != 0 {
		t.Error("removed should be a terminal stage")
	}
	if StageRemoved.IsActive() {
		t.Error("removed plantings should not be active")
	}
	for _, s := range []Stage{StageNursery, StagePlanted, StageHarvested} {
		if !s.IsActive() {
			t.Errorf("stage %s should be active", s)
		}
	}
}

func TestPlantingValidate(t *testing.T) {
	now := time.Now()

	valid := Planting{
		CropID:            "crop-1",
		NurseryLocationID: "loc-1",
		Stage:             StageNursery,
		Quantity:          72,
		SownAt:            now,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid nursery planting failed validation: %v", err)
	}

	// Nursery plantings cannot have a bed
	p := valid
	p.BedID = "bed-1"
	if err := p.Validate(); err == nil {
		t.Error("expected error for nursery planting with bed_id")
	}

	// Planted requires a bed
	p = valid
	p.Stage = StagePlanted
	p.NurseryLocationID = ""
	if err := p.Validate(); err == nil {
		t.Error("expected error for planted planting without bed_id")
	}
	p.BedID = "bed-1"
	if err := p.Validate(); err != nil {
		t.Errorf("valid planted planting failed validation: %v", err)
	}

	// Removed requires a reason
	p = valid
	p.Stage = StageRemoved
	if err := p.Validate(); err == nil {
		t.Error("expected error for removed planting without removal_reason")
	}

	// Quantity must be positive
	p = valid
	p.Quantity = 0
	if err := p.Validate(); err == nil {
		t.Error("expected error for zero quantity")
	}
}

func TestHarvestRecordValidate(t *testing.T) {
	h := HarvestRecord{PlantingID: "pl-1", Quantity: 3.5, Unit: UnitKilogram}
	if err := h.Validate(); err != nil {
		t.Errorf("valid harvest record failed validation: %v", err)
	}

	h.Quantity = 0
	if err := h.Validate(); err == nil {
		t.Error("expected error for zero quantity")
	}

	h.Quantity = 1
	h.Unit = "bushel"
	if err := h.Validate(); err == nil {
		t.Error("expected error for invalid unit")
	}
}

func TestBedValidate(t *testing.T) {
	b := Bed{PlotID: "plot-1", Name: "Bed 3", Capacity: 40}
	if err := b.Validate(); err != nil {
		t.Errorf("valid bed failed validation: %v", err)
	}

	b.Capacity = 0
	if err := b.Validate(); err == nil {
		t.Error("expected error for zero capacity")
	}
}

func TestLocationKindIsValid(t *testing.T) {
	for _, k := range []LocationKind{LocationField, LocationGreenhouse, LocationNursery} {
		if !k.IsValid() {
			t.Errorf("expected %s to be valid", k)
		}
	}
	if LocationKind("barn").IsValid() {
		t.Error("expected unknown kind to be invalid")
	}
}
