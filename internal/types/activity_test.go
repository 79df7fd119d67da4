package types

import (
	"testing"
	"time"
)

func TestActivityValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		activity Activity
		wantErr  bool
	}{
		{
			name: "valid irrigation",
			activity: Activity{
				Type:        ActivityIrrigation,
				LocationID:  "loc-1",
				PerformedAt: now,
				Source:      SourceManual,
			},
		},
		{
			name: "soil amendment requires material",
			activity: Activity{
				Type:        ActivitySoilAmendment,
				LocationID:  "loc-1",
				PerformedAt: now,
				Source:      SourceManual,
			},
			wantErr: true,
		},
		{
			name: "soil amendment with material",
			activity: Activity{
				Type:        ActivitySoilAmendment,
				LocationID:  "loc-1",
				Material:    "compost",
				Amount:      "2 wheelbarrows",
				PerformedAt: now,
				Source:      SourceManual,
			},
		},
		{
			name: "pest management requires material",
			activity: Activity{
				Type:        ActivityPestManagement,
				LocationID:  "loc-1",
				PerformedAt: now,
				Source:      SourceSchedule,
			},
			wantErr: true,
		},
		{
			name: "missing location",
			activity: Activity{
				Type:        ActivityIrrigation,
				PerformedAt: now,
				Source:      SourceManual,
			},
			wantErr: true,
		},
		{
			name: "invalid type",
			activity: Activity{
				Type:        "weeding",
				LocationID:  "loc-1",
				PerformedAt: now,
				Source:      SourceManual,
			},
			wantErr: true,
		},
		{
			name: "invalid source",
			activity: Activity{
				Type:        ActivityIrrigation,
				LocationID:  "loc-1",
				PerformedAt: now,
				Source:      "import",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.activity.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestActivityScheduleValidate(t *testing.T) {
	s := ActivitySchedule{
		Name:       "Morning drip, greenhouse 1",
		Type:       ActivityIrrigation,
		LocationID: "loc-1",
		CronExpr:   "0 6 * * *",
		Enabled:    true,
	}
	if err := s.Validate(); err != nil {
		t.Errorf("valid schedule failed validation: %v", err)
	}

	s.CronExpr = ""
	if err := s.Validate(); err == nil {
		t.Error("expected error for missing cron expression")
	}

	s.CronExpr = "0 6 * * *"
	s.Name = ""
	if err := s.Validate(); err == nil {
		t.Error("expected error for missing name")
	}
}
