// Package health implements the doctor checks: quick diagnostics over
// the database and the farm records that surface problems a grower
// should look at (unreachable storage, seedlings stuck in the nursery,
// schedules that stopped firing).
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/tilthlabs/tilth/internal/storage"
	"github.com/tilthlabs/tilth/internal/types"
)

// Status of a single check
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Result is the outcome of one doctor check
type Result struct {
	Name   string
	Status Status
	Detail string
}

// StaleNurseryAge is how long a planting may sit in the nursery before
// the doctor flags it.
const StaleNurseryAge = 60 * 24 * time.Hour

// OverdueScheduleLag is how far past its fire time an enabled schedule
// may be before the doctor flags the scheduler as stuck.
const OverdueScheduleLag = 2 * time.Hour

// Run executes all doctor checks against the store
func Run(ctx context.Context, store storage.Storage) []Result {
	return []Result{
		checkDatabase(ctx, store),
		checkStaleNursery(ctx, store),
		checkOverdueSchedules(ctx, store),
	}
}

// Healthy reports whether no check failed
func Healthy(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return false
		}
	}
	return true
}

func checkDatabase(ctx context.Context, store storage.Storage) Result {
	if err := store.Ping(ctx); err != nil {
		return Result{Name: "database", Status: StatusFail,
			Detail: fmt.Sprintf("ping failed: %v", err)}
	}
	if _, err := store.ListCrops(ctx); err != nil {
		return Result{Name: "database", Status: StatusFail,
			Detail: fmt.Sprintf("schema check failed: %v", err)}
	}
	return Result{Name: "database", Status: StatusOK, Detail: "reachable"}
}

func checkStaleNursery(ctx context.Context, store storage.Storage) Result {
	stage := types.StageNursery
	plantings, err := store.ListPlantings(ctx, types.PlantingFilter{Stage: &stage})
	if err != nil {
		return Result{Name: "nursery", Status: StatusFail,
			Detail: fmt.Sprintf("query failed: %v", err)}
	}

	cutoff := time.Now().Add(-StaleNurseryAge)
	stale := 0
	for _, p := range plantings {
		if p.SownAt.Before(cutoff) {
			stale++
		}
	}
	if stale > 0 {
		return Result{Name: "nursery", Status: StatusWarn,
			Detail: fmt.Sprintf("%d planting(s) in the nursery for over %d days", stale, int(StaleNurseryAge.Hours()/24))}
	}
	return Result{Name: "nursery", Status: StatusOK,
		Detail: fmt.Sprintf("%d planting(s), none stale", len(plantings))}
}

func checkOverdueSchedules(ctx context.Context, store storage.Storage) Result {
	due, err := store.DueSchedules(ctx, time.Now().Add(-OverdueScheduleLag))
	if err != nil {
		return Result{Name: "schedules", Status: StatusFail,
			Detail: fmt.Sprintf("query failed: %v", err)}
	}
	if len(due) > 0 {
		return Result{Name: "schedules", Status: StatusWarn,
			Detail: fmt.Sprintf("%d schedule(s) overdue by more than %s; is the server running?", len(due), OverdueScheduleLag)}
	}
	return Result{Name: "schedules", Status: StatusOK, Detail: "none overdue"}
}
