package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tilthlabs/tilth/internal/cache"
	"github.com/tilthlabs/tilth/internal/config"
	"github.com/tilthlabs/tilth/internal/farm"
	"github.com/tilthlabs/tilth/internal/storage/sqlite"
	"github.com/tilthlabs/tilth/internal/types"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := cache.New(time.Minute)
	svc := farm.New(store, c, zap.NewNop())
	cfg := &config.ServerConfig{
		Addr:            ":0",
		RateLimit:       1000,
		RateBurst:       1000,
		CacheTTL:        time.Minute,
		ShutdownTimeout: time.Second,
	}
	srv := New(cfg, svc, c, zap.NewNop())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "test")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// seedAPI creates a crop, nursery, field, plot and bed through the API
func seedAPI(t *testing.T, base string, capacity int) (cropID, nurseryID, bedID string) {
	t.Helper()

	var crop types.Crop
	resp := doJSON(t, "POST", base+"/api/crops", map[string]interface{}{
		"name": "Rainbow Chard", "species": "Beta vulgaris",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &crop)

	var nursery types.Location
	resp = doJSON(t, "POST", base+"/api/locations", map[string]interface{}{
		"name": "Prop House", "kind": "nursery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &nursery)

	var field types.Location
	resp = doJSON(t, "POST", base+"/api/locations", map[string]interface{}{
		"name": "Field", "kind": "field",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &field)

	var plot types.Plot
	resp = doJSON(t, "POST", base+"/api/plots", map[string]interface{}{
		"location_id": field.ID, "name": "Plot 1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &plot)

	var bed types.Bed
	resp = doJSON(t, "POST", base+"/api/beds", map[string]interface{}{
		"plot_id": plot.ID, "name": "Bed 1", "capacity": capacity,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &bed)

	return crop.ID, nursery.ID, bed.ID
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlantingLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	cropID, nurseryID, bedID := seedAPI(t, ts.URL, 50)

	// Sow in the nursery
	var planting types.Planting
	resp := doJSON(t, "POST", ts.URL+"/api/plantings", map[string]interface{}{
		"crop_id": cropID, "nursery_location_id": nurseryID, "quantity": 12,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &planting)
	assert.Equal(t, types.StageNursery, planting.Stage)

	// Transplant
	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/plantings/%s/transplant", ts.URL, planting.ID),
		map[string]interface{}{"bed_id": bedID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &planting)
	assert.Equal(t, types.StagePlanted, planting.Stage)

	// Harvest
	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/plantings/%s/harvest", ts.URL, planting.ID),
		map[string]interface{}{"quantity": 3.5, "unit": "kg"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Remove
	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/plantings/%s/remove", ts.URL, planting.ID),
		map[string]interface{}{"reason": "end of season"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &planting)
	assert.Equal(t, types.StageRemoved, planting.Stage)

	// Audit trail
	resp = doJSON(t, "GET", fmt.Sprintf("%s/api/plantings/%s/events", ts.URL, planting.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []types.PlantingEvent
	decodeBody(t, resp, &events)
	assert.Len(t, events, 4)
}

func TestConflictStatusCodes(t *testing.T) {
	ts := newTestServer(t)
	cropID, _, bedID := seedAPI(t, ts.URL, 20)

	resp := doJSON(t, "POST", ts.URL+"/api/plantings", map[string]interface{}{
		"crop_id": cropID, "bed_id": bedID, "quantity": 15,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate planting
	resp = doJSON(t, "POST", ts.URL+"/api/plantings", map[string]interface{}{
		"crop_id": cropID, "bed_id": bedID, "quantity": 2,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Missing planting
	resp = doJSON(t, "POST", ts.URL+"/api/plantings/pl-999/harvest",
		map[string]interface{}{"quantity": 1, "unit": "kg"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Both placement fields
	resp = doJSON(t, "POST", ts.URL+"/api/plantings", map[string]interface{}{
		"crop_id": cropID, "bed_id": bedID, "nursery_location_id": "x", "quantity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListCachingAndRevalidation(t *testing.T) {
	ts := newTestServer(t)
	cropID, nurseryID, _ := seedAPI(t, ts.URL, 20)

	// Prime the cache
	resp := doJSON(t, "GET", ts.URL+"/api/plantings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Cache"))

	resp = doJSON(t, "GET", ts.URL+"/api/plantings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hit", resp.Header.Get("X-Cache"))

	// A write revalidates the plantings tag
	resp = doJSON(t, "POST", ts.URL+"/api/plantings", map[string]interface{}{
		"crop_id": cropID, "nursery_location_id": nurseryID, "quantity": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, "GET", ts.URL+"/api/plantings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Cache"))

	var plantings []types.Planting
	decodeBody(t, resp, &plantings)
	assert.Len(t, plantings, 1)
}

func TestActivitiesAndSchedulesOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	_, nurseryID, _ := seedAPI(t, ts.URL, 20)

	resp := doJSON(t, "POST", ts.URL+"/api/activities", map[string]interface{}{
		"type": "soil_amendment", "location_id": nurseryID,
		"material": "compost", "amount": "2 wheelbarrows",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var activity types.Activity
	decodeBody(t, resp, &activity)
	assert.Equal(t, types.SourceManual, activity.Source)
	assert.Equal(t, "test", activity.PerformedBy)

	var schedule types.ActivitySchedule
	resp = doJSON(t, "POST", ts.URL+"/api/schedules", map[string]interface{}{
		"name": "Morning irrigation", "type": "irrigation",
		"location_id": nurseryID, "cron_expr": "0 6 * * *",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &schedule)
	assert.True(t, schedule.Enabled)
	assert.False(t, schedule.NextFireAt.IsZero())

	resp = doJSON(t, "POST", fmt.Sprintf("%s/api/schedules/%s/disable", ts.URL, schedule.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Invalid cron expression
	resp = doJSON(t, "POST", ts.URL+"/api/schedules", map[string]interface{}{
		"name": "Bad", "type": "irrigation",
		"location_id": nurseryID, "cron_expr": "nope",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	cropID, nurseryID, _ := seedAPI(t, ts.URL, 20)

	resp := doJSON(t, "POST", ts.URL+"/api/plantings", map[string]interface{}{
		"crop_id": cropID, "nursery_location_id": nurseryID, "quantity": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, "GET", ts.URL+"/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats types.Statistics
	decodeBody(t, resp, &stats)
	assert.Equal(t, 1, stats.TotalPlantings)
	assert.Equal(t, 1, stats.NurseryPlantings)
}
