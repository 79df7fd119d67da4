package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tilthlabs/tilth/internal/farm"
	"github.com/tilthlabs/tilth/internal/types"
)

// createPlantingRequest covers both entry points into the lifecycle: a
// nursery sowing (nursery_location_id set) or a direct seeding into a
// bed (bed_id set).
type createPlantingRequest struct {
	CropID            string     `json:"crop_id"`
	NurseryLocationID string     `json:"nursery_location_id,omitempty"`
	BedID             string     `json:"bed_id,omitempty"`
	Quantity          int        `json:"quantity"`
	SownAt            *time.Time `json:"sown_at,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

func (s *Server) handleCreatePlanting(w http.ResponseWriter, r *http.Request) {
	var req createPlantingRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.NurseryLocationID == "") == (req.BedID == "") {
		s.writeError(w, http.StatusBadRequest,
			"exactly one of nursery_location_id or bed_id is required")
		return
	}

	planting := &types.Planting{
		CropID:            req.CropID,
		NurseryLocationID: req.NurseryLocationID,
		BedID:             req.BedID,
		Quantity:          req.Quantity,
		Notes:             req.Notes,
	}
	if req.SownAt != nil {
		planting.SownAt = *req.SownAt
	}

	var err error
	if req.NurseryLocationID != "" {
		err = s.svc.SowNursery(r.Context(), planting, actor(r))
	} else {
		err = s.svc.DirectSeed(r.Context(), planting, actor(r))
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, planting)
}

func (s *Server) handleListPlantings(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, []string{farm.TagPlantings}, func() (interface{}, error) {
		filter := types.PlantingFilter{}
		q := r.URL.Query()
		if v := q.Get("stage"); v != "" {
			stage := types.Stage(v)
			filter.Stage = &stage
		}
		if v := q.Get("crop_id"); v != "" {
			filter.CropID = &v
		}
		if v := q.Get("bed_id"); v != "" {
			filter.BedID = &v
		}
		if q.Get("active") == "true" {
			filter.ActiveOnly = true
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}
		return s.svc.ListPlantings(r.Context(), filter)
	})
}

func (s *Server) handleGetPlanting(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.cached(w, r, []string{farm.TagPlantings, farm.PlantingTag(id)}, func() (interface{}, error) {
		return s.svc.GetPlanting(r.Context(), id)
	})
}

type transplantRequest struct {
	BedID string     `json:"bed_id"`
	When  *time.Time `json:"when,omitempty"`
}

func (s *Server) handleTransplant(w http.ResponseWriter, r *http.Request) {
	var req transplantRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	when := time.Now()
	if req.When != nil {
		when = *req.When
	}
	id := r.PathValue("id")
	if err := s.svc.Transplant(r.Context(), id, req.BedID, when, actor(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	planting, err := s.svc.GetPlanting(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, planting)
}

type harvestRequest struct {
	Quantity    float64           `json:"quantity"`
	Unit        types.HarvestUnit `json:"unit"`
	HarvestedAt *time.Time        `json:"harvested_at,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	var req harvestRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	harvest := &types.HarvestRecord{
		PlantingID: r.PathValue("id"),
		Quantity:   req.Quantity,
		Unit:       req.Unit,
		Notes:      req.Notes,
	}
	if req.HarvestedAt != nil {
		harvest.HarvestedAt = *req.HarvestedAt
	}
	if err := s.svc.Harvest(r.Context(), harvest, actor(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, harvest)
}

type removeRequest struct {
	Reason string     `json:"reason"`
	When   *time.Time `json:"when,omitempty"`
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Reason == "" {
		s.writeError(w, http.StatusBadRequest, "reason is required")
		return
	}
	when := time.Now()
	if req.When != nil {
		when = *req.When
	}
	id := r.PathValue("id")
	if err := s.svc.Remove(r.Context(), id, req.Reason, when, actor(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	planting, err := s.svc.GetPlanting(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, planting)
}

type noteRequest struct {
	Note string `json:"note"`
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Note == "" {
		s.writeError(w, http.StatusBadRequest, "note is required")
		return
	}
	if err := s.svc.AddNote(r.Context(), r.PathValue("id"), actor(r), req.Note); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.cached(w, r, []string{farm.PlantingTag(id)}, func() (interface{}, error) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		return s.svc.GetPlantingEvents(r.Context(), id, limit)
	})
}

func (s *Server) handleGetHarvests(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.cached(w, r, []string{farm.PlantingTag(id)}, func() (interface{}, error) {
		return s.svc.GetHarvests(r.Context(), id)
	})
}
