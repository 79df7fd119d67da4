package server

import (
	"net/http"

	"github.com/tilthlabs/tilth/internal/farm"
	"github.com/tilthlabs/tilth/internal/types"
)

func (s *Server) handleListCrops(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, []string{farm.TagCrops}, func() (interface{}, error) {
		return s.svc.ListCrops(r.Context())
	})
}

func (s *Server) handleCreateCrop(w http.ResponseWriter, r *http.Request) {
	var crop types.Crop
	if err := decode(r, &crop); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.CreateCrop(r.Context(), &crop); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, crop)
}

func (s *Server) handleGetCrop(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, []string{farm.TagCrops}, func() (interface{}, error) {
		return s.svc.GetCrop(r.Context(), r.PathValue("id"))
	})
}

func (s *Server) handleUpdateCrop(w http.ResponseWriter, r *http.Request) {
	var crop types.Crop
	if err := decode(r, &crop); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	crop.ID = r.PathValue("id")
	if err := s.svc.UpdateCrop(r.Context(), &crop); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, crop)
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, []string{farm.TagBeds}, func() (interface{}, error) {
		return s.svc.ListLocations(r.Context())
	})
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var loc types.Location
	if err := decode(r, &loc); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.CreateLocation(r.Context(), &loc); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, loc)
}

func (s *Server) handleListPlots(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, []string{farm.TagBeds}, func() (interface{}, error) {
		return s.svc.ListPlots(r.Context(), r.URL.Query().Get("location_id"))
	})
}

func (s *Server) handleCreatePlot(w http.ResponseWriter, r *http.Request) {
	var plot types.Plot
	if err := decode(r, &plot); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.CreatePlot(r.Context(), &plot); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, plot)
}

func (s *Server) handleListBeds(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, []string{farm.TagBeds}, func() (interface{}, error) {
		return s.svc.ListBeds(r.Context(), r.URL.Query().Get("plot_id"))
	})
}

func (s *Server) handleCreateBed(w http.ResponseWriter, r *http.Request) {
	var bed types.Bed
	if err := decode(r, &bed); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.CreateBed(r.Context(), &bed); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, bed)
}

func (s *Server) handleGetBed(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, []string{farm.TagBeds}, func() (interface{}, error) {
		return s.svc.GetBed(r.Context(), r.PathValue("id"))
	})
}

func (s *Server) handleDeleteBed(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteBed(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, []string{farm.TagPlantings, farm.TagActivities}, func() (interface{}, error) {
		return s.svc.Statistics(r.Context())
	})
}
