package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tilthlabs/tilth/internal/farm"
	"github.com/tilthlabs/tilth/internal/types"
)

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, []string{farm.TagActivities}, func() (interface{}, error) {
		filter := types.ActivityFilter{}
		q := r.URL.Query()
		if v := q.Get("type"); v != "" {
			at := types.ActivityType(v)
			filter.Type = &at
		}
		if v := q.Get("location_id"); v != "" {
			filter.LocationID = &v
		}
		if v := q.Get("bed_id"); v != "" {
			filter.BedID = &v
		}
		if v := q.Get("since"); v != "" {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				filter.Since = &ts
			}
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}
		return s.svc.ListActivities(r.Context(), filter)
	})
}

func (s *Server) handleLogActivity(w http.ResponseWriter, r *http.Request) {
	var activity types.Activity
	if err := decode(r, &activity); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// The API only logs manual activities; scheduled ones come from the
	// scheduler loop.
	activity.Source = types.SourceManual
	if activity.PerformedBy == "" {
		activity.PerformedBy = actor(r)
	}
	if err := s.svc.LogActivity(r.Context(), &activity); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, activity)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, []string{farm.TagActivities}, func() (interface{}, error) {
		return s.svc.ListSchedules(r.Context())
	})
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var schedule types.ActivitySchedule
	if err := decode(r, &schedule); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	schedule.Enabled = true
	if err := s.svc.CreateSchedule(r.Context(), &schedule); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, schedule)
}

func (s *Server) handleEnableSchedule(w http.ResponseWriter, r *http.Request) {
	s.setScheduleEnabled(w, r, true)
}

func (s *Server) handleDisableSchedule(w http.ResponseWriter, r *http.Request) {
	s.setScheduleEnabled(w, r, false)
}

func (s *Server) setScheduleEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	if err := s.svc.SetScheduleEnabled(r.Context(), r.PathValue("id"), enabled); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
