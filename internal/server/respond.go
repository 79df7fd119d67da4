package server

import (
	"encoding/json"
	"net/http"

	"github.com/tilthlabs/tilth/internal/farm"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors to status codes: missing
// records 404, constraint conflicts 409, everything else 500.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case farm.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, farm.UserMessage(err))
	case farm.IsUserError(err):
		s.writeError(w, http.StatusConflict, farm.UserMessage(err))
	default:
		s.log.Error("request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decode parses the request body into v, rejecting unknown fields
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// actor identifies who performed a mutating request, for the audit
// trail. Defaults to "api" when the header is absent.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "api"
}

// cached serves GET responses through the tag cache. produce runs on a
// miss; its JSON bytes are stored under the request URI with the given
// tags so mutating operations can revalidate them.
func (s *Server) cached(w http.ResponseWriter, r *http.Request, tags []string, produce func() (interface{}, error)) {
	key := r.URL.RequestURI()
	if s.cache != nil {
		if body, ok := s.cache.Get(key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
	}

	v, err := produce()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "encoding failed")
		return
	}
	if s.cache != nil {
		s.cache.Set(key, body, tags...)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
