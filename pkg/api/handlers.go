package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cuemby/guildsync/pkg/reconciler"
	"github.com/cuemby/guildsync/pkg/storage"
	"github.com/cuemby/guildsync/pkg/types"
)

const (
	defaultPassLimit = 20
	maxPassLimit     = 500
)

// SyncResponse lists the families a sync request was recorded for
type SyncResponse struct {
	Requested []types.Family `json:"requested"`
}

// PlanResponse is a dry run of one family's next pass
type PlanResponse struct {
	Family types.Family `json:"family"`
	Empty  bool         `json:"empty"`
	Lines  []string     `json:"lines"`
}

// PassesResponse lists recorded passes, newest first
type PassesResponse struct {
	Passes []*types.PassReport `json:"passes"`
	Total  int                 `json:"total"`
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// syncAll requests a pass of every family. The scheduler picks the request up
// on its next tick.
func (s *Server) syncAll(w http.ResponseWriter, r *http.Request) {
	for _, f := range s.families {
		s.coordinators[f].RequestSynchronization()
	}
	s.logger.Info().Msg("Synchronization requested for all families")
	writeJSON(w, http.StatusAccepted, SyncResponse{Requested: s.families})
}

func (s *Server) syncFamily(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	c.RequestSynchronization()
	s.logger.Info().Str("family", string(c.Family())).Msg("Synchronization requested")
	writeJSON(w, http.StatusAccepted, SyncResponse{Requested: []types.Family{c.Family()}})
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	preview, err := c.Plan(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Str("family", string(c.Family())).Msg("Failed to compute plan")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	lines := preview.Lines()
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, PlanResponse{Family: c.Family(), Empty: preview.Empty(), Lines: lines})
}

func (s *Server) listPasses(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "pass history is not enabled")
		return
	}

	family := types.Family(r.URL.Query().Get("family"))
	if family != "" {
		if _, ok := s.coordinators[family]; !ok {
			writeError(w, http.StatusBadRequest, "unknown family: "+string(family))
			return
		}
	}

	limit := defaultPassLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxPassLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxPassLimit))
			return
		}
		limit = n
	}

	passes, err := s.store.ListPasses(family, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if passes == nil {
		passes = []*types.PassReport{}
	}
	writeJSON(w, http.StatusOK, PassesResponse{Passes: passes, Total: len(passes)})
}

func (s *Server) getPass(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "pass history is not enabled")
		return
	}
	report, err := s.store.GetPass(chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) coordinator(w http.ResponseWriter, r *http.Request) (reconciler.Coordinator, bool) {
	family := types.Family(chi.URLParam(r, "family"))
	c, ok := s.coordinators[family]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown family: "+string(family))
	}
	return c, ok
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}
