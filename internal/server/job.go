package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/ezpbars/internal/services"
	"github.com/desertthunder/ezpbars/internal/shared"
	"github.com/desertthunder/ezpbars/internal/tasks"
)

// JobHandler serves the example job endpoints: POST creates a job, GET on a uid reports its status.
type JobHandler struct {
	registry *tasks.Registry
	apiKey   string
}

var _ Handler = (*JobHandler)(nil)

// NewJobHandler creates a [JobHandler]. A non-empty apiKey must be presented as a bearer token.
func NewJobHandler(registry *tasks.Registry, apiKey string) *JobHandler {
	return &JobHandler{registry: registry, apiKey: apiKey}
}

// Routes returns the HTTP routes this handler serves.
func (h *JobHandler) Routes() []string {
	return []string{services.JobPath, services.JobPath + "/"}
}

func (h *JobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+h.apiKey {
		writeError(w, http.StatusUnauthorized, shared.ErrAuthFailed)
		return
	}

	uid := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, services.JobPath), "/")
	switch {
	case uid == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case uid != "" && r.Method == http.MethodGet:
		h.status(w, uid)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

func (h *JobHandler) create(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	duration, err := strconv.ParseFloat(q.Get("duration"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("duration must be a number"))
		return
	}
	stdev := 0.0
	if s := q.Get("stdev"); s != "" {
		if stdev, err = strconv.ParseFloat(s, 64); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("stdev must be a number"))
			return
		}
	}

	job, err := h.registry.Create(duration, stdev)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, services.Job{UID: job.UID, Sub: job.Sub, PbarName: job.PbarName})
}

func (h *JobHandler) status(w http.ResponseWriter, uid string) {
	result, err := h.registry.Result(uid)
	if errors.Is(err, shared.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, services.JobResult{Status: result.Status, Data: result.Data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
