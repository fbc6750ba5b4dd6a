package tuned

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jingdong00/FLAML/internal/search"
	"github.com/jingdong00/FLAML/pkg/config"
	"github.com/jingdong00/FLAML/pkg/models"
)

// streamPollInterval is how often the SSE handler checks the trial log
// for new entries.
const streamPollInterval = 300 * time.Millisecond

// Server exposes the tuning daemon over HTTP.
type Server struct {
	store    *Store
	executor *Executor
	registry *Registry
	log      *slog.Logger

	// lifeCtx bounds every search started through the API.
	lifeCtx context.Context
}

// NewServer wires the HTTP surface. ctx bounds the lifetime of every
// job the server starts.
func NewServer(ctx context.Context, store *Store, executor *Executor, registry *Registry, log *slog.Logger) *Server {
	return &Server{
		store:    store,
		executor: executor,
		registry: registry,
		log:      log,
		lifeCtx:  ctx,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/objectives", s.handleObjectives)

	mux.HandleFunc("POST /v1/searches", s.handleCreateSearch)
	mux.HandleFunc("GET /v1/searches", s.handleListSearches)
	mux.HandleFunc("GET /v1/searches/{id}", s.handleGetSearch)
	mux.HandleFunc("POST /v1/searches/{id}/stop", s.handleStopSearch)
	mux.HandleFunc("GET /v1/searches/{id}/best", s.handleBest)
	mux.HandleFunc("GET /v1/searches/{id}/trials", s.handleTrials)
	mux.HandleFunc("GET /v1/searches/{id}/trials/stream", s.handleTrialStream)
	mux.HandleFunc("GET /v1/searches/{id}/analysis", s.handleAnalysis)
	mux.HandleFunc("GET /v1/searches/{id}/export", s.handleExport)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"objectives": s.registry.Names()})
}

func (s *Server) handleCreateSearch(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Experiment == "" {
		writeError(w, http.StatusBadRequest, "experiment is required")
		return
	}

	exp, err := config.ParseExperimentYAMLString(req.Experiment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := s.executor.Start(s.lifeCtx, exp)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, models.CreateSearchResponse{
		ID:     jobID,
		Status: models.JobStatusPending,
	})
}

func (s *Server) handleListSearches(w http.ResponseWriter, r *http.Request) {
	jobs := s.store.List()
	writeJSON(w, http.StatusOK, models.JobList{Jobs: jobs, Total: len(jobs)})
}

func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Snapshot(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleStopSearch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.executor.Stop(id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.log.Info("stop requested", "job_id", id)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "stopping"})
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	best := rec.Scheduler.Best()
	if best == nil {
		writeError(w, http.StatusNotFound, "no successful trial yet")
		return
	}
	writeJSON(w, http.StatusOK, TrialView(best))
}

func (s *Server) handleTrials(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)

	trials, total := rec.Scheduler.Log().Page(offset, limit)
	page := models.TrialPage{
		Trials: make([]models.TrialView, 0, len(trials)),
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}
	for _, t := range trials {
		page.Trials = append(page.Trials, TrialView(t))
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, search.AnalyzeHistory(rec.Scheduler.Log(), rec.Lexico))
}

// handleExport dumps a job together with its full trial history, for
// offline inspection.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	job, err := s.store.Snapshot(rec.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	all := rec.Scheduler.Log().All()
	trials := make([]models.TrialView, 0, len(all))
	for _, t := range all {
		trials = append(trials, TrialView(t))
	}

	writeJSON(w, http.StatusOK, struct {
		Job    models.Job         `json:"job"`
		Trials []models.TrialView `json:"trials"`
	}{Job: job, Trials: trials})
}

// handleTrialStream streams trials as server-sent events, one event per
// finished trial, followed by a final job event when the search ends.
func (s *Server) handleTrialStream(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	sent := 0
	for {
		trials, _ := rec.Scheduler.Log().Page(sent, 0)
		for _, t := range trials {
			if err := writeEvent(w, "trial", TrialView(t)); err != nil {
				return
			}
			sent++
		}
		flusher.Flush()

		terminal, err := s.store.IsTerminal(rec.ID)
		if err != nil {
			return
		}
		if terminal {
			// Drain anything recorded between the page and the check.
			trials, _ := rec.Scheduler.Log().Page(sent, 0)
			for _, t := range trials {
				if err := writeEvent(w, "trial", TrialView(t)); err != nil {
					return
				}
				sent++
			}
			if job, err := s.store.Snapshot(rec.ID); err == nil {
				writeEvent(w, "done", job)
			}
			flusher.Flush()
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrJobTerminal):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
