package tuned

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jingdong00/FLAML/internal/search"
	"github.com/jingdong00/FLAML/pkg/config"
	"github.com/jingdong00/FLAML/pkg/models"
)

var (
	// ErrJobNotFound means no job with the given ID exists.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobTerminal means the job already finished and cannot be stopped.
	ErrJobTerminal = errors.New("job already finished")
)

// SearchRecord is the daemon-side state of one search job. Status and
// timestamp fields are mutated only through Store methods; Scheduler
// and its trial log are concurrency-safe on their own.
type SearchRecord struct {
	ID         string
	Experiment *config.Experiment
	Scheduler  *search.Scheduler
	Lexico     *search.LexicoSpec
	Cancel     context.CancelFunc

	status       string
	createdAtMs  int64
	startedAtMs  int64
	finishedAtMs int64
	errText      string
	result       *search.SearchResult
}

// Store is the in-memory job registry, safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*SearchRecord
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*SearchRecord)}
}

// Create registers a new pending job.
func (s *Store) Create(rec *SearchRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.status = models.JobStatusPending
	rec.createdAtMs = time.Now().UnixMilli()
	s.jobs[rec.ID] = rec
}

// Get returns the record for a job.
func (s *Store) Get(id string) (*SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return rec, nil
}

// MarkRunning transitions a job to running.
func (s *Store) MarkRunning(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	rec.status = models.JobStatusRunning
	rec.startedAtMs = time.Now().UnixMilli()
	return nil
}

// MarkFinished records the outcome of a finished job. A run error marks
// the job failed; a cancelled stop reason marks it stopped; anything
// else is completed.
func (s *Store) MarkFinished(id string, result *search.SearchResult, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}

	rec.result = result
	rec.finishedAtMs = time.Now().UnixMilli()

	switch {
	case runErr != nil:
		rec.status = models.JobStatusFailed
		rec.errText = runErr.Error()
	case result != nil && result.StopReason == search.StopCancelled:
		rec.status = models.JobStatusStopped
	default:
		rec.status = models.JobStatusCompleted
	}
	return nil
}

// RequestStop cancels a running job. Terminal jobs return ErrJobTerminal.
func (s *Store) RequestStop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if isTerminal(rec.status) {
		return ErrJobTerminal
	}
	if rec.Cancel != nil {
		rec.Cancel()
	}
	return nil
}

// Snapshot returns the API view of a job.
func (s *Store) Snapshot(id string) (models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return models.Job{}, ErrJobNotFound
	}
	return snapshotLocked(rec), nil
}

// List returns API views of every job, newest first.
func (s *Store) List() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Job, 0, len(s.jobs))
	for _, rec := range s.jobs {
		out = append(out, snapshotLocked(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtMs != out[j].CreatedAtMs {
			return out[i].CreatedAtMs > out[j].CreatedAtMs
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// IsTerminal reports whether a job has finished.
func (s *Store) IsTerminal(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return false, ErrJobNotFound
	}
	return isTerminal(rec.status), nil
}

func isTerminal(status string) bool {
	switch status {
	case models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusStopped:
		return true
	}
	return false
}

func snapshotLocked(rec *SearchRecord) models.Job {
	job := models.Job{
		ID:           rec.ID,
		Status:       rec.status,
		Objective:    rec.Experiment.Evaluation.Objective,
		CreatedAtMs:  rec.createdAtMs,
		StartedAtMs:  rec.startedAtMs,
		FinishedAtMs: rec.finishedAtMs,
		Error:        rec.errText,
	}
	if rec.result != nil {
		job.Result = ResultView(rec.result)
	}
	return job
}

// ResultView converts a search result to its API form.
func ResultView(result *search.SearchResult) *models.SearchResultView {
	view := &models.SearchResultView{
		TrialsRun:  result.TrialsRun,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		Pruned:     result.Pruned,
		StopReason: string(result.StopReason),
		TargetsMet: result.TargetsMet,
		ElapsedMs:  result.Elapsed.Milliseconds(),
	}
	if result.Best != nil {
		view.BestConfig = result.Best.Config
		view.BestMetrics = result.Best.Metrics
		view.BestTrialIndex = result.Best.Index
	}
	return view
}

// TrialView converts a trial to its API form.
func TrialView(t *search.Trial) models.TrialView {
	view := models.TrialView{
		Index:     t.Index,
		Config:    t.Config,
		Metrics:   t.Metrics,
		Status:    string(t.Status),
		ElapsedMs: t.Elapsed.Milliseconds(),
	}
	if t.Err != nil {
		view.Error = t.Err.Error()
	}
	return view
}
