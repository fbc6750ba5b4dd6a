// Package models defines the wire types shared by the tuned HTTP API,
// the completion notifier, and the tunectl client.
package models

// Job statuses as reported over the API.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusStopped   = "stopped"
)

// Trial statuses as reported over the API.
const (
	TrialStatusSuccess = "success"
	TrialStatusFailed  = "failed"
	TrialStatusPruned  = "pruned"
)

// Job is the API view of a search job.
type Job struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Objective    string `json:"objective"`
	CreatedAtMs  int64  `json:"created_at_ms"`
	StartedAtMs  int64  `json:"started_at_ms,omitempty"`
	FinishedAtMs int64  `json:"finished_at_ms,omitempty"`
	Error        string `json:"error,omitempty"`

	// Populated once the job finishes.
	Result *SearchResultView `json:"result,omitempty"`
}

// SearchResultView is the API view of a finished search.
type SearchResultView struct {
	BestConfig     map[string]any     `json:"best_config,omitempty"`
	BestMetrics    map[string]float64 `json:"best_metrics,omitempty"`
	BestTrialIndex int                `json:"best_trial_index,omitempty"`
	TrialsRun      int                `json:"trials_run"`
	Succeeded      int                `json:"succeeded"`
	Failed         int                `json:"failed"`
	Pruned         int                `json:"pruned"`
	StopReason     string             `json:"stop_reason"`
	TargetsMet     bool               `json:"targets_met"`
	ElapsedMs      int64              `json:"elapsed_ms"`
}

// TrialView is the API view of a single evaluated trial.
type TrialView struct {
	Index     int                `json:"index"`
	Config    map[string]any     `json:"config"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Status    string             `json:"status"`
	Error     string             `json:"error,omitempty"`
	ElapsedMs int64              `json:"elapsed_ms"`
}

// TrialPage is a paginated slice of trials.
type TrialPage struct {
	Trials []TrialView `json:"trials"`
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
}

// CreateSearchRequest is the payload for POST /v1/searches.
// Experiment is the YAML experiment document, passed through verbatim.
type CreateSearchRequest struct {
	Experiment string `json:"experiment"`
}

// CreateSearchResponse is the response for POST /v1/searches.
type CreateSearchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// JobList is the response for GET /v1/searches.
type JobList struct {
	Jobs  []Job `json:"jobs"`
	Total int   `json:"total"`
}

// CompletionEvent is the payload delivered to completion webhooks.
type CompletionEvent struct {
	JobID      string            `json:"job_id"`
	Status     string            `json:"status"`
	Result     *SearchResultView `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	FinishedMs int64             `json:"finished_at_ms"`
}

// ErrorResponse is the uniform error body returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
