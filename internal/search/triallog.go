package search

import "sync"

// TrialLog is the append-only record of every evaluated trial, safe for
// concurrent use. Trials are never mutated or removed once appended, so
// readers can inspect history while the search is still running.
type TrialLog struct {
	mu        sync.RWMutex
	trials    []*Trial
	bestIndex int
}

// NewTrialLog returns an empty log.
func NewTrialLog() *TrialLog {
	return &TrialLog{bestIndex: -1}
}

// Append records a finished trial.
func (l *TrialLog) Append(t *Trial) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trials = append(l.trials, t)
}

// SetBest marks the trial at the given index as the incumbent.
func (l *TrialLog) SetBest(index int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bestIndex = index
}

// Best returns the incumbent trial, or nil if none has been marked.
func (l *TrialLog) Best() *Trial {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.trials {
		if t.Index == l.bestIndex {
			return t
		}
	}
	return nil
}

// Len returns the number of recorded trials.
func (l *TrialLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trials)
}

// All returns a snapshot of every recorded trial in append order.
func (l *TrialLog) All() []*Trial {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Trial, len(l.trials))
	copy(out, l.trials)
	return out
}

// Page returns a snapshot window of trials for paginated listings.
func (l *TrialLog) Page(offset, limit int) ([]*Trial, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := len(l.trials)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]*Trial, end-offset)
	copy(out, l.trials[offset:end])
	return out, total
}

// CountByStatus tallies trials per status.
func (l *TrialLog) CountByStatus() map[TrialStatus]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	counts := make(map[TrialStatus]int, 3)
	for _, t := range l.trials {
		counts[t.Status]++
	}
	return counts
}

// Successes returns a snapshot of successful trials in append order.
func (l *TrialLog) Successes() []*Trial {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Trial
	for _, t := range l.trials {
		if t.Status == TrialSuccess {
			out = append(out, t)
		}
	}
	return out
}
