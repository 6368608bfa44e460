package resilience

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/herrtunante/whisp/internal/model"
)

// DLQEntry records one analysis input that failed so it can be retried later.
type DLQEntry struct {
	RunID        string           `json:"run_id,omitempty"`
	Source       string           `json:"source"`
	Request      model.RunRequest `json:"request"`
	Error        string           `json:"error"`
	ErrorType    string           `json:"error_type"` // "transient" or "permanent"
	RetryCount   int              `json:"retry_count"`
	MaxRetries   int              `json:"max_retries"`
	CreatedAt    time.Time        `json:"created_at"`
	LastFailedAt time.Time        `json:"last_failed_at"`
}

// CanRetry returns true if this entry hasn't exceeded its max retry count
// and its failure was transient.
func (e *DLQEntry) CanRetry() bool {
	return e.ErrorType == "transient" && e.RetryCount < e.MaxRetries
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}

// DLQ collects failed analysis inputs. Safe for concurrent use.
type DLQ struct {
	mu      sync.Mutex
	entries []DLQEntry
}

// NewDLQ creates an empty dead letter queue.
func NewDLQ() *DLQ {
	return &DLQ{}
}

// Add records a failed input with its error classification.
func (q *DLQ) Add(runID, source string, req model.RunRequest, err error, maxRetries int) {
	now := time.Now().UTC()
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, DLQEntry{
		RunID:        runID,
		Source:       source,
		Request:      req,
		Error:        err.Error(),
		ErrorType:    ClassifyError(err),
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		LastFailedAt: now,
	})
}

// Len returns the number of entries in the queue.
func (q *DLQ) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Entries returns a copy of the queued entries.
func (q *DLQ) Entries() []DLQEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DLQEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Retryable returns the entries eligible for another attempt.
func (q *DLQ) Retryable() []DLQEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []DLQEntry
	for _, e := range q.entries {
		if e.CanRetry() {
			out = append(out, e)
		}
	}
	return out
}

// WriteFile persists the queue as indented JSON so a later batch run can
// pick the failures back up. An empty queue writes nothing.
func (q *DLQ) WriteFile(path string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(q.entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "resilience: marshal dead letter queue")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "resilience: write dead letter queue")
	}
	return nil
}
