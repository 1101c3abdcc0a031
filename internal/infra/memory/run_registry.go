package memory

import (
	"context"
	"sync"

	"saa-question-importer/internal/domain"
)

// RunRegistry is an in-memory implementation of app.RunRegistry. It only guards imports
// within one process.
type RunRegistry struct {
	mu      sync.Mutex
	active  string
	last    domain.ImportReport
	hasLast bool
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{}
}

func (r *RunRegistry) Begin(_ context.Context, runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != "" {
		return domain.ErrImportInProgress
	}
	r.active = runID
	return nil
}

func (r *RunRegistry) Finish(_ context.Context, runID string, report domain.ImportReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == runID {
		r.active = ""
	}
	r.last = report
	r.hasLast = true
	return nil
}

func (r *RunRegistry) Last(_ context.Context) (domain.ImportReport, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.hasLast, nil
}

// Active returns the ID of the running import, or "".
func (r *RunRegistry) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
