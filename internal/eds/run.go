package eds

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run records one decomposition attempt: which dataset, which dictionary
// mode, the engine parameters and the outcome. Runs are in-memory
// bookkeeping owned by the caller; persistence of fitted results is
// outside the core.
type Run struct {
	RunID      string
	Dataset    string
	Mode       Mode
	ParamsJSON string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun starts a run record with a fresh unique ID. params may be any
// JSON-serialisable engine parameter struct, or nil.
func NewRun(dataset string, mode Mode, params any) (*Run, error) {
	paramsJSON := ""
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("serialise run params: %w", err)
		}
		paramsJSON = string(data)
	}
	return &Run{
		RunID:      uuid.New().String(),
		Dataset:    dataset,
		Mode:       mode,
		ParamsJSON: paramsJSON,
		Status:     "running",
		StartedAt:  time.Now(),
	}, nil
}

// Finish closes the run with a final status ("completed", "failed", ...).
func (r *Run) Finish(status string) {
	r.Status = status
	r.FinishedAt = time.Now()
}

// Duration returns the wall-clock time of a finished run, or the elapsed
// time so far for a running one.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
