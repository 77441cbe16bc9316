package reporting

import (
	"sync"
	"time"
)

// Recorder keeps every update it receives, in order.
type Recorder struct {
	mu      sync.RWMutex
	updates []StageUpdate
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report implements Reporter.
func (r *Recorder) Report(update StageUpdate) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

// Updates returns a copy of the recorded updates.
func (r *Recorder) Updates() []StageUpdate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StageUpdate, len(r.updates))
	copy(out, r.updates)
	return out
}

// Stages returns the stage names in the order they first reported.
func (r *Recorder) Stages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var stages []string
	for _, u := range r.updates {
		if !seen[u.Stage] {
			seen[u.Stage] = true
			stages = append(stages, u.Stage)
		}
	}
	return stages
}

// Last returns the most recent update for stage.
func (r *Recorder) Last(stage string) (StageUpdate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].Stage == stage {
			return r.updates[i], true
		}
	}
	return StageUpdate{}, false
}
