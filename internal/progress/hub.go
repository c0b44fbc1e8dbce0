package progress

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is how long finished runs stay queryable
const DefaultRetention = 10 * time.Minute

// ErrRunInProgress is returned by Begin for a run id that is still active
var ErrRunInProgress = errors.New("a translation with this run id is already in progress")

// Status is the phase a run is in
type Status string

const (
	StatusIdle               Status = "idle"
	StatusReading            Status = "reading"
	StatusProcessing         Status = "processing"
	StatusProcessingQuestion Status = "processing_question"
	StatusCompleted          Status = "completed"
	StatusError              Status = "error"
)

// Terminal reports whether no further updates follow this status
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Snapshot is the progress state of one run
type Snapshot struct {
	RunID           string    `json:"run_id,omitempty"`
	Status          Status    `json:"status"`
	CurrentQuestion int       `json:"current_question"`
	TotalQuestions  int       `json:"total_questions"`
	Message         string    `json:"message"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type run struct {
	snap Snapshot
	subs map[int]chan Snapshot
}

// Hub holds the progress of all recent runs. The empty run id is an alias
// for the most recently started run.
type Hub struct {
	mu        sync.Mutex
	runs      map[string]*run
	latest    string
	followers map[int]chan Snapshot // subscribed to the latest-run alias
	nextSub   int
	retention time.Duration
	now       func() time.Time
}

// NewHub creates a hub. A non-positive retention selects DefaultRetention.
func NewHub(retention time.Duration) *Hub {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Hub{
		runs:      make(map[string]*run),
		followers: make(map[int]chan Snapshot),
		retention: retention,
		now:       time.Now,
	}
}

// NewRunID mints a run id for clients that did not send one
func NewRunID() string {
	return uuid.NewString()
}

// Begin starts a run and makes it the latest one. An empty runID gets a
// fresh id. Subscribers that registered for the id before the run started
// keep receiving updates.
func (h *Hub) Begin(runID string) (*Reporter, error) {
	if runID == "" {
		runID = NewRunID()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.pruneLocked()

	r, ok := h.runs[runID]
	if ok && r.snap.Status != StatusIdle && !r.snap.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, runID)
	}
	if !ok {
		r = &run{subs: make(map[int]chan Snapshot)}
		h.runs[runID] = r
	}

	h.latest = runID
	h.publishLocked(r, Snapshot{
		RunID:   runID,
		Status:  StatusIdle,
		Message: "Waiting for upload...",
	}, true)

	return &Reporter{hub: h, runID: runID}, nil
}

// Snapshot returns the current state of the run. An unknown id yields an
// idle snapshot.
func (h *Hub) Snapshot(runID string) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	if runID == "" {
		runID = h.latest
	}
	if r, ok := h.runs[runID]; ok {
		return r.snap
	}
	return Snapshot{RunID: runID, Status: StatusIdle, UpdatedAt: h.now()}
}

// Subscribe registers for updates of the run. The current snapshot is
// delivered right away. The channel holds one snapshot and a newer one
// replaces an unread older one, so a slow reader only ever misses
// intermediate states. cancel unregisters and closes the channel.
func (h *Hub) Subscribe(runID string) (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Snapshot, 1)
	id := h.nextSub
	h.nextSub++

	if runID == "" {
		h.followers[id] = ch
		if r, ok := h.runs[h.latest]; ok {
			ch <- r.snap
		} else {
			ch <- Snapshot{Status: StatusIdle, UpdatedAt: h.now()}
		}
	} else {
		r, ok := h.runs[runID]
		if !ok {
			r = &run{
				snap: Snapshot{RunID: runID, Status: StatusIdle, UpdatedAt: h.now()},
				subs: make(map[int]chan Snapshot),
			}
			h.runs[runID] = r
		}
		r.subs[id] = ch
		ch <- r.snap
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if runID == "" {
				delete(h.followers, id)
			} else if r, ok := h.runs[runID]; ok {
				delete(r.subs, id)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Runs returns the number of runs currently held
func (h *Hub) Runs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs)
}

func (h *Hub) update(runID string, snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.runs[runID]
	if !ok {
		return
	}
	snap.RunID = runID
	h.publishLocked(r, snap, false)
}

// publishLocked overwrites the run state and notifies subscribers. Unless
// reset is set, current_question is clamped so it never goes backwards.
func (h *Hub) publishLocked(r *run, snap Snapshot, reset bool) {
	if !reset {
		if r.snap.Status.Terminal() {
			return
		}
		if snap.CurrentQuestion < r.snap.CurrentQuestion {
			snap.CurrentQuestion = r.snap.CurrentQuestion
		}
		if snap.TotalQuestions == 0 {
			snap.TotalQuestions = r.snap.TotalQuestions
		}
	}
	snap.UpdatedAt = h.now()
	r.snap = snap

	for _, ch := range r.subs {
		offer(ch, snap)
	}
	if snap.RunID == h.latest {
		for _, ch := range h.followers {
			offer(ch, snap)
		}
	}
}

// pruneLocked drops finished or never started runs nobody watches once
// they are older than the retention
func (h *Hub) pruneLocked() {
	cutoff := h.now().Add(-h.retention)
	for id, r := range h.runs {
		if len(r.subs) > 0 {
			continue
		}
		if r.snap.Status != StatusIdle && !r.snap.Status.Terminal() {
			continue
		}
		if r.snap.UpdatedAt.Before(cutoff) {
			delete(h.runs, id)
			if id == h.latest {
				h.latest = ""
			}
		}
	}
}

// offer delivers s without blocking, replacing an unread snapshot
func offer(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
