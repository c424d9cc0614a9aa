// internal/services/progress_service.go
package services

import (
	"sync"
	"time"
)

// ProgressUpdate is one progress notification for a long-running run.
type ProgressUpdate struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
	Status  string `json:"status"` // running, completed, failed
}

// ProgressTracker tracks one generation run.
type ProgressTracker struct {
	RunID       string
	Current     int
	Total       int
	Message     string
	Status      string
	StartTime   time.Time
	UpdateTime  time.Time
	subscribers map[chan ProgressUpdate]bool
	done        chan struct{}
	mutex       sync.Mutex
}

// ProgressService manages progress trackers for generation runs.
type ProgressService struct {
	trackers map[string]*ProgressTracker
	mutex    sync.RWMutex
}

// NewProgressService creates the progress service.
func NewProgressService() *ProgressService {
	return &ProgressService{
		trackers: make(map[string]*ProgressTracker),
	}
}

// CreateTracker creates (or returns) the tracker for a run id.
func (s *ProgressService) CreateTracker(runID string, total int) *ProgressTracker {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if tracker, exists := s.trackers[runID]; exists {
		return tracker
	}

	tracker := &ProgressTracker{
		RunID:       runID,
		Total:       total,
		Message:     "starting",
		Status:      "running",
		StartTime:   time.Now(),
		UpdateTime:  time.Now(),
		subscribers: make(map[chan ProgressUpdate]bool),
		done:        make(chan struct{}),
	}

	s.trackers[runID] = tracker
	return tracker
}

// GetTracker returns the tracker for a run id.
func (s *ProgressService) GetTracker(runID string) (*ProgressTracker, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tracker, exists := s.trackers[runID]
	return tracker, exists
}

// RemoveTracker drops a finished tracker.
func (s *ProgressService) RemoveTracker(runID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.trackers, runID)
}

// Update advances the tracker and notifies subscribers.
func (t *ProgressTracker) Update(current int, message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if current > t.Current {
		t.Current = current
	}
	if message != "" {
		t.Message = message
	}
	t.UpdateTime = time.Now()

	t.notifyLocked()
}

// Complete marks the run finished and closes the done channel.
func (t *ProgressTracker) Complete(status, message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.Status != "running" {
		return
	}
	t.Status = status
	if message != "" {
		t.Message = message
	}
	t.UpdateTime = time.Now()

	t.notifyLocked()
	close(t.done)
}

// Subscribe registers a channel for progress updates. The channel receives a
// snapshot immediately.
func (t *ProgressTracker) Subscribe() chan ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	ch := make(chan ProgressUpdate, 16)
	t.subscribers[ch] = true
	ch <- t.snapshotLocked()
	return ch
}

// Unsubscribe removes a subscriber channel.
func (t *ProgressTracker) Unsubscribe(ch chan ProgressUpdate) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.subscribers[ch] {
		delete(t.subscribers, ch)
		close(ch)
	}
}

// Done returns the completion signal channel.
func (t *ProgressTracker) Done() <-chan struct{} {
	return t.done
}

// Snapshot returns the current progress state.
func (t *ProgressTracker) Snapshot() ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.snapshotLocked()
}

func (t *ProgressTracker) snapshotLocked() ProgressUpdate {
	return ProgressUpdate{
		Current: t.Current,
		Total:   t.Total,
		Message: t.Message,
		Status:  t.Status,
	}
}

// notifyLocked sends non-blocking updates to every subscriber. Slow
// subscribers miss intermediate updates rather than stalling the run.
func (t *ProgressTracker) notifyLocked() {
	update := t.snapshotLocked()
	for subscriber := range t.subscribers {
		select {
		case subscriber <- update:
		default:
		}
	}
}
