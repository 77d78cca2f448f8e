// Package scheduler runs an initial full indexing pass per project followed
// by a long-lived periodic incremental pass, guaranteeing the two never run
// concurrently against the same project.
//
// Grounded on the design notes' "background scheduler without a runtime":
// two OS-thread-equivalent goroutines, with a closed stop channel standing
// in for the running flag, and a timer select on that channel in place of a
// timed condition variable, so Stop preempts the sleep instead of waiting it
// out.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"codebase-indexer/internal/logging"
)

const incrementalInterval = 300 * time.Second

// Pipeline is the subset of indexer.Pipeline the scheduler drives.
type Pipeline interface {
	FullIndex(ctx context.Context) error
	IncrementalIndex(ctx context.Context) error
}

// projectState guards one project's pipeline against overlapping passes.
type projectState struct {
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	once    sync.Once
}

// Scheduler owns one goroutine pair per project currently under
// auto-indexing.
type Scheduler struct {
	mu       sync.Mutex
	projects map[string]*projectState
	log      *slog.Logger
}

func New(log *slog.Logger) *Scheduler {
	if log == nil {
		log = logging.Nop()
	}
	return &Scheduler{projects: make(map[string]*projectState), log: log}
}

// StartAutoIndexing spawns a one-shot full-index worker, then — if no
// periodic worker is yet active for this project — a long-lived worker
// that runs an incremental pass every 300s. Safe to call repeatedly for the
// same project: every call spawns another full-index worker (its pass waits
// for any pass already running), but only the first call, or the first
// after Stop, spawns the periodic worker.
func (s *Scheduler) StartAutoIndexing(projectKey string, p Pipeline) {
	s.mu.Lock()
	state, exists := s.projects[projectKey]
	if !exists {
		state = &projectState{stop: make(chan struct{})}
		s.projects[projectKey] = state
	}
	s.mu.Unlock()

	go func() {
		if err := s.runGuarded(state, p.FullIndex); err != nil {
			s.log.Error("full index failed", "project", projectKey, "error", err)
		}
	}()

	state.once.Do(func() {
		go s.periodicLoop(projectKey, state, p)
	})
}

func (s *Scheduler) periodicLoop(projectKey string, state *projectState, p Pipeline) {
	timer := time.NewTimer(incrementalInterval)
	defer timer.Stop()

	for {
		select {
		case <-state.stop:
			return
		case <-timer.C:
			if err := s.runGuarded(state, p.IncrementalIndex); err != nil {
				s.log.Error("incremental index failed", "project", projectKey, "error", err)
			}
			timer.Reset(incrementalInterval)
		}
	}
}

// runGuarded enforces the single-writer-per-project invariant: the one-shot
// full-index worker and the periodic incremental worker for the same
// project never execute their pass concurrently.
func (s *Scheduler) runGuarded(state *projectState, pass func(context.Context) error) error {
	state.mu.Lock()
	defer state.mu.Unlock()
	return pass(context.Background())
}

// Stop ends a project's periodic worker: it observes the stop signal at its
// next sleep boundary, preempting the wait rather than running it out. A
// pass already in progress, full or incremental, runs to completion.
func (s *Scheduler) Stop(projectKey string) {
	s.mu.Lock()
	state, ok := s.projects[projectKey]
	if ok {
		delete(s.projects, projectKey)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	close(state.stop)
}

// StopAll terminates every project's workers, for host process shutdown.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.projects))
	for k := range s.projects {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	for _, k := range keys {
		s.Stop(k)
	}
}
