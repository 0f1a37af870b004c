package importer

import (
	"context"
	"sync"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"go.uber.org/zap"
)

// DefaultRetention is how long a finished job stays available for polling.
const DefaultRetention = 10 * time.Minute

// Registry runs imports and keeps their state for status polling until Sweep
// collects them.
type Registry struct {
	pipeline  *Pipeline
	retention time.Duration
	logger    *logger.Logger
	mu        sync.RWMutex
	jobs      map[string]*job
	wg        sync.WaitGroup
}

func NewRegistry(pipeline *Pipeline, retention time.Duration, log *logger.Logger) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &Registry{
		pipeline:  pipeline,
		retention: retention,
		logger:    log.Named("import-registry"),
		mu:        sync.RWMutex{},
		jobs:      make(map[string]*job),
		wg:        sync.WaitGroup{},
	}
}

// Start launches the import in the background and returns its job id. The job outlives
// ctx cancellation; use Cancel to stop it.
func (r *Registry) Start(ctx context.Context, raws []types.RawTrade, opts Options) string {
	j := r.register(opts)
	id := j.snapshot().ID

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		if err := r.pipeline.execute(context.WithoutCancel(ctx), j, raws, opts); err != nil {
			r.logger.Debug("Background import ended with error", zap.String("job_id", id), zap.Error(err))
		}
	}()

	return id
}

// Run imports synchronously; the job stays registered for polling like a started one.
func (r *Registry) Run(ctx context.Context, raws []types.RawTrade, opts Options) (*types.ImportJob, error) {
	j := r.register(opts)
	err := r.pipeline.execute(ctx, j, raws, opts)

	return j.snapshot(), err
}

// Get returns a copy of the job state.
func (r *Registry) Get(id string) (*types.ImportJob, error) {
	j, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	return j.snapshot(), nil
}

// Cancel asks the job to stop at its next batch or chunk boundary. Jobs that reached
// finalizing or a terminal state cannot be cancelled.
func (r *Registry) Cancel(id string) error {
	j, err := r.lookup(id)
	if err != nil {
		return err
	}

	if err := j.requestCancel(); err != nil {
		return err
	}

	r.logger.Info("Import cancellation requested", zap.String("job_id", id))

	return nil
}

// Sweep removes terminal jobs that completed more than the retention period ago and
// returns how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.pipeline.now().Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0

	for id, j := range r.jobs {
		snap := j.snapshot()
		if snap.Status.IsTerminal() && snap.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)

			removed++
		}
	}

	if removed > 0 {
		r.logger.Debug("Swept finished imports", zap.Int("removed", removed))
	}

	return removed
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.jobs)
}

// Wait blocks until every background import has returned.
func (r *Registry) Wait() {
	r.wg.Wait()
}

func (r *Registry) register(opts Options) *job {
	j := r.pipeline.newJob(opts)

	r.mu.Lock()
	r.jobs[j.state.ID] = j
	r.mu.Unlock()

	return j
}

func (r *Registry) lookup(id string) (*job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeImportNotFound, "import %s not found", id)
	}

	return j, nil
}
