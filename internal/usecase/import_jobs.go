package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/superpoupe/backend/internal/domain"
)

// maxRetainedJobs bounds how many finished jobs are kept for status lookups
const maxRetainedJobs = 32

// Importer runs a single import
type Importer interface {
	Import(ctx context.Context, request ImportRequest, progress ProgressFunc) (*domain.ImportSummary, error)
}

// ImportJob is the state of a background import
type ImportJob struct {
	ID       string                `json:"id"`
	Status   domain.ImportStatus   `json:"status"`
	Progress domain.ImportProgress `json:"progress"`
	Summary  *domain.ImportSummary `json:"summary,omitempty"`
	Error    string                `json:"error,omitempty"`
}

type jobState struct {
	job    ImportJob
	cancel context.CancelFunc
	done   chan struct{}
}

// ImportJobs runs imports in the background, one at a time
type ImportJobs struct {
	importer Importer
	logger   zerolog.Logger

	mu     sync.Mutex
	jobs   map[string]*jobState
	order  []string
	active string
}

// NewImportJobs creates a new job runner
func NewImportJobs(importer Importer, logger zerolog.Logger) *ImportJobs {
	return &ImportJobs{
		importer: importer,
		logger:   logger.With().Str("component", "import_jobs").Logger(),
		jobs:     make(map[string]*jobState),
	}
}

// Start launches an import and returns its job id. Only one import may run
// at a time; a second Start returns ErrImportInProgress.
func (j *ImportJobs) Start(request ImportRequest) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.active != "" {
		return "", domain.ErrImportInProgress
	}

	id := uuid.NewString()
	request.JobID = id

	ctx, cancel := context.WithCancel(context.Background())
	state := &jobState{
		job:    ImportJob{ID: id, Status: domain.ImportRunning},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	j.jobs[id] = state
	j.order = append(j.order, id)
	j.active = id
	j.prune()

	go j.run(ctx, state, request)

	return id, nil
}

func (j *ImportJobs) run(ctx context.Context, state *jobState, request ImportRequest) {
	defer close(state.done)
	defer state.cancel()

	summary, err := j.importer.Import(ctx, request, func(p domain.ImportProgress) {
		j.mu.Lock()
		state.job.Progress = p
		j.mu.Unlock()
	})

	j.mu.Lock()
	defer j.mu.Unlock()

	state.job.Summary = summary
	switch {
	case summary != nil:
		state.job.Status = summary.Status
	case err != nil:
		state.job.Status = domain.ImportFailed
	}
	if err != nil && !errors.Is(err, domain.ErrNothingFound) {
		state.job.Error = err.Error()
		j.logger.Warn().Err(err).Str("job_id", state.job.ID).Msg("import job failed")
	}
	if j.active == state.job.ID {
		j.active = ""
	}
}

// Get returns a copy of the job state
func (j *ImportJobs) Get(id string) (ImportJob, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	state, ok := j.jobs[id]
	if !ok {
		return ImportJob{}, domain.ErrJobNotFound
	}
	job := state.job
	if job.Summary != nil {
		summary := *job.Summary
		job.Summary = &summary
	}
	return job, nil
}

// Cancel asks a running job to stop at its next batch boundary
func (j *ImportJobs) Cancel(id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	state, ok := j.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	state.cancel()
	return nil
}

// Wait blocks until the job finishes or ctx is done
func (j *ImportJobs) Wait(ctx context.Context, id string) (ImportJob, error) {
	j.mu.Lock()
	state, ok := j.jobs[id]
	j.mu.Unlock()
	if !ok {
		return ImportJob{}, domain.ErrJobNotFound
	}

	select {
	case <-state.done:
		return j.Get(id)
	case <-ctx.Done():
		return ImportJob{}, ctx.Err()
	}
}

// Shutdown cancels the running job, if any, and waits for it to stop
func (j *ImportJobs) Shutdown(ctx context.Context) error {
	j.mu.Lock()
	id := j.active
	j.mu.Unlock()
	if id == "" {
		return nil
	}

	if err := j.Cancel(id); err != nil {
		return err
	}
	_, err := j.Wait(ctx, id)
	return err
}

// prune drops the oldest finished jobs beyond maxRetainedJobs. Caller holds mu.
func (j *ImportJobs) prune() {
	for len(j.order) > maxRetainedJobs {
		oldest := j.order[0]
		if oldest == j.active {
			return
		}
		delete(j.jobs, oldest)
		j.order = j.order[1:]
	}
}
