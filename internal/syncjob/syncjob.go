// Package syncjob retries failed pushes to the durable backing store.
//
// The collection store's save path is single-attempt: a failed remote push
// marks the store dirty and the mutation still succeeds locally. This job
// periodically re-pushes the local snapshot while the store is dirty, which
// shrinks the window in which a restart on an ephemeral filesystem would
// lose the divergence.
package syncjob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"darkroom/internal/logging"
)

// Flusher is the slice of the collection store the job needs.
type Flusher interface {
	Dirty() bool
	FlushBacking(ctx context.Context) error
}

// Job periodically flushes a dirty collection store to its backing store.
type Job struct {
	flusher   Flusher
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// New creates the sync job, firing at the given interval.
func New(flusher Flusher, interval time.Duration, logger *slog.Logger) (*Job, error) {
	j := &Job{
		flusher: flusher,
		logger:  logging.Default(logger).With("component", "syncjob"),
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(j.run),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule sync job: %w", err)
	}

	j.scheduler = scheduler
	return j, nil
}

// Start begins the schedule.
func (j *Job) Start() {
	j.scheduler.Start()
}

// Stop shuts down the scheduler, waiting for a running flush to finish.
func (j *Job) Stop() error {
	return j.scheduler.Shutdown()
}

func (j *Job) run() {
	if !j.flusher.Dirty() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.flusher.FlushBacking(ctx); err != nil {
		j.logger.Warn("backing store still unavailable", "error", err)
		return
	}
	j.logger.Info("backing store caught up with local snapshot")
}
