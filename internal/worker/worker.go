// Package worker runs queued background jobs, currently Strava activity sync.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/raceline/backend/internal/strava"
	"github.com/raceline/backend/pkg/apperr"
	"github.com/raceline/backend/pkg/queue"
)

// ActivitySyncProcessor processes activity sync jobs by running the Strava
// syncer for one athlete at a time.
type ActivitySyncProcessor struct {
	syncer *strava.Syncer
	queue  *queue.Queue
	logger *zap.Logger
}

// NewActivitySyncProcessor creates an activity sync processor.
func NewActivitySyncProcessor(syncer *strava.Syncer, q *queue.Queue, logger *zap.Logger) *ActivitySyncProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivitySyncProcessor{syncer: syncer, queue: q, logger: logger}
}

// Process executes one activity sync job.
func (p *ActivitySyncProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeActivitySync {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ActivitySyncPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	summary, err := p.syncer.SyncAthlete(ctx, payload.AthleteStravaID)
	if err != nil {
		// Retrying a sync for an athlete that no longer exists cannot succeed.
		if apperr.IsKind(err, apperr.KindNotFound) || apperr.IsKind(err, apperr.KindBadRequest) {
			p.logger.Warn("dropping unprocessable sync job",
				zap.String("job_id", job.ID), zap.Int64("athlete_strava_id", payload.AthleteStravaID), zap.Error(err))
			return nil
		}
		return fmt.Errorf("sync athlete %d: %w", payload.AthleteStravaID, err)
	}

	p.logger.Info("activity sync job completed",
		zap.String("job_id", job.ID), zap.Int64("athlete_strava_id", payload.AthleteStravaID),
		zap.Int("processed", summary.Processed), zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ActivitySyncProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("activity sync worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
