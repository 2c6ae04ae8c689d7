package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/dinger/backend/internal/ingest"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// IngestJob collects fundamentals for new tickers
// ⭐ SSOT: 수집 스케줄은 이 Job에서만
type IngestJob struct {
	job      *ingest.Job
	schedule string
	logger   *logger.Logger
}

// NewIngestJob creates the scheduled ingest job
func NewIngestJob(job *ingest.Job, schedule string, log *logger.Logger) *IngestJob {
	return &IngestJob{
		job:      job,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *IngestJob) Name() string {
	return ingest.JobName
}

// Schedule returns the cron schedule (INGEST_SCHEDULE)
func (j *IngestJob) Schedule() string {
	return j.schedule
}

// Run executes one ingest pass
func (j *IngestJob) Run(ctx context.Context) error {
	res, err := j.job.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id": res.RunID,
		"stored": res.Stored,
		"failed": res.Failed,
	}).Info("Scheduled ingest finished")
	return nil
}
