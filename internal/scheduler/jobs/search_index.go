package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/search"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// RecordSource returns the current record batch
type RecordSource interface {
	Records(ctx context.Context) ([]contracts.StockMetricRecord, error)
}

// SearchIndexJob rebuilds the ticker search index from the store
type SearchIndexJob struct {
	source RecordSource
	index  *search.Index
	logger *logger.Logger
}

// NewSearchIndexJob creates a new search index job
func NewSearchIndexJob(source RecordSource, index *search.Index, log *logger.Logger) *SearchIndexJob {
	return &SearchIndexJob{
		source: source,
		index:  index,
		logger: log,
	}
}

// Name returns the job name
func (j *SearchIndexJob) Name() string {
	return "search_index"
}

// Schedule returns the cron schedule (every 15 minutes)
func (j *SearchIndexJob) Schedule() string {
	return "0 */15 * * * *"
}

// Run rebuilds the index
func (j *SearchIndexJob) Run(ctx context.Context) error {
	records, err := j.source.Records(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	if err := j.index.Rebuild(records); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	j.logger.WithField("documents", j.index.Len()).Debug("Search index refreshed")
	return nil
}
