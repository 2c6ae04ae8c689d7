package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/dinger/backend/internal/ingest"
	"github.com/wonny/dinger/backend/internal/scheduler"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// JobHandler exposes scheduler jobs
type JobHandler struct {
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(s *scheduler.Scheduler, log *logger.Logger) *JobHandler {
	return &JobHandler{
		scheduler: s,
		logger:    log,
	}
}

// TriggerIngest starts an ingest run in the background
// POST /api/jobs/ingest
func (h *JobHandler) TriggerIngest(w http.ResponseWriter, r *http.Request) {
	err := h.scheduler.RunJob(ingest.JobName)
	switch {
	case errors.Is(err, scheduler.ErrJobRunning):
		respondError(w, http.StatusConflict, "ingest is already running")
		return
	case errors.Is(err, scheduler.ErrJobNotFound):
		respondError(w, http.StatusServiceUnavailable, "ingest is not configured")
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to trigger ingest")
		respondError(w, http.StatusInternalServerError, "Failed to trigger ingest")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"message": "ingest started",
	})
}

// Stats returns run statistics of every job
// GET /api/jobs
func (h *JobHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.scheduler.Stats())
}
