package jobs

import (
	"context"
	"time"

	"github.com/straye-as/pipeline-api/internal/auth"
	"go.uber.org/zap"
)

// RescoreJobName is the name of the nightly lead rescoring job
const RescoreJobName = "rescore-leads"

// LeadRescorer recomputes stored lead scores and reports how many changed
type LeadRescorer interface {
	RescoreAll(ctx context.Context) (int, error)
}

// RescoreJob recomputes every lead's score from its stored activities and
// saves the ones that drifted.
type RescoreJob struct {
	leads   LeadRescorer
	logger  *zap.Logger
	timeout time.Duration
}

func NewRescoreJob(leads LeadRescorer, logger *zap.Logger, timeout time.Duration) *RescoreJob {
	return &RescoreJob{
		leads:   leads,
		logger:  logger,
		timeout: timeout,
	}
}

// Run is called by the scheduler. It runs as the system user so every
// territory is covered.
func (j *RescoreJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.RunContext(ctx); err != nil {
		j.logger.Error("lead rescoring failed", zap.Error(err))
	}
}

// RunContext rescores within ctx and returns the number of leads updated
func (j *RescoreJob) RunContext(ctx context.Context) (int, error) {
	ctx = auth.WithUserContext(ctx, auth.SystemUser())

	start := time.Now()
	updated, err := j.leads.RescoreAll(ctx)
	if err != nil {
		return updated, err
	}

	j.logger.Info("lead rescoring finished",
		zap.Int("updated", updated),
		zap.Duration("duration", time.Since(start)))
	return updated, nil
}
