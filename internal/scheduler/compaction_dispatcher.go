package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	stagesrepo "leadflow_backend/internal/stages/repository"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

// Adjacent inserts keep halving the gap between two sort keys. Once a
// tenant's smallest gap falls under this threshold the keys are close to
// exhaustion and that tenant gets a compaction task.
const minStageGap = 1e-6

// CompactionDispatcher periodically scans for tenants whose stage sort keys
// are running out of room and enqueues a compaction task per tenant.
type CompactionDispatcher struct {
	client   *asynq.Client
	queue    string
	repo     *stagesrepo.Repo
	interval time.Duration
	log      *logger.Logger
}

func NewCompactionDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*CompactionDispatcher, error) {
	opt, queue, err := schedulerConn(cfg)
	if err != nil {
		return nil, err
	}

	interval := cfg.GetOrderCompactionInterval()
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &CompactionDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		repo:     stagesrepo.New(pool),
		interval: interval,
		log:      log,
	}, nil
}

func (d *CompactionDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *CompactionDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		organizationIDs, err := d.repo.OrganizationsWithGapBelow(ctx, minStageGap)
		if err != nil {
			d.log.Warn("compaction scan failed", "error", err)
			continue
		}

		for _, organizationID := range organizationIDs {
			task, err := NewStageOrderCompactionTask(StageOrderCompactionPayload{
				OrganizationID: organizationID.String(),
			})
			if err != nil {
				d.log.Warn("compaction task build failed", "error", err, "organizationId", organizationID)
				continue
			}

			// TaskID keyed by tenant dedupes tasks across scan rounds.
			_, err = d.client.EnqueueContext(ctx, task,
				asynq.Queue(d.queue),
				asynq.TaskID("stage-compaction:"+organizationID.String()),
			)
			if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
				d.log.Warn("compaction enqueue failed", "error", err, "organizationId", organizationID)
			}
		}
	}
}
