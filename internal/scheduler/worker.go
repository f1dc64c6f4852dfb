package scheduler

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	stagesservice "leadflow_backend/internal/stages/service"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

// Worker consumes maintenance tasks from the queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	stages *stagesservice.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, stages *stagesservice.Service, log *logger.Logger) (*Worker, error) {
	opt, queue, err := schedulerConn(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		stages: stages,
		log:    log,
	}

	mux.HandleFunc(TaskStageOrderCompaction, w.handleStageOrderCompaction)

	return w, nil
}

func (w *Worker) handleStageOrderCompaction(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseStageOrderCompactionPayload(task)
	if err != nil {
		return err
	}

	organizationID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return err
	}

	count, err := w.stages.Reindex(ctx, organizationID)
	if err != nil {
		return err
	}

	w.log.Info("stage orders compacted", "organizationId", organizationID, "stages", count)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
