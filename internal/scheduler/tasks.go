package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskStageOrderCompaction = "stages.order.compaction"

type StageOrderCompactionPayload struct {
	OrganizationID string `json:"organizationId"`
}

func NewStageOrderCompactionTask(payload StageOrderCompactionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStageOrderCompaction, data), nil
}

func ParseStageOrderCompactionPayload(task *asynq.Task) (StageOrderCompactionPayload, error) {
	var payload StageOrderCompactionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StageOrderCompactionPayload{}, err
	}
	return payload, nil
}
