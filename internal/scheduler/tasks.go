package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskModuleRun = "outreach.module.run"

const TaskDigest = "outreach.digest"

// ModuleRunPayload names the module to cycle and who asked for it.
type ModuleRunPayload struct {
	Module      string `json:"module"`
	RequestedBy string `json:"requestedBy,omitempty"`
}

// DigestPayload carries the reporting boundary a digest was scheduled for.
type DigestPayload struct {
	RequestedFor string `json:"requestedFor,omitempty"`
}

func NewModuleRunTask(payload ModuleRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskModuleRun, data), nil
}

func ParseModuleRunPayload(task *asynq.Task) (ModuleRunPayload, error) {
	var payload ModuleRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ModuleRunPayload{}, err
	}
	return payload, nil
}

func NewDigestTask(payload DigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDigest, data), nil
}

func ParseDigestPayload(task *asynq.Task) (DigestPayload, error) {
	var payload DigestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DigestPayload{}, err
	}
	return payload, nil
}
