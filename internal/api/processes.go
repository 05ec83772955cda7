package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/samber/lo"

	"github.com/milmil7/gui-reaper/internal/api/models"
	"github.com/milmil7/gui-reaper/internal/control"
	"github.com/milmil7/gui-reaper/internal/limits"
	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// registerProcessRoutes registers the process inspection and control endpoints.
func (s *Server) registerProcessRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-processes",
		Method:      http.MethodGet,
		Path:        "/api/processes",
		Summary:     "List Processes",
		Description: "Enumerate every running process with CPU, memory, uptime, family and disk I/O",
		Tags:        []string{"processes"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.ProcessListResponse, error) {
		list, err := s.controller.ListProcesses(ctx)
		if err != nil {
			return nil, mapControlError(err)
		}
		return &models.ProcessListResponse{
			Body: models.ProcessListData{Processes: list, Count: len(list)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-process",
		Method:      http.MethodGet,
		Path:        "/api/processes/{pid}",
		Summary:     "Get Process",
		Description: "Describe a single process",
		Tags:        []string{"processes"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(ctx context.Context, input *models.PIDInput) (*models.ProcessResponse, error) {
		info, err := s.controller.LookupProcess(ctx, procinfo.PID(input.PID))
		if err != nil {
			return nil, mapControlError(err)
		}
		return &models.ProcessResponse{Body: info}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "kill-process",
		Method:        http.MethodPost,
		Path:          "/api/processes/{pid}/kill",
		Summary:       "Kill Process",
		Description:   "Terminate a process, and optionally its descendants, in the background. Descendants are stopped before the root. Poll the returned task or follow the log stream for the report.",
		Tags:          []string{"processes"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401},
	}, func(_ context.Context, input *models.KillRequest) (*models.TaskAcceptedResponse, error) {
		task, err := s.controller.KillProcess(procinfo.PID(input.PID), input.Body.KillChildren, s.killTimeout(input.Body))
		if err != nil {
			return nil, mapControlError(err)
		}
		return accepted(task), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "batch-kill-processes",
		Method:        http.MethodPost,
		Path:          "/api/processes/batch-kill",
		Summary:       "Batch Kill",
		Description:   "Terminate several process trees one after another in the background",
		Tags:          []string{"processes"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401},
	}, func(_ context.Context, input *models.BatchKillRequest) (*models.TaskAcceptedResponse, error) {
		task, err := s.controller.BatchKill(toPIDs(input.Body.PIDs), input.Body.KillChildren, s.killTimeout(input.Body.KillOptions))
		if err != nil {
			return nil, mapControlError(err)
		}
		return accepted(task), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "kill-and-restart-process",
		Method:        http.MethodPost,
		Path:          "/api/processes/{pid}/kill-and-restart",
		Summary:       "Kill And Restart",
		Description:   "Terminate a process tree, then launch an executable whatever the kill outcome",
		Tags:          []string{"processes"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401},
	}, func(_ context.Context, input *models.KillAndRestartRequest) (*models.TaskAcceptedResponse, error) {
		body := input.Body
		task, err := s.controller.KillAndRestart(procinfo.PID(input.PID), body.KillChildren, s.killTimeout(body.KillOptions), body.Exe, body.Args)
		if err != nil {
			return nil, mapControlError(err)
		}
		return accepted(task), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "restart-process",
		Method:      http.MethodPost,
		Path:        "/api/processes/restart",
		Summary:     "Launch Process",
		Description: "Launch an executable detached from the request",
		Tags:        []string{"processes"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 500},
	}, func(_ context.Context, input *models.RestartRequest) (*models.MessageResponse, error) {
		msg, err := s.controller.RestartProcess(input.Body.Exe, input.Body.Args)
		if err != nil {
			return nil, mapControlError(err)
		}
		return message(msg), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-process-priority",
		Method:      http.MethodPut,
		Path:        "/api/processes/{pid}/priority",
		Summary:     "Set Priority",
		Description: "Set the scheduling priority of a process. Windows maps the value onto a priority class.",
		Tags:        []string{"processes"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 403, 500},
	}, func(_ context.Context, input *models.PriorityRequest) (*models.MessageResponse, error) {
		msg, err := s.controller.SetPriority(procinfo.PID(input.PID), input.Body.Value)
		if err != nil {
			return nil, mapControlError(err)
		}
		return message(msg), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "batch-set-priority",
		Method:      http.MethodPost,
		Path:        "/api/processes/batch-priority",
		Summary:     "Batch Set Priority",
		Description: "Set the same priority on several processes; returns one line per PID",
		Tags:        []string{"processes"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *models.BatchPriorityRequest) (*models.MessageResponse, error) {
		msg, err := s.controller.BatchSetPriority(toPIDs(input.Body.PIDs), input.Body.Value)
		if err != nil {
			return nil, mapControlError(err)
		}
		return message(msg), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-process-limits",
		Method:      http.MethodPut,
		Path:        "/api/processes/{pid}/limits",
		Summary:     "Set Limits",
		Description: "Apply memory and open-file ceilings to a running process",
		Tags:        []string{"processes"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 403, 500, 501},
	}, func(_ context.Context, input *models.LimitsRequest) (*models.MessageResponse, error) {
		err := s.controller.SetProcessLimits(limits.Limits{
			PID:          procinfo.PID(input.PID),
			MaxMemoryMB:  input.Body.MaxMemoryMB,
			MaxOpenFiles: input.Body.MaxOpenFiles,
		})
		if err != nil {
			return nil, mapControlError(err)
		}
		return message("Limits applied"), nil
	})
}

// killTimeout resolves the grace period of a kill request.
func (s *Server) killTimeout(opts models.KillOptions) time.Duration {
	if opts.TimeoutSecs == nil {
		return s.options.DefaultKillTimeout
	}
	return time.Duration(*opts.TimeoutSecs) * time.Second
}

func accepted(task *control.Task) *models.TaskAcceptedResponse {
	return &models.TaskAcceptedResponse{
		Location: "/api/tasks/" + task.ID,
		Body:     task.Info(),
	}
}

func message(msg string) *models.MessageResponse {
	return &models.MessageResponse{Body: models.MessageData{Message: msg}}
}

func toPIDs(pids []int32) []procinfo.PID {
	return lo.Map(pids, func(pid int32, _ int) procinfo.PID { return procinfo.PID(pid) })
}
