package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/samber/lo"

	"github.com/milmil7/gui-reaper/internal/api/models"
	"github.com/milmil7/gui-reaper/internal/control"
)

// registerTaskRoutes registers the background task endpoints.
func (s *Server) registerTaskRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/api/tasks",
		Summary:     "List Tasks",
		Description: "List running and recently finished kill tasks",
		Tags:        []string{"tasks"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.TaskListResponse, error) {
		infos := lo.Map(s.controller.Tasks(), func(t *control.Task, _ int) control.TaskInfo {
			return t.Info()
		})
		return &models.TaskListResponse{Body: models.TaskListData{Tasks: infos}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/api/tasks/{id}",
		Summary:     "Get Task",
		Description: "Get the state of a kill task, including its report once done",
		Tags:        []string{"tasks"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.TaskInput) (*models.TaskResponse, error) {
		task, ok := s.controller.Task(input.ID)
		if !ok {
			return nil, huma.Error404NotFound("task not found")
		}
		return &models.TaskResponse{Body: task.Info()}, nil
	})
}
