package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/milmil7/gui-reaper/internal/api/models"
	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/process"
)

// registerRespawnRoutes registers the auto-respawn session endpoints.
func (s *Server) registerRespawnRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-respawn-sessions",
		Method:      http.MethodGet,
		Path:        "/api/respawn",
		Summary:     "List Respawn Sessions",
		Description: "List registered auto-respawn sessions and their current state",
		Tags:        []string{"respawn"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.RespawnListResponse, error) {
		sessions := s.controller.RespawnSessions()
		return &models.RespawnListResponse{
			Body: models.RespawnListData{Sessions: sessions, Count: len(sessions)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-respawn",
		Method:      http.MethodPost,
		Path:        "/api/respawn",
		Summary:     "Start Auto-Respawn",
		Description: "Supervise a command, relaunching it after each exit until the restart budget is spent. A session already registered under the same PID is replaced.",
		Tags:        []string{"respawn"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 500},
	}, func(_ context.Context, input *models.RespawnRequest) (*models.MessageResponse, error) {
		msg, err := s.controller.AutoRespawn(s.sessionSpec(input.Body))
		if err != nil {
			return nil, mapControlError(err)
		}
		return message(msg), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-respawn",
		Method:      http.MethodDelete,
		Path:        "/api/respawn/{pid}",
		Summary:     "Stop Auto-Respawn",
		Description: "Stop the session registered under a PID and kill its current child. Takes effect within one check interval.",
		Tags:        []string{"respawn"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.PIDInput) (*models.MessageResponse, error) {
		msg, err := s.controller.StopAutoRespawn(procinfo.PID(input.PID))
		if err != nil {
			return nil, mapControlError(err)
		}
		return message(msg), nil
	})
}

// sessionSpec fills the omitted fields of a respawn request from the
// server defaults.
func (s *Server) sessionSpec(body models.RespawnData) process.SessionSpec {
	spec := process.SessionSpec{
		Key:           procinfo.PID(body.PID),
		Command:       body.Command,
		Args:          body.Args,
		CheckInterval: s.options.DefaultCheckInterval,
		RestartDelay:  s.options.DefaultRestartDelay,
		MaxRestarts:   s.options.DefaultMaxRestarts,
	}
	if body.CheckIntervalSecs != nil {
		spec.CheckInterval = seconds(*body.CheckIntervalSecs)
	}
	if body.RestartDelaySecs != nil {
		spec.RestartDelay = seconds(*body.RestartDelaySecs)
	}
	if body.MaxRestarts != nil {
		spec.MaxRestarts = *body.MaxRestarts
	}
	return spec
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
