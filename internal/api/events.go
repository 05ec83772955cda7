package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/milmil7/gui-reaper/internal/events"
)

// registerEventRoutes registers the lifecycle event SSE endpoint.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Lifecycle Event Stream",
		Description: "Structured events for finished kill tasks and respawn session state changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"kill-completed":        events.KillCompletedEvent{},
		"respawn-state-changed": events.RespawnStateChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.KillCompletedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RespawnStateChangedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		forward(ctx, eventCh, send)
	})
}
