package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/milmil7/gui-reaper/internal/api/models"
	"github.com/milmil7/gui-reaper/internal/events"
	"github.com/milmil7/gui-reaper/internal/logging"
)

// registerLogRoutes registers the process log and application log SSE endpoints.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "process-log-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Process Log Stream",
		Description: "Progress lines from kill, restart, priority and respawn operations. Kill reports arrive here once the background task finishes.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"log": events.ProcessLogEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.ProcessLogEvent](s.eventBus, eventCh)
		defer unsubscribe()

		forward(ctx, eventCh, send)
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "app-log-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/app",
		Summary:     "Application Log Stream",
		Description: "Real-time application log streaming. Sends buffered history after the given sequence number first, then new entries.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, input *models.AppLogInput, send sse.Sender) {
		// Subscribe before replaying so nothing falls between history and live
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		lastSeq := input.Since
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.Since(input.Since) {
				lastSeq = entry.Seq
				if input.Module != "" && entry.Module != input.Module {
					continue
				}
				if err := send.Data(logEntryEvent(entry)); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				entry, ok := ev.(events.LogEntryEvent)
				if !ok || entry.Seq <= lastSeq {
					continue
				}
				if input.Module != "" && entry.Module != input.Module {
					continue
				}
				if err := send.Data(entry); err != nil {
					return
				}
			}
		}
	})
}

func logEntryEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Seq:        entry.Seq,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}

// forward sends events from ch until the client goes away.
func forward(ctx context.Context, ch <-chan any, send sse.Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			if err := send.Data(ev); err != nil {
				return
			}
		}
	}
}
