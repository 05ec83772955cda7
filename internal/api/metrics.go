package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/milmil7/gui-reaper/internal/metrics"
)

// KillStatsResponse reports termination outcome counters since startup.
type KillStatsResponse struct {
	Body struct {
		Outcomes map[string]uint64 `json:"outcomes" doc:"Termination outcomes by result (killed_gracefully, killed_forcefully, failed)"`
	}
}

// registerMetricsRoutes registers the JSON view of the kill counters.
// The full Prometheus exposition is served separately on /metrics.
func (s *Server) registerMetricsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-kill-stats",
		Method:      http.MethodGet,
		Path:        "/api/metrics/kills",
		Summary:     "Kill Statistics",
		Description: "Count of termination outcomes by result since the server started",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*KillStatsResponse, error) {
		resp := &KillStatsResponse{}
		resp.Body.Outcomes = metrics.GetKillOutcomes()
		return resp, nil
	})
}
