package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/milmil7/gui-reaper/internal/api/models"
	"github.com/milmil7/gui-reaper/internal/control"
	"github.com/milmil7/gui-reaper/internal/events"
	"github.com/milmil7/gui-reaper/internal/limits"
	"github.com/milmil7/gui-reaper/internal/logging"
	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/process"
	"github.com/milmil7/gui-reaper/internal/version"
)

// ProcessController is the set of lifecycle operations served over HTTP.
// *control.Controller implements it.
type ProcessController interface {
	ListProcesses(ctx context.Context) ([]procinfo.ProcessInfo, error)
	LookupProcess(ctx context.Context, pid procinfo.PID) (procinfo.ProcessInfo, error)
	KillProcess(pid procinfo.PID, killChildren bool, timeout time.Duration) (*control.Task, error)
	BatchKill(pids []procinfo.PID, killChildren bool, timeout time.Duration) (*control.Task, error)
	KillAndRestart(pid procinfo.PID, killChildren bool, timeout time.Duration, exe string, args []string) (*control.Task, error)
	RestartProcess(exe string, args []string) (string, error)
	SetPriority(pid procinfo.PID, value int) (string, error)
	BatchSetPriority(pids []procinfo.PID, value int) (string, error)
	AutoRespawn(spec process.SessionSpec) (string, error)
	StopAutoRespawn(pid procinfo.PID) (string, error)
	RespawnSessions() []process.SessionInfo
	SetProcessLimits(l limits.Limits) error
	Task(id string) (*control.Task, bool)
	Tasks() []*control.Task
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	controller ProcessController
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		credentials, err := requestCredentials(ctx)
		if errors.Is(err, errInvalidAuthType) {
			s.unauthorized(ctx, "Invalid authentication type")
			return
		}
		if err != nil {
			s.unauthorized(ctx, "Invalid credentials format", err)
			return
		}
		if credentials == "" {
			s.unauthorized(ctx, "Authentication required")
			return
		}

		user, pass, ok := strings.Cut(credentials, ":")
		if !ok {
			s.unauthorized(ctx, "Invalid credentials format")
			return
		}
		if user != username || pass != password {
			s.unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

// requestCredentials returns the decoded "user:pass" pair from the
// Authorization header, or from the auth query parameter for SSE clients
// that cannot set headers.
func requestCredentials(ctx huma.Context) (string, error) {
	encoded := ctx.Query("auth")
	if header := ctx.Header("Authorization"); header != "" {
		const prefix = "Basic "
		if !strings.HasPrefix(header, prefix) {
			return "", errInvalidAuthType
		}
		encoded = header[len(prefix):]
	}
	if encoded == "" {
		return "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func (s *Server) unauthorized(ctx huma.Context, msg string, errs ...error) {
	ctx.SetHeader("WWW-Authenticate", `Basic realm="Reaper API"`)
	_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
}

// Options configures the API server.
type Options struct {
	AuthUsername string
	AuthPassword string

	// CORSOrigins restricts cross-origin requests. Empty allows any origin.
	CORSOrigins []string

	// DefaultKillTimeout is used when a kill request omits timeout_secs.
	DefaultKillTimeout time.Duration

	// Respawn defaults applied when a request omits them.
	DefaultCheckInterval time.Duration
	DefaultRestartDelay  time.Duration
	DefaultMaxRestarts   int

	Controller        ProcessController
	EventBus          *events.Bus
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	if opts == nil || opts.Controller == nil || opts.EventBus == nil {
		panic("api: Options with Controller and EventBus is required")
	}

	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	if len(opts.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = opts.CORSOrigins
	}
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("Reaper API", version.String())
	config.Info.Description = "Process inspection, tree termination and auto-respawn supervision"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:        api,
		mux:        mux,
		controller: opts.Controller,
		eventBus:   opts.EventBus,
		options:    opts,
		logger:     logging.GetLogger("api"),
	}

	// CORS first, then request logging, then auth
	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Prometheus scrapes without auth
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting Reaper API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down. SSE streams are closed rather than drained.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return s.httpServer.Close()
	}
	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		versionInfo := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   versionInfo.Version,
				GitCommit: versionInfo.GitCommit,
				BuildDate: versionInfo.BuildDate,
				BuildID:   versionInfo.BuildID,
				GoVersion: versionInfo.GoVersion,
				Compiler:  versionInfo.Compiler,
				Platform:  versionInfo.Platform,
			},
		}, nil
	})

	s.registerProcessRoutes()
	s.registerRespawnRoutes()
	s.registerTaskRoutes()
	s.registerLogRoutes()
	s.registerEventRoutes()
	s.registerMetricsRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
