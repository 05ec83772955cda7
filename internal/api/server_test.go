package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/milmil7/gui-reaper/internal/control"
	"github.com/milmil7/gui-reaper/internal/events"
	"github.com/milmil7/gui-reaper/internal/limits"
	"github.com/milmil7/gui-reaper/internal/logging"
	"github.com/milmil7/gui-reaper/internal/priority"
	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/process"
	"github.com/milmil7/gui-reaper/internal/reaper"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProcesses struct {
	procs map[procinfo.PID]procinfo.ProcessInfo
}

func (f *fakeProcesses) List(context.Context) ([]procinfo.ProcessInfo, error) {
	out := make([]procinfo.ProcessInfo, 0, len(f.procs))
	for _, p := range f.procs {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProcesses) Lookup(_ context.Context, pid procinfo.PID) (procinfo.ProcessInfo, error) {
	p, ok := f.procs[pid]
	if !ok {
		return procinfo.ProcessInfo{}, procinfo.ErrNotFound
	}
	return p, nil
}

// recordingKiller reports every root as killed gracefully and remembers the
// timeout it was given.
type recordingKiller struct {
	mu       sync.Mutex
	timeouts []time.Duration
}

func (k *recordingKiller) KillTree(_ context.Context, root procinfo.PID, _ bool, timeout time.Duration) reaper.Report {
	k.mu.Lock()
	k.timeouts = append(k.timeouts, timeout)
	k.mu.Unlock()
	return reaper.Report{Root: root, Outcomes: []reaper.Outcome{{PID: root, Result: reaper.KilledGracefully}}}
}

func (k *recordingKiller) BatchKill(ctx context.Context, roots []procinfo.PID, killChildren bool, timeout time.Duration) []reaper.Report {
	reports := make([]reaper.Report, 0, len(roots))
	for _, root := range roots {
		reports = append(reports, k.KillTree(ctx, root, killChildren, timeout))
	}
	return reports
}

func (k *recordingKiller) lastTimeout() time.Duration {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.timeouts) == 0 {
		return -1
	}
	return k.timeouts[len(k.timeouts)-1]
}

// runningHandle is a child that stays alive until killed.
type runningHandle struct {
	pid    int
	killed chan struct{}
	once   sync.Once
}

func (h *runningHandle) PID() int { return h.pid }

func (h *runningHandle) Exited() bool {
	select {
	case <-h.killed:
		return true
	default:
		return false
	}
}

func (h *runningHandle) Kill() error {
	h.once.Do(func() { close(h.killed) })
	return nil
}

func launchRunning(context.Context, string, []string, logging.Logger) (process.Handle, error) {
	return &runningHandle{pid: 777, killed: make(chan struct{})}, nil
}

type testEnv struct {
	server *Server
	ctrl   *control.Controller
	killer *recordingKiller
	bus    *events.Bus
}

func newTestEnv(t *testing.T, mutate func(*Options, *control.Options)) *testEnv {
	t.Helper()

	bus := events.New()
	killer := &recordingKiller{}
	registry := process.NewRegistry(&process.RegistryOptions{
		Launcher: launchRunning,
		Logger:   testLogger(),
	})

	ctrlOpts := &control.Options{
		Processes: &fakeProcesses{procs: map[procinfo.PID]procinfo.ProcessInfo{
			42: {PID: 42, Name: "worker", Children: []int32{}},
		}},
		Killer:   killer,
		Registry: registry,
		Bus:      bus,
		Launcher: launchRunning,
		SetPriority: func(pid procinfo.PID, value int) (string, error) {
			if value < priority.MinValue || value > priority.MaxValue {
				return "", priority.ErrInvalidValue
			}
			return fmt.Sprintf("Set PID %d nice level to %d", pid, value), nil
		},
		ApplyLimits: func(limits.Limits) error { return limits.ErrUnsupported },
		Logger:      testLogger(),
	}
	opts := &Options{
		AuthUsername:         "admin",
		AuthPassword:         "secret",
		DefaultKillTimeout:   5 * time.Second,
		DefaultCheckInterval: 10 * time.Millisecond,
		EventBus:             bus,
	}
	if mutate != nil {
		mutate(opts, ctrlOpts)
	}

	ctrl := control.New(ctrlOpts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = ctrl.Close(ctx)
	})
	opts.Controller = ctrl

	return &testEnv{server: NewServer(opts), ctrl: ctrl, killer: killer, bus: bus}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.SetBasicAuth("admin", "secret")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

// taskView is the part of a task response the tests inspect. Reports are
// matched on the raw body.
type taskView struct {
	ID      string           `json:"id"`
	Kind    control.TaskKind `json:"kind"`
	Roots   []int32          `json:"roots"`
	Done    bool             `json:"done"`
	Summary string           `json:"summary"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthWithoutAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	valid := base64.StdEncoding.EncodeToString([]byte("admin:secret"))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong password", "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:nope")), "", http.StatusUnauthorized},
		{"wrong scheme", "Bearer token", "", http.StatusUnauthorized},
		{"garbled", "Basic !!!", "", http.StatusUnauthorized},
		{"header", "Basic " + valid, "", http.StatusOK},
		{"query fallback", "", "?auth=" + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/processes"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.server.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestProcessRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/processes", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	list := decode[struct {
		Count int `json:"count"`
	}](t, rec)
	if list.Count != 1 {
		t.Errorf("expected 1 process, got %d", list.Count)
	}

	if rec := env.do(t, http.MethodGet, "/api/processes/42", ""); rec.Code != http.StatusOK {
		t.Errorf("lookup: expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/processes/43", ""); rec.Code != http.StatusNotFound {
		t.Errorf("lookup unknown: expected 404, got %d", rec.Code)
	}
}

func TestKillReturnsTask(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/processes/42/kill", `{"kill_children": true}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	info := decode[taskView](t, rec)
	if info.Kind != control.TaskKill || len(info.Roots) != 1 || info.Roots[0] != 42 {
		t.Errorf("unexpected task %+v", info)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/tasks/"+info.ID {
		t.Errorf("unexpected Location %q", loc)
	}

	task, ok := env.ctrl.Task(info.ID)
	if !ok {
		t.Fatal("task not registered")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := task.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if got := env.killer.lastTimeout(); got != 5*time.Second {
		t.Errorf("expected default timeout 5s, got %v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/tasks/"+info.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get task: expected 200, got %d", rec.Code)
	}
	done := decode[taskView](t, rec)
	if !done.Done || !strings.Contains(done.Summary, "PID 42 killed gracefully") {
		t.Errorf("unexpected finished task %+v", done)
	}
	if !strings.Contains(rec.Body.String(), `"result":"killed_gracefully"`) {
		t.Errorf("expected outcome result in report: %s", rec.Body.String())
	}
}

func TestKillExplicitZeroTimeout(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/processes/batch-kill", `{"pids": [1, 2], "timeout_secs": 0}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	task, _ := env.ctrl.Task(decode[taskView](t, rec).ID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := task.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if got := env.killer.lastTimeout(); got != 0 {
		t.Errorf("expected timeout 0, got %v", got)
	}
	if len(task.Reports()) != 2 {
		t.Errorf("expected 2 reports, got %d", len(task.Reports()))
	}
}

func TestUnknownTask(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/tasks/00000000-0000-0000-0000-000000000000", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRespawnRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec := env.do(t, http.MethodDelete, "/api/respawn/99", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("stop unknown: expected 404, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/respawn", `{"pid": 99, "command": "/bin/worker", "max_restarts": 3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if msg := decode[struct{ Message string }](t, rec).Message; msg != "Auto-respawn started for pid 99" {
		t.Errorf("unexpected message %q", msg)
	}

	list := decode[struct {
		Sessions []process.SessionInfo `json:"sessions"`
	}](t, env.do(t, http.MethodGet, "/api/respawn", ""))
	if len(list.Sessions) != 1 || list.Sessions[0].Key != 99 || list.Sessions[0].MaxRestarts != 3 {
		t.Fatalf("unexpected sessions %+v", list.Sessions)
	}
	if list.Sessions[0].CheckInterval != 10*time.Millisecond {
		t.Errorf("expected server default check interval, got %v", list.Sessions[0].CheckInterval)
	}

	rec = env.do(t, http.MethodDelete, "/api/respawn/99", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", rec.Code)
	}
	if msg := decode[struct{ Message string }](t, rec).Message; msg != "Stopped auto-respawn for PID 99" {
		t.Errorf("unexpected message %q", msg)
	}
	if rec := env.do(t, http.MethodDelete, "/api/respawn/99", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second stop: expected 404, got %d", rec.Code)
	}
}

func TestPriorityAndLimitErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"valid priority", http.MethodPut, "/api/processes/42/priority", `{"value": 5}`, http.StatusOK},
		{"invalid priority", http.MethodPut, "/api/processes/42/priority", `{"value": 40}`, http.StatusBadRequest},
		{"batch priority", http.MethodPost, "/api/processes/batch-priority", `{"pids": [1, 2], "value": 3}`, http.StatusOK},
		{"unsupported limits", http.MethodPut, "/api/processes/42/limits", `{"max_memory_mb": 64}`, http.StatusNotImplemented},
		{"empty restart", http.MethodPost, "/api/processes/restart", `{"exe": ""}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRestartProcess(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/processes/restart", `{"exe": "/bin/worker", "args": ["-v"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if msg := decode[struct{ Message string }](t, rec).Message; msg != "Restarted process /bin/worker with PID 777" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(o *Options, _ *control.Options) {
		o.CORSOrigins = []string{"http://localhost:3000"}
	})

	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:3000", "http://localhost:3000"},
		{"http://evil.example", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/processes", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: expected 204, got %d", tt.origin, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("%s: Access-Control-Allow-Origin = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestProcessLogStream(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// Headers are only flushed with the first event, so lines must already
	// be flowing while the client waits for the response.
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = env.ctrl.SetPriority(42, 1)
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/logs/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.SetBasicAuth("admin", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	lines := make(chan string, 10)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before a process log line arrived")
			}
			if strings.HasPrefix(line, "event:") && !strings.Contains(line, "log") {
				t.Errorf("unexpected event name %q", line)
			}
			if strings.HasPrefix(line, "data:") {
				if !strings.Contains(line, "Set PID 42 nice level to 1") {
					t.Errorf("unexpected data %q", line)
				}
				return
			}
		case <-ctx.Done():
			t.Fatal("timeout waiting for process log line")
		}
	}
}

func TestBatchRoutesRejectInvalidPIDs(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"batch kill negative and zero", "/api/processes/batch-kill", `{"pids": [-1, 0]}`},
		{"batch kill mixed", "/api/processes/batch-kill", `{"pids": [42, -1]}`},
		{"batch priority zero", "/api/processes/batch-priority", `{"pids": [0], "value": 5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest && rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("expected 400 or 422, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	if tasks := env.ctrl.Tasks(); len(tasks) != 0 {
		t.Errorf("rejected batches created %d tasks", len(tasks))
	}
	if got := env.killer.lastTimeout(); got != -1 {
		t.Errorf("killer reached with timeout %v", got)
	}
}

func TestLimitsRejectOverflowingMemory(t *testing.T) {
	env := newTestEnv(t, func(_ *Options, c *control.Options) {
		c.ApplyLimits = limits.Apply
	})

	rec := env.do(t, http.MethodPut, "/api/processes/42/limits", `{"max_memory_mb": 17592186044416}`)
	if rec.Code != http.StatusUnprocessableEntity && rec.Code != http.StatusBadRequest {
		t.Errorf("expected 422 or 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAppLogReplaySince(t *testing.T) {
	logging.Initialize(logging.Config{Level: "info", Output: io.Discard})
	logging.GetLogger("reaper").Info("before cursor")
	cursor := logging.GetBuffer().Since(0)
	since := cursor[len(cursor)-1].Seq
	logging.GetLogger("api").Info("other module")
	logging.GetLogger("reaper").Info("after cursor")

	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/api/logs/app?since=%d&module=reaper", ts.URL, since)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.SetBasicAuth("admin", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		if strings.Contains(line, "before cursor") || strings.Contains(line, "other module") {
			t.Fatalf("replayed an entry that should be skipped: %s", line)
		}
		if strings.Contains(line, "after cursor") {
			return
		}
	}
	t.Fatalf("stream ended without the entry after the cursor: %v", scanner.Err())
}

func TestKillStats(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/metrics/kills", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"outcomes"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
