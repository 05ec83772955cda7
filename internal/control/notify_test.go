package control

import (
	"errors"
	"testing"
	"time"

	"github.com/milmil7/gui-reaper/internal/events"
	"github.com/milmil7/gui-reaper/internal/process"
)

func TestRespawnNotifier(t *testing.T) {
	bus := events.New()

	states := make(chan events.RespawnStateChangedEvent, 4)
	defer bus.Subscribe(func(ev events.RespawnStateChangedEvent) { states <- ev })()

	lines := make(chan string, 4)
	defer bus.Subscribe(func(ev events.ProcessLogEvent) { lines <- ev.Message })()

	notify := RespawnNotifier(bus, testLogger())
	notify(42, 0, process.StateRunning, process.StateTerminated, errors.New("launch failed"))

	select {
	case ev := <-states:
		if ev.SessionPID != 42 || ev.OldState != "running" || ev.NewState != "terminated" || ev.Error != "launch failed" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for state event")
	}

	select {
	case line := <-lines:
		if line != "Auto-respawn for PID 42 terminated: launch failed" {
			t.Errorf("unexpected line %q", line)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for log line")
	}
}

func TestLogNotifierWithoutBus(t *testing.T) {
	// Must not panic without a bus.
	LogNotifier(nil, nil)("hello")
}
