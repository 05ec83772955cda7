package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/process"
)

// RespawnSessionConfig declares a respawn session to start at boot.
type RespawnSessionConfig struct {
	ID                int32    `toml:"id" json:"id"`
	Command           string   `toml:"command" json:"command"`
	Args              []string `toml:"args,omitempty" json:"args,omitempty"`
	CheckIntervalSecs int      `toml:"check_interval_secs,omitempty" json:"check_interval_secs,omitempty"`
	RestartDelaySecs  int      `toml:"restart_delay_secs,omitempty" json:"restart_delay_secs,omitempty"`
	MaxRestarts       int      `toml:"max_restarts,omitempty" json:"max_restarts,omitempty"`
}

type respawnFile struct {
	Respawn struct {
		Sessions []RespawnSessionConfig `toml:"sessions"`
	} `toml:"respawn"`
}

// LoadRespawnSessions reads the [[respawn.sessions]] tables of a config
// file. A missing file declares no sessions.
func LoadRespawnSessions(configPath string) ([]RespawnSessionConfig, error) {
	if configPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var file respawnFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	seen := make(map[int32]bool, len(file.Respawn.Sessions))
	for i, s := range file.Respawn.Sessions {
		if s.ID <= 0 {
			return nil, fmt.Errorf("respawn session %d: id must be positive", i)
		}
		if s.Command == "" {
			return nil, fmt.Errorf("respawn session %d: command is required", s.ID)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("respawn session %d: duplicate id", s.ID)
		}
		seen[s.ID] = true
	}

	return file.Respawn.Sessions, nil
}

// SessionDefaults fill the fields a [[respawn.sessions]] entry leaves out.
type SessionDefaults struct {
	CheckInterval time.Duration
	RestartDelay  time.Duration
	MaxRestarts   int
}

// Spec converts the entry to a session spec keyed by its id.
func (c RespawnSessionConfig) Spec(d SessionDefaults) process.SessionSpec {
	spec := process.SessionSpec{
		Key:           procinfo.PID(c.ID),
		Command:       c.Command,
		Args:          c.Args,
		CheckInterval: d.CheckInterval,
		RestartDelay:  d.RestartDelay,
		MaxRestarts:   d.MaxRestarts,
	}
	if c.CheckIntervalSecs > 0 {
		spec.CheckInterval = time.Duration(c.CheckIntervalSecs) * time.Second
	}
	if c.RestartDelaySecs > 0 {
		spec.RestartDelay = time.Duration(c.RestartDelaySecs) * time.Second
	}
	if c.MaxRestarts > 0 {
		spec.MaxRestarts = c.MaxRestarts
	}
	return spec
}

// LoadRespawnSpecs reads the declared sessions and converts them with d.
func LoadRespawnSpecs(configPath string, d SessionDefaults) ([]process.SessionSpec, error) {
	sessions, err := LoadRespawnSessions(configPath)
	if err != nil {
		return nil, err
	}
	specs := make([]process.SessionSpec, 0, len(sessions))
	for _, s := range sessions {
		specs = append(specs, s.Spec(d))
	}
	return specs, nil
}
