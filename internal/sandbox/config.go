package sandbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Mode selects how commands are isolated.
type Mode string

const (
	ModeDocker Mode = "docker" // container isolation, fails if unavailable
	ModeHost   Mode = "host"   // no isolation
	ModeAuto   Mode = "auto"   // docker when reachable, host otherwise
)

// Config holds sandbox settings.
type Config struct {
	Mode        Mode
	DockerImage string        // custom image override
	CPU         string        // CPU limit, e.g. "2"
	Memory      string        // memory limit, e.g. "1g"
	CmdTimeout  time.Duration // default command timeout, 0 uses the built-in default
}

// DefaultConfig reads sandbox settings from the environment.
func DefaultConfig() Config {
	modeStr := strings.ToLower(os.Getenv("ANVIL_SANDBOX_MODE"))
	if modeStr == "" {
		modeStr = "auto"
	}

	var mode Mode
	switch modeStr {
	case "docker":
		mode = ModeDocker
	case "host":
		mode = ModeHost
	case "auto":
		mode = ModeAuto
	default:
		log.Printf("WARNING: unknown ANVIL_SANDBOX_MODE %q, defaulting to auto", modeStr)
		mode = ModeAuto
	}

	cmdTimeout := 2 * time.Minute
	if timeoutStr := os.Getenv("ANVIL_CMD_TIMEOUT"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil && d > 0 {
			cmdTimeout = d
		} else {
			log.Printf("WARNING: invalid ANVIL_CMD_TIMEOUT %q, using default 2m", timeoutStr)
		}
	}

	return Config{
		Mode:        mode,
		DockerImage: os.Getenv("ANVIL_DOCKER_IMAGE"),
		CPU:         envOr("ANVIL_DOCKER_CPU", "2"),
		Memory:      envOr("ANVIL_DOCKER_MEMORY", "1g"),
		CmdTimeout:  cmdTimeout,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// IsDockerAvailable probes for a reachable Docker daemon.
func IsDockerAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "docker", "ps")
	return cmd.Run() == nil
}

// NewDefaultRunner picks a runner per the environment configuration,
// falling back to host execution when Docker cannot serve.
func NewDefaultRunner() Runner {
	config := DefaultConfig()
	ctx := context.Background()

	switch config.Mode {
	case ModeDocker:
		if !IsDockerAvailable(ctx) {
			log.Printf("WARNING: docker mode requested but Docker is not available, falling back to host execution")
			return &HostRunner{config: config}
		}
		runner, err := NewDockerRunner(config)
		if err != nil {
			log.Printf("WARNING: failed to create Docker runner: %v, falling back to host execution", err)
			return &HostRunner{config: config}
		}
		return runner

	case ModeHost:
		log.Printf("WARNING: using host execution (no sandboxing)")
		return &HostRunner{config: config}

	default: // ModeAuto
		if IsDockerAvailable(ctx) {
			runner, err := NewDockerRunner(config)
			if err == nil {
				return runner
			}
			log.Printf("WARNING: Docker available but runner creation failed: %v, falling back to host execution", err)
		}
		return &HostRunner{config: config}
	}
}

// NewRunner creates a specific runner implementation.
func NewRunner(mode Mode, config Config) (Runner, error) {
	switch mode {
	case ModeDocker:
		return NewDockerRunner(config)
	case ModeHost:
		return &HostRunner{config: config}, nil
	default:
		return nil, fmt.Errorf("unknown runner mode: %s", mode)
	}
}
