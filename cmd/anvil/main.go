package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/anvil-agent/anvil/internal/adapter/workspace"
	"github.com/anvil-agent/anvil/internal/checkpoint"
	"github.com/anvil-agent/anvil/internal/config"
	"github.com/anvil-agent/anvil/internal/engine"
	"github.com/anvil-agent/anvil/internal/providers"
)

func main() {
	// Load .env if present; real env vars win over file entries.
	_ = godotenv.Load()

	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("anvil: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("anvil", flag.ExitOnError)
	workspaceFlag := fs.String("workspace", ".", "Path to the workspace root the agent acts on")
	profileFlag := fs.String("profile", "", "Path to a YAML run profile")
	sessionFlag := fs.String("session", "", "Session ID to resume (requires checkpointing)")
	modelFlag := fs.String("model", "", "Override the model name")
	maxIterFlag := fs.Int("max-iterations", 0, "Override the iteration ceiling")
	checkpointFlag := fs.Int("checkpoint-every", 0, "Checkpoint every N iterations (0 disables)")
	stateFlag := fs.String("state", "", "Checkpoint database path (default: user config dir)")
	verboseFlag := fs.Bool("verbose", false, "Print action arguments and full outputs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, statePath, err := buildConfig(*profileFlag, *stateFlag)
	if err != nil {
		return err
	}
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}
	if *maxIterFlag > 0 {
		cfg.MaxIterations = *maxIterFlag
	}
	if *checkpointFlag > 0 {
		cfg.CheckpointEvery = *checkpointFlag
	}

	provider, model, err := providers.NewFromEnv()
	if err != nil {
		return err
	}
	if cfg.Model == "" {
		cfg.Model = model
	}

	adapter, err := workspace.New(*workspaceFlag, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store engine.CheckpointStore
	if cfg.CheckpointEvery > 0 || *sessionFlag != "" {
		sqlStore, err := checkpoint.NewSQLiteStore(ctx, statePath)
		if err != nil {
			return fmt.Errorf("open checkpoint store: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	runner := engine.NewRunner(provider, adapter, store, cfg)
	log.Printf("anvil ready (model: %s, workspace: %s)", cfg.Model, adapter.Root())

	if task := strings.Join(fs.Args(), " "); strings.TrimSpace(task) != "" {
		return runTask(ctx, runner, *sessionFlag, task, *verboseFlag)
	}

	return runInteractive(ctx, runner, *verboseFlag)
}

// buildConfig resolves the run configuration: profile file if given,
// engine defaults otherwise, plus the checkpoint database location.
func buildConfig(profilePath, statePath string) (engine.Config, string, error) {
	mgr, err := config.NewManager()
	if err != nil {
		return engine.Config{}, "", err
	}
	stored, err := mgr.Load()
	if err != nil {
		return engine.Config{}, "", err
	}

	if statePath == "" {
		statePath = stored.StatePath
	}
	if statePath == "" {
		statePath = mgr.DefaultStatePath()
	}

	if profilePath == "" {
		profilePath = stored.Profile
	}
	if profilePath == "" {
		return engine.DefaultConfig(), statePath, nil
	}

	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		return engine.Config{}, "", err
	}
	cfg := profile.EngineConfig()
	if stored.Model != "" && cfg.Model == "" {
		cfg.Model = stored.Model
	}
	return cfg, statePath, nil
}

func runInteractive(ctx context.Context, runner *engine.Runner, verbose bool) error {
	s := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("task> ")
		if !s.Scan() {
			return s.Err()
		}
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := runTask(ctx, runner, "", line, verbose); err != nil {
			log.Printf("error: %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Println()
	}
}

func runTask(ctx context.Context, runner *engine.Runner, sessionID, task string, verbose bool) error {
	for ev := range runner.RunSession(ctx, sessionID, task) {
		render(ev, verbose)
	}
	return nil
}

func render(ev engine.Event, verbose bool) {
	switch ev.Kind {
	case engine.EventThinking:
		if ev.Thinking.Text != "" {
			fmt.Printf("\n[%d] 🧠 %s\n", ev.Iteration, ev.Thinking.Text)
		}
	case engine.EventContext:
		if verbose {
			fmt.Printf("[%d] context %d/%d tokens", ev.Iteration, ev.Context.TokensUsed, ev.Context.TokenCeiling)
			if ev.Context.TokensReclaimed > 0 {
				fmt.Printf(" (reclaimed %d)", ev.Context.TokensReclaimed)
			}
			fmt.Println()
		}
		for _, w := range ev.Context.Warnings {
			fmt.Printf("[%d] ⚠️  %s\n", ev.Iteration, w)
		}
	case engine.EventCorrection:
		fmt.Printf("[%d] 🔁 %s\n", ev.Iteration, ev.Correction.Text)
	case engine.EventActing:
		if verbose {
			fmt.Printf("[%d] ▶ %s %v\n", ev.Iteration, ev.Acting.Action, ev.Acting.Args)
		} else {
			fmt.Printf("[%d] ▶ %s\n", ev.Iteration, ev.Acting.Action)
		}
	case engine.EventObserving:
		mark := "✓"
		if !ev.Observing.Success {
			mark = "✗"
		}
		out := ev.Observing.Output
		if !verbose {
			out = firstLine(out)
		}
		fmt.Printf("[%d]   %s %s: %s\n", ev.Iteration, mark, ev.Observing.Action, out)
	case engine.EventCheckpoint:
		if verbose {
			fmt.Printf("[%d] 💾 checkpoint %s (%d bytes)\n", ev.Iteration, ev.Checkpoint.SessionID, ev.Checkpoint.Bytes)
		}
	case engine.EventError:
		fmt.Printf("[%d] ⚠️  %s: %s\n", ev.Iteration, ev.Err.Code, ev.Err.Message)
	case engine.EventComplete:
		fmt.Printf("\n✅ done in %d iterations (%d tokens)\n%s\n",
			ev.Complete.Iterations, ev.Complete.Usage.Total, ev.Complete.Summary)
	case engine.EventFailed:
		fmt.Printf("\n❌ failed after %d errors: %s\n", ev.Failed.Errors, ev.Failed.Reason)
	case engine.EventTimeout:
		fmt.Printf("\n⏱ stopped at the iteration ceiling (%d/%d)\n",
			ev.Timeout.Iterations, ev.Timeout.MaxIterations)
	case engine.EventCancelled:
		fmt.Printf("\n🛑 cancelled: %s\n", ev.Cancelled.Reason)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	if len(s) > 160 {
		s = s[:160] + " ..."
	}
	return s
}
