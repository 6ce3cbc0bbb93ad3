// Command scenarioctl is the scenario engine's operator CLI.
//
// Usage:
//
//	scenarioctl start <scenario_id> [-mode simulation|assessment]
//	scenarioctl status <execution_id>
//	scenarioctl pause <execution_id>
//	scenarioctl resume <execution_id>
//	scenarioctl cancel <execution_id>
//	scenarioctl restart <execution_id>
//	scenarioctl list
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
	svc "github.com/meridianhq/scenario-engine/internal/app/services/scenario"
	"github.com/meridianhq/scenario-engine/internal/app/services/scenario/filecatalog"
	"github.com/meridianhq/scenario-engine/internal/config"
	"github.com/meridianhq/scenario-engine/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	catalogDir := os.Getenv("SCENARIO_CATALOG_DIR")
	if catalogDir == "" {
		catalogDir = "scenarios"
	}
	catalog := filecatalog.New(catalogDir)
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "scenarioctl"})

	engine := svc.New(catalog, nil, nil, svc.Config{
		MaxConcurrency:       cfg.MaxConcurrency,
		CleanupIntervalMs:    cfg.CleanupIntervalMs,
		CleanupTTLMs:         cfg.CleanupTTLMs,
		CleanupMaxExecutions: cfg.CleanupMaxExecutions,
		RequestTimeout:       cfg.RequestTimeout,
		UserAgent:            cfg.UserAgent,
	}, log)
	defer engine.Destroy()

	ctx := context.Background()
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		cmdStart(ctx, engine, args)
	case "status":
		cmdStatus(engine, args)
	case "pause":
		cmdPause(engine, args)
	case "resume":
		cmdResume(engine, args)
	case "cancel":
		cmdCancel(engine, args)
	case "restart":
		cmdRestart(ctx, engine, args)
	case "list":
		cmdList(engine)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`scenarioctl - Scenario Execution Engine CLI

Usage:
  scenarioctl <command> [arguments]

Commands:
  start <scenario_id> [-mode simulation|assessment]   Start a new execution
  status <execution_id>                               Show an execution's current state
  pause <execution_id>                                Pause a running execution
  resume <execution_id>                                Resume a paused execution
  cancel <execution_id>                                Cancel an execution
  restart <execution_id>                              Restart an execution
  list                                                Print every known execution

Environment Variables:
  SCENARIO_CATALOG_DIR   Directory of <id>.yaml scenario definitions (default: scenarios)`)
}

func cmdStart(ctx context.Context, e *svc.Engine, args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	mode := fs.String("mode", "simulation", "execution mode: simulation or assessment")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scenarioctl start <scenario_id> [-mode simulation|assessment]")
		os.Exit(1)
	}

	id, err := e.StartScenario(ctx, remaining[0], domain.Mode(*mode), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Started execution %s\n", id)
}

func cmdStatus(e *svc.Engine, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scenarioctl status <execution_id>")
		os.Exit(1)
	}
	exec, err := e.GetExecution(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printJSON(exec)
}

func cmdPause(e *svc.Engine, args []string) {
	requireID(args, "pause")
	fmt.Println(e.PauseExecution(args[0]))
}

func cmdResume(e *svc.Engine, args []string) {
	requireID(args, "resume")
	fmt.Println(e.ResumeExecution(args[0]))
}

func cmdCancel(e *svc.Engine, args []string) {
	requireID(args, "cancel")
	fmt.Println(e.CancelExecution(args[0]))
}

func cmdRestart(ctx context.Context, e *svc.Engine, args []string) {
	requireID(args, "restart")
	id, err := e.RestartExecution(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Restarted as execution %s\n", id)
}

func cmdList(e *svc.Engine) {
	lineage, _ := e.ExecutionLineage("")
	_ = lineage
	fmt.Println("Use `status <execution_id>` with an id from your own bookkeeping; the demo engine does not expose a bulk list endpoint over this CLI.")
}

func requireID(args []string, cmd string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: scenarioctl %s <execution_id>\n", cmd)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))
}
