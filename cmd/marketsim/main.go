// Command marketsim runs the multi-agent marketplace simulation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/caio-almeid4/marketplace-simulation/internal/agents"
	"github.com/caio-almeid4/marketplace-simulation/internal/api"
	"github.com/caio-almeid4/marketplace-simulation/internal/broadcast"
	"github.com/caio-almeid4/marketplace-simulation/internal/config"
	"github.com/caio-almeid4/marketplace-simulation/internal/engine"
	"github.com/caio-almeid4/marketplace-simulation/internal/entropy"
	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
	"github.com/caio-almeid4/marketplace-simulation/internal/llm"
	"github.com/caio-almeid4/marketplace-simulation/internal/market"
	"github.com/caio-almeid4/marketplace-simulation/internal/persistence"
	"github.com/caio-almeid4/marketplace-simulation/internal/plot"
	"github.com/caio-almeid4/marketplace-simulation/internal/policy"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.App{
		Name:  "marketsim",
		Usage: "run a round-based marketplace simulation over a pool of LLM-driven agents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "simulation settings YAML `FILE`",
				Value: "config/simulation.yaml",
			},
			&cli.StringFlag{
				Name:  "agents-dir",
				Usage: "directory of agent personality YAML files",
				Value: "config/agents",
			},
			&cli.StringFlag{
				Name:  "events",
				Usage: "broadcast events YAML `FILE` (empty disables broadcasts)",
				Value: "config/broadcast_events.yaml",
			},
			&cli.IntFlag{
				Name:  "rounds",
				Usage: "override the configured round count",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "override the configured random seed (0 picks one)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database `PATH`",
				Value: "data/marketsim.db",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "observation API port (0 disables the server)",
				Value: 8080,
			},
			&cli.StringFlag{
				Name:  "plots-dir",
				Usage: "write end-of-run charts into `DIR` (empty disables)",
				Value: "plots",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	specs, err := config.LoadAgents(c.String("agents-dir"))
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}
	if len(specs) == 0 {
		return fmt.Errorf("no agent files in %s", c.String("agents-dir"))
	}

	// ── Database ──────────────────────────────────────────────────────
	dbPath := c.String("db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Agent pool ────────────────────────────────────────────────────
	pool, err := buildPool(cfg, specs)
	if err != nil {
		return err
	}

	src := entropy.New(cfg.Seed)
	ledger := market.NewLedger(market.NewSerialID(1), db)
	for _, a := range pool {
		ledger.Register(a)
	}

	// ── Broadcast events ──────────────────────────────────────────────
	var events *broadcast.Service
	if path := c.String("events"); path != "" {
		events, err = broadcast.Load(path)
		if err != nil {
			slog.Warn("broadcast events unavailable", "path", path, "error", err)
		} else {
			slog.Info("broadcast events loaded", "count", events.Len())
		}
	}

	// ── Decision policy ───────────────────────────────────────────────
	var decider policy.Decider = policy.Idle{}
	client := llm.NewClient(os.Getenv("ANTHROPIC_API_KEY"))
	if client != nil {
		decider = llm.NewDecider(client)
		slog.Info("LLM policy enabled (Haiku)")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set — agents will idle every turn")
	}

	sched := engine.NewScheduler(cfg, ledger, pool, decider, events, db, src)

	// ── Observation API ───────────────────────────────────────────────
	if port := c.Int("port"); port > 0 {
		srv := &api.Server{Sched: sched, DB: db, Port: port}
		srv.Start()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("simulation starting",
		"agents", len(pool),
		"rounds", cfg.Rounds,
		"seed", cfg.Seed,
	)

	runErr := sched.Run(ctx)

	if err := db.MarkRunFinished(sched.Round()); err != nil {
		slog.Error("run metadata save failed", "error", err)
	}

	if dir := c.String("plots-dir"); dir != "" && runErr == nil {
		if err := plot.WriteAll(db, dir); err != nil {
			slog.Error("chart rendering failed", "error", err)
		} else {
			slog.Info("charts written", "dir", dir)
		}
	}

	printSummary(sched)
	return runErr
}

func loadConfig(c *cli.Context) (config.Sim, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, os.ErrNotExist):
			slog.Warn("config file not found, using defaults", "path", path)
		default:
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	if c.IsSet("rounds") {
		cfg.Rounds = c.Int("rounds")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Int64("seed")
	}
	if cfg.Rounds <= 0 {
		return cfg, fmt.Errorf("rounds must be positive, got %d", cfg.Rounds)
	}
	return cfg, nil
}

func buildPool(cfg config.Sim, specs []config.AgentSpec) ([]*agents.Agent, error) {
	starting := make(map[goods.Kind]int, len(cfg.StartingGoods))
	for name, qty := range cfg.StartingGoods {
		kind, err := goods.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("starting goods: %w", err)
		}
		starting[kind] = qty
	}

	cash := decimal.NewFromFloat(cfg.StartingCash)
	upkeep := decimal.NewFromFloat(cfg.OperationalCost)

	pool := make([]*agents.Agent, 0, len(specs))
	for _, spec := range specs {
		pool = append(pool, &agents.Agent{
			Name:        spec.Name,
			Persona:     spec.Persona,
			Temperature: spec.Temperature,
			Inventory:   agents.NewInventory(cash, starting),
			Energy:      cfg.StartingEnergy,
			Upkeep:      upkeep,
			Status:      agents.StatusAlive,
		})
		slog.Info("agent joined", "name", spec.Name, "cash", cash, "energy", cfg.StartingEnergy)
	}
	return pool, nil
}

func printSummary(sched *engine.Scheduler) {
	bankrupt, dead := sched.Terminated()
	fmt.Printf("\nSimulation complete after %d rounds.\n", sched.Round())
	for _, v := range sched.Agents() {
		fmt.Printf("  %-12s %-8s cash=%s energy=%d goods=%v\n",
			v.Name, v.Status, v.Cash, v.Energy, v.Goods)
	}
	if len(bankrupt) > 0 {
		fmt.Printf("Bankrupt: %v\n", bankrupt)
	}
	if len(dead) > 0 {
		fmt.Printf("Died: %v\n", dead)
	}
	fmt.Printf("Upkeep collected: %s\n", sched.UpkeepCollected())
}
