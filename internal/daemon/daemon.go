package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wattquest/wattquest/internal/api"
	"github.com/wattquest/wattquest/internal/app/notify"
	"github.com/wattquest/wattquest/internal/app/quest"
	"github.com/wattquest/wattquest/internal/app/reward"
	"github.com/wattquest/wattquest/internal/domain"
	"github.com/wattquest/wattquest/internal/health"
	_ "github.com/wattquest/wattquest/internal/infra/metrics" // register Prometheus metrics
	"github.com/wattquest/wattquest/internal/infra/sqlite"
	"github.com/wattquest/wattquest/internal/infra/telemetry"
)

// Daemon is the core WattQuest runtime. It wires together all services.
type Daemon struct {
	Config     Config
	DB         *sqlite.DB
	Engine     *quest.Engine
	Supervisor *quest.Supervisor
	Simulator  *telemetry.Simulator
	Notifier   *notify.Service
	Server     *api.Server
	Health     *health.Checker

	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	db, err := sqlite.Open(wattquestHome())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sim := telemetry.NewSimulator(
		cfg.Telemetry.Seed,
		cfg.Telemetry.Users,
		parseDuration(cfg.Telemetry.SimulateInterval, telemetry.DefaultInterval),
	)

	registry := quest.NewRegistry()
	rewards := reward.NewService(db)
	engine := quest.NewEngine(db, db, rewards, sim, sim, registry, quest.Options{
		MaxActive:    cfg.Engine.MaxActiveQuests,
		Throttle:     parseDuration(cfg.Engine.ThrottleWindow, quest.DefaultThrottleWindow),
		AutoActivate: cfg.Engine.AutoGenerate,
	})
	supervisor := quest.NewSupervisor(engine, db,
		parseDuration(cfg.Engine.ProgressInterval, quest.DefaultProgressInterval),
		parseDuration(cfg.Engine.GenerationInterval, quest.DefaultGenerationInterval),
	)

	notifier := notify.NewService(db)
	engine.OnCompleted(func(q domain.Quest, res domain.RewardResult, leveledUp bool, newLevel int) {
		if _, err := notifier.QuestCompleted(q, res.Points, q.CompletedAt); err != nil {
			log.Printf("[daemon] completion notification: %v", err)
		}
		if leveledUp {
			if _, err := notifier.LevelUp(q.UserID, newLevel, q.CompletedAt); err != nil {
				log.Printf("[daemon] level-up notification: %v", err)
			}
		}
	})
	engine.OnMilestone(func(q domain.Quest, milestone, bonus int) {
		if _, err := notifier.Milestone(q, milestone, bonus, q.LastActivity); err != nil {
			log.Printf("[daemon] milestone notification: %v", err)
		}
	})

	srv := api.NewServer(engine, db, notifier)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	checker := health.NewChecker(db, wattquestHome(), supervisor)
	srv.SetHealthChecker(checker)

	return &Daemon{
		Config:     cfg,
		DB:         db,
		Engine:     engine,
		Supervisor: supervisor,
		Simulator:  sim,
		Notifier:   notifier,
		Server:     srv,
		Health:     checker,
	}, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for _, user := range d.Config.Telemetry.Users {
		d.Engine.AttachUser(user)
	}
	if d.Config.Telemetry.SimulateReadings {
		d.Simulator.Start(ctx)
	}
	d.Supervisor.Start(ctx)
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		d.Supervisor.Stop()
		if d.Config.Telemetry.SimulateReadings {
			d.Simulator.Stop()
		}
		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("WattQuest serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
