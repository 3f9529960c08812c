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

	"github.com/memeforge-network/memeforge/internal/api"
	"github.com/memeforge-network/memeforge/internal/app/badge"
	"github.com/memeforge-network/memeforge/internal/app/intake"
	"github.com/memeforge-network/memeforge/internal/app/quest"
	"github.com/memeforge-network/memeforge/internal/app/reward"
	"github.com/memeforge-network/memeforge/internal/app/stats"
	_ "github.com/memeforge-network/memeforge/internal/infra/metrics" // Register Prometheus metrics
	"github.com/memeforge-network/memeforge/internal/infra/sqlite"
	"github.com/memeforge-network/memeforge/internal/security"
)

// Daemon is the core MemeForge runtime. It wires together all services.
type Daemon struct {
	Config  Config
	DB      *sqlite.DB
	Stats   *stats.Store
	Reward  *reward.Engine
	Quests  *quest.Engine
	Intake  *intake.Service
	Server  *api.Server
	Keypair *security.Keypair
	cancel  context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New(version string) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg, version)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config, version string) (*Daemon, error) {
	db, err := sqlite.Open(memeforgeHome())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	loc := time.UTC
	if cfg.Economy.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Economy.Timezone)
		if err != nil {
			return nil, fmt.Errorf("economy timezone: %w", err)
		}
	}

	thresholds := cfg.Economy.LevelThresholds
	if len(thresholds) == 0 {
		thresholds = reward.DefaultThresholds()
	}
	curve, err := reward.NewLevelCurve(thresholds)
	if err != nil {
		return nil, fmt.Errorf("level curve: %w", err)
	}

	economy := reward.DefaultEconomy()
	if cfg.Economy.GlobalDailyCap > 0 {
		economy.GlobalDailyCap = cfg.Economy.GlobalDailyCap
	}
	if cfg.Economy.GlobalWeeklyCap > 0 {
		economy.GlobalWeeklyCap = cfg.Economy.GlobalWeeklyCap
	}

	store := stats.NewStore(db, loc)
	engine := reward.NewEngine(reward.DefaultRules(), curve, economy, badge.NewEvaluator())

	// Refusing to start on a bad quest file beats serving a half-broken week.
	questCfg, err := quest.LoadConfig(cfg.Quests.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("quest config: %w", err)
	}
	quests, err := quest.NewEngine(db, questCfg, store, curve, economy)
	if err != nil {
		return nil, fmt.Errorf("quest engine: %w", err)
	}

	kp, err := security.LoadOrCreateKeypair(memeforgeHome())
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}

	in := intake.NewService(db, engine, store, kp)

	srv := api.NewServer(in, quests, store, version)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	if cfg.API.AdminToken != "" {
		srv.SetAdminToken(cfg.API.AdminToken)
	}

	return &Daemon{
		Config:  cfg,
		DB:      db,
		Stats:   store,
		Reward:  engine,
		Quests:  quests,
		Intake:  in,
		Server:  srv,
		Keypair: kp,
	}, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	log.Printf("[daemon] memeforge serving on http://%s (week %s)", addr, d.Quests.ActiveWeek(time.Now()))
	if d.Config.Telemetry.Prometheus {
		log.Printf("[daemon] metrics: http://%s/metrics", addr)
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
