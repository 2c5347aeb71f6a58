package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/loot-dogs/gameserver/internal/avatar"
	"github.com/loot-dogs/gameserver/internal/config"
	"github.com/loot-dogs/gameserver/internal/core/system"
	"github.com/loot-dogs/gameserver/internal/httpapi"
	"github.com/loot-dogs/gameserver/internal/loot"
	"github.com/loot-dogs/gameserver/internal/mapdata"
	"github.com/loot-dogs/gameserver/internal/persist"
	"github.com/loot-dogs/gameserver/internal/snapshot"
	"github.com/loot-dogs/gameserver/internal/tickdriver"
	"github.com/loot-dogs/gameserver/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              Loot Dogs Server              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Flags ───────────────────────────────────────────────────────────

type flags struct {
	configFile           string
	wwwRoot              string
	tickPeriod           time.Duration
	saveStatePeriod      time.Duration
	stateFile            string
	randomizeSpawnPoints bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configFile, "config-file", "config/server.toml", "path to the server's ambient TOML config")
	flag.StringVar(&f.wwwRoot, "www-root", "", "path to a directory of static client assets to serve at /")
	flag.DurationVar(&f.tickPeriod, "tick-period", 0, "automatic tick period (e.g. 100ms); 0 keeps manual-tick mode")
	flag.DurationVar(&f.saveStatePeriod, "save-state-period", 0, "periodic snapshot interval; 0 disables periodic saves")
	flag.StringVar(&f.stateFile, "state-file", "", "path to the world snapshot file")
	flag.BoolVar(&f.randomizeSpawnPoints, "randomize-spawn-points", false, "spawn joining players at a random point on their map instead of the first road's start")
	flag.Parse()
	return f
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	f := parseFlags()

	cfg, err := config.Load(f.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(cfg, f)

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	printSection("Database")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("connected to PostgreSQL")

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	leaderboardRepo := persist.NewLeaderboardRepo(db)

	printSection("World")
	worldConfigPath := os.Getenv("GAME_WORLD_CONFIG")
	if worldConfigPath == "" {
		worldConfigPath = "config/world.json"
	}
	maps, lootCfg, err := loadWorldConfig(worldConfigPath)
	if err != nil {
		return fmt.Errorf("load world config: %w", err)
	}
	printStat("maps loaded", len(maps))
	fmt.Println()

	seed := time.Now().UnixNano()
	w := world.New(maps, lootCfg, cfg.Game.RandomizeSpawnPoints, seed, leaderboardSink{repo: leaderboardRepo}, log)

	printSection("Snapshot restore")
	if cfg.Game.StateFile != "" {
		if err := restoreSnapshot(w, cfg.Game.StateFile); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		printOK(fmt.Sprintf("restored from %s", cfg.Game.StateFile))
	} else {
		printOK("no state file configured, starting cold")
	}
	fmt.Println()

	runner := system.NewRunner()
	runner.Register(&simulateSystem{world: w})
	runner.Register(&dispatchSystem{world: w})
	if cfg.Game.SaveStatePeriod > 0 && cfg.Game.StateFile != "" {
		runner.Register(&persistSystem{world: w, path: cfg.Game.StateFile, period: cfg.Game.SaveStatePeriod, log: log})
		printOK(fmt.Sprintf("periodic snapshot every %s to %s", cfg.Game.SaveStatePeriod, cfg.Game.StateFile))
	}

	var driver *tickdriver.Driver
	advancer := runnerAdvancer{runner: runner}
	if cfg.Game.TickPeriod > 0 {
		driver = tickdriver.NewAutomatic(advancer, cfg.Game.TickPeriod)
		if err := driver.Start(context.Background()); err != nil {
			return fmt.Errorf("start tick driver: %w", err)
		}
		defer driver.Stop()
	} else {
		driver = tickdriver.NewManual(advancer)
	}

	server := httpapi.New(w, driver, leaderboardRepo, log)
	var handler http.Handler = server
	if f.wwwRoot != "" {
		handler = serveStaticAndAPI(f.wwwRoot, server)
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.BindAddress,
		Handler: handler,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", zap.Error(err))
		}
	}()

	printSection("Server ready")
	printReady(fmt.Sprintf("listening on %s", cfg.Server.BindAddress))
	if driver.Mode() == tickdriver.Automatic {
		printReady(fmt.Sprintf("automatic ticking every %s", cfg.Game.TickPeriod))
	} else {
		printReady("manual tick mode (POST /api/v1/game/tick)")
	}
	fmt.Println()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-shutdownCh
	log.Info("received shutdown signal", zap.String("signal", sig.String()))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	_ = httpServer.Shutdown(shutdownCtx)
	shutdownCancel()
	if cfg.Game.StateFile != "" {
		if err := saveSnapshot(w, cfg.Game.StateFile); err != nil {
			log.Error("final snapshot save failed", zap.Error(err))
		} else {
			printOK("final snapshot written")
		}
	}
	log.Info("server stopped")
	return nil
}

// simulateSystem advances every session's world state. It runs in
// system.PhaseSimulate, ahead of the event dispatch phase.
type simulateSystem struct {
	world *world.World
}

func (s *simulateSystem) Phase() system.Phase { return system.PhaseSimulate }

func (s *simulateSystem) Update(dt time.Duration) {
	s.world.Simulate(float64(dt.Milliseconds()))
}

// dispatchSystem flushes the tick's buffered events to subscribers.
type dispatchSystem struct {
	world *world.World
}

func (s *dispatchSystem) Phase() system.Phase { return system.PhaseDispatch }

func (s *dispatchSystem) Update(dt time.Duration) {
	s.world.DispatchEvents(float64(dt.Milliseconds()))
}

// persistSystem writes a snapshot once at least period of simulated time has
// elapsed since the last write.
type persistSystem struct {
	world   *world.World
	path    string
	period  time.Duration
	log     *zap.Logger
	elapsed time.Duration
}

func (s *persistSystem) Phase() system.Phase { return system.PhasePersist }

func (s *persistSystem) Update(dt time.Duration) {
	s.elapsed += dt
	if s.elapsed < s.period {
		return
	}
	s.elapsed = 0
	if err := saveSnapshot(s.world, s.path); err != nil {
		s.log.Error("periodic snapshot save failed", zap.Error(err))
	}
}

// runnerAdvancer adapts a system.Runner to tickdriver.Advancer, translating
// the float64-millisecond tick delta into the time.Duration the Runner's
// systems expect.
type runnerAdvancer struct {
	runner *system.Runner
}

func (a runnerAdvancer) Advance(dtMillis float64) {
	a.runner.Tick(time.Duration(dtMillis * float64(time.Millisecond)))
}

// leaderboardSink adapts persist.LeaderboardRepo to world.RetirementSink.
type leaderboardSink struct {
	repo *persist.LeaderboardRepo
}

func (s leaderboardSink) Save(ctx context.Context, rec avatar.RetirementRecord) error {
	return s.repo.Save(ctx, persist.RetiredPlayer{Name: rec.Name, Score: rec.Score, PlayTimeSecs: rec.TotalTimeSecs})
}

func applyFlagOverrides(cfg *config.Config, f flags) {
	if f.tickPeriod > 0 {
		cfg.Game.TickPeriod = f.tickPeriod
	}
	if f.saveStatePeriod > 0 {
		cfg.Game.SaveStatePeriod = f.saveStatePeriod
	}
	if f.stateFile != "" {
		cfg.Game.StateFile = f.stateFile
	}
	if f.randomizeSpawnPoints {
		cfg.Game.RandomizeSpawnPoints = true
	}
}

func loadWorldConfig(path string) ([]*mapdata.Map, loot.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, loot.Config{}, err
	}
	defer file.Close()

	return mapdata.LoadConfig(file)
}

func restoreSnapshot(w *world.World, path string) error {
	state, err := snapshot.Load(path)
	if err != nil {
		return err
	}
	w.RestoreState(state)
	return nil
}

func saveSnapshot(w *world.World, path string) error {
	return snapshot.Save(path, w.Snapshot())
}

func serveStaticAndAPI(wwwRoot string, api http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", api)
	mux.Handle("/", http.FileServer(http.Dir(wwwRoot)))
	return mux
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
