package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kasuganosora/battlerunner/cache"
	"github.com/kasuganosora/battlerunner/config"
	dbadapter "github.com/kasuganosora/battlerunner/db"
	"github.com/kasuganosora/battlerunner/game/battle"
	"github.com/kasuganosora/battlerunner/game/skill"
	"github.com/kasuganosora/battlerunner/harness/dispatch"
	"github.com/kasuganosora/battlerunner/harness/hook"
	"github.com/kasuganosora/battlerunner/harness/runner"
	"github.com/kasuganosora/battlerunner/model"
	"github.com/kasuganosora/battlerunner/report"
	"github.com/kasuganosora/battlerunner/repo"
	"github.com/kasuganosora/battlerunner/scheduler"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfgPath := flag.StringP("config", "c", "", "config file (yaml); defaults are used when empty")
	suitePath := flag.StringP("suite", "s", "", "suite file or directory; overrides runner.suite_dir")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	if *suitePath != "" {
		cfg.Runner.SuiteDir = *suitePath
	}

	// ---- Logger ----
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ok, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error("battlerunner failed", zap.Error(err))
		logger.Sync()
		os.Exit(2)
	}
	if !ok {
		logger.Sync()
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = lvl
	}
	return zc.Build()
}

// run wires the engine and runs the configured suites once, or on every
// watch interval until ctx is canceled. It reports whether every case of
// the last run passed.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (bool, error) {
	// ---- Storage ----
	var (
		db        *gorm.DB
		charRepo  repo.CharacterRepository
		closeRepo = func() {}
	)
	if cfg.Database.Mode == dbadapter.ModeEmbedded {
		bunt, err := repo.OpenBunt(cfg.Database.EmbeddedPath, logger)
		if err != nil {
			return false, fmt.Errorf("buntdb: %w", err)
		}
		charRepo = bunt
		closeRepo = func() { _ = bunt.Close() }
	} else {
		var err error
		if db, err = dbadapter.Open(cfg.Database); err != nil {
			return false, fmt.Errorf("db: %w", err)
		}
		if err := model.AutoMigrate(db); err != nil {
			return false, fmt.Errorf("db migrate: %w", err)
		}
		charRepo = repo.NewGorm(db, logger)
	}
	defer closeRepo()
	logger.Info("storage initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		KeyPrefix:       cfg.Cache.KeyPrefix,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		return false, fmt.Errorf("cache: %w", err)
	}
	defer c.Close()

	// ---- Engine ----
	calcCfg := cfg.Engine.Calc()
	engine := battle.NewEngine(battle.Config{
		Calc:      calcCfg,
		MaxRounds: cfg.Engine.MaxRounds,
		Skills:    skill.NewService(c, logger),
		Logger:    logger,
	})
	d := dispatch.New(dispatch.Options{
		Engine: engine,
		Repo:   charRepo,
		Calc:   calcCfg,
		Strict: cfg.Engine.StrictInvariants,
		Logger: logger,
	})

	// ---- Hooks ----
	hooks := hook.NewCenter()
	hooks.Register(hook.BeforeInstruction, 0, "expand_variables", runner.ExpandVariables())
	hooks.Register(hook.BeforeInstruction, 100, "trace", runner.TraceInstructions(logger))

	// ---- Report ----
	opts := runner.Options{
		Dispatcher: d,
		Hooks:      hooks,
		Seed:       cfg.Engine.Seed,
		FailFast:   cfg.Runner.FailFast,
		Logger:     logger,
	}
	switch {
	case cfg.Runner.RecordResults && db == nil:
		logger.Warn("runner.record_results needs a sql database; results are not recorded",
			zap.String("mode", cfg.Database.Mode))
	case cfg.Runner.RecordResults:
		reports := report.New(db, logger)
		defer reports.Stop(context.Background())
		opts.Recorder = reports
	}
	r := runner.New(opts)

	if cfg.Runner.WatchInterval <= 0 {
		return runOnce(ctx, r, cfg.Runner.SuiteDir, logger)
	}

	// ---- Watch ----
	sched := scheduler.New(ctx, logger)
	last := make(chan bool, 1)
	sched.Every("suites", cfg.Runner.WatchInterval, true, func(ctx context.Context) {
		ok, err := runOnce(ctx, r, cfg.Runner.SuiteDir, logger)
		if err != nil {
			logger.Error("suite run failed", zap.Error(err))
		}
		select {
		case <-last:
		default:
		}
		last <- ok && err == nil
	})
	<-sched.Done()
	sched.Stop()
	logger.Info("watch stopped")

	select {
	case ok := <-last:
		return ok, nil
	default:
		return true, nil
	}
}

// runOnce loads the suites at path, a file or a directory, and runs them.
func runOnce(ctx context.Context, r *runner.Runner, path string, logger *zap.Logger) (bool, error) {
	suites, err := loadSuites(path)
	if err != nil {
		return false, err
	}
	results := r.RunSuites(ctx, suites)
	sum := runner.Summarize(results)
	fields := []zap.Field{
		zap.Int("suites", sum.Suites),
		zap.Int("total", sum.Total),
		zap.Int("passed", sum.Passed),
		zap.Int("failed", sum.Failed),
		zap.Int("errored", sum.Errored),
	}
	if len(results) > 0 {
		fields = append(fields, zap.String("run_id", results[0].RunID))
	}
	if sum.OK() {
		logger.Info("all test cases passed", fields...)
	} else {
		logger.Warn("some test cases did not pass", fields...)
	}
	return sum.OK(), nil
}

func loadSuites(path string) ([]*runner.TestSuite, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return runner.LoadSuites(path)
	}
	s, err := runner.LoadSuite(path)
	if err != nil {
		return nil, err
	}
	return []*runner.TestSuite{s}, nil
}
