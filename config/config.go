package config

import (
	"strings"
	"time"

	"github.com/kasuganosora/battlerunner/game/calc"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // memory | sqlite | mysql | embedded
	SQLitePath   string        `mapstructure:"sqlite_path"`
	EmbeddedPath string        `mapstructure:"embedded_path"` // buntdb file, ":memory:" for none
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

type EngineConfig struct {
	MaxRounds        int     `mapstructure:"max_rounds"`
	CritCap          float64 `mapstructure:"crit_cap"`
	DodgeCap         float64 `mapstructure:"dodge_cap"`
	HPStrengthFactor float64 `mapstructure:"hp_strength_factor"`
	Seed             uint64  `mapstructure:"seed"`
	// StrictInvariants turns programming errors in scenarios (such as a
	// break outside a loop) into panics.
	StrictInvariants bool `mapstructure:"strict_invariants"`
}

// Calc returns the balance caps for the calculation engine.
func (e EngineConfig) Calc() calc.Config {
	return calc.Config{
		CritCap:          e.CritCap,
		DodgeCap:         e.DodgeCap,
		HPStrengthFactor: e.HPStrengthFactor,
	}
}

type RunnerConfig struct {
	SuiteDir      string `mapstructure:"suite_dir"`
	RecordResults bool   `mapstructure:"record_results"`
	FailFast      bool   `mapstructure:"fail_fast"`
	// WatchInterval reruns the suites on this interval; 0 runs them once.
	WatchInterval time.Duration `mapstructure:"watch_interval"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.mode", "memory")
	v.SetDefault("database.sqlite_path", "./data/runs.db")
	v.SetDefault("database.embedded_path", ":memory:")
	v.SetDefault("database.mysql_max_open", 10)
	v.SetDefault("database.mysql_max_idle", 2)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.key_prefix", "battlerunner:")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("engine.max_rounds", 100)
	v.SetDefault("engine.crit_cap", 0.4)
	v.SetDefault("engine.dodge_cap", 0.5)
	v.SetDefault("engine.hp_strength_factor", 0)
	v.SetDefault("engine.seed", 1)
	v.SetDefault("engine.strict_invariants", false)
	v.SetDefault("runner.suite_dir", "./testcases")
	v.SetDefault("runner.record_results", false)
	v.SetDefault("runner.fail_fast", false)
	v.SetDefault("runner.watch_interval", "0s")
	v.SetDefault("log.development", true)
	v.SetDefault("log.level", "info")
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads config from the given YAML file path. Environment variables
// prefixed BATTLERUNNER_ override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("battlerunner")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
