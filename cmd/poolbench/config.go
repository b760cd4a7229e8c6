package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	fixedpool "github.com/replay/go-fixed-pool"
	"github.com/replay/go-fixed-pool/backing"
)

// benchConfig holds the settings of one benchmark run. Values come from
// flags, POOLBENCH_* environment variables and an optional config file,
// in that order of precedence.
type benchConfig struct {
	Objects     int    `mapstructure:"objects"`
	Payload     string `mapstructure:"payload"`
	Slots       uint   `mapstructure:"slots"`
	Backing     string `mapstructure:"backing"`
	Hold        int    `mapstructure:"hold"`
	LogLevel    string `mapstructure:"log-level"`
	MetricsAddr string `mapstructure:"metrics-addr"`
}

func defineFlags(fs *pflag.FlagSet) {
	fs.Int("objects", 1<<20, "number of allocate/free rounds")
	fs.String("payload", "large", "object size: small (64B), medium (1KiB) or large (8KiB)")
	fs.Uint("slots", 64, "slots per pool")
	fs.String("backing", "go", "slot storage: go or mmap")
	fs.Int("hold", 0, "objects kept alive at once, forcing pool growth")
	fs.String("log-level", "info", "log level")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
}

// loadConfig merges flags, environment and configFile into a benchConfig.
func loadConfig(fs *pflag.FlagSet, configFile string) (benchConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return benchConfig{}, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return benchConfig{}, fmt.Errorf("reading %s: %w", configFile, err)
		}
	}

	var cfg benchConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return benchConfig{}, err
	}
	return cfg, cfg.validate()
}

func (c benchConfig) validate() error {
	if c.Objects <= 0 {
		return fmt.Errorf("objects must be positive, got %d", c.Objects)
	}
	if c.Hold < 0 || c.Hold > c.Objects {
		return fmt.Errorf("hold must be between 0 and objects, got %d", c.Hold)
	}
	if c.Slots == 0 {
		return fmt.Errorf("slots must be positive")
	}
	switch c.Payload {
	case "small", "medium", "large":
	default:
		return fmt.Errorf("unknown payload %q", c.Payload)
	}
	switch c.Backing {
	case "go", "mmap":
	default:
		return fmt.Errorf("unknown backing %q", c.Backing)
	}
	return nil
}

// poolConfig builds the allocator configuration. Storage is wrapped in a
// counter so the run can show that release returned every byte.
func (c benchConfig) poolConfig(log *zap.Logger) (fixedpool.PoolConfig, *backing.Counting) {
	storage := backing.Go()
	if c.Backing == "mmap" {
		storage = backing.Mmap()
	}
	counted := backing.Count(storage)

	cfg := fixedpool.NewConfig()
	cfg.SlotsPerPool = c.Slots
	cfg.Storage = counted
	cfg.Logger = log.Named("pool")
	return cfg, counted
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zcfg.Build()
}
