package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/knolsched/internal/domain"
)

// EnvPrefix marks the environment variables read into the configuration.
// KNOLSCHED_DATABASE_DSN sets database.dsn.
const EnvPrefix = "KNOLSCHED_"

// Config is the application configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Server    ServerConfig    `koanf:"server"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Rollover  RolloverConfig  `koanf:"rollover"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `koanf:"dsn" validate:"required"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type ServerConfig struct {
	Listen string `koanf:"listen" validate:"required"`
}

// SchedulerConfig holds the collection options applied when a collection
// is created, and the deck studied by default.
type SchedulerConfig struct {
	Version       int    `koanf:"version" validate:"oneof=1 2"`
	Rollover      int    `koanf:"rollover" validate:"gte=0,lte=23"`
	LearnAhead    int    `koanf:"learnahead" validate:"gte=0"` // minutes
	NewSpread     string `koanf:"newspread" validate:"oneof=distribute last first"`
	DayLearnFirst bool   `koanf:"daylearnfirst"`
	Deck          string `koanf:"deck"`
}

type RolloverConfig struct {
	Interval time.Duration `koanf:"interval" validate:"gte=1s"`
}

// Register adds the configuration flags, with their defaults, to flags.
func Register(flags *pflag.FlagSet) {
	flags.String("config", "knolsched.yaml", "YAML configuration file")
	flags.String("env-file", ".env", "dotenv file loaded into the environment")
	flags.String("database.driver", "sqlite", "database driver: sqlite or postgres")
	flags.String("database.dsn", "knolsched.db", "database connection string")
	flags.String("log.level", "info", "log level: debug, info, warn or error")
	flags.String("log.format", "text", "log format: text or json")
	flags.String("server.listen", ":8080", "HTTP listen address")
	flags.Int("scheduler.version", 2, "scheduler rules for new collections: 1 or 2")
	flags.Int("scheduler.rollover", 4, "hour at which a new day starts")
	flags.Int("scheduler.learnahead", 20, "minutes of learning cards shown early")
	flags.String("scheduler.newspread", "distribute", "new card order: distribute, last or first")
	flags.Bool("scheduler.daylearnfirst", false, "show day-learning cards before reviews")
	flags.String("scheduler.deck", "", "deck studied when none is given")
	flags.Duration("rollover.interval", time.Minute, "how often serve checks for a new day")
}

// Load reads the configuration from, in increasing priority: flag
// defaults, the YAML file, the environment (after loading the dotenv file)
// and flags set on the command line.
func Load(flags *pflag.FlagSet) (*Config, error) {
	envFile, _ := flags.GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	k := koanf.New(".")

	path, _ := flags.GetString("config")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if flags.Changed("config") {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to read flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Options returns the collection options for a collection created at crt
// with the given UTC offset in minutes west.
func (c SchedulerConfig) Options(crt int64, offsetMinutesWest int) (domain.Options, error) {
	opts := domain.DefaultOptions(crt, offsetMinutesWest)
	spread, err := domain.ParseNewSpread(c.NewSpread)
	if err != nil {
		return opts, err
	}
	opts.NewSpread = spread
	opts.Rollover = c.Rollover
	opts.LearnAheadSecs = c.LearnAhead * 60
	opts.DayLearnFirst = c.DayLearnFirst
	opts.SchedVersion = c.Version
	return opts, nil
}
