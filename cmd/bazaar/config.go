package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/bazaar/internal/logger"
)

const (
	defaultListenAddr     = "localhost:8000"
	defaultLoggingLevel   = logger.LevelInfo
	defaultEnvironment    = logger.EnvProd
	defaultRewardTopic    = "bazaar.rewards"
	defaultRewardInterval = 5 * time.Second
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the bazaar service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Shared with identity service to verify access tokens
	SecretKey string

	// Environment
	Environment string

	// Kafka brokers, comma separated
	// If empty reward events are applied to points ledger only
	KafkaBrokers string

	// Kafka topic reward events are published to
	RewardTopic string

	// How often reward outbox is polled
	RewardInterval time.Duration
}

func NewConfig() *Config {
	return &Config{
		LogLevel:       defaultLoggingLevel,
		ListenAddr:     defaultListenAddr,
		Environment:    defaultEnvironment,
		RewardTopic:    defaultRewardTopic,
		RewardInterval: defaultRewardInterval,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}

	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":     setString(&c.ListenAddr),
		"DATABASE_URI":    setString(&c.DatabaseDSN),
		"SECRET_KEY":      setString(&c.SecretKey),
		"LOG_LEVEL":       setString(&c.LogLevel),
		"ENVIRONMENT":     setString(&c.Environment),
		"KAFKA_BROKERS":   setString(&c.KafkaBrokers),
		"REWARD_TOPIC":    setString(&c.RewardTopic),
		"REWARD_INTERVAL": setDuration(&c.RewardInterval),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("bazaar", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.KafkaBrokers, "kafka-brokers", "k", c.KafkaBrokers, "Kafka brokers, comma separated")
	fs.StringVarP(&c.RewardTopic, "reward-topic", "t", c.RewardTopic, "Kafka topic for reward events")
	fs.DurationVarP(&c.RewardInterval, "reward-interval", "i", c.RewardInterval, "Reward outbox polling interval")

	return fs.Parse(args)
}

// Validate checks options required to start
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.RewardInterval <= 0 {
		errs = append(errs, errors.New("reward interval must be positive"))
	}

	return errors.Join(errs...)
}

// Brokers returns kafka brokers list, nil if kafka is disabled
func (c *Config) Brokers() []string {
	var brokers []string
	for b := range strings.SplitSeq(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
