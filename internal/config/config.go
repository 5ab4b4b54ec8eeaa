package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/maxiofs/kvctl/internal/codec"
	"github.com/maxiofs/kvctl/internal/store"
)

// Config holds all configuration for a kvctl invocation
type Config struct {
	// Store location and engine
	DB     string `mapstructure:"db"`
	Engine string `mapstructure:"engine"`

	// Value encoding (see codec.Names)
	Encoding string `mapstructure:"encoding"`

	LogLevel string `mapstructure:"log_level"`

	// Create a missing store without asking
	AssumeYes bool `mapstructure:"assume_yes"`

	// Write operation metrics to this Prometheus textfile when set
	MetricsFile string `mapstructure:"metrics_file"`
}

// Load loads configuration from defaults, an optional config file, KVCTL_*
// environment variables and command line flags, in increasing precedence.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := bindFlags(cmd, v); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("KVCTL")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", ".")
	v.SetDefault("engine", string(store.EngineAuto))
	v.SetDefault("encoding", codec.DefaultEncoding)
	// stderr stays quiet unless asked otherwise
	v.SetDefault("log_level", "warn")
	v.SetDefault("assume_yes", false)
	v.SetDefault("metrics_file", "")
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"db":           "db",
		"engine":       "engine",
		"encoding":     "encoding",
		"log-level":    "log_level",
		"yes":          "assume_yes",
		"metrics-file": "metrics_file",
	}

	for flag, key := range flags {
		f := lookupFlag(cmd, flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}

	return nil
}

// lookupFlag finds a flag on cmd, including persistent flags inherited from
// its parents.
func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.DB) == "" {
		return fmt.Errorf("db is required: specify via --db flag, config file, or KVCTL_DB environment variable")
	}

	if _, err := codec.Lookup(cfg.Encoding); err != nil {
		return err
	}

	engine, err := store.ParseEngine(cfg.Engine)
	if err != nil {
		return err
	}
	cfg.Engine = string(engine)

	return nil
}
