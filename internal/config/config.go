package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Sampling and input guards
	Seed      int64 `mapstructure:"seed" yaml:"seed"`
	MaxRows   int   `mapstructure:"max_rows" yaml:"max_rows"`
	MaxFileMB int   `mapstructure:"max_file_mb" yaml:"max_file_mb"`

	// Label-quality classifier
	Trees int `mapstructure:"trees" yaml:"trees"`

	Parallel     bool   `mapstructure:"parallel" yaml:"parallel"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`

	// Report history
	HistoryDB   string `mapstructure:"history_db" yaml:"history_db"`
	SaveHistory bool   `mapstructure:"save_history" yaml:"save_history"`
}

// Keys lists the settable configuration keys.
var Keys = []string{"seed", "max_rows", "max_file_mb", "trees", "parallel", "log_level", "output_format", "history_db", "save_history"}

// Default returns the built-in settings. HistoryDB is resolved by Load.
func Default() *Global {
	return &Global{
		Seed:         42,
		MaxRows:      10000,
		MaxFileMB:    50,
		Trees:        100,
		Parallel:     true,
		LogLevel:     "warn",
		OutputFormat: "json",
	}
}

// Dir returns ~/.dqscan.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".dqscan"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dqscan/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
// A .env file in the working directory is loaded first when present.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DQSCAN")
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("seed", d.Seed)
	v.SetDefault("max_rows", d.MaxRows)
	v.SetDefault("max_file_mb", d.MaxFileMB)
	v.SetDefault("trees", d.Trees)
	v.SetDefault("parallel", d.Parallel)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("output_format", d.OutputFormat)
	v.SetDefault("save_history", d.SaveHistory)
	v.SetDefault("history_db", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.HistoryDB == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.HistoryDB = filepath.Join(dir, "history.db")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Global) Validate() error {
	if c.MaxRows < 0 {
		return fmt.Errorf("max_rows must be >= 0, got %d", c.MaxRows)
	}
	if c.MaxFileMB < 0 {
		return fmt.Errorf("max_file_mb must be >= 0, got %d", c.MaxFileMB)
	}
	if c.Trees < 1 {
		return fmt.Errorf("trees must be >= 1, got %d", c.Trees)
	}
	switch c.OutputFormat {
	case "json", "markdown":
	default:
		return fmt.Errorf("output_format must be json or markdown, got %q", c.OutputFormat)
	}
	return nil
}

// Set assigns key from its string form, using viper's type coercion.
func (c *Global) Set(key, value string) error {
	v := viper.New()
	v.Set(key, value)
	switch key {
	case "seed":
		c.Seed = v.GetInt64(key)
	case "max_rows":
		c.MaxRows = v.GetInt(key)
	case "max_file_mb":
		c.MaxFileMB = v.GetInt(key)
	case "trees":
		c.Trees = v.GetInt(key)
	case "parallel":
		c.Parallel = v.GetBool(key)
	case "log_level":
		c.LogLevel = value
	case "output_format":
		c.OutputFormat = value
	case "history_db":
		c.HistoryDB = value
	case "save_history":
		c.SaveHistory = v.GetBool(key)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return c.Validate()
}
