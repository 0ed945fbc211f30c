// Package config loads engine tuning from the environment and an
// optional flowjobs.yaml, layered through viper with the same
// environment-variable-first precedence a bare os.LookupEnv helper
// would give, but with config-file and default layering added.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds every tunable the engine needs at startup.
type Config struct {
	// WorkerCount overrides workerpool.DefaultSize() when > 0.
	WorkerCount int `mapstructure:"worker_count"`
	// PollFallbackMillis is loaded (default 100) but is not passed to the
	// worker pool, whose fallback poll interval is fixed at 100ms.
	PollFallbackMillis int `mapstructure:"poll_fallback_millis"`
	// OutputDir is loaded (default "data") but is not passed to EmitJob,
	// which always writes data/error_report.json.
	OutputDir string `mapstructure:"output_dir"`
}

// Load reads configuration from (in increasing precedence) defaults,
// an optional flowjobs.yaml in the working directory, and FLOWJOBS_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("worker_count", 0)
	v.SetDefault("poll_fallback_millis", 100)
	v.SetDefault("output_dir", "data")

	v.SetConfigName("flowjobs")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FLOWJOBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
