// Package config provides configuration loading and logger construction
// for FleetPulse.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables.
// When configPath is empty, fleetpulse.yaml is searched in the working
// directory, ./configs, and /etc/fleetpulse. A missing config file is not
// an error; defaults apply.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/fleetpulse.db")

	// Engine defaults
	v.SetDefault("monitor.sleep_increment", "500ms")
	v.SetDefault("monitor.reconcile_interval", "800ms")
	v.SetDefault("monitor.default_interval", 10)
	v.SetDefault("monitor.default_timeout", "2s")
	v.SetDefault("monitor.detector_timeout", "2s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("fleetpulse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/fleetpulse")
	}

	// Environment variable support: FP_SERVER_PORT=9090
	v.SetEnvPrefix("FP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
