package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/config"
	"github.com/kbukum/voxkit/kafka"
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/orchestrator"
	"github.com/kbukum/voxkit/server"
	"github.com/kbukum/voxkit/validation"
	"github.com/kbukum/voxkit/version"
)

const serviceName = "voxkit"

// AppConfig is the full voxkit configuration. Every key can be set from
// the config file or as VOXKIT_<SECTION>_<KEY>.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Audio         audio.Config         `yaml:"audio" mapstructure:"audio"`
	Orchestrator  orchestrator.Config  `yaml:"orchestrator" mapstructure:"orchestrator"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Kafka         kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills unset fields in every section.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.ServiceConfig.ApplyDefaults()
	c.Audio.ApplyDefaults()
	if c.Orchestrator.ServiceName == "" {
		c.Orchestrator.ServiceName = c.Name
	}
	c.Orchestrator.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Kafka.Enabled {
		c.Kafka.ApplyDefaults()
	}
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("config.audio: %w", err)
	}
	if err := c.Orchestrator.Validate(); err != nil {
		return fmt.Errorf("config.orchestrator: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("config.kafka: %w", err)
	}
	if err := validation.Struct(&c.Observability); err != nil {
		return fmt.Errorf("config.observability: %w", err)
	}
	return nil
}

// configDefaults are applied before the config file. Booleans whose zero
// value is not the default live here rather than in ApplyDefaults.
var configDefaults = map[string]any{
	"orchestrator.fallback_on_timeout": true,
	"logging.level":                    "info",
	"logging.output":                   "stderr",
}

// loadConfig reads the config file, .env file and environment.
func loadConfig(configFile, envFile string) (*AppConfig, error) {
	cfg := &AppConfig{}
	opts := []config.LoaderOption{config.WithDefaults(configDefaults)}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", "", "config file (default: ./config.yml or ./config/voxkit.yml)")
	cmd.PersistentFlags().String("env-file", "", ".env file to load before reading the environment")
}

func loadConfigFromFlags(cmd *cobra.Command) (*AppConfig, error) {
	configFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	return loadConfig(configFile, envFile)
}
