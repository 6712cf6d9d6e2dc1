// Package config loads service configuration from a YAML file, a .env file
// and the process environment using Viper.
//
// Precedence, highest first: environment variables, .env values, the YAML
// file, and finally the defaults supplied with WithDefaults. Every
// mapstructure key of the target struct is bound to an upper-case
// environment variable under the service prefix, so for a service named
// "voxkit" the key orchestrator.transcribe_timeout is read from
// VOXKIT_ORCHESTRATOR_TRANSCRIBE_TIMEOUT.
//
// # Usage
//
//	var cfg AppConfig
//	if err := config.LoadConfig("voxkit", &cfg, config.WithConfigFile(path)); err != nil {
//		return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
package config
