// Package config loads service configuration with Viper.
//
// Configuration is resolved from a config.yml file, an optional .env file,
// prefixed environment variables and command-line flags, in increasing order
// of precedence.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("longparallel", &cfg,
//	    config.WithFlag("pipeline.degree_of_parallelism", flags.Lookup("parallel")))
//
// Environment variables use the upper-cased service name as prefix with
// underscore-separated paths (e.g. LONGPARALLEL_PIPELINE_BUFFER_SIZE).
package config
