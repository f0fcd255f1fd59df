package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/longparallel/config"
	"github.com/kbukum/longparallel/pipeline"
	"github.com/kbukum/longparallel/process"
	"github.com/kbukum/longparallel/resilience"
	"github.com/kbukum/longparallel/util"
	"github.com/kbukum/longparallel/validation"
)

// AppConfig is the full configuration of the longparallel binary.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Output   string          `yaml:"output" mapstructure:"output"`
	Pipeline pipeline.Config `yaml:"pipeline" mapstructure:"pipeline"`
	HTTP     HTTPConfig      `yaml:"http" mapstructure:"http"`
	Exec     process.Config  `yaml:"exec" mapstructure:"exec"`
}

// HTTPConfig configures page fetching for the titles command.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	// MaxBody caps the bytes read from each response, e.g. "1MB".
	MaxBody string `yaml:"max_body" mapstructure:"max_body"`

	resilience.RateLimiterConfig `yaml:",inline" mapstructure:",squash"`
	Retry                        resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// Output formats.
var outputFormats = []string{"text", "json", "yaml"}

// ApplyDefaults fills unset fields.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Output == "" {
		c.Output = "text"
	}
	c.Pipeline.ApplyDefaults()
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 15 * time.Second
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = serviceName + "/" + c.Version
	}
	if c.HTTP.MaxBody == "" {
		c.HTTP.MaxBody = "1MB"
	}
	c.HTTP.Retry.ApplyDefaults()
	c.Exec.ApplyDefaults()
}

// Validate checks every block.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if appErr := validation.New().OneOf("output", c.Output, outputFormats).Validate(); appErr != nil {
		return appErr
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("config.pipeline: %w", err)
	}
	if _, err := util.ParseSize(c.HTTP.MaxBody); err != nil {
		return validation.New().Custom(false, "http.max_body", err.Error()).Validate()
	}
	if err := validation.Validate(&c.HTTP); err != nil {
		return fmt.Errorf("config.http: %w", err)
	}
	if err := validation.Validate(&c.Exec); err != nil {
		return fmt.Errorf("config.exec: %w", err)
	}
	return nil
}

// globalFlags are accepted by every command.
type globalFlags struct {
	configFile string
	envFile    string
}

func addGlobalFlags(fs *pflag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVarP(&g.configFile, "config", "c", "", "config file (default: search ./config.yml and cmd/longparallel/config.yml)")
	fs.StringVar(&g.envFile, "env-file", "", ".env file to load")
	fs.IntP("parallel", "p", 0, "degree of parallelism (default: number of CPUs)")
	fs.Int("buffer", 0, "result buffer size (default: degree of parallelism)")
	fs.StringP("output", "o", "", "output format: text, json or yaml")
	fs.String("log-level", "", "log level: trace, debug, info, warn or error")
	return g
}

// flagKeys maps global flags to config keys.
var flagKeys = map[string]string{
	"parallel":  "pipeline.degree_of_parallelism",
	"buffer":    "pipeline.buffer_size",
	"output":    "output",
	"log-level": "logging.level",
}

// loadConfig merges file, environment and flags, then applies defaults
// and validates.
func loadConfig(fs *pflag.FlagSet, g *globalFlags) (*AppConfig, error) {
	for _, path := range []string{g.configFile, g.envFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	opts := []config.LoaderOption{
		config.WithConfigFile(g.configFile),
		config.WithEnvFile(g.envFile),
	}
	for name, key := range flagKeys {
		opts = append(opts, config.WithFlag(key, fs.Lookup(name)))
	}

	cfg := &AppConfig{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
