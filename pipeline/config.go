package pipeline

import (
	"runtime"

	"github.com/kbukum/longparallel/validation"
)

// Config is the pipeline block of a service config file.
type Config struct {
	// DegreeOfParallelism is the number of workers per session. Zero runs
	// no workers and yields nothing.
	DegreeOfParallelism int `yaml:"degree_of_parallelism" mapstructure:"degree_of_parallelism" validate:"gte=0"`
	// BufferSize bounds the result channel. Zero means max(1, degree).
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size" validate:"gte=0"`
}

// DefaultDegreeOfParallelism is the degree used when none is configured.
func DefaultDegreeOfParallelism() int {
	return runtime.NumCPU()
}

// ApplyDefaults sets the degree to the hardware parallelism when unset.
// An explicit zero cannot be told apart from unset; set it on the query
// with WithDegreeOfParallelism instead.
func (c *Config) ApplyDefaults() {
	if c.DegreeOfParallelism == 0 {
		c.DegreeOfParallelism = DefaultDegreeOfParallelism()
	}
}

// Validate checks the block with struct tags.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
