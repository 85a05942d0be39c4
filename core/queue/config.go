package queue

// Config holds the queue defaults and consumer tunables.
// Designed for environment-based configuration (see core/config).
type Config struct {
	// Backoff defaults for negatively acknowledged messages
	MinBackoffSeconds int `env:"SQSX_MIN_BACKOFF_SECONDS" envDefault:"30"`
	MaxBackoffSeconds int `env:"SQSX_MAX_BACKOFF_SECONDS" envDefault:"900"`

	// Consumer configuration
	MaxMessages        int  `env:"SQSX_MAX_MESSAGES" envDefault:"1"`
	MaxThreads         int  `env:"SQSX_MAX_THREADS" envDefault:"1"`
	WaitSeconds        int  `env:"SQSX_WAIT_SECONDS" envDefault:"10"`
	PollingWaitSeconds int  `env:"SQSX_POLLING_WAIT_SECONDS" envDefault:"10"`
	RunForever         bool `env:"SQSX_RUN_FOREVER" envDefault:"true"`
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig() Config {
	return Config{
		MinBackoffSeconds:  DefaultMinBackoffSeconds,
		MaxBackoffSeconds:  DefaultMaxBackoffSeconds,
		MaxMessages:        1,
		MaxThreads:         1,
		WaitSeconds:        10,
		PollingWaitSeconds: 10,
		RunForever:         true,
	}
}

// Options converts the queue defaults of cfg to queue options.
func (cfg Config) Options() []Option {
	return []Option{
		WithMinBackoffSeconds(cfg.MinBackoffSeconds),
		WithMaxBackoffSeconds(cfg.MaxBackoffSeconds),
	}
}

// ConsumeOptions converts the consumer tunables of cfg to consume options.
func (cfg Config) ConsumeOptions() []ConsumeOption {
	return []ConsumeOption{
		WithMaxMessages(cfg.MaxMessages),
		WithMaxThreads(cfg.MaxThreads),
		WithWaitSeconds(cfg.WaitSeconds),
		WithPollingWaitSeconds(cfg.PollingWaitSeconds),
		WithRunForever(cfg.RunForever),
	}
}
