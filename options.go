package saga

import (
	"github.com/rs/zerolog"
)

// defaultWorkers is the worker-pool size used by the concurrent
// coordinator when none is configured.
const defaultWorkers = 4

type config struct {
	name    string
	logger  zerolog.Logger
	journal Journal
	workers int
}

func defaultConfig() config {
	return config{
		logger:  zerolog.Nop(),
		workers: defaultWorkers,
	}
}

// Option configures a coordinator.
type Option func(*config)

// WithName sets a human-readable saga name, carried into the Outcome and
// the journal record.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the logger used for step-level progress events. The
// default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithJournal sets a Journal that receives the terminal run record once
// the saga reaches an outcome. Journal errors are logged and never alter
// the outcome.
func WithJournal(journal Journal) Option {
	return func(c *config) {
		c.journal = journal
	}
}

// WithWorkers sets the worker-pool size of a concurrent coordinator.
// Values below one fall back to the default. The synchronous coordinator
// ignores it.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}
