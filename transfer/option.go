package transfer

import (
	"log/slog"
	"time"

	"github.com/syssam/criteria/schema"
)

// Option configures readers, writers and mappers.
type Option func(*options)

type options struct {
	config     Config
	logger     *slog.Logger
	deadLetter DeadLetter
	coercions  *Coercions
	registry   *schema.Registry
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	o.config.ApplyDefaults()
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.coercions == nil {
		o.coercions = NewCoercions()
	}
	if o.registry == nil {
		o.registry = schema.NewRegistry()
	}
	return o
}

// WithConfig replaces the config. Unset fields take their defaults.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.config = c
	}
}

// WithWorkers bounds the number of concurrent tasks.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.config.Workers = n
	}
}

// WithFetchSize sets an explicit chunk size for reads.
func WithFetchSize(n int) Option {
	return func(o *options) {
		o.config.FetchSize = n
	}
}

// WithCancelOnFailure discards the remaining chunks of a read once one
// chunk failed, and skips the remaining sub-chunks of a write once a row
// was dropped.
func WithCancelOnFailure(on bool) Option {
	return func(o *options) {
		o.config.CancelOnFailure = on
	}
}

// WithDebug logs every statement of a driver opened with Open.
func WithDebug(on bool) Option {
	return func(o *options) {
		o.config.Debug = on
	}
}

// WithSlowQuery sets the slow statement threshold of a driver opened with
// Open.
func WithSlowQuery(d time.Duration) Option {
	return func(o *options) {
		o.config.SlowQuery = d
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDeadLetter sets the sink of the rows dropped by writers.
func WithDeadLetter(d DeadLetter) Option {
	return func(o *options) {
		o.deadLetter = d
	}
}

// WithCoercions sets the coercion table of the default struct mapper.
func WithCoercions(c *Coercions) Option {
	return func(o *options) {
		o.coercions = c
	}
}

// WithRegistry sets the schema registry used to describe record types.
func WithRegistry(r *schema.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}
