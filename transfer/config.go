package transfer

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/dialect"
	"github.com/syssam/criteria/dialect/sql"
)

// Config holds the tunables of readers and writers. The zero value is
// usable once ApplyDefaults has been called.
//
//	workers: 8
//	min_chunk_size: 1000
//	max_chunk_size: 1000000
//	fetch_size: 0
//	split_factor: 10
//	cancel_on_failure: true
//	dialect: postgres
//	dead_letter_path: /var/lib/transfer/dropped.msgpack
//	slow_query: 500ms
//	debug: false
type Config struct {
	// Workers bounds the concurrent fetch and write tasks. It defaults to
	// the number of usable CPUs.
	Workers int `yaml:"workers"`
	// MinChunkSize and MaxChunkSize clamp the computed chunk size.
	MinChunkSize int `yaml:"min_chunk_size"`
	MaxChunkSize int `yaml:"max_chunk_size"`
	// FetchSize, when positive, overrides the computed chunk size.
	FetchSize int `yaml:"fetch_size"`
	// SplitFactor is the number of sub-chunks a failed write is split into.
	SplitFactor int `yaml:"split_factor"`
	// CancelOnFailure sets the cancellation flag of a read when one of its
	// chunks fails, so the remaining chunks are discarded, and of a write
	// when a row is dropped, so the remaining sub-chunks are skipped.
	CancelOnFailure bool `yaml:"cancel_on_failure"`
	// Dialect names the SQL dialect. Unknown names select the standard one.
	Dialect string `yaml:"dialect"`
	// DeadLetterPath is the file dropped rows are appended to.
	DeadLetterPath string `yaml:"dead_letter_path"`
	// SlowQuery is the duration above which a statement of a driver opened
	// with Open is logged as slow. It defaults to sql.DefaultSlowThreshold.
	SlowQuery time.Duration `yaml:"slow_query"`
	// Debug logs every statement of a driver opened with Open.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a config with all defaults applied.
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills the unset fields.
func (c *Config) ApplyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.MinChunkSize <= 0 {
		c.MinChunkSize = MinChunkSize
	}
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = MaxChunkSize
	}
	if c.SplitFactor < 2 {
		c.SplitFactor = SplitFactor
	}
	if c.Dialect == "" {
		c.Dialect = dialect.Standard
	}
	if c.SlowQuery <= 0 {
		c.SlowQuery = sql.DefaultSlowThreshold
	}
}

// Validate reports inconsistent settings.
func (c Config) Validate() error {
	if c.MinChunkSize > c.MaxChunkSize {
		return criteria.NewConfigurationError("transfer config",
			fmt.Sprintf("min_chunk_size %d exceeds max_chunk_size %d", c.MinChunkSize, c.MaxChunkSize))
	}
	if c.FetchSize < 0 {
		return criteria.NewConfigurationError("transfer config", "fetch_size must not be negative")
	}
	return nil
}

// DialectImpl returns the dialect named by the config.
func (c Config) DialectImpl() dialect.Dialect { return dialect.For(c.Dialect) }

// ParseConfig decodes a YAML config and applies the defaults.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, &criteria.ConfigurationError{Subject: "transfer config", Message: "invalid yaml", Cause: err}
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig reads and parses the YAML config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &criteria.ConfigurationError{Subject: path, Message: "read config", Cause: err}
	}
	return ParseConfig(data)
}
