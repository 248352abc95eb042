package transfer

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/dialect"
	"github.com/syssam/criteria/dialect/sql"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()
	t.Run("Full", func(t *testing.T) {
		c, err := ParseConfig([]byte(`
workers: 8
min_chunk_size: 500
max_chunk_size: 5000
fetch_size: 100
split_factor: 4
cancel_on_failure: true
dialect: oracle
dead_letter_path: /tmp/dropped.msgpack
slow_query: 250ms
debug: true
`))
		require.NoError(t, err)
		assert.Equal(t, Config{
			Workers:         8,
			MinChunkSize:    500,
			MaxChunkSize:    5000,
			FetchSize:       100,
			SplitFactor:     4,
			CancelOnFailure: true,
			Dialect:         dialect.Oracle,
			DeadLetterPath:  "/tmp/dropped.msgpack",
			SlowQuery:       250 * time.Millisecond,
			Debug:           true,
		}, c)
		assert.Equal(t, dialect.Oracle, c.DialectImpl().Name())
	})
	t.Run("Defaults", func(t *testing.T) {
		c, err := ParseConfig([]byte("workers: 2\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, c.Workers)
		assert.Equal(t, MinChunkSize, c.MinChunkSize)
		assert.Equal(t, MaxChunkSize, c.MaxChunkSize)
		assert.Equal(t, SplitFactor, c.SplitFactor)
		assert.Equal(t, dialect.Standard, c.Dialect)
		assert.Equal(t, sql.DefaultSlowThreshold, c.SlowQuery)
		assert.False(t, c.Debug)
	})
	t.Run("UnknownDialect", func(t *testing.T) {
		c, err := ParseConfig([]byte("dialect: informix\n"))
		require.NoError(t, err)
		assert.Equal(t, dialect.Standard, c.DialectImpl().Name())
	})
	t.Run("InvalidYAML", func(t *testing.T) {
		_, err := ParseConfig([]byte("workers: [1"))
		require.Error(t, err)
		assert.True(t, criteria.IsConfigurationError(err))
	})
	t.Run("Inconsistent", func(t *testing.T) {
		_, err := ParseConfig([]byte("min_chunk_size: 10\nmax_chunk_size: 5\n"))
		require.Error(t, err)
		assert.True(t, criteria.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "min_chunk_size 10 exceeds max_chunk_size 5")
	})
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "transfer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch_size: 250\ndialect: mysql\n"), 0o600))
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 250, c.FetchSize)
	assert.Equal(t, dialect.MySQL, c.Dialect)
	assert.Equal(t, runtime.GOMAXPROCS(0), c.Workers)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, criteria.IsConfigurationError(err))
}

func TestOptions(t *testing.T) {
	t.Parallel()
	o := newOptions([]Option{
		WithConfig(Config{MinChunkSize: 10}),
		WithWorkers(3),
		WithFetchSize(7),
		WithCancelOnFailure(true),
		WithDebug(true),
		WithSlowQuery(time.Second),
	})
	assert.Equal(t, 3, o.config.Workers)
	assert.Equal(t, 7, o.config.FetchSize)
	assert.Equal(t, 10, o.config.MinChunkSize)
	assert.Equal(t, MaxChunkSize, o.config.MaxChunkSize)
	assert.True(t, o.config.CancelOnFailure)
	assert.True(t, o.config.Debug)
	assert.Equal(t, time.Second, o.config.SlowQuery)
	assert.NotNil(t, o.logger)
	assert.NotNil(t, o.coercions)
	assert.NotNil(t, o.registry)
	assert.Nil(t, o.deadLetter)
}
