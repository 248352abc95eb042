package transfer

import (
	"github.com/syssam/criteria/dialect"
	"github.com/syssam/criteria/dialect/sql"
)

// Instrument wraps drv for use in read and write templates. Statements are
// counted, the ones slower than Config.SlowQuery are logged as warnings, and
// with Config.Debug every statement and transaction is logged at debug
// level.
func Instrument(drv dialect.Driver, opts ...Option) *sql.StatsDriver {
	o := newOptions(opts)
	if o.config.Debug {
		drv = sql.NewDebugDriver(drv, sql.DebugWithLogger(o.logger))
	}
	return sql.NewStatsDriver(drv,
		sql.WithSlowThreshold(o.config.SlowQuery),
		sql.WithSlowQueryLog(o.logger),
	)
}

// Open opens a database with sql.Open and instruments it. The driver name
// also selects the dialect.
//
//	cfg, err := transfer.LoadConfig("transfer.yaml")
//	drv, err := transfer.Open("pgx", dsn, transfer.WithConfig(cfg))
//	defer drv.Close()
//	...
//	logger.Info("copy finished", "stats", drv.QueryStats().Stats())
func Open(driverName, source string, opts ...Option) (*sql.StatsDriver, error) {
	drv, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return Instrument(drv, opts...), nil
}
