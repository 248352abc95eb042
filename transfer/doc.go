// Package transfer moves rows between Go values and SQL databases in
// parallel chunks.
//
// A Reader counts the rows of a query, splits [0, count) into chunks and
// fetches them concurrently, handing every chunk to a consumer:
//
//	r := transfer.NewReader[Employee](transfer.WithWorkers(8))
//	op := r.Read(ctx, transfer.ReadTemplate[Employee]{Driver: drv, Query: q}, consume)
//	chunks, err := op.Wait()
//
// A Writer inserts a chunk in a new transaction. When the transaction
// fails, the chunk is split into ten sub-chunks that are retried on their
// own, down to single rows. A single row that still fails is dropped,
// logged and sent to the configured DeadLetter:
//
//	w := transfer.NewWriter[Employee](transfer.WithDeadLetter(dl))
//	res, err := w.Write(ctx, transfer.WriteTemplate[Employee]{Driver: drv, Query: q}, chunk)
//
// Copy combines both to stream a table from one database into another.
//
// Open returns a driver whose statements are counted and, with
// Config.Debug, logged:
//
//	drv, err := transfer.Open("pgx", dsn, transfer.WithConfig(cfg))
//	...
//	logger.Info("copy finished", "stats", drv.QueryStats().Stats())
package transfer
