package transfer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DeadLetter receives the rows a writer dropped. Drop may be called
// concurrently.
type DeadLetter interface {
	Drop(ctx context.Context, row DeadRow) error
}

// DeadRow is one dropped row with the context of its last failure.
type DeadRow struct {
	CorrelationID string    `msgpack:"correlation_id"`
	Table         string    `msgpack:"table"`
	Position      int       `msgpack:"position"`
	Statement     string    `msgpack:"statement"`
	Args          []any     `msgpack:"args"`
	Error         string    `msgpack:"error"`
	Kind          string    `msgpack:"kind"`
	Time          time.Time `msgpack:"time"`
	// BindError is set when the arguments of the row could not be bound;
	// Args is empty then.
	BindError string `msgpack:"bind_error,omitempty"`
}

// MsgpackDeadLetter appends dropped rows to a stream as consecutive
// msgpack documents.
type MsgpackDeadLetter struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	enc    *msgpack.Encoder
	closer io.Closer
}

// NewMsgpackDeadLetter returns a dead letter writing to w.
func NewMsgpackDeadLetter(w io.Writer) *MsgpackDeadLetter {
	buf := bufio.NewWriter(w)
	d := &MsgpackDeadLetter{buf: buf, enc: msgpack.NewEncoder(buf)}
	if c, ok := w.(io.Closer); ok {
		d.closer = c
	}
	return d
}

// OpenDeadLetter opens, or creates, the file at path for appending.
func OpenDeadLetter(path string) (*MsgpackDeadLetter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("transfer: open dead letter: %w", err)
	}
	return NewMsgpackDeadLetter(f), nil
}

// Drop implements the DeadLetter interface. Every row is flushed before
// Drop returns.
func (d *MsgpackDeadLetter) Drop(_ context.Context, row DeadRow) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enc.Encode(&row); err != nil {
		return fmt.Errorf("transfer: encode dead row: %w", err)
	}
	return d.buf.Flush()
}

// Close flushes the stream and closes the underlying writer, if it is a
// closer.
func (d *MsgpackDeadLetter) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.buf.Flush()
	if d.closer != nil {
		err = errors.Join(err, d.closer.Close())
	}
	return err
}

// ReadDeadLetters decodes all rows of a dead-letter stream.
func ReadDeadLetters(r io.Reader) ([]DeadRow, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	var rows []DeadRow
	for {
		var row DeadRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("transfer: decode dead row: %w", err)
		}
		rows = append(rows, row)
	}
}

// DeadLetterFunc is an adapter to allow the use of ordinary functions as
// dead letters.
type DeadLetterFunc func(ctx context.Context, row DeadRow) error

// Drop calls f(ctx, row).
func (f DeadLetterFunc) Drop(ctx context.Context, row DeadRow) error { return f(ctx, row) }
