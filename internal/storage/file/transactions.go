package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"
	"sync"

	"bankledger/internal/codec"
	"bankledger/internal/core"
	"bankledger/internal/storage"
)

var _ storage.TransactionLog = (*TransactionLog)(nil)

// TransactionLog appends one line per record and replays them lazily.
type TransactionLog struct {
	path string

	mu sync.Mutex
	f  *os.File // append-only handle, nil once closed
}

// OpenTransactions opens the transaction file at path for appending,
// creating it when missing. The handle stays open until Close.
func OpenTransactions(path string) (*TransactionLog, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transaction file: %w", err)
	}
	return &TransactionLog{path: path, f: f}, nil
}

// Path returns the transaction file location.
func (l *TransactionLog) Path() string { return l.path }

func (l *TransactionLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// Append writes all records with a single write call and syncs the file.
// Records are validated first so a bad record fails the whole batch.
func (l *TransactionLog) Append(ctx context.Context, recs ...core.TransactionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	var b strings.Builder
	for _, r := range recs {
		line, err := codec.EncodeTransaction(r)
		if err != nil {
			return fmt.Errorf("encode transaction: %w", err)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return storage.ErrClosed
	}

	payload := b.String()
	if missing, err := needsNewline(l.path); err != nil {
		return fmt.Errorf("inspect transaction file: %w", err)
	} else if missing {
		payload = "\n" + payload
	}
	if _, err := l.f.WriteString(payload); err != nil {
		return fmt.Errorf("append transactions: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync transaction file: %w", err)
	}

	slog.DebugContext(ctx, "Transactions appended", "path", l.path, "count", len(recs))
	return nil
}

func (l *TransactionLog) ForAccount(ctx context.Context, number string) iter.Seq2[core.TransactionRecord, error] {
	return l.replay(ctx, func(r core.TransactionRecord) bool {
		return r.AccountNumber == number
	})
}

func (l *TransactionLog) ForAccountInMonth(ctx context.Context, number string, ym core.YearMonth) iter.Seq2[core.TransactionRecord, error] {
	return l.replay(ctx, func(r core.TransactionRecord) bool {
		return r.AccountNumber == number && ym.Contains(r.Timestamp)
	})
}

// replay reads the file as it was when iteration started: the size is taken
// under the append lock so a concurrent append is never seen half written.
func (l *TransactionLog) replay(ctx context.Context, keep func(core.TransactionRecord) bool) iter.Seq2[core.TransactionRecord, error] {
	return func(yield func(core.TransactionRecord, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(core.TransactionRecord{}, err)
			return
		}

		l.mu.Lock()
		closed := l.f == nil
		size, statErr := fileSize(l.path)
		l.mu.Unlock()
		if closed {
			yield(core.TransactionRecord{}, storage.ErrClosed)
			return
		}
		if statErr != nil {
			yield(core.TransactionRecord{}, fmt.Errorf("stat transaction file: %w", statErr))
			return
		}

		f, err := os.Open(l.path)
		if err != nil {
			yield(core.TransactionRecord{}, fmt.Errorf("open transaction file: %w", err))
			return
		}
		defer f.Close()

		stopped := false
		err = scanLines(io.LimitReader(f, size), func(n int, line string) bool {
			if err := ctx.Err(); err != nil {
				stopped = true
				yield(core.TransactionRecord{}, err)
				return false
			}
			r, err := codec.DecodeTransaction(line)
			if err != nil {
				slog.WarnContext(ctx, "Skipping malformed transaction record",
					"path", l.path, "line", n, "error", err)
				return true
			}
			if !keep(r) {
				return true
			}
			if !yield(r, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(core.TransactionRecord{}, fmt.Errorf("read transaction file: %w", err))
		}
	}
}

func fileSize(path string) (int64, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrAccountNotFound)
}
