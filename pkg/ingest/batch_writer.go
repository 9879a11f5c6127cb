package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// WriteFunc performs the writes for one sentence inside a shared transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchWriter groups WriteFuncs into transactions. A batch is committed when
// it reaches its size or when the flush interval elapses, whichever is first.
// A failing WriteFunc rolls back its whole batch.
type BatchWriter struct {
	mu      sync.Mutex
	pending []WriteFunc
	size    int
	ticker  *time.Ticker
	closed  bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	batches chan []WriteFunc
	conn    *sql.DB
	OnError func(error)

	errMu    sync.Mutex
	firstErr error

	// committed counts writes in successfully committed batches.
	committed int
}

// NewBatchWriter starts a writer committing to conn. A nil conn runs the
// writes with a nil transaction. A zero flushInterval disables timed flushes.
func NewBatchWriter(conn *sql.DB, batchSize int, flushInterval time.Duration) *BatchWriter {
	if batchSize <= 0 {
		batchSize = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		pending: make([]WriteFunc, 0, batchSize),
		size:    batchSize,
		ctx:     ctx,
		cancel:  cancel,
		batches: make(chan []WriteFunc, 2),
		conn:    conn,
	}

	bw.wg.Add(1)
	go bw.commitLoop()

	if flushInterval > 0 {
		bw.ticker = time.NewTicker(flushInterval)
		bw.wg.Add(1)
		go bw.tickLoop()
	}
	return bw
}

// Submit queues w, flushing the batch once it is full. It blocks while the
// committer is behind by more than two batches.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.pending = append(bw.pending, w)
	if len(bw.pending) >= bw.size {
		bw.flushLocked()
	}
	return nil
}

// Committed returns how many writes have been committed so far.
func (bw *BatchWriter) Committed() int {
	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.committed
}

// flushLocked hands the pending batch to the committer. bw.mu must be held.
func (bw *BatchWriter) flushLocked() {
	if len(bw.pending) == 0 {
		return
	}
	batch := bw.pending
	bw.pending = make([]WriteFunc, 0, bw.size)

	select {
	case bw.batches <- batch:
	case <-bw.ctx.Done():
		bw.fail(fmt.Errorf("batch writer: dropping batch of %d items due to context cancellation", len(batch)))
	}
}

// fail records the first error and reports every error to OnError.
func (bw *BatchWriter) fail(err error) {
	bw.errMu.Lock()
	if bw.firstErr == nil {
		bw.firstErr = err
	}
	bw.errMu.Unlock()
	Logger.Warn().Err(err).Msg("batch failed")
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

func (bw *BatchWriter) commitLoop() {
	defer bw.wg.Done()
	for batch := range bw.batches {
		if err := bw.commit(batch); err != nil {
			bw.fail(err)
			continue
		}
		bw.errMu.Lock()
		bw.committed += len(batch)
		bw.errMu.Unlock()
		Logger.Debug().Int("writes", len(batch)).Msg("batch committed")
	}
}

func (bw *BatchWriter) commit(batch []WriteFunc) error {
	if bw.conn == nil {
		for _, w := range batch {
			if err := w(bw.ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	// batches queued before Close must still land after cancel
	ctx := context.Background()

	tx, err := bw.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch (%d items): %w", len(batch), err)
	}
	return nil
}

func (bw *BatchWriter) tickLoop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.ticker.C:
			bw.mu.Lock()
			bw.flushLocked()
			bw.mu.Unlock()
		}
	}
}

// Close flushes what is pending, waits for the committer and returns the
// first error seen, if any.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	bw.flushLocked()
	bw.mu.Unlock()

	bw.cancel()
	close(bw.batches)
	bw.wg.Wait()

	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.firstErr
}

// ErrBatchWriterClosed is returned by Submit and Close after Close.
var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

// BatchWriterError is the typed error of BatchWriter operations.
type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
