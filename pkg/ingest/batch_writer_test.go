package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scratchDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec("CREATE TABLE seen (id INTEGER PRIMARY KEY, word TEXT)")
	require.NoError(t, err)
	return conn
}

func insertWord(word string) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO seen (word) VALUES (?)", word)
		return err
	}
}

func countWords(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM seen").Scan(&n))
	return n
}

func TestBatchWriterTransactions(t *testing.T) {
	db := scratchDB(t)

	bw := NewBatchWriter(db, 2, 0)
	var errs []error
	var mu sync.Mutex
	bw.OnError = func(e error) {
		mu.Lock()
		errs = append(errs, e)
		mu.Unlock()
	}

	require.NoError(t, bw.Submit(insertWord("猫")))
	require.NoError(t, bw.Submit(insertWord("犬")))

	// Close and wait for pending batches to be committed. Use a timeout to avoid hanging tests.
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- bw.Close()
	}()
	select {
	case err := <-doneCh:
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for batch commit/close")
	}

	assert.Equal(t, 2, countWords(t, db))
	assert.Equal(t, 2, bw.Committed())
	assert.Empty(t, errs)
}

func TestBatchWriterRollback(t *testing.T) {
	db := scratchDB(t)

	bw := NewBatchWriter(db, 2, 0)
	errCh := make(chan error, 1)
	bw.OnError = func(e error) {
		errCh <- e
	}

	// Batch of 2: First succeeds, second fails. Whole batch should roll back.
	require.NoError(t, bw.Submit(insertWord("鳥")))
	require.NoError(t, bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		return fmt.Errorf("intentional error")
	}))

	assert.EqualError(t, bw.Close(), "intentional error")

	// Expect an error reported
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	default:
		t.Fatal("expected OnError to be called")
	}

	assert.Zero(t, countWords(t, db), "rolled back")
	assert.Zero(t, bw.Committed())
}

func TestBatchWriterSubmitAfterClose(t *testing.T) {
	bw := NewBatchWriter(nil, 1, 0)
	require.NoError(t, bw.Close())
	assert.Equal(t, ErrBatchWriterClosed, bw.Submit(insertWord("魚")))
	assert.Equal(t, ErrBatchWriterClosed, bw.Close())
}

func TestBatchWriterFlushesBySize(t *testing.T) {
	bw := NewBatchWriter(nil, 5, 0)
	var mu sync.Mutex
	called := 0
	for i := 0; i < 12; i++ {
		if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			mu.Lock()
			called++
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if called != 12 {
		t.Fatalf("expected 12 calls, got %d", called)
	}
}

func TestBatchWriterFlushesOnInterval(t *testing.T) {
	bw := NewBatchWriter(nil, 10, 50*time.Millisecond)
	var mu sync.Mutex
	called := 0
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		mu.Lock()
		called++
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	// wait for flush interval
	time.Sleep(100 * time.Millisecond)
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if called != 1 {
		t.Fatalf("expected 1 call, got %d", called)
	}
}

func TestBatchWriterDropsBatchOnCancel(t *testing.T) {
	// We need to ensure the committer is busy and commitCh is full when ctx is canceled.
	// Use a blocker so the committer will be processing the first batch while a second batch fills the buffer.
	bw := NewBatchWriter(nil, 1, 0) // small batch size to create batches quickly
	defer bw.Close()
	errCh := make(chan error, 1)
	bw.OnError = func(e error) {
		errCh <- e
	}

	blocker := make(chan struct{})

	// First batch: long-running callback that will block until we unblock it.
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		<-blocker // block here
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Second batch: will be queued in commitCh buffer while first is being processed
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return nil }); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Now cancel the writer's context so further batches cannot be queued
	bw.cancel()

	// Third batch: this submit will attempt to flush a batch and should find commitCh full and ctx.Done set,
	// causing it to report a dropped batch via OnError.
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return nil }); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Unblock the first batch so committer can finish and allow Close() to complete
	close(blocker)

	// Wait for OnError to be called
	select {
	case e := <-errCh:
		if e == nil || !strings.Contains(e.Error(), "dropping batch") {
			t.Fatalf("unexpected OnError value: %v", e)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected OnError to be called when batch dropped")
	}
}
