package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openScratchDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Ensure single connection to avoid separate in-memory DBs per connection.
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, val TEXT)")
	require.NoError(t, err)
	return conn
}

func insertVal(val string) WriteFunc {
	return func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO test (val) VALUES (?)", val)
		return err
	}
}

func TestBatchWriterTransactions(t *testing.T) {
	conn := openScratchDB(t)

	bw := NewBatchWriter(conn, 2, 0)
	require.NoError(t, bw.Submit(insertVal("A")))
	require.NoError(t, bw.Submit(insertVal("B")))
	require.NoError(t, bw.Submit(insertVal("C")))

	// Close and wait for pending batches to be committed. Use a timeout to avoid hanging tests.
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- bw.Close()
	}()
	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for batch commit/close")
	}

	var count int
	require.NoError(t, conn.Get(&count, "SELECT COUNT(*) FROM test"))
	assert.Equal(t, 3, count)

	batches, writes := bw.Committed()
	assert.Equal(t, int64(2), batches)
	assert.Equal(t, int64(3), writes)
}

func TestBatchWriterRollback(t *testing.T) {
	conn := openScratchDB(t)

	bw := NewBatchWriter(conn, 2, 0)
	errCh := make(chan error, 1)
	bw.OnError = func(e error) {
		errCh <- e
	}

	// Batch of 2: first succeeds, second fails. Whole batch should roll back.
	require.NoError(t, bw.Submit(insertVal("C")))
	require.NoError(t, bw.Submit(func(ctx context.Context, tx *sqlx.Tx) error {
		return fmt.Errorf("intentional error")
	}))

	err := bw.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intentional error")

	select {
	case e := <-errCh:
		assert.Error(t, e)
	default:
		t.Fatal("expected OnError to be called")
	}

	var count int
	require.NoError(t, conn.Get(&count, "SELECT COUNT(*) FROM test"))
	assert.Zero(t, count, "rollback discards the whole batch")

	batches, _ := bw.Committed()
	assert.Zero(t, batches)
}

func TestBatchWriterFlushesBySize(t *testing.T) {
	bw := NewBatchWriter(nil, 5, 0)
	var mu sync.Mutex
	called := 0
	for i := 0; i < 12; i++ {
		require.NoError(t, bw.Submit(func(ctx context.Context, tx *sqlx.Tx) error {
			mu.Lock()
			called++
			mu.Unlock()
			return nil
		}))
	}
	require.NoError(t, bw.Close())
	assert.Equal(t, 12, called)
}

func TestBatchWriterFlushesOnInterval(t *testing.T) {
	bw := NewBatchWriter(nil, 10, 20*time.Millisecond)
	ran := make(chan struct{}, 1)
	require.NoError(t, bw.Submit(func(ctx context.Context, tx *sqlx.Tx) error {
		ran <- struct{}{}
		return nil
	}))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("buffered write was not flushed by the ticker")
	}
	require.NoError(t, bw.Close())
}

func TestBatchWriterSubmitAfterClose(t *testing.T) {
	bw := NewBatchWriter(nil, 1, 0)
	require.NoError(t, bw.Close())
	assert.Equal(t, ErrBatchWriterClosed, bw.Submit(func(ctx context.Context, tx *sqlx.Tx) error { return nil }))
	assert.Equal(t, ErrBatchWriterClosed, bw.Close())
}

func TestBatchWriterDropsBatchOnCancel(t *testing.T) {
	bw := NewBatchWriter(nil, 1, 0) // every submit is its own batch
	errCh := make(chan error, 1)
	bw.OnError = func(e error) {
		errCh <- e
	}

	started := make(chan struct{})
	blocker := make(chan struct{})
	noop := func(ctx context.Context, tx *sqlx.Tx) error { return nil }

	// The committer picks up the first batch and blocks inside it.
	require.NoError(t, bw.Submit(func(ctx context.Context, tx *sqlx.Tx) error {
		close(started)
		<-blocker
		return nil
	}))
	<-started

	// Two more batches fill the commit queue.
	require.NoError(t, bw.Submit(noop))
	require.NoError(t, bw.Submit(noop))

	bw.cancel()

	// The queue is full and the writer is canceled, so this batch is dropped.
	require.NoError(t, bw.Submit(noop))
	close(blocker)

	select {
	case e := <-errCh:
		assert.Contains(t, e.Error(), "dropping batch")
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected OnError to be called when batch dropped")
	}
	assert.ErrorContains(t, bw.Close(), "dropping batch")
}
