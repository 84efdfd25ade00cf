package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsync/driftsync/internal/engine"
	"github.com/driftsync/driftsync/internal/ids"
)

func newTestExecutor(t *testing.T) (*Executor, chan engine.IoResult) {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "exec.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	results := make(chan engine.IoResult, 64)
	x := NewExecutor(s, slog.New(slog.NewTextHandler(io.Discard, nil)), func(res engine.IoResult) {
		results <- res
	})
	t.Cleanup(x.Close)
	return x, results
}

func awaitResult(t *testing.T, results chan engine.IoResult) engine.IoResult {
	t.Helper()
	select {
	case res := <-results:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no completion within deadline")
		return engine.IoResult{}
	}
}

func TestExecutorRoundTrip(t *testing.T) {
	x, results := newTestExecutor(t)
	minter := ids.NewMinter(ids.NewPrefixedSource("io"))

	putID := minter.IoTaskID()
	x.Submit(engine.IoTask{ID: putID, Action: engine.IoPut, Key: "doc:a/commits/01", Payload: []byte("batch")})

	res := awaitResult(t, results)
	require.True(t, res.OK(), "put failed: %s", res.Err)
	assert.Equal(t, putID, res.TaskID)

	loadID := minter.IoTaskID()
	x.Submit(engine.IoTask{ID: loadID, Action: engine.IoLoad, Key: "doc:a/commits/01"})

	res = awaitResult(t, results)
	require.True(t, res.OK())
	assert.Equal(t, loadID, res.TaskID)
	assert.Equal(t, []byte("batch"), res.Payload)
}

func TestExecutorPreservesSubmissionOrder(t *testing.T) {
	x, results := newTestExecutor(t)
	minter := ids.NewMinter(ids.NewPrefixedSource("io"))

	var taskIDs []ids.IoTaskID
	for i := 0; i < 20; i++ {
		id := minter.IoTaskID()
		taskIDs = append(taskIDs, id)
		x.Submit(engine.IoTask{ID: id, Action: engine.IoPut, Key: "k", Payload: []byte{byte(i)}})
	}

	for _, want := range taskIDs {
		res := awaitResult(t, results)
		require.True(t, res.OK())
		assert.Equal(t, want, res.TaskID, "completions must arrive in submission order")
	}
}

func TestExecutorRangeTask(t *testing.T) {
	x, results := newTestExecutor(t)
	minter := ids.NewMinter(ids.NewPrefixedSource("io"))

	x.Submit(engine.IoTask{ID: minter.IoTaskID(), Action: engine.IoPut, Key: "doc:a/commits/02", Payload: []byte("b")})
	x.Submit(engine.IoTask{ID: minter.IoTaskID(), Action: engine.IoPut, Key: "doc:a/commits/01", Payload: []byte("a")})
	awaitResult(t, results)
	awaitResult(t, results)

	x.Submit(engine.IoTask{ID: minter.IoTaskID(), Action: engine.IoLoadRange, Key: "doc:a/commits/"})
	res := awaitResult(t, results)
	require.True(t, res.OK())
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "doc:a/commits/01", res.Entries[0].Key)
	assert.Equal(t, []byte("a"), res.Entries[0].Value)
}

func TestExecutorSubmitAfterCloseDropped(t *testing.T) {
	x, results := newTestExecutor(t)
	minter := ids.NewMinter(ids.NewPrefixedSource("io"))

	x.Close()
	x.Submit(engine.IoTask{ID: minter.IoTaskID(), Action: engine.IoPut, Key: "k", Payload: []byte("v")})

	select {
	case res := <-results:
		t.Fatalf("unexpected completion after close: %+v", res)
	case <-time.After(100 * time.Millisecond):
	}
}
