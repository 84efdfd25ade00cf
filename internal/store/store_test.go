package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.verifyPragma("journal_mode", "wal"))
	require.NoError(t, s.verifyPragma("foreign_keys", "1"))
	require.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(context.Background(), "k", []byte("v")))
	require.NoError(t, s1.Close())

	// Reopening applies schema and migrations again without clobbering data.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	value, err := s2.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "doc:a/commits/0000000000000001", []byte("batch1")))

	value, err := s.Get(ctx, "doc:a/commits/0000000000000001")
	require.NoError(t, err)
	assert.Equal(t, []byte("batch1"), value)

	// Overwrite replaces.
	require.NoError(t, s.Put(ctx, "doc:a/commits/0000000000000001", []byte("batch1b")))
	value, err = s.Get(ctx, "doc:a/commits/0000000000000001")
	require.NoError(t, err)
	assert.Equal(t, []byte("batch1b"), value)

	require.NoError(t, s.Delete(ctx, "doc:a/commits/0000000000000001"))
	value, err = s.Get(ctx, "doc:a/commits/0000000000000001")
	require.NoError(t, err)
	assert.Nil(t, value, "missing key reads as nil, not error")
}

func TestLoadRangeOrderAndIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Written out of order on purpose; the scan must come back sorted.
	require.NoError(t, s.Put(ctx, "doc:a/commits/0000000000000002", []byte("b")))
	require.NoError(t, s.Put(ctx, "doc:a/commits/0000000000000001", []byte("a")))
	require.NoError(t, s.Put(ctx, "doc:a/bundles/0000000000000003", []byte("z")))
	require.NoError(t, s.Put(ctx, "doc:b/commits/0000000000000001", []byte("other")))

	entries, err := s.LoadRange(ctx, "doc:a/commits/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "doc:a/commits/0000000000000001", entries[0].Key)
	assert.Equal(t, []byte("a"), entries[0].Value)
	assert.Equal(t, "doc:a/commits/0000000000000002", entries[1].Key)

	entries, err = s.LoadRange(ctx, "doc:missing/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
