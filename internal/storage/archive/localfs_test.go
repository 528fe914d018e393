// internal/storage/archive/localfs_test.go
package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_PutGet(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("Timestamp,Direction\n")
	require.NoError(t, store.Put(ctx, "exports/2026/10/17/polydash-signals-2026-10-17.csv", data, "text/csv"))

	got, err := store.Get(ctx, "exports/2026/10/17/polydash-signals-2026-10-17.csv")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalFS_PutOverwrites(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.json", []byte("old"), ""))
	require.NoError(t, store.Put(ctx, "a.json", []byte("new"), ""))

	got, _ := store.Get(ctx, "a.json")
	assert.Equal(t, "new", string(got))
}

func TestLocalFS_KeysStayInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewLocalFS(filepath.Join(dir, "archive"))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "../../escape.txt", []byte("x"), ""))
	_, err := os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))

	got, err := store.Get(ctx, "escape.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))

	assert.Error(t, store.Put(ctx, "/", []byte("x"), ""))
}

func TestLocalFS_List(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	store.Put(ctx, "exports/2026/01/02/b.csv", []byte("bb"), "")
	store.Put(ctx, "exports/2026/01/02/a.json", []byte("a"), "")
	store.Put(ctx, "exports/2026/02/01/c.csv", []byte("c"), "")

	objects, err := store.List(ctx, "exports/2026/01")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "exports/2026/01/02/a.json", objects[0].Key)
	assert.Equal(t, int64(2), objects[1].Size)
	assert.False(t, objects[1].ModTime.IsZero())

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.List(ctx, "exports/1999")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLocalFS_Delete(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "delete.txt", []byte("data"), ""))
	require.NoError(t, store.Delete(ctx, "delete.txt"))

	_, err := store.Get(ctx, "delete.txt")
	assert.True(t, os.IsNotExist(err))
}

func TestNew(t *testing.T) {
	s, err := New(Config{Type: "localfs", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalFS{}, s)

	s, err = New(Config{Type: "s3", S3: S3Config{Bucket: "exports"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)

	_, err = New(Config{Type: "gcs"})
	assert.Error(t, err)
}
