package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseKV runs the behavior every backend must share
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, found, err := kv.Get(ctx, KeyCartStorage)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Set(ctx, KeyCartStorage, `{"state":{"items":[]}}`))
	value, found, err := kv.Get(ctx, KeyCartStorage)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"state":{"items":[]}}`, value)

	require.NoError(t, kv.Set(ctx, KeyCartStorage, "second"))
	value, _, err = kv.Get(ctx, KeyCartStorage)
	require.NoError(t, err)
	assert.Equal(t, "second", value)

	require.NoError(t, kv.Remove(ctx, KeyCartStorage))
	_, found, err = kv.Get(ctx, KeyCartStorage)
	require.NoError(t, err)
	assert.False(t, found)

	// Removing a missing key is not an error
	require.NoError(t, kv.Remove(ctx, KeyCartStorage))

	assert.ErrorIs(t, kv.Set(ctx, "", "x"), ErrEmptyKey)
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	exerciseKV(t, kv)
}

func TestMemoryKV_Keys(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, KeyAccessToken, "a"))
	require.NoError(t, kv.Set(ctx, KeyRefreshToken, "r"))

	assert.ElementsMatch(t, []string{KeyAccessToken, KeyRefreshToken}, kv.Keys())
}

func TestFileKV(t *testing.T) {
	kv, err := NewFileKV(filepath.Join(t.TempDir(), "nested", "storage.json"))
	require.NoError(t, err)
	exerciseKV(t, kv)
}

func TestFileKV_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	ctx := context.Background()

	first, err := NewFileKV(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, KeyAccessToken, "token-1"))

	second, err := NewFileKV(path)
	require.NoError(t, err)
	value, found, err := second.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "token-1", value)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileKV_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	kv, err := NewFileKV(path)
	require.NoError(t, err)

	_, _, err = kv.Get(context.Background(), KeyAccessToken)
	assert.Error(t, err)
}

func TestNewFileKV_EmptyPath(t *testing.T) {
	_, err := NewFileKV("")
	assert.Error(t, err)
}

func TestOpen_Memory(t *testing.T) {
	kv, closer, err := Open(context.Background(), Options{Backend: BackendMemory})
	require.NoError(t, err)
	defer closer.Close()

	assert.IsType(t, &MemoryKV{}, kv)
}

func TestOpen_File(t *testing.T) {
	kv, closer, err := Open(context.Background(), Options{
		Backend:  BackendFile,
		FilePath: filepath.Join(t.TempDir(), "s.json"),
	})
	require.NoError(t, err)
	defer closer.Close()

	assert.IsType(t, &FileKV{}, kv)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, _, err := Open(context.Background(), Options{Backend: "etcd"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}
