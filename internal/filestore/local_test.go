package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvalmar/luma/internal/config"
)

func newTestStore(t *testing.T) IFileStore {
	t.Helper()
	store, err := New(config.FileStoreConfig{Type: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	return store
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "doc-1", strings.NewReader("contenido")))

	rc, err := store.Open(ctx, "doc-1")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "contenido", string(data))

	require.NoError(t, store.Remove(ctx, "doc-1"))
	_, err = store.Open(ctx, "doc-1")
	require.Error(t, err)
}

func TestLocalStoreRejectsPathKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.Error(t, store.Save(ctx, "../escape", strings.NewReader("x")))
	require.Error(t, store.Save(ctx, "a/b", strings.NewReader("x")))
	require.Error(t, store.Save(ctx, "", strings.NewReader("x")))
	_, err := store.Open(ctx, "..\\win")
	require.Error(t, err)
}

func TestNewUnknownStoreType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
}
