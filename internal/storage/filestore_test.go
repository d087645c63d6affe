package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSaveLoadDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("blob-1", []byte("contract body")))

	data, err := store.Load("blob-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("contract body"), data)

	require.NoError(t, store.Delete("blob-1"))
	_, err = store.Load("blob-1")
	assert.Error(t, err)
}

func TestFileStoreDeleteMissingIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete("never-existed"))
}

func TestFileStoreRejectsPathEscapes(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", `a\b`, "..", "x..y"} {
		assert.Error(t, store.Save(key, []byte("x")), "key %q", key)
		_, err := store.Load(key)
		assert.Error(t, err, "key %q", key)
	}
}
