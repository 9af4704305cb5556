package vectorstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

func TestFileStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) rag.VectorStore {
		s, err := OpenFileStore(filepath.Join(t.TempDir(), "vector_store.test.json"), "test-model")
		require.NoError(t, err)
		return s
	})
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "vector_store.json")
	ctx := context.Background()

	s, err := OpenFileStore(path, "m1")
	require.NoError(t, err)
	_, err = s.Insert(ctx, testDoc("id-1", "kept", []float32{1, 2, 3}, rag.Metadata{"source": "seed.json"}, baseTime))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk fileData
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, "m1", onDisk.Model)
	assert.Equal(t, 3, onDisk.Dimensions)
	require.Len(t, onDisk.Documents, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	reopened, err := OpenFileStore(path, "m1")
	require.NoError(t, err)
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := reopened.Insert(ctx, testDoc("id-2", "kept", []float32{1, 2, 3}, rag.Metadata{"source": "seed.json"}, baseTime))
	require.NoError(t, err)
	assert.False(t, ok, "hash index is rebuilt on open")
}

func TestFileStore_RejectsOtherModel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vector_store.json")
	s, err := OpenFileStore(path, "m1")
	require.NoError(t, err)
	_, err = s.Insert(context.Background(), testDoc("id-1", "x", []float32{1}, nil, baseTime))
	require.NoError(t, err)

	_, err = OpenFileStore(path, "m2")
	var se *rag.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "open", se.Op)
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vector_store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := OpenFileStore(path, "m1")
	assert.Error(t, err)
}

func TestFileStore_MissingFileStartsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "vector_store.json")
	s, err := OpenFileStore(path, "m1")
	require.NoError(t, err)
	assert.Equal(t, path, s.Location())
	assert.Equal(t, "file", s.Driver())

	_, err = s.Insert(context.Background(), testDoc("id-1", "x", []float32{1}, nil, baseTime))
	require.NoError(t, err, "parent directories are created on first write")
}

func TestFileStore_ResultsDoNotAliasStoredMetadata(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "vector_store.json"), "m1")
	require.NoError(t, err)
	_, err = s.Insert(ctx, testDoc("id-1", "red apple", []float32{1, 0}, rag.Metadata{"source": "seed.json"}, baseTime))
	require.NoError(t, err)

	got, err := s.Search(ctx, rag.SearchRequest{Embedding: []float32{1, 0}, TopK: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Metadata["source"] = "mutated"
	got[0].Metadata["extra"] = true

	hits, err := s.KeywordSearch(ctx, rag.KeywordRequest{Terms: []string{"apple"}, Embedding: []float32{1, 0}, TopK: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, rag.Metadata{"source": "seed.json"}, hits[0].Metadata)
	hits[0].Metadata["source"] = "mutated again"

	again, err := s.Search(ctx, rag.SearchRequest{Embedding: []float32{1, 0}, TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, rag.Metadata{"source": "seed.json"}, again[0].Metadata)
}
