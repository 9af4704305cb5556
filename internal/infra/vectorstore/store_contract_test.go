package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

func testDoc(id, text string, emb []float32, md rag.Metadata, at time.Time) rag.Document {
	hash, err := rag.ContentHash(text, md)
	if err != nil {
		panic(err)
	}
	return rag.Document{ID: id, Text: text, Metadata: md, Embedding: emb, ContentHash: hash, CreatedAt: at}
}

// runStoreContract checks the behaviour every rag.VectorStore must share.
func runStoreContract(t *testing.T, open func(t *testing.T) rag.VectorStore) {
	t.Run("insert is idempotent per content hash", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		doc := testDoc("00000000-0000-0000-0000-000000000001", "hello", []float32{1, 0}, rag.Metadata{"source": "a"}, baseTime)

		ok, err := s.Insert(ctx, doc)
		require.NoError(t, err)
		assert.True(t, ok)

		doc.ID = "00000000-0000-0000-0000-000000000002"
		ok, err = s.Insert(ctx, doc)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("same text with other metadata is a new row", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		for i, src := range []string{"a", "b"} {
			ok, err := s.Insert(ctx, testDoc(fmt.Sprintf("00000000-0000-0000-0000-00000000001%d", i), "hello", []float32{1, 0}, rag.Metadata{"source": src}, baseTime))
			require.NoError(t, err)
			assert.True(t, ok)
		}
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("search orders by similarity then age then id", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		docs := []rag.Document{
			testDoc("00000000-0000-0000-0000-0000000000a3", "far", []float32{0, 1}, nil, baseTime),
			testDoc("00000000-0000-0000-0000-0000000000a2", "tie late", []float32{1, 0}, nil, baseTime.Add(time.Second)),
			testDoc("00000000-0000-0000-0000-0000000000b1", "tie early b", []float32{2, 0}, nil, baseTime),
			testDoc("00000000-0000-0000-0000-0000000000a1", "tie early a", []float32{3, 0}, nil, baseTime),
			testDoc("00000000-0000-0000-0000-0000000000a4", "near", []float32{1, 1}, nil, baseTime),
		}
		for _, d := range docs {
			_, err := s.Insert(ctx, d)
			require.NoError(t, err)
		}

		got, err := s.Search(ctx, rag.SearchRequest{Embedding: []float32{1, 0}, TopK: 10})
		require.NoError(t, err)
		require.Len(t, got, 5)

		var texts []string
		for _, d := range got {
			texts = append(texts, d.Text)
		}
		assert.Equal(t, []string{"tie early a", "tie early b", "tie late", "near", "far"}, texts)
		assert.InDelta(t, 1.0, got[0].Similarity, 1e-6)
		assert.InDelta(t, 0.7071, got[3].Similarity, 1e-3)
		assert.InDelta(t, 0.0, got[4].Similarity, 1e-6)
		assert.True(t, got[2].CreatedAt.Equal(baseTime.Add(time.Second)), "created_at round-trips")

		top, err := s.Search(ctx, rag.SearchRequest{Embedding: []float32{1, 0}, TopK: 2})
		require.NoError(t, err)
		assert.Len(t, top, 2)
	})

	t.Run("filter matches metadata scalars", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_, err := s.Insert(ctx, testDoc("00000000-0000-0000-0000-0000000000c1", "one", []float32{1, 0}, rag.Metadata{"source": "a", "rank": 2, "draft": true}, baseTime))
		require.NoError(t, err)
		_, err = s.Insert(ctx, testDoc("00000000-0000-0000-0000-0000000000c2", "two", []float32{1, 0}, rag.Metadata{"source": "b", "rank": 3, "draft": false}, baseTime))
		require.NoError(t, err)

		cases := []struct {
			filter map[string]any
			want   []string
		}{
			{map[string]any{"source": "a"}, []string{"one"}},
			{map[string]any{"rank": float64(3)}, []string{"two"}},
			{map[string]any{"draft": true}, []string{"one"}},
			{map[string]any{"source": "a", "rank": float64(3)}, nil},
			{map[string]any{"missing": "x"}, nil},
		}
		for _, tc := range cases {
			got, err := s.Search(ctx, rag.SearchRequest{Embedding: []float32{1, 0}, TopK: 10, Filter: tc.filter})
			require.NoError(t, err)
			var texts []string
			for _, d := range got {
				texts = append(texts, d.Text)
			}
			assert.Equal(t, tc.want, texts, "filter %v", tc.filter)
		}

		got, err := s.Search(ctx, rag.SearchRequest{Embedding: []float32{1, 0}, TopK: 1, Filter: map[string]any{"source": "b"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].Metadata["source"])
	})

	t.Run("dimension mismatch is a store error", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_, err := s.Insert(ctx, testDoc("00000000-0000-0000-0000-0000000000d1", "two dims", []float32{1, 0}, nil, baseTime))
		require.NoError(t, err)

		_, err = s.Insert(ctx, testDoc("00000000-0000-0000-0000-0000000000d2", "three dims", []float32{1, 0, 0}, nil, baseTime))
		var se *rag.StoreError
		require.True(t, errors.As(err, &se), "got %v", err)
		assert.Equal(t, "insert", se.Op)

		_, err = s.Search(ctx, rag.SearchRequest{Embedding: []float32{1, 0, 0}, TopK: 3})
		require.True(t, errors.As(err, &se), "got %v", err)
		assert.Equal(t, "search", se.Op)
	})

	t.Run("keyword search recalls term matches scored by similarity", func(t *testing.T) {
		s := open(t)
		ks, ok := s.(rag.KeywordSearcher)
		require.True(t, ok, "%T does not support keyword search", s)
		ctx := context.Background()
		for _, d := range []rag.Document{
			testDoc("00000000-0000-0000-0000-0000000000e1", "The cat sat on the mat", []float32{1, 0}, rag.Metadata{"source": "a"}, baseTime),
			testDoc("00000000-0000-0000-0000-0000000000e2", "A dog chased the cat", []float32{0, 1}, rag.Metadata{"source": "b"}, baseTime.Add(time.Second)),
			testDoc("00000000-0000-0000-0000-0000000000e3", "Birds sing", []float32{1, 1}, rag.Metadata{"source": "a"}, baseTime),
		} {
			_, err := s.Insert(ctx, d)
			require.NoError(t, err)
		}

		got, err := ks.KeywordSearch(ctx, rag.KeywordRequest{Terms: []string{"cat"}, Embedding: []float32{1, 0}, TopK: 10})
		require.NoError(t, err)
		sims := map[string]float64{}
		for _, d := range got {
			sims[d.Text] = d.Similarity
		}
		require.Len(t, sims, 2)
		assert.InDelta(t, 1.0, sims["The cat sat on the mat"], 1e-6)
		assert.InDelta(t, 0.0, sims["A dog chased the cat"], 1e-6)

		got, err = ks.KeywordSearch(ctx, rag.KeywordRequest{Terms: []string{"zebra", "birds"}, Embedding: []float32{1, 0}, TopK: 10})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Birds sing", got[0].Text)

		got, err = ks.KeywordSearch(ctx, rag.KeywordRequest{Terms: []string{"cat"}, Embedding: []float32{1, 0}, TopK: 1})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = ks.KeywordSearch(ctx, rag.KeywordRequest{Terms: []string{"cat"}, Embedding: []float32{1, 0}, TopK: 10, Filter: map[string]any{"source": "b"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "A dog chased the cat", got[0].Text)

		got, err = ks.KeywordSearch(ctx, rag.KeywordRequest{Terms: []string{"zebra"}, Embedding: []float32{1, 0}, TopK: 10})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("keyword search checks the embedding dimension", func(t *testing.T) {
		s := open(t)
		ks := s.(rag.KeywordSearcher)
		ctx := context.Background()
		_, err := s.Insert(ctx, testDoc("00000000-0000-0000-0000-0000000000f1", "cat", []float32{1, 0}, nil, baseTime))
		require.NoError(t, err)

		_, err = ks.KeywordSearch(ctx, rag.KeywordRequest{Terms: []string{"cat"}, Embedding: []float32{1, 0, 0}, TopK: 3})
		var se *rag.StoreError
		assert.True(t, errors.As(err, &se), "got %v", err)
	})

	t.Run("empty store returns no documents", func(t *testing.T) {
		s := open(t)
		got, err := s.Search(context.Background(), rag.SearchRequest{Embedding: []float32{1, 0}, TopK: 5})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
