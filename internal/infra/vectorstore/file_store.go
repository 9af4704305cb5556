package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
	"github.com/matiasleandrokruk/ragline/pkg/vecmath"
)

// fileDocument is one stored chunk in the JSON file.
type fileDocument struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Metadata    rag.Metadata `json:"metadata"`
	Embedding   []float32    `json:"embedding"`
	ContentHash string       `json:"contentHash"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type fileData struct {
	Model      string         `json:"model"`
	Dimensions int            `json:"dimensions"`
	Documents  []fileDocument `json:"documents"`
}

// FileStore keeps every document in one JSON file, rewritten atomically on
// each insert. Search is brute-force cosine.
type FileStore struct {
	path string

	mu     sync.RWMutex
	data   fileData
	hashes map[string]struct{}
}

// OpenFileStore loads path, or starts empty when it does not exist yet.
// A file written for a different embedding model is rejected.
func OpenFileStore(path, model string) (*FileStore, error) {
	s := &FileStore{path: path, hashes: map[string]struct{}{}}
	s.data.Model = model

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, &rag.StoreError{Op: "open", Err: err}
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &rag.StoreError{Op: "open", Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	if model != "" && data.Model != "" && data.Model != model {
		return nil, &rag.StoreError{Op: "open", Err: fmt.Errorf("%s holds embeddings of model %q, not %q", path, data.Model, model)}
	}
	if data.Model == "" {
		data.Model = model
	}
	for _, d := range data.Documents {
		s.hashes[d.ContentHash] = struct{}{}
	}
	s.data = data
	return s, nil
}

// Insert appends doc and rewrites the file, unless its hash is already stored.
func (s *FileStore) Insert(_ context.Context, doc rag.Document) (bool, error) {
	if len(doc.Embedding) == 0 {
		return false, &rag.StoreError{Op: "insert", Err: errors.New("empty embedding")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hashes[doc.ContentHash]; ok {
		return false, nil
	}
	if s.data.Dimensions != 0 && s.data.Dimensions != len(doc.Embedding) {
		return false, &rag.StoreError{Op: "insert", Err: fmt.Errorf("embedding dimension %d does not match store dimension %d", len(doc.Embedding), s.data.Dimensions)}
	}

	next := s.data
	if next.Dimensions == 0 {
		next.Dimensions = len(doc.Embedding)
	}
	md := doc.Metadata
	if md == nil {
		md = rag.Metadata{}
	}
	next.Documents = append(s.data.Documents[:len(s.data.Documents):len(s.data.Documents)], fileDocument{
		ID:          doc.ID,
		Text:        doc.Text,
		Metadata:    md,
		Embedding:   doc.Embedding,
		ContentHash: doc.ContentHash,
		CreatedAt:   doc.CreatedAt.UTC(),
	})
	if err := s.write(next); err != nil {
		return false, &rag.StoreError{Op: "insert", Err: err}
	}
	s.data = next
	s.hashes[doc.ContentHash] = struct{}{}
	return true, nil
}

// Search ranks documents by similarity desc, created_at asc, id asc.
func (s *FileStore) Search(_ context.Context, req rag.SearchRequest) ([]rag.RetrievedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []rag.RetrievedDocument{}
	if req.TopK < 1 || len(s.data.Documents) == 0 {
		return out, nil
	}
	if len(req.Embedding) != s.data.Dimensions {
		return nil, &rag.StoreError{Op: "search", Err: fmt.Errorf("embedding dimension %d does not match store dimension %d", len(req.Embedding), s.data.Dimensions)}
	}

	for _, d := range s.data.Documents {
		if len(d.Embedding) == 0 || !rag.MatchesFilter(d.Metadata, req.Filter) {
			continue
		}
		sim, err := vecmath.Cosine(d.Embedding, req.Embedding)
		if err != nil {
			return nil, &rag.StoreError{Op: "search", Err: err}
		}
		out = append(out, d.retrieved(sim))
	}
	rag.SortRetrieved(out)
	if len(out) > req.TopK {
		out = out[:req.TopK]
	}
	return out, nil
}

// KeywordSearch ranks documents by how many terms they contain, then by
// created_at asc and id asc, and scores the TopK by cosine similarity.
func (s *FileStore) KeywordSearch(_ context.Context, req rag.KeywordRequest) ([]rag.RetrievedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []rag.RetrievedDocument{}
	if req.TopK < 1 || len(req.Terms) == 0 || len(s.data.Documents) == 0 {
		return out, nil
	}
	if len(req.Embedding) != s.data.Dimensions {
		return nil, &rag.StoreError{Op: "keyword search", Err: fmt.Errorf("embedding dimension %d does not match store dimension %d", len(req.Embedding), s.data.Dimensions)}
	}

	type hit struct {
		doc     *fileDocument
		matched int
	}
	var hits []hit
	for i := range s.data.Documents {
		d := &s.data.Documents[i]
		if len(d.Embedding) == 0 || !rag.MatchesFilter(d.Metadata, req.Filter) {
			continue
		}
		if n := rag.MatchesKeywords(d.Text, req.Terms); n > 0 {
			hits = append(hits, hit{doc: d, matched: n})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.matched != b.matched {
			return a.matched > b.matched
		}
		if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
			return a.doc.CreatedAt.Before(b.doc.CreatedAt)
		}
		return a.doc.ID < b.doc.ID
	})
	if len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	for _, h := range hits {
		sim, err := vecmath.Cosine(h.doc.Embedding, req.Embedding)
		if err != nil {
			return nil, &rag.StoreError{Op: "keyword search", Err: err}
		}
		out = append(out, h.doc.retrieved(sim))
	}
	return out, nil
}

// retrieved copies d for a caller; the metadata map is cloned so results
// never alias the in-memory store.
func (d *fileDocument) retrieved(sim float64) rag.RetrievedDocument {
	return rag.RetrievedDocument{
		ID:         d.ID,
		Text:       d.Text,
		Metadata:   maps.Clone(d.Metadata),
		CreatedAt:  d.CreatedAt,
		Similarity: sim,
	}
}

func (s *FileStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Documents), nil
}

func (s *FileStore) Location() string { return s.path }

func (s *FileStore) Driver() string { return "file" }

func (s *FileStore) Close() error { return nil }

// write replaces the file via a temp file in the same directory and a rename.
func (s *FileStore) write(data fileData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
