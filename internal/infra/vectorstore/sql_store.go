// Package vectorstore holds the rag.VectorStore implementations: a SQL store
// with SQLite and Postgres (pgvector) dialects, and a JSON file store.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
	"github.com/matiasleandrokruk/ragline/internal/infra/sqlite"
)

// DBTX is the executor the SQL store runs on: *sql.DB, *sql.Tx or *sql.Conn.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect isolates the SQL that differs between engines.
type Dialect interface {
	Name() string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// InsertSQL inserts (id, text, metadata, embedding, content_hash,
	// created_at) and does nothing when content_hash already exists.
	InsertSQL(table string) string
	// SelectColumns yields id, text, metadata, created_at as scannable text/time.
	SelectColumns() string
	// Similarity is the cosine similarity between the stored embedding and param.
	Similarity(param string) string
	// Filter renders the metadata equality filter starting at placeholder n.
	Filter(filter map[string]any, n int) (string, []any, error)
	// KeywordJoin joins table to a derived table k(kid, krank) of rows that
	// match the term query bound at param. Lower krank is a better match.
	KeywordJoin(table, param string) string
	// KeywordQuery renders terms as the value bound to KeywordJoin's param.
	KeywordQuery(terms []string) string
	EncodeEmbedding(vec []float32) any
	EncodeTime(t time.Time) any
}

const metaDimensions = "dimensions"

// SQLStore is a rag.VectorStore over any DBTX.
type SQLStore struct {
	db       DBTX
	dialect  Dialect
	table    string
	location string

	mu   sync.Mutex
	dims int // 0 until known
}

// NewSQLStore returns a store over an already-migrated table.
// location is reported by Location; "" means the table name.
func NewSQLStore(db DBTX, dialect Dialect, table, location string) (*SQLStore, error) {
	if !validTable(table) {
		return nil, &rag.StoreError{Op: "open", Err: fmt.Errorf("invalid table name %q", table)}
	}
	if location == "" {
		location = table
	}
	return &SQLStore{db: db, dialect: dialect, table: table, location: location}, nil
}

// Insert stores doc unless a row with the same content hash exists.
func (s *SQLStore) Insert(ctx context.Context, doc rag.Document) (bool, error) {
	if err := s.checkDimensions(ctx, len(doc.Embedding), true); err != nil {
		return false, err
	}
	md, err := rag.CanonicalJSON(doc.Metadata)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, s.dialect.InsertSQL(s.table),
		doc.ID, doc.Text, string(md), s.dialect.EncodeEmbedding(doc.Embedding),
		doc.ContentHash, s.dialect.EncodeTime(doc.CreatedAt))
	if err != nil {
		return false, &rag.StoreError{Op: "insert", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &rag.StoreError{Op: "insert", Err: err}
	}
	return n > 0, nil
}

// Search ranks rows with an embedding by similarity desc, created_at asc, id asc.
func (s *SQLStore) Search(ctx context.Context, req rag.SearchRequest) ([]rag.RetrievedDocument, error) {
	if req.TopK < 1 {
		return []rag.RetrievedDocument{}, nil
	}
	if err := s.checkDimensions(ctx, len(req.Embedding), false); err != nil {
		return nil, err
	}

	d := s.dialect
	args := []any{d.EncodeEmbedding(req.Embedding)}
	var q strings.Builder
	fmt.Fprintf(&q, "SELECT %s, %s AS similarity FROM %s WHERE embedding IS NOT NULL",
		d.SelectColumns(), d.Similarity(d.Placeholder(1)), s.table)
	if len(req.Filter) > 0 {
		clause, fargs, err := d.Filter(req.Filter, len(args)+1)
		if err != nil {
			return nil, &rag.StoreError{Op: "search", Err: err}
		}
		q.WriteString(" AND ")
		q.WriteString(clause)
		args = append(args, fargs...)
	}
	args = append(args, req.TopK)
	fmt.Fprintf(&q, " ORDER BY similarity DESC, created_at ASC, id ASC LIMIT %s", d.Placeholder(len(args)))

	return s.query(ctx, "search", q.String(), args)
}

// KeywordSearch returns the TopK best term matches that have an embedding,
// each scored by cosine similarity to req.Embedding.
func (s *SQLStore) KeywordSearch(ctx context.Context, req rag.KeywordRequest) ([]rag.RetrievedDocument, error) {
	if req.TopK < 1 || len(req.Terms) == 0 {
		return []rag.RetrievedDocument{}, nil
	}
	if err := s.checkDimensions(ctx, len(req.Embedding), false); err != nil {
		return nil, err
	}

	d := s.dialect
	args := []any{d.EncodeEmbedding(req.Embedding), d.KeywordQuery(req.Terms)}
	var q strings.Builder
	fmt.Fprintf(&q, "SELECT %s, %s AS similarity FROM %s%s WHERE embedding IS NOT NULL",
		d.SelectColumns(), d.Similarity(d.Placeholder(1)), s.table, d.KeywordJoin(s.table, d.Placeholder(2)))
	if len(req.Filter) > 0 {
		clause, fargs, err := d.Filter(req.Filter, len(args)+1)
		if err != nil {
			return nil, &rag.StoreError{Op: "keyword search", Err: err}
		}
		q.WriteString(" AND ")
		q.WriteString(clause)
		args = append(args, fargs...)
	}
	args = append(args, req.TopK)
	fmt.Fprintf(&q, " ORDER BY k.krank ASC, created_at ASC, id ASC LIMIT %s", d.Placeholder(len(args)))

	return s.query(ctx, "keyword search", q.String(), args)
}

// query runs a statement selecting SelectColumns plus similarity.
func (s *SQLStore) query(ctx context.Context, op, stmt string, args []any) ([]rag.RetrievedDocument, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &rag.StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	out := []rag.RetrievedDocument{}
	for rows.Next() {
		var (
			doc     rag.RetrievedDocument
			md      string
			created any
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &md, &created, &doc.Similarity); err != nil {
			return nil, &rag.StoreError{Op: op, Err: err}
		}
		if err := json.Unmarshal([]byte(md), &doc.Metadata); err != nil {
			return nil, &rag.StoreError{Op: op, Err: fmt.Errorf("metadata of %s: %w", doc.ID, err)}
		}
		if doc.CreatedAt, err = parseTime(created); err != nil {
			return nil, &rag.StoreError{Op: op, Err: fmt.Errorf("created_at of %s: %w", doc.ID, err)}
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &rag.StoreError{Op: op, Err: err}
	}
	return out, nil
}

// Count returns the number of stored rows.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table).Scan(&n); err != nil {
		return 0, &rag.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

func (s *SQLStore) Location() string { return s.location }

// Driver names the SQL dialect, "sqlite" or "postgres".
func (s *SQLStore) Driver() string { return s.dialect.Name() }

// Close closes the executor when it owns a pool (*sql.DB); transactions are
// left to their owner.
func (s *SQLStore) Close() error {
	if c, ok := s.db.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// checkDimensions compares n with the width recorded in <table>_meta.
// With record set, the first caller fixes the width.
func (s *SQLStore) checkDimensions(ctx context.Context, n int, record bool) error {
	op := "search"
	if record {
		op = "insert"
	}
	if n == 0 {
		return &rag.StoreError{Op: op, Err: errors.New("empty embedding")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dims == 0 {
		dims, err := s.loadDimensions(ctx)
		if err != nil {
			return &rag.StoreError{Op: op, Err: err}
		}
		if dims == 0 && record {
			if dims, err = s.recordDimensions(ctx, n); err != nil {
				return &rag.StoreError{Op: op, Err: err}
			}
		}
		s.dims = dims
	}
	if s.dims != 0 && s.dims != n {
		return &rag.StoreError{Op: op, Err: fmt.Errorf("embedding dimension %d does not match store dimension %d", n, s.dims)}
	}
	return nil
}

func (s *SQLStore) loadDimensions(ctx context.Context) (int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM "+s.table+"_meta WHERE key = "+s.dialect.Placeholder(1), metaDimensions).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read dimensions: %w", err)
	}
	return strconv.Atoi(raw)
}

// recordDimensions stores n unless another writer got there first, and
// returns whatever value won.
func (s *SQLStore) recordDimensions(ctx context.Context, n int) (int, error) {
	d := s.dialect
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO "+s.table+"_meta (key, value) VALUES ("+d.Placeholder(1)+", "+d.Placeholder(2)+") ON CONFLICT (key) DO NOTHING",
		metaDimensions, strconv.Itoa(n)); err != nil {
		return 0, fmt.Errorf("record dimensions: %w", err)
	}
	return s.loadDimensions(ctx)
}

func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}

var filterKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]{0,63}$`)

// filterKey reports whether k can be spliced into a JSON path literal.
func filterKey(k string) bool { return filterKeyPattern.MatchString(k) }

func validTable(name string) bool { return sqlite.ValidTable(name) }
