package vectorstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
	"github.com/matiasleandrokruk/ragline/internal/infra/sqlite"
	"github.com/matiasleandrokruk/ragline/pkg/vecmath"
)

// sqliteTime is fixed-width so that text order equals time order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is the modernc.org/sqlite dialect. Embeddings are float32 BLOBs
// compared with vec_cosine().
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) InsertSQL(table string) string {
	return "INSERT INTO " + table +
		` (id, "text", metadata, embedding, content_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)` +
		" ON CONFLICT (content_hash) DO NOTHING"
}

func (SQLite) SelectColumns() string { return `id, "text", metadata, created_at` }

func (SQLite) Similarity(param string) string {
	return sqlite.CosineFunc + "(embedding, " + param + ")"
}

func (SQLite) Filter(filter map[string]any, _ int) (string, []any, error) {
	keys := rag.FilterKeys(filter)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		if !filterKey(k) {
			return "", nil, fmt.Errorf("unsupported filter key %q", k)
		}
		clauses = append(clauses, `json_extract(metadata, '$."`+k+`"') = ?`)
		v := filter[k]
		// json_extract yields 1/0 for JSON booleans.
		if b, ok := v.(bool); ok {
			if b {
				v = int64(1)
			} else {
				v = int64(0)
			}
		}
		args = append(args, v)
	}
	return strings.Join(clauses, " AND "), args, nil
}

// KeywordJoin matches the FTS5 index; rank is bm25, lower is better.
func (SQLite) KeywordJoin(table, param string) string {
	return " JOIN (SELECT doc_id AS kid, rank AS krank FROM " + table + "_fts WHERE " + table + "_fts MATCH " + param +
		") k ON k.kid = " + table + ".id"
}

// KeywordQuery ORs the terms as quoted FTS5 strings.
func (SQLite) KeywordQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

func (SQLite) EncodeEmbedding(vec []float32) any { return vecmath.Encode(vec) }

func (SQLite) EncodeTime(t time.Time) any { return t.UTC().Format(sqliteTime) }
