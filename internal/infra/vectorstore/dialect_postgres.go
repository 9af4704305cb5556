package vectorstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

// Postgres is the pgvector dialect for the pgx database/sql driver.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Postgres) InsertSQL(table string) string {
	return "INSERT INTO " + table +
		` (id, "text", metadata, embedding, content_hash, created_at)` +
		" VALUES ($1::uuid, $2, $3::jsonb, $4::vector, $5, $6)" +
		" ON CONFLICT (content_hash) DO NOTHING"
}

func (Postgres) SelectColumns() string { return `id::text, "text", metadata::text, created_at` }

func (Postgres) Similarity(param string) string {
	return "1 - (embedding <=> " + param + "::vector)"
}

// Filter uses jsonb containment, which the GIN index on metadata serves.
func (Postgres) Filter(filter map[string]any, n int) (string, []any, error) {
	for k := range filter {
		if !filterKey(k) {
			return "", nil, fmt.Errorf("unsupported filter key %q", k)
		}
	}
	doc, err := rag.CanonicalJSON(filter)
	if err != nil {
		return "", nil, err
	}
	return "metadata @> $" + strconv.Itoa(n) + "::jsonb", []any{string(doc)}, nil
}

// KeywordJoin matches to_tsvector('simple', "text"), the expression the GIN
// index is built on.
func (Postgres) KeywordJoin(table, param string) string {
	const doc = `to_tsvector('simple', "text")`
	query := "to_tsquery('simple', " + param + ")"
	return " JOIN (SELECT id AS kid, -ts_rank(" + doc + ", " + query + ") AS krank FROM " + table +
		" WHERE " + doc + " @@ " + query + ") k ON k.kid = " + table + ".id"
}

// KeywordQuery ORs the terms. Terms are letters and digits only, so none
// is read as a tsquery operator.
func (Postgres) KeywordQuery(terms []string) string {
	return strings.Join(terms, " | ")
}

func (Postgres) EncodeEmbedding(vec []float32) any { return pgvector.NewVector(vec) }

func (Postgres) EncodeTime(t time.Time) any { return t.UTC() }
