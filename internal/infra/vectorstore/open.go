package vectorstore

import (
	"context"
	"fmt"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
	"github.com/matiasleandrokruk/ragline/internal/infra/config"
	"github.com/matiasleandrokruk/ragline/internal/infra/postgres"
	"github.com/matiasleandrokruk/ragline/internal/infra/sqlite"
)

// Open builds the store selected by cfg.Store.Driver, applying migrations
// for the SQL drivers. The caller closes the store.
func Open(ctx context.Context, cfg config.Config) (rag.VectorStore, error) {
	switch cfg.Store.Driver {
	case config.DriverFile:
		return OpenFileStore(cfg.StorePath(), cfg.ActiveEmbeddingModel())
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Store.DSN, postgres.Schema{Table: cfg.Store.Table, Dimensions: cfg.Store.Dimensions})
	case config.DriverSQLite, "":
		return OpenSQLite(cfg.StorePath(), cfg.Store.Table)
	default:
		return nil, &rag.StoreError{Op: "open", Err: fmt.Errorf("unknown store driver %q", cfg.Store.Driver)}
	}
}

// OpenSQLite opens (creating if needed) the database at path and migrates table.
func OpenSQLite(path, table string) (*SQLStore, error) {
	if table == "" {
		table = sqlite.DefaultTable
	}
	db, err := sqlite.NewDB(path)
	if err != nil {
		return nil, &rag.StoreError{Op: "open", Err: err}
	}
	if err := sqlite.MigrateUp(db, table); err != nil {
		db.Close()
		return nil, &rag.StoreError{Op: "migrate", Err: err}
	}
	return NewSQLStore(db, SQLite{}, table, path)
}

// OpenPostgres connects to dsn and migrates s.Table. Location reports the table.
func OpenPostgres(ctx context.Context, dsn string, s postgres.Schema) (*SQLStore, error) {
	if s.Table == "" {
		s.Table = postgres.DefaultTable
	}
	db, err := postgres.NewDB(ctx, dsn)
	if err != nil {
		return nil, &rag.StoreError{Op: "open", Err: err}
	}
	if err := postgres.MigrateUp(ctx, db, s); err != nil {
		db.Close()
		return nil, &rag.StoreError{Op: "migrate", Err: err}
	}
	return NewSQLStore(db, Postgres{}, s.Table, s.Table)
}
