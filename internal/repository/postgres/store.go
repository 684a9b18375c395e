package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/utafrali/catalog/internal/repository"
	"github.com/utafrali/catalog/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations in the layout expected by
// database.RunMigrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Pool is the connection surface the store needs. *pgxpool.Pool and
// pgxmock.PgxPoolIface both satisfy it.
type Pool interface {
	database.TxStarter
	Ping(ctx context.Context) error
}

// Store is the PostgreSQL system of record.
type Store struct {
	pool Pool
}

// NewStore creates a new PostgreSQL-backed store.
func NewStore(pool Pool) *Store {
	return &Store{pool: pool}
}

// Repos returns repositories bound to the pool.
func (s *Store) Repos() repository.Repositories {
	return reposFor(s.pool)
}

// WithinTx runs fn inside a read-committed transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) (err error) {
	ctx, end := database.TraceQuery(ctx, "transaction", "BEGIN")
	defer func() { end(err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = fn(reposFor(tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func reposFor(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Products:     NewProductRepository(db),
		Categories:   NewCategoryRepository(db),
		Associations: NewAssociationRepository(db),
	}
}
