// Package repomanager vends repositories bound either to the shared
// connection or to a transaction, and owns the storage lifecycle.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// RepositoryManager is the storage backend seen by services.
//
// Repositories obtained with Conn() run each call on its own; repositories
// obtained from the tx handle passed to WithTx commit or roll back together.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Conn() dbx.DBTX
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Ping(ctx context.Context) error
	Close() error
}

// NewInMemoryRepositoryManager returns a process-local backend used when no
// database DSN is configured, and in tests.
func NewInMemoryRepositoryManager() RepositoryManager {
	return memory.NewStore()
}

// New picks the backend for dsn: PostgreSQL when set, memory otherwise.
func New(ctx context.Context, dsn string) (RepositoryManager, error) {
	if dsn == "" {
		return NewInMemoryRepositoryManager(), nil
	}
	return OpenPostgres(ctx, dsn)
}
