// Package memory is a process-local storage backend with the same contracts
// as the PostgreSQL repositories. Transactions are serialized on one mutex
// and undone from a journal when they fail.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

var errNoSQL = errors.New("memory store does not execute SQL")

// Store holds users and refresh tokens in maps guarded by mu.
type Store struct {
	mu      sync.Mutex
	users   map[string]models.User
	byEmail map[string]string
	tokens  map[string]models.RefreshToken
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]models.RefreshToken),
		now:     time.Now,
	}
}

// handle is the dbx.DBTX given out by Conn and WithTx. It only identifies
// the scope a repository runs in; its SQL methods always fail.
type handle struct {
	tx      bool
	journal []func()
}

func (*handle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (*handle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (*handle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func (h *handle) record(undo func()) {
	if h.tx {
		h.journal = append(h.journal, undo)
	}
}

var conn = &handle{}

func (s *Store) Conn() dbx.DBTX { return conn }

// WithTx runs fn holding the store lock. If fn fails or panics every change
// it made is reverted; panics are rethrown.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &handle{tx: true}

	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
		if err != nil {
			tx.rollback()
		}
	}()

	return fn(ctx, tx)
}

func (h *handle) rollback() {
	for i := len(h.journal) - 1; i >= 0; i-- {
		h.journal[i]()
	}
	h.journal = nil
}

// scope returns the handle a repository bound to db should record into, and
// whether that repository must take the lock itself.
func scope(db dbx.DBTX) (*handle, bool) {
	if h, ok := db.(*handle); ok && h.tx {
		return h, false
	}
	return conn, true
}

func (s *Store) Users(db dbx.DBTX) users.Repository {
	h, lock := scope(db)
	return &userRepo{s: s, h: h, lock: lock}
}

func (s *Store) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	h, lock := scope(db)
	return &tokenRepo{s: s, h: h, lock: lock}
}

func (s *Store) RunMigrations(context.Context) error { return nil }
func (s *Store) Ping(context.Context) error          { return nil }
func (s *Store) Close() error                        { return nil }

// guard locks the store for repositories that are not inside WithTx.
func guard(s *Store, lock bool) func() {
	if !lock {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}
