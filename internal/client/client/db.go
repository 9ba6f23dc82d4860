package client

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/authkeeper/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the local session database file at dsn, creating its
// directory if needed, and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	path, err := filex.EnsureParentDir(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
