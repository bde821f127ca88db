// Package store opens the local cache database and wires up the sqlite
// repositories behind it.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/viktors2008/mediadrive/internal/client/migrations"
	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/client/repositories/files"
	"github.com/viktors2008/mediadrive/internal/client/repositories/sessions"
	"github.com/viktors2008/mediadrive/internal/dbx"
)

type Repositories struct {
	Files    files.Repository
	Sessions sessions.Repository
	DB       *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if necessary) the cache database at dsn,
// applies migrations, and returns the repository set.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Files:    files.NewSQLiteRepository(db),
		Sessions: sessions.NewSQLiteRepository(db),
		DB:       db,
	}, nil
}

// SwapSession replaces the used rotation-token row with its successor in a
// single transaction, so an interrupted switch never leaves both rows
// behind.
func (r *Repositories) SwapSession(ctx context.Context, oldID int64, next *models.SessionRecord) error {
	return dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := sessions.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, oldID); err != nil {
			return err
		}
		return repo.Add(ctx, next)
	})
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}
