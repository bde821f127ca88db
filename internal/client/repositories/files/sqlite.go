package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/common"
	"github.com/viktors2008/mediadrive/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const fileColumns = `id, name, folder_id, user_id, public_id, type, is_private, size, created_at, updated_at`

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.FileRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ?`, id)

	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file[%s]: %w", id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Add(ctx context.Context, rec *models.FileRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args(rec)...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("file[%s]: %w", rec.ID, common.ErrDuplicate)
		}
		return fmt.Errorf("failed to add file[%s]: %w", rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.FileRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			folder_id = excluded.folder_id,
			user_id = excluded.user_id,
			public_id = excluded.public_id,
			type = excluded.type,
			is_private = excluded.is_private,
			size = excluded.size,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, args(rec)...)
	if err != nil {
		return fmt.Errorf("failed to put file[%s]: %w", rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file[%s]: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM files`)
	if err != nil {
		return fmt.Errorf("failed to clear files: %w", err)
	}
	return nil
}

func args(rec *models.FileRecord) []any {
	var folder any
	if rec.FolderID != nil {
		folder = *rec.FolderID
	}
	var created, updated any
	if rec.CreatedAt != "" {
		created = rec.CreatedAt
	}
	if rec.UpdatedAt != "" {
		updated = rec.UpdatedAt
	}
	return []any{
		rec.ID, rec.Name, folder, rec.UserID, rec.PublicID,
		rec.Type, rec.IsPrivate, rec.Size, created, updated,
	}
}

func scanFile(row *sql.Row) (*models.FileRecord, error) {
	var rec models.FileRecord
	var folder, created, updated sql.NullString
	err := row.Scan(&rec.ID, &rec.Name, &folder, &rec.UserID, &rec.PublicID,
		&rec.Type, &rec.IsPrivate, &rec.Size, &created, &updated)
	if err != nil {
		return nil, err
	}
	if folder.Valid {
		rec.FolderID = &folder.String
	}
	rec.CreatedAt = created.String
	rec.UpdatedAt = updated.String
	return &rec, nil
}
