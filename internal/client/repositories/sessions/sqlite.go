package sessions

import (
	"context"
	"fmt"

	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, image, token FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionRecord
	for rows.Next() {
		var rec models.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.Image, &rec.Token); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) Add(ctx context.Context, rec *models.SessionRecord) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (email, image, token) VALUES (?, ?, ?)`,
		rec.Email, rec.Image, rec.Token)
	if err != nil {
		return fmt.Errorf("failed to add session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get session id: %w", err)
	}
	rec.ID = id
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session[%d]: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}
