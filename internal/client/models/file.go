// Package models defines the data types shared by the drive client:
// server-authoritative file metadata, the dashboard aggregate, locally
// cached sessions, and upload-task state.
package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/viktors2008/mediadrive/internal/common"
)

const rfc3339 = "2006-01-02T15:04:05Z07:00"

var validate = validator.New()

// FileRecord is the server-authoritative metadata for one uploaded file.
// The id is globally unique among all records held by the registry and
// the cache.
type FileRecord struct {
	ID        string  `json:"id" validate:"required,uuid4"`
	Name      string  `json:"name" validate:"required,min=1"`
	FolderID  *string `json:"folder_id,omitempty" validate:"omitempty,uuid4"`
	UserID    string  `json:"user_id" validate:"required,uuid4"`
	PublicID  string  `json:"public_id" validate:"required,min=1"`
	Type      string  `json:"type"`
	IsPrivate bool    `json:"is_private"`
	Size      int64   `json:"size" validate:"required,gt=0,max=524288000"`
	CreatedAt string  `json:"created_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	UpdatedAt string  `json:"updated_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// Validate checks the record against the backend contract (uuid ids,
// non-empty name and public id, positive size capped at 500 MiB,
// RFC3339 timestamps when present).
func (f *FileRecord) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}

// ValidateFileRecords validates every record of a listing/search response.
// A single malformed record fails the whole batch so a partial result is
// never applied downstream.
func ValidateFileRecords(records []FileRecord) error {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}
