package models

import (
	"fmt"

	"github.com/viktors2008/mediadrive/internal/common"
)

// Dashboard holds the per-user summary counters shown on the dashboard
// page. Storage is kept in the backend's size/1000 units. The counters are
// adjusted incrementally by upload/delete events and may drift from server
// truth until the next full fetch; that is an accepted tradeoff.
type Dashboard struct {
	UserID          string       `json:"userId" validate:"required,uuid4"`
	Storage         float64      `json:"storage"`
	FoldersThisWeek int          `json:"folders_this_week"`
	FilesThisWeek   int          `json:"files_this_week"`
	Files           []FileRecord `json:"files,omitempty"`
}

// Validate checks the aggregate and any embedded file list.
func (d *Dashboard) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return ValidateFileRecords(d.Files)
}

// Clone returns a deep copy so callers can hand snapshots out without
// exposing the store's internal state.
func (d *Dashboard) Clone() *Dashboard {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Files != nil {
		cp.Files = make([]FileRecord, len(d.Files))
		copy(cp.Files, d.Files)
	}
	return &cp
}
