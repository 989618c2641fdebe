package entities

import (
	"time"
)

// ImportedPage records a remote page that has already been migrated.
// Rows are written synchronously after each page succeeds and are never
// removed automatically, so re-runs can skip completed work.
type ImportedPage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PageID    string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"page_id"`
	RunID     string    `gorm:"type:varchar(64);index" json:"run_id"`
	VaultPath string    `gorm:"type:text" json:"vault_path"`
	CreatedAt time.Time `json:"created_at"`
}

func (ImportedPage) TableName() string {
	return "imported_pages"
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusAborted   RunStatus = "aborted"
	RunStatusFailed    RunStatus = "failed"
)

// ImportRun tracks one migration run end to end.
type ImportRun struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RunID       string     `gorm:"type:varchar(64);uniqueIndex" json:"run_id"`
	Status      RunStatus  `gorm:"size:20" json:"status"`
	TotalPages  int        `json:"total_pages"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	CurrentPage string     `gorm:"size:512" json:"current_page,omitempty"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (ImportRun) TableName() string {
	return "import_runs"
}
