// Package state provides database operations for import-state tracking.
//
// The repository remembers which remote pages have already been migrated so
// an interrupted run can resume, and records the history of import runs.
//
// # Usage
//
//	repo := state.NewRepository(db)
//	if repo.Has(pageID) { ... }
package state

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/notebridge/internal/entities"
)

// Repository handles all import-state database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new state repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Has reports whether a page has already been imported.
func (r *Repository) Has(pageID string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.ImportedPage{}).
		Where("page_id = ?", pageID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkImported records a page as migrated. The row is committed before this
// returns, so an interrupted run loses at most the in-flight page.
func (r *Repository) MarkImported(pageID, runID, vaultPath string) error {
	var existing entities.ImportedPage
	result := r.db.Where("page_id = ?", pageID).First(&existing)

	if result.Error == gorm.ErrRecordNotFound {
		record := entities.ImportedPage{
			PageID:    pageID,
			RunID:     runID,
			VaultPath: vaultPath,
		}
		return r.db.Create(&record).Error
	} else if result.Error != nil {
		return result.Error
	}

	existing.RunID = runID
	existing.VaultPath = vaultPath
	return r.db.Save(&existing).Error
}

// ImportedCount returns the number of pages recorded as migrated.
func (r *Repository) ImportedCount() (int64, error) {
	var count int64
	err := r.db.Model(&entities.ImportedPage{}).Count(&count).Error
	return count, err
}

// StartRun creates a run record in the running state.
func (r *Repository) StartRun(runID string, totalPages int) error {
	now := time.Now()
	run := entities.ImportRun{
		RunID:      runID,
		Status:     entities.RunStatusRunning,
		TotalPages: totalPages,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	return r.db.Create(&run).Error
}

// UpdateRun updates the counters of an ongoing run.
func (r *Repository) UpdateRun(runID string, succeeded, failed, skipped int, currentPage string) error {
	return r.db.Model(&entities.ImportRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]any{
			"succeeded":    succeeded,
			"failed":       failed,
			"skipped":      skipped,
			"current_page": currentPage,
			"updated_at":   time.Now(),
		}).Error
}

// CompleteRun marks a run as finished with the given status.
func (r *Repository) CompleteRun(runID string, status entities.RunStatus, errorMsg string) error {
	now := time.Now()
	updates := map[string]any{
		"status":       status,
		"current_page": "",
		"updated_at":   now,
		"completed_at": now,
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	return r.db.Model(&entities.ImportRun{}).
		Where("run_id = ?", runID).
		Updates(updates).Error
}

// GetRun retrieves a run record by its run ID.
func (r *Repository) GetRun(runID string) (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting creates or updates a setting.
func (r *Repository) SetSetting(key, value string) error {
	var setting entities.Setting
	result := r.db.Where("key = ?", key).First(&setting)

	if result.Error == gorm.ErrRecordNotFound {
		setting = entities.Setting{
			Key:   key,
			Value: value,
		}
		return r.db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return r.db.Save(&setting).Error
}
