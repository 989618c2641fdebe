package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	SettingKeySelectedSections = "selected_sections"
	SettingKeyLastImportAt     = "last_import_at"
	SettingKeyLastImportStatus = "last_import_status"
	SettingKeyLastImportRunID  = "last_import_run_id"
)
