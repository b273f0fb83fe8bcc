package model

import (
	"time"
)

// FileType classifies an archived media object
type FileType string

const (
	FileTypePhoto    FileType = "photo"
	FileTypeDocument FileType = "document"
)

// FileRecord is the provenance entry for one attempted or completed
// file archival. The record is created with Success=false before the
// download starts, so a crash mid-download still leaves an auditable
// "attempted but incomplete" row.
type FileRecord struct {
	ID        uint     `gorm:"primaryKey"`
	FileID    string   `gorm:"size:255;not null"`
	ChatID    int64    `gorm:"index;not null"`
	MessageID int      `gorm:"not null"`
	SenderID  int64    `gorm:"index"`
	FileName  string   `gorm:"size:500"`
	FileType  FileType `gorm:"size:20"`
	Success   bool     `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for FileRecord
func (FileRecord) TableName() string {
	return "file_records"
}
