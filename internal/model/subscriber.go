package model

import (
	"time"
)

// ChatType identifies what kind of chat a subscriber is attached to
type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
	ChatTypeChannel ChatType = "channel"
)

// DefaultAcceptedMedia is the accepted_media value assigned to freshly
// created subscribers.
const DefaultAcceptedMedia = "document photo"

// Subscriber holds per-chat archive configuration.
// One row exists per chat, created lazily on first contact.
type Subscriber struct {
	ID          uint     `gorm:"primaryKey"`
	ChatID      int64    `gorm:"uniqueIndex;not null"`
	ChatType    ChatType `gorm:"size:20"`
	ChannelName string   `gorm:"size:255"`
	Active      bool     `gorm:"default:false"`
	Verbose     bool     `gorm:"default:false"`
	SortByUser  bool     `gorm:"default:false"`
	// AcceptedMedia is a normalized, space-joined, lexicographically
	// sorted set of media-type tokens (see archive.PossibleMedia).
	AcceptedMedia string `gorm:"size:100"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for Subscriber
func (Subscriber) TableName() string {
	return "subscribers"
}
