package store

import (
	"context"

	"github.com/user/archive-bot-go/internal/model"
)

// Store defines the interface for data persistence operations
type Store interface {
	// Subscriber operations
	GetOrCreateSubscriber(ctx context.Context, chatID int64, chatType model.ChatType, defaultName string) (*model.Subscriber, error)
	SaveSubscriber(ctx context.Context, sub *model.Subscriber) error
	CountSubscribers(ctx context.Context) (int64, error)

	// FileRecord operations
	CreateFileRecord(ctx context.Context, record *model.FileRecord) error
	MarkFileSuccess(ctx context.Context, recordID uint) error
	GetFileRecord(ctx context.Context, chatID int64, fileName string) (*model.FileRecord, error)
	CountFileRecords(ctx context.Context) (total int64, succeeded int64, err error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
