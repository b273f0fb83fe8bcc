package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/archive-bot-go/internal/config"
	"github.com/user/archive-bot-go/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// MySQLStore implements Store interface using MySQL database
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore creates a new MySQL store instance
func NewMySQLStore(cfg *config.DBConfig) (*MySQLStore, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Auto migrate tables
	if err := db.AutoMigrate(&model.Subscriber{}, &model.FileRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// GetOrCreateSubscriber fetches the subscriber row for a chat, inserting
// it with defaults on first contact. The insert uses an on-conflict clause
// so two concurrent first messages from the same chat cannot create
// duplicate rows.
func (s *MySQLStore) GetOrCreateSubscriber(ctx context.Context, chatID int64, chatType model.ChatType, defaultName string) (*model.Subscriber, error) {
	sub := &model.Subscriber{
		ChatID:        chatID,
		ChatType:      chatType,
		ChannelName:   defaultName,
		AcceptedMedia: model.DefaultAcceptedMedia,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoNothing: true,
		}).Create(sub)
		if result.Error != nil {
			return fmt.Errorf("failed to insert subscriber: %w", result.Error)
		}

		// Re-read so callers always get the authoritative row, whether
		// the insert above won or a row already existed.
		if err := tx.Where("chat_id = ?", chatID).First(sub).Error; err != nil {
			return fmt.Errorf("failed to load subscriber: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// SaveSubscriber persists a mutated subscriber row
func (s *MySQLStore) SaveSubscriber(ctx context.Context, sub *model.Subscriber) error {
	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return fmt.Errorf("failed to save subscriber: %w", err)
	}
	return nil
}

// CountSubscribers returns the total count of subscriber rows
func (s *MySQLStore) CountSubscribers(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&model.Subscriber{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", result.Error)
	}
	return count, nil
}

// CreateFileRecord persists a new file record. Records are created with
// Success=false before any download is attempted.
func (s *MySQLStore) CreateFileRecord(ctx context.Context, record *model.FileRecord) error {
	record.Success = false
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

// MarkFileSuccess flips a file record to Success=true after the transport
// reported a completed download
func (s *MySQLStore) MarkFileSuccess(ctx context.Context, recordID uint) error {
	result := s.db.WithContext(ctx).
		Model(&model.FileRecord{}).
		Where("id = ?", recordID).
		Update("success", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark file record as succeeded: %w", result.Error)
	}
	return nil
}

// GetFileRecord retrieves the earliest record for a file name within a chat,
// used to attribute duplicates to their original uploader
func (s *MySQLStore) GetFileRecord(ctx context.Context, chatID int64, fileName string) (*model.FileRecord, error) {
	var record model.FileRecord
	result := s.db.WithContext(ctx).
		Where("chat_id = ? AND file_name = ?", chatID, fileName).
		Order("created_at ASC").
		First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get file record: %w", result.Error)
	}
	return &record, nil
}

// CountFileRecords returns the total and succeeded file record counts
func (s *MySQLStore) CountFileRecords(ctx context.Context) (total int64, succeeded int64, err error) {
	if result := s.db.WithContext(ctx).Model(&model.FileRecord{}).Count(&total); result.Error != nil {
		return 0, 0, fmt.Errorf("failed to count file records: %w", result.Error)
	}
	if result := s.db.WithContext(ctx).Model(&model.FileRecord{}).Where("success = ?", true).Count(&succeeded); result.Error != nil {
		return 0, 0, fmt.Errorf("failed to count succeeded file records: %w", result.Error)
	}
	return total, succeeded, nil
}

// Ping checks database connectivity
func (s *MySQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.Close()
}

// DB returns the underlying gorm.DB instance (for testing purposes)
func (s *MySQLStore) DB() *gorm.DB {
	return s.db
}
