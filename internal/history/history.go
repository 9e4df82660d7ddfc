// Package history persists completed round results for the downstream
// payout pipeline. Rooms themselves never touch the database.
package history

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type MatchResult struct {
	ID            uint   `gorm:"primaryKey"`
	RoomID        string `gorm:"index"`
	WinnerConnID  string
	WinnerAddress string
	WinnerScore   int
	LoserScore    int
	Draw          bool
	CreatedAt     time.Time
}

type Store struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the result table. An empty dsn
// is a caller bug; main simply skips Open when DATABASE_URL is unset.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&MatchResult{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, res MatchResult) error {
	return s.db.WithContext(ctx).Create(&res).Error
}

// Recent returns the latest n results, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]MatchResult, error) {
	var out []MatchResult
	err := s.db.WithContext(ctx).Order("created_at desc").Limit(n).Find(&out).Error
	return out, err
}
