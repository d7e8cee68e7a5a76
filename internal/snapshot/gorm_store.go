package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type snapshotRow struct {
	Key       string    `gorm:"column:snapshot_key;primaryKey;size:191"`
	Blob      []byte    `gorm:"column:blob;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (snapshotRow) TableName() string { return "draft_snapshots" }

// GormStore keeps slots in a draft_snapshots table, one row per key.
type GormStore struct {
	db    *gorm.DB
	clock clockwork.Clock
}

// OpenGormStore connects by DSN: postgres:// and postgresql:// URLs use the
// postgres driver, anything else is a sqlite file path.
func OpenGormStore(dsn string, verbose bool, clock clockwork.Clock) (*GormStore, error) {
	var dialector gorm.Dialector
	if IsPostgresDSN(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if verbose {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, fmt.Errorf("migrate snapshot store: %w", err)
	}
	return NewGormStore(db, clock), nil
}

func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// NewGormStore wraps an open connection whose schema is already in place.
// A nil clock uses the wall clock for updated_at.
func NewGormStore(db *gorm.DB, clock clockwork.Clock) *GormStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GormStore{db: db, clock: clock}
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	return row.Blob, nil
}

func (s *GormStore) Put(ctx context.Context, key string, blob []byte) error {
	row := snapshotRow{Key: key, Blob: blob, UpdatedAt: s.clock.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).Delete(&snapshotRow{}).Error
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
