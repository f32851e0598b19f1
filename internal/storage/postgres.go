package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// tierRow is the relational shape a collection record is stored as.
type tierRow struct {
	Collection string `gorm:"primaryKey;size:64"`
	Key        string `gorm:"primaryKey;size:128"`
	Data       []byte `gorm:"type:jsonb"`
	UpdatedAt  time.Time
}

func (tierRow) TableName() string { return "store_records" }

// PostgresTier is the primary, authoritative storage tier.
type PostgresTier struct {
	db *gorm.DB
}

// OpenPostgres connects to Postgres with the pool settings and warn-level
// logging the service runs with everywhere.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewPostgresTier wraps a gorm connection as a storage tier and migrates the
// record table.
func NewPostgresTier(db *gorm.DB) (*PostgresTier, error) {
	if err := db.AutoMigrate(&tierRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store records: %w", err)
	}
	return &PostgresTier{db: db}, nil
}

func (t *PostgresTier) Name() string        { return "postgres" }
func (t *PostgresTier) Authoritative() bool { return true }

func (t *PostgresTier) ReadAll(ctx context.Context, collection string) ([]Record, error) {
	var rows []tierRow
	err := t.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("key").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", collection, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{Key: row.Key, Data: row.Data})
	}
	return records, nil
}

func (t *PostgresTier) WriteAll(ctx context.Context, collection string, records []Record) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ?", collection).Delete(&tierRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear %q: %w", collection, err)
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]tierRow, 0, len(records))
		now := time.Now()
		for _, rec := range records {
			rows = append(rows, tierRow{Collection: collection, Key: rec.Key, Data: rec.Data, UpdatedAt: now})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to write %q: %w", collection, err)
		}
		return nil
	})
}

func (t *PostgresTier) UpsertOne(ctx context.Context, collection string, rec Record) error {
	row := tierRow{Collection: collection, Key: rec.Key, Data: rec.Data, UpdatedAt: time.Now()}
	err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert into %q: %w", collection, err)
	}
	return nil
}
