package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Transaction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Database{db: db}, nil
}

// Save stores tx with the caller's metadata and returns the new record ID.
func (d *Database) Save(ctx context.Context, tx domain.ExtractedTransaction, meta ports.SaveMeta) (string, error) {
	row, err := fromDomain(uuid.NewString(), tx, meta.UserID, meta.Source)
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction: %w", err)
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("failed to save transaction: %w", err)
	}
	return row.ID, nil
}

func (d *Database) Get(ctx context.Context, id string) (Transaction, error) {
	var row Transaction
	if err := d.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return Transaction{}, fmt.Errorf("failed to load transaction %s: %w", id, err)
	}
	return row, nil
}

// CategoryTotals sums stored amounts per category.
func (d *Database) CategoryTotals(ctx context.Context) (map[string]float64, error) {
	var rows []struct {
		Category string
		Total    float64
	}
	err := d.db.WithContext(ctx).
		Model(&Transaction{}).
		Select("category, SUM(amount) AS total").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get category summary: %w", err)
	}

	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Category] = r.Total
	}
	return out, nil
}

// ByCategory returns the newest transactions in category, at most limit.
func (d *Database) ByCategory(ctx context.Context, category string, limit int) ([]Transaction, error) {
	var rows []Transaction
	err := d.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return rows, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
