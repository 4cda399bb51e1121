package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is one stored key.
type Document struct {
	Key       string         `gorm:"column:key;primaryKey;size:191"`
	Value     datatypes.JSON `gorm:"column:value;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (Document) TableName() string {
	return "escolar_documents"
}

// GormStore keeps documents in a single SQL table. Each Put is one upsert
// so concurrent writers settle on the last write.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("migrate documents: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (g *GormStore) Get(ctx context.Context, key string, v any) (bool, error) {
	var doc Document
	err := g.db.WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return true, decode(key, doc.Value, v)
}

func (g *GormStore) Put(ctx context.Context, key string, v any) error {
	b, err := encode(key, v)
	if err != nil {
		return err
	}
	doc := Document{Key: key, Value: datatypes.JSON(b), UpdatedAt: time.Now()}
	err = g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (g *GormStore) Delete(ctx context.Context, key string) error {
	if err := g.db.WithContext(ctx).Delete(&Document{Key: key}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
