package database

import (
	"context"

	"bankdemo/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Driver реализует store.Driver поверх gorm
type Driver struct {
	db *gorm.DB
}

// NewDriver создает драйвер хранилища для gorm
func NewDriver(db *gorm.DB) *Driver {
	return &Driver{db: db}
}

// Load загружает все записи таблицы в порядке первичного ключа
func (d *Driver) Load(ctx context.Context, dest any, preload ...string) error {
	query := d.db.WithContext(ctx)
	for _, p := range preload {
		query = query.Preload(p)
	}
	return query.Order("id").Find(dest).Error
}

// Commit сохраняет изменения в одной транзакции
func (d *Driver) Commit(ctx context.Context, changes store.Changes) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entity := range changes.Updated {
			if err := tx.Omit(clause.Associations).Save(entity).Error; err != nil {
				return err
			}
		}
		for _, entity := range changes.Created {
			if err := tx.Omit(clause.Associations).Create(entity).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
