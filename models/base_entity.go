package models

import (
	"time"
)

// SystemUser используется как автор записей, созданных самим приложением
const SystemUser = "System"

// BaseEntity содержит общие поля всех сущностей
type BaseEntity struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"`
	CreatedDate  time.Time  `gorm:"column:created_date;not null"`
	ModifiedDate *time.Time `gorm:"column:modified_date"`
	CreatedBy    string     `gorm:"column:created_by;size:50;not null;default:''"`
	ModifiedBy   *string    `gorm:"column:modified_by;size:50"`
}

// PrimaryKey возвращает первичный ключ сущности
func (e BaseEntity) PrimaryKey() uint {
	return e.ID
}

// Touch проставляет дату и автора изменения
func (e *BaseEntity) Touch(at time.Time, by string) {
	e.ModifiedDate = &at
	e.ModifiedBy = &by
}

// stamp заполняет метаданные создания, если они не заданы
func (e *BaseEntity) stamp() {
	if e.CreatedDate.IsZero() {
		e.CreatedDate = time.Now()
	}
	if e.CreatedBy == "" {
		e.CreatedBy = SystemUser
	}
}
