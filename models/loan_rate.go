package models

import (
	"errors"

	"gorm.io/gorm"
)

// LoanRate представляет ставку по кредиту для диапазона рейтинга [RatingFrom, RatingTo)
// и срока кредита Duration (в годах). Пересечения диапазонов не проверяются.
type LoanRate struct {
	BaseEntity
	RatingFrom int `gorm:"column:rating_from;not null"`
	RatingTo   int `gorm:"column:rating_to;not null"`
	Duration   int `gorm:"column:duration;not null;index"`
	Rate       int `gorm:"column:rate;not null"`
}

func (LoanRate) TableName() string {
	return "loan_rates"
}

// Covers проверяет, попадает ли рейтинг в диапазон ставки
func (r *LoanRate) Covers(creditScore int) bool {
	return r.RatingFrom <= creditScore && creditScore < r.RatingTo
}

// BeforeCreate хук для валидации перед созданием
func (r *LoanRate) BeforeCreate(tx *gorm.DB) error {
	if r.RatingFrom >= r.RatingTo {
		return errors.New("rating from must be less than rating to")
	}
	if r.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	if r.Rate < 0 {
		return errors.New("rate must not be negative")
	}
	r.stamp()
	return nil
}
