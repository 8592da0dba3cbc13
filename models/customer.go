package models

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Допустимые границы кредитного рейтинга
const (
	MinCreditScore = 0
	MaxCreditScore = 100
)

// Customer представляет клиента банка
type Customer struct {
	BaseEntity
	FirstName      string    `gorm:"column:first_name;not null;size:100"`
	LastName       string    `gorm:"column:last_name;not null;size:100"`
	CreditScore    int       `gorm:"column:credit_score;not null"`
	CustomerNumber uuid.UUID `gorm:"column:customer_number;type:uuid;uniqueIndex;not null"`
	Accounts       []Account `gorm:"foreignKey:CustomerID"`
}

func (Customer) TableName() string {
	return "customers"
}

// BeforeCreate хук для валидации перед созданием
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	firstName := strings.TrimSpace(c.FirstName)
	if firstName == "" || utf8.RuneCountInString(firstName) > 100 {
		return errors.New("first name must be between 1 and 100 characters")
	}
	lastName := strings.TrimSpace(c.LastName)
	if lastName == "" || utf8.RuneCountInString(lastName) > 100 {
		return errors.New("last name must be between 1 and 100 characters")
	}
	if c.CreditScore < MinCreditScore || c.CreditScore > MaxCreditScore {
		return errors.New("credit score must be between 0 and 100")
	}
	if c.CustomerNumber == uuid.Nil {
		c.CustomerNumber = uuid.New()
	}
	c.stamp()
	return nil
}
