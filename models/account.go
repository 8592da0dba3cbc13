package models

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Идентификаторы типов счетов. Loan зарезервирован для кредитных счетов.
const (
	AccountTypeCurrent uint = 1
	AccountTypeSavings uint = 2
	AccountTypeLoan    uint = 3
)

// Account представляет банковский счет клиента
type Account struct {
	BaseEntity
	CustomerID    uint            `gorm:"column:customer_id;not null;index"`
	Customer      Customer        `gorm:"foreignKey:CustomerID;references:ID"`
	Balance       decimal.Decimal `gorm:"column:balance;type:decimal(19,4);not null"`
	AccountTypeID uint            `gorm:"column:account_type_id;not null"`
	AccountType   AccountType     `gorm:"foreignKey:AccountTypeID;references:ID"`
	AccountID     uuid.UUID       `gorm:"column:account_id;type:uuid;uniqueIndex;not null"`
	AccountNumber string          `gorm:"column:account_number;size:20;not null"`
}

func (Account) TableName() string {
	return "accounts"
}

// IsLoan сообщает, является ли счет кредитным
func (a *Account) IsLoan() bool {
	return a.AccountTypeID == AccountTypeLoan
}

// BeforeCreate хук для валидации перед созданием
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.AccountNumber == "" {
		return errors.New("account number is required")
	}
	if a.AccountID == uuid.Nil {
		a.AccountID = uuid.New()
	}
	a.stamp()
	return nil
}

// AccountType представляет тип счета (текущий, сберегательный, кредитный)
type AccountType struct {
	BaseEntity
	Name string `gorm:"column:name;size:50;not null"`
}

func (AccountType) TableName() string {
	return "account_types"
}

// BeforeCreate хук для валидации перед созданием
func (t *AccountType) BeforeCreate(tx *gorm.DB) error {
	if t.Name == "" {
		return errors.New("account type name is required")
	}
	t.stamp()
	return nil
}
