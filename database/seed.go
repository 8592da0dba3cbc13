package database

import (
	"context"
	"fmt"

	"bankdemo/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedAccount struct {
	customer      int
	accountType   uint
	balance       string
	accountNumber string
}

var (
	seedCustomers = []models.Customer{
		{FirstName: "Bob", LastName: "Smith", CreditScore: 15},
		{FirstName: "Jim", LastName: "Jones", CreditScore: 45},
		{FirstName: "Anne", LastName: "Murphy", CreditScore: 80},
	}

	seedAccountTypes = []models.AccountType{
		{BaseEntity: models.BaseEntity{ID: models.AccountTypeCurrent}, Name: "Current"},
		{BaseEntity: models.BaseEntity{ID: models.AccountTypeSavings}, Name: "Savings"},
		{BaseEntity: models.BaseEntity{ID: models.AccountTypeLoan}, Name: "Loan"},
	}

	// customer - индекс в seedCustomers
	seedAccounts = []seedAccount{
		{0, models.AccountTypeCurrent, "564034.04", "80786774"},
		{0, models.AccountTypeSavings, "23045.55", "32454687"},
		{1, models.AccountTypeCurrent, "8006.52", "80453366"},
		{1, models.AccountTypeSavings, "809223.25", "22554678"},
		{2, models.AccountTypeCurrent, "1234887.33", "90045663"},
		{2, models.AccountTypeSavings, "44211.18", "45456787"},
	}

	seedLoanRates = []models.LoanRate{
		{RatingFrom: 20, RatingTo: 50, Duration: 1, Rate: 20},
		{RatingFrom: 20, RatingTo: 50, Duration: 3, Rate: 15},
		{RatingFrom: 20, RatingTo: 50, Duration: 5, Rate: 10},
		{RatingFrom: 50, RatingTo: 101, Duration: 1, Rate: 12},
		{RatingFrom: 50, RatingTo: 101, Duration: 3, Rate: 8},
		{RatingFrom: 50, RatingTo: 101, Duration: 5, Rate: 5},
	}
)

// Seed заполняет пустые таблицы демонстрационными данными.
// Непустые таблицы не изменяются, поэтому повторный вызов безопасен.
func Seed(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := seedTable(tx, &models.AccountType{}, func() error {
			types := append([]models.AccountType(nil), seedAccountTypes...)
			return tx.Create(&types).Error
		}); err != nil {
			return err
		}

		var customers []models.Customer
		if err := seedTable(tx, &models.Customer{}, func() error {
			customers = append([]models.Customer(nil), seedCustomers...)
			return tx.Omit("Accounts").Create(&customers).Error
		}); err != nil {
			return err
		}

		// Счета создаются только вместе с новыми клиентами, иначе не к кому их привязать
		if customers != nil {
			if err := seedTable(tx, &models.Account{}, func() error {
				accounts := make([]models.Account, 0, len(seedAccounts))
				for _, a := range seedAccounts {
					balance, err := decimal.NewFromString(a.balance)
					if err != nil {
						return err
					}
					accounts = append(accounts, models.Account{
						CustomerID:    customers[a.customer].ID,
						AccountTypeID: a.accountType,
						Balance:       balance,
						AccountNumber: a.accountNumber,
					})
				}
				return tx.Omit("Customer", "AccountType").Create(&accounts).Error
			}); err != nil {
				return err
			}
		}

		if err := seedTable(tx, &models.LoanRate{}, func() error {
			rates := append([]models.LoanRate(nil), seedLoanRates...)
			return tx.Create(&rates).Error
		}); err != nil {
			return err
		}

		if log != nil {
			log.Info("Демонстрационные данные загружены")
		}
		return nil
	})
}

// seedTable вызывает fill, только если таблица модели пуста
func seedTable(tx *gorm.DB, model any, fill func() error) error {
	var count int64
	if err := tx.Model(model).Count(&count).Error; err != nil {
		return fmt.Errorf("ошибка проверки таблицы: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := fill(); err != nil {
		return fmt.Errorf("ошибка заполнения таблицы: %w", err)
	}
	return nil
}
