package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bankdemo/database"
	"bankdemo/models"
	"bankdemo/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errStoreDown = errors.New("connection refused")

// faultyDriver оборачивает драйвер и имитирует сбои хранилища
type faultyDriver struct {
	store.Driver
	failLoad   bool
	failCommit bool
	panicLoad  bool
}

func (d *faultyDriver) Load(ctx context.Context, dest any, preload ...string) error {
	if d.panicLoad {
		panic("driver exploded")
	}
	if d.failLoad {
		return errStoreDown
	}
	return d.Driver.Load(ctx, dest, preload...)
}

func (d *faultyDriver) Commit(ctx context.Context, changes store.Changes) error {
	if d.failCommit {
		return errStoreDown
	}
	return d.Driver.Commit(ctx, changes)
}

type fixture struct {
	db        *database.Database
	driver    *faultyDriver
	customers *CustomerService
	loans     *LoanService
	logs      *observer.ObservedLogs
}

// newFixture создает сервисы поверх пустой базы в памяти
// modifiedAt фиксирует время отметок об изменении в тестах
var modifiedAt = time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, opts ...LoanOption) *fixture {
	t.Helper()

	db, err := database.NewInMemory(zap.NewNop())
	if err != nil {
		t.Fatalf("NewInMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	driver := &faultyDriver{Driver: db.Driver()}
	factory := store.NewFactory(driver, store.WithActor(models.SystemUser), store.WithClock(func() time.Time { return modifiedAt }))

	customers, err := NewCustomerService(factory, logger)
	if err != nil {
		t.Fatalf("NewCustomerService() error = %v", err)
	}
	loans, err := NewLoanService(factory, logger, opts...)
	if err != nil {
		t.Fatalf("NewLoanService() error = %v", err)
	}

	return &fixture{db: db, driver: driver, customers: customers, loans: loans, logs: logs}
}

// newSeededFixture создает сервисы поверх демонстрационных данных
func newSeededFixture(t *testing.T, opts ...LoanOption) *fixture {
	t.Helper()

	f := newFixture(t, opts...)
	if err := database.Seed(context.Background(), f.db.DB, nil); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return f
}

func (f *fixture) addAccountTypes(t *testing.T) {
	t.Helper()
	types := []models.AccountType{
		{BaseEntity: models.BaseEntity{ID: models.AccountTypeCurrent}, Name: "Current"},
		{BaseEntity: models.BaseEntity{ID: models.AccountTypeSavings}, Name: "Savings"},
		{BaseEntity: models.BaseEntity{ID: models.AccountTypeLoan}, Name: "Loan"},
	}
	if err := f.db.DB.Create(&types).Error; err != nil {
		t.Fatalf("create account types: %v", err)
	}
}

func (f *fixture) addCustomer(t *testing.T, firstName string, score int) *models.Customer {
	t.Helper()
	c := &models.Customer{FirstName: firstName, LastName: "Test", CreditScore: score}
	if err := f.db.DB.Omit("Accounts").Create(c).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return c
}

func (f *fixture) addAccount(t *testing.T, owner *models.Customer, accountType uint, balance string) *models.Account {
	t.Helper()
	a := &models.Account{
		CustomerID:    owner.ID,
		AccountTypeID: accountType,
		Balance:       decimal.RequireFromString(balance),
		AccountNumber: "00000000",
	}
	if err := f.db.DB.Omit("Customer", "AccountType").Create(a).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func (f *fixture) addRate(t *testing.T, from, to, duration, rate int) {
	t.Helper()
	r := &models.LoanRate{RatingFrom: from, RatingTo: to, Duration: duration, Rate: rate}
	if err := f.db.DB.Create(r).Error; err != nil {
		t.Fatalf("create loan rate: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, accountID uuid.UUID) decimal.Decimal {
	t.Helper()
	var a models.Account
	if err := f.db.DB.Where("account_id = ?", accountID).First(&a).Error; err != nil {
		t.Fatalf("load account %s: %v", accountID, err)
	}
	return a.Balance
}

func (f *fixture) loanAccounts(t *testing.T) []models.Account {
	t.Helper()
	var loans []models.Account
	if err := f.db.DB.Where("account_type_id = ?", models.AccountTypeLoan).Find(&loans).Error; err != nil {
		t.Fatalf("load loan accounts: %v", err)
	}
	return loans
}

func (f *fixture) customerByName(t *testing.T, name string) *models.Customer {
	t.Helper()
	var c models.Customer
	if err := f.db.DB.Preload("Accounts").Where("first_name = ?", name).First(&c).Error; err != nil {
		t.Fatalf("load customer %s: %v", name, err)
	}
	return &c
}

func assertCode(t *testing.T, err error, want *ResultError) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want code %s", err, want.Code)
	}
}
