package services

import (
	"bankdemo/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerDTO представляет данные клиента
type CustomerDTO struct {
	CustomerNumber uuid.UUID `json:"customer_number"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	CreditScore    int       `json:"credit_score"`
}

// AccountTypeDTO представляет тип счета
type AccountTypeDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// AccountDTO представляет банковский счет
type AccountDTO struct {
	AccountID     uuid.UUID       `json:"account_id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	AccountType   AccountTypeDTO  `json:"account_type"`
}

// IsLoan сообщает, является ли счет кредитным
func (a AccountDTO) IsLoan() bool {
	return a.AccountType.ID == models.AccountTypeLoan
}

// LoanRateDTO представляет ставку по кредиту
type LoanRateDTO struct {
	RatingFrom int `json:"rating_from"`
	RatingTo   int `json:"rating_to"`
	Duration   int `json:"duration"`
	Rate       int `json:"rate"`
}

func toCustomerDTO(c *models.Customer) *CustomerDTO {
	return &CustomerDTO{
		CustomerNumber: c.CustomerNumber,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		CreditScore:    c.CreditScore,
	}
}

func toAccountDTO(a *models.Account) AccountDTO {
	return AccountDTO{
		AccountID:     a.AccountID,
		AccountNumber: a.AccountNumber,
		Balance:       a.Balance,
		AccountType: AccountTypeDTO{
			ID:   a.AccountTypeID,
			Name: a.AccountType.Name,
		},
	}
}

func toLoanRateDTO(r *models.LoanRate) *LoanRateDTO {
	return &LoanRateDTO{
		RatingFrom: r.RatingFrom,
		RatingTo:   r.RatingTo,
		Duration:   r.Duration,
		Rate:       r.Rate,
	}
}
