package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bankdemo/middleware"
	"bankdemo/services"
	"bankdemo/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerService описывает операции с клиентами, нужные контроллерам
type CustomerService interface {
	GetByName(ctx context.Context, name string) (*services.CustomerDTO, error)
	GetAccounts(ctx context.Context, customerNumber uuid.UUID) ([]services.AccountDTO, error)
	TransferFunds(ctx context.Context, sourceID, targetID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error)
}

// LoanService описывает операции с кредитами, нужные контроллерам
type LoanService interface {
	GetLoanDurations(ctx context.Context) ([]int, error)
	GetLoanRate(ctx context.Context, customerID uuid.UUID, duration int) (*services.LoanRateDTO, error)
	ProcessLoan(ctx context.Context, amount decimal.Decimal, customerID uuid.UUID, duration int, targetAccountID uuid.UUID) error
}

// validateRequest валидирует DTO и возвращает ошибки валидации
func validateRequest(v *validator.Validate, dto interface{}) error {
	if err := v.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		var errorMessages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				errorMessages = append(errorMessages, "поле "+e.Field()+" обязательно")
			case "gt":
				errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть больше "+e.Param())
			case "max":
				errorMessages = append(errorMessages, "поле "+e.Field()+" должно содержать максимум "+e.Param()+" символов")
			default:
				errorMessages = append(errorMessages, "поле "+e.Field()+" заполнено неверно")
			}
		}
		return errors.New(strings.Join(errorMessages, "; "))
	}
	return nil
}

// statusFor сопоставляет ошибку сервиса HTTP статусу
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrRecordNotFound), errors.Is(err, services.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidAccount), errors.Is(err, services.ErrBadRating):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNullValue):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError отправляет ошибку сервиса в формате {"code","message"}
func respondError(c *gin.Context, err error) {
	var re *services.ResultError
	if !errors.As(err, &re) {
		re = &services.ResultError{Code: "Error.Internal", Message: "внутренняя ошибка сервера"}
	}
	c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), re)
}

// badRequest отправляет ошибку запроса
func badRequest(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, services.ResultError{Code: code, Message: message})
}

// customerNumber возвращает номер клиента из контекста или отвечает 401
func customerNumber(c *gin.Context) (uuid.UUID, bool) {
	number, ok := middleware.CustomerNumber(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, services.ResultError{Code: "Unauthorized", Message: "требуется авторизация"})
	}
	return number, ok
}

// record учитывает результат операции сервиса в метриках
func record(metrics *utils.Metrics, operation string, err error) {
	if metrics != nil {
		metrics.RecordOperation(operation, services.Code(err))
	}
}

// moneyScale совпадает с масштабом колонки balance
const moneyScale = 4

// roundMoney приводит сумму к масштабу хранения
func roundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(moneyScale)
}

// splitAccounts разделяет счета на обычные и кредитные
func splitAccounts(accounts []services.AccountDTO) (regular, loans []services.AccountDTO) {
	regular = make([]services.AccountDTO, 0, len(accounts))
	loans = make([]services.AccountDTO, 0)
	for _, a := range accounts {
		if a.IsLoan() {
			loans = append(loans, a)
		} else {
			regular = append(regular, a)
		}
	}
	return regular, loans
}
