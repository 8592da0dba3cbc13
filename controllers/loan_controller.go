package controllers

import (
	"errors"
	"net/http"

	"bankdemo/services"
	"bankdemo/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoanController обрабатывает запросы на кредит
type LoanController struct {
	customers CustomerService
	loans     LoanService
	validator *validator.Validate
	metrics   *utils.Metrics
	logger    *zap.Logger
}

// LoanFormResponse представляет данные для заявки на кредит
type LoanFormResponse struct {
	Accounts  []services.AccountDTO `json:"accounts"`
	Durations []int                 `json:"durations"`
}

// LoanDraft представляет заявку на кредит. Клиент сначала запрашивает ставку,
// затем отправляет ту же заявку с approved=true для оформления.
type LoanDraft struct {
	Amount    *decimal.Decimal      `json:"amount"`
	Duration  int                   `json:"duration" validate:"gt=0"`
	AccountID uuid.UUID             `json:"account_id" validate:"required"`
	Approved  bool                  `json:"approved"`
	Requested bool                  `json:"requested"`
	Rate      *int                  `json:"rate,omitempty"`
	Error     *services.ResultError `json:"error,omitempty"`
}

// NewLoanController создает новый экземпляр LoanController
func NewLoanController(customers CustomerService, loans LoanService, metrics *utils.Metrics, logger *zap.Logger) *LoanController {
	return &LoanController{
		customers: customers,
		loans:     loans,
		validator: validator.New(),
		metrics:   metrics,
		logger:    logger.Named("loan-controller"),
	}
}

// GetLoanForm возвращает счета для зачисления кредита и доступные сроки
func (lc *LoanController) GetLoanForm(c *gin.Context) {
	number, ok := customerNumber(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	accounts, err := lc.customers.GetAccounts(ctx, number)
	record(lc.metrics, "GetAccounts", err)
	if err != nil {
		respondError(c, err)
		return
	}

	durations, err := lc.loans.GetLoanDurations(ctx)
	record(lc.metrics, "GetLoanDurations", err)
	if err != nil {
		respondError(c, err)
		return
	}

	regular, _ := splitAccounts(accounts)
	c.JSON(http.StatusOK, LoanFormResponse{Accounts: regular, Durations: durations})
}

// ApplyForLoan рассчитывает ставку по заявке или оформляет одобренную заявку
func (lc *LoanController) ApplyForLoan(c *gin.Context) {
	number, ok := customerNumber(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var draft LoanDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, "InvalidRequest", "неверное тело запроса")
		return
	}

	// Валидируем заявку
	if err := validateRequest(lc.validator, draft); err != nil {
		badRequest(c, "InvalidRequest", err.Error())
		return
	}
	amount, err := services.Require(draft.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	*amount = roundMoney(*amount)
	if !amount.IsPositive() {
		badRequest(c, "InvalidAmount", "сумма кредита должна быть больше 0")
		return
	}

	log := lc.logger.With(zap.Stringer("customer_number", number), zap.Int("duration", draft.Duration))
	draft.Error = nil

	if draft.Approved {
		err := lc.loans.ProcessLoan(ctx, *amount, number, draft.Duration, draft.AccountID)
		record(lc.metrics, "ProcessLoan", err)
		if err == nil {
			log.Info("Кредит оформлен")
			c.JSON(http.StatusCreated, draft)
			return
		}

		log.Warn("Не удалось оформить кредит", zap.String("code", services.Code(err)))
		var re *services.ResultError
		if errors.As(err, &re) {
			draft.Error = re
		}
	}

	// Рассчитываем ставку и возвращаем заявку клиенту
	rate, err := lc.loans.GetLoanRate(ctx, number, draft.Duration)
	record(lc.metrics, "GetLoanRate", err)
	draft.Requested = true
	switch {
	case err == nil:
		draft.Rate = &rate.Rate
		draft.Approved = true
	case errors.Is(err, services.ErrRecordNotFound):
		draft.Rate = nil
		draft.Approved = false
	default:
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}
