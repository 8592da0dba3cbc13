package controllers

import (
	"net/http"

	"bankdemo/services"
	"bankdemo/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountController обрабатывает запросы, связанные со счетами клиента
type AccountController struct {
	customers CustomerService
	validator *validator.Validate
	metrics   *utils.Metrics
	logger    *zap.Logger
}

// TransferRequest представляет данные для перевода средств
type TransferRequest struct {
	TargetAccountID uuid.UUID        `json:"target_account_id" validate:"required"`
	Amount          *decimal.Decimal `json:"amount"`
}

// AccountsResponse представляет счета клиента
type AccountsResponse struct {
	Accounts []services.AccountDTO `json:"accounts"`
	Loans    []services.AccountDTO `json:"loans"`
}

// AccountDetailResponse представляет счет и счета, доступные для перевода
type AccountDetailResponse struct {
	Account           services.AccountDTO   `json:"account"`
	MaxTransferAmount decimal.Decimal       `json:"max_transfer_amount"`
	AvailableAccounts []services.AccountDTO `json:"available_accounts"`
}

// TransferResponse представляет балансы после перевода
type TransferResponse struct {
	SourceBalance decimal.Decimal `json:"source_balance"`
	TargetBalance decimal.Decimal `json:"target_balance"`
}

// NewAccountController создает новый экземпляр AccountController
func NewAccountController(customers CustomerService, metrics *utils.Metrics, logger *zap.Logger) *AccountController {
	return &AccountController{
		customers: customers,
		validator: validator.New(),
		metrics:   metrics,
		logger:    logger.Named("account-controller"),
	}
}

// GetAccounts возвращает счета клиента, разделенные на обычные и кредитные
func (ac *AccountController) GetAccounts(c *gin.Context) {
	number, ok := customerNumber(c)
	if !ok {
		return
	}

	accounts, err := ac.customers.GetAccounts(c.Request.Context(), number)
	record(ac.metrics, "GetAccounts", err)
	if err != nil {
		respondError(c, err)
		return
	}

	regular, loans := splitAccounts(accounts)
	c.JSON(http.StatusOK, AccountsResponse{Accounts: regular, Loans: loans})
}

// GetAccount возвращает счет клиента и счета, на которые с него можно перевести средства
func (ac *AccountController) GetAccount(c *gin.Context) {
	number, ok := customerNumber(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "InvalidRequest", "неверный идентификатор счета")
		return
	}

	accounts, err := ac.customers.GetAccounts(c.Request.Context(), number)
	record(ac.metrics, "GetAccounts", err)
	if err != nil {
		respondError(c, err)
		return
	}

	account := findAccount(accounts, id)
	if account == nil {
		ac.logger.Warn("Счет не найден у клиента", zap.Stringer("account_id", id))
		respondError(c, services.ErrRecordNotFound)
		return
	}

	available := make([]services.AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		if a.AccountID != id && !a.IsLoan() {
			available = append(available, a)
		}
	}

	c.JSON(http.StatusOK, AccountDetailResponse{
		Account:           *account,
		MaxTransferAmount: account.Balance,
		AvailableAccounts: available,
	})
}

// Transfer обрабатывает запрос на перевод средств между счетами клиента
func (ac *AccountController) Transfer(c *gin.Context) {
	number, ok := customerNumber(c)
	if !ok {
		return
	}

	sourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "InvalidRequest", "неверный идентификатор счета")
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "InvalidRequest", "неверное тело запроса")
		return
	}

	// Валидируем запрос
	if err := validateRequest(ac.validator, req); err != nil {
		badRequest(c, "InvalidRequest", err.Error())
		return
	}
	amount, err := services.Require(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	*amount = roundMoney(*amount)
	if !amount.IsPositive() {
		badRequest(c, "InvalidAmount", "сумма перевода должна быть больше 0")
		return
	}

	accounts, err := ac.customers.GetAccounts(c.Request.Context(), number)
	record(ac.metrics, "GetAccounts", err)
	if err != nil {
		respondError(c, err)
		return
	}

	// Переводить можно только между своими счетами
	source := findAccount(accounts, sourceID)
	target := findAccount(accounts, req.TargetAccountID)
	if source == nil || target == nil {
		ac.logger.Warn("Счет списания или зачисления не принадлежит клиенту",
			zap.Stringer("source", sourceID),
			zap.Stringer("target", req.TargetAccountID),
		)
		badRequest(c, "TransferRejected", "Unable to transfer funds")
		return
	}

	// Проверяем достаточность средств
	if source.Balance.LessThan(*amount) {
		ac.logger.Warn("Недостаточно средств для перевода", zap.Stringer("source", sourceID))
		badRequest(c, "InsufficientFunds", "Source account does not have enough funds")
		return
	}

	sourceBalance, targetBalance, err := ac.customers.TransferFunds(c.Request.Context(), sourceID, req.TargetAccountID, *amount)
	record(ac.metrics, "TransferFunds", err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TransferResponse{
		SourceBalance: sourceBalance,
		TargetBalance: targetBalance,
	})
}

// findAccount ищет счет по внешнему идентификатору
func findAccount(accounts []services.AccountDTO, id uuid.UUID) *services.AccountDTO {
	for i := range accounts {
		if accounts[i].AccountID == id {
			return &accounts[i]
		}
	}
	return nil
}
