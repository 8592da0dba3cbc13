package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"bankdemo/models"
	"bankdemo/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// loanAccountNumberLength количество цифр в номере кредитного счета
const loanAccountNumberLength = 8

// LoanService предоставляет методы для работы с кредитами
type LoanService struct {
	uow                   store.Factory
	logger                *zap.Logger
	now                   func() time.Time
	generateAccountNumber func() string
}

// LoanOption настраивает LoanService
type LoanOption func(*LoanService)

// WithAccountNumberGenerator задает генератор номеров кредитных счетов
func WithAccountNumberGenerator(gen func() string) LoanOption {
	return func(s *LoanService) {
		s.generateAccountNumber = gen
	}
}

// WithLoanClock задает источник времени для даты создания кредитного счета
func WithLoanClock(now func() time.Time) LoanOption {
	return func(s *LoanService) {
		s.now = now
	}
}

// NewLoanService создает новый экземпляр LoanService
func NewLoanService(uow store.Factory, logger *zap.Logger, opts ...LoanOption) (*LoanService, error) {
	if uow == nil {
		return nil, errors.New("loan service: unit of work factory is required")
	}
	if logger == nil {
		return nil, errors.New("loan service: logger is required")
	}

	s := &LoanService{
		uow:                   uow,
		logger:                logger.Named("loan-service"),
		now:                   time.Now,
		generateAccountNumber: generateAccountNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetLoanDurations возвращает доступные сроки кредита по возрастанию без повторов
func (s *LoanService) GetLoanDurations(ctx context.Context) (_ []int, err error) {
	const op = "GetLoanDurations"
	defer recoverOperation(s.logger, op, &err)

	s.logger.Info("Получение сроков кредита")

	rates, err := store.GetRepository[models.LoanRate](s.uow()).All(ctx)
	if err != nil {
		return nil, fault(s.logger, op, err)
	}
	if len(rates) == 0 {
		s.logger.Warn("Таблица ставок пуста")
		return nil, ErrRecordNotFound
	}

	durations := make([]int, 0, len(rates))
	for _, r := range rates {
		durations = append(durations, r.Duration)
	}
	slices.Sort(durations)
	durations = slices.Compact(durations)

	s.logger.Info("Сроки кредита получены", zap.Ints("durations", durations))
	return durations, nil
}

// GetLoanRate возвращает ставку для клиента и срока кредита
func (s *LoanService) GetLoanRate(ctx context.Context, customerID uuid.UUID, duration int) (_ *LoanRateDTO, err error) {
	const op = "GetLoanRate"
	defer recoverOperation(s.logger, op, &err)

	log := s.logger.With(zap.Stringer("customer_number", customerID), zap.Int("duration", duration))
	log.Info("Расчет ставки по кредиту")

	uow := s.uow()

	customer, err := store.GetRepository[models.Customer](uow).First(ctx, byCustomerNumber(customerID))
	if err != nil {
		return nil, fault(log, op, err)
	}
	if _, err := FromOptional(customer); err != nil {
		log.Warn("Клиент не найден")
		return nil, err
	}

	rate, err := findRate(ctx, uow, customer.CreditScore, duration)
	if err != nil {
		return nil, fault(log, op, err)
	}
	if _, err := FromOptional(rate); err != nil {
		log.Warn("Ставка не найдена", zap.Int("credit_score", customer.CreditScore))
		return nil, err
	}

	log.Info("Ставка найдена", zap.Int("rate", rate.Rate))
	return toLoanRateDTO(rate), nil
}

// ProcessLoan выдает кредит: создает кредитный счет на сумму кредита
// и зачисляет ту же сумму на счет клиента одной фиксацией
func (s *LoanService) ProcessLoan(ctx context.Context, amount decimal.Decimal, customerID uuid.UUID, duration int, targetAccountID uuid.UUID) (err error) {
	const op = "ProcessLoan"
	defer recoverOperation(s.logger, op, &err)

	log := s.logger.With(
		zap.Stringer("customer_number", customerID),
		zap.Stringer("target", targetAccountID),
		zap.Stringer("amount", amount),
		zap.Int("duration", duration),
	)
	log.Info("Оформление кредита")

	uow := s.uow()

	// Клиент и счет зачисления не зависят друг от друга, ищем их параллельно
	var (
		customer *models.Customer
		target   *models.Account
	)
	g, gctx := errgroup.WithContext(ctx)
	safeGo(g, log, op, func() error {
		var err error
		customer, err = store.GetRepository[models.Customer](uow).First(gctx, byCustomerNumber(customerID))
		return err
	})
	safeGo(g, log, op, func() error {
		var err error
		target, err = store.GetRepository[models.Account](uow).First(gctx, byAccountID(targetAccountID))
		return err
	})
	if err := g.Wait(); err != nil {
		return fault(log, op, err)
	}

	if customer == nil || target == nil || target.CustomerID != customer.ID {
		log.Warn("Счет зачисления не принадлежит клиенту",
			zap.Bool("customer_found", customer != nil),
			zap.Bool("account_found", target != nil),
		)
		return ErrInvalidAccount
	}

	rate, err := findRate(ctx, uow, customer.CreditScore, duration)
	if err != nil {
		return fault(log, op, err)
	}
	if rate == nil {
		log.Warn("Кредитный рейтинг не подходит ни под одну ставку", zap.Int("credit_score", customer.CreditScore))
		return ErrBadRating
	}

	// Создаем кредитный счет и зачисляем сумму кредита
	loan := &models.Account{
		BaseEntity: models.BaseEntity{
			CreatedDate: s.now(),
			CreatedBy:   models.SystemUser,
		},
		CustomerID:    customer.ID,
		AccountTypeID: models.AccountTypeLoan,
		AccountID:     uuid.New(),
		AccountNumber: s.generateAccountNumber(),
		Balance:       amount,
	}
	store.GetRepository[models.Account](uow).Add(loan)
	target.Balance = target.Balance.Add(amount)

	if err := uow.Commit(ctx); err != nil {
		return fault(log, op, err)
	}

	log.Info("Кредит оформлен",
		zap.Stringer("loan_account", loan.AccountID),
		zap.Int("rate", rate.Rate),
		zap.Stringer("target_balance", target.Balance),
	)
	return nil
}

// findRate ищет ставку для срока, диапазон рейтинга которой содержит creditScore.
// Возвращает nil, если ставки нет.
func findRate(ctx context.Context, uow *store.UnitOfWork, creditScore, duration int) (*models.LoanRate, error) {
	return store.GetRepository[models.LoanRate](uow).First(ctx, func(r *models.LoanRate) bool {
		return r.Duration == duration && r.Covers(creditScore)
	})
}

// generateAccountNumber генерирует номер кредитного счета из случайных цифр
func generateAccountNumber() string {
	var number strings.Builder
	number.Grow(loanAccountNumberLength)
	for i := 0; i < loanAccountNumberLength; i++ {
		number.WriteByte(byte('0' + rand.IntN(10)))
	}
	return number.String()
}
