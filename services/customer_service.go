package services

import (
	"context"
	"errors"
	"strings"

	"bankdemo/models"
	"bankdemo/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomerService предоставляет методы для работы с клиентами и их счетами
type CustomerService struct {
	uow    store.Factory
	logger *zap.Logger
}

// NewCustomerService создает новый экземпляр CustomerService
func NewCustomerService(uow store.Factory, logger *zap.Logger) (*CustomerService, error) {
	if uow == nil {
		return nil, errors.New("customer service: unit of work factory is required")
	}
	if logger == nil {
		return nil, errors.New("customer service: logger is required")
	}

	return &CustomerService{
		uow:    uow,
		logger: logger.Named("customer-service"),
	}, nil
}

// GetByName ищет клиента по имени без учета регистра.
// Если совпадений несколько, возвращается клиент с меньшим первичным ключом.
func (s *CustomerService) GetByName(ctx context.Context, name string) (_ *CustomerDTO, err error) {
	const op = "GetByName"
	defer recoverOperation(s.logger, op, &err)

	s.logger.Info("Поиск клиента по имени", zap.String("name", name))

	customer, err := store.GetRepository[models.Customer](s.uow()).First(ctx, func(c *models.Customer) bool {
		return strings.EqualFold(c.FirstName, name)
	})
	if err != nil {
		return nil, fault(s.logger, op, err)
	}

	found, err := FromOptional(customer)
	if err != nil {
		s.logger.Warn("Клиент не найден", zap.String("name", name))
		return nil, err
	}

	s.logger.Info("Клиент найден", zap.Stringer("customer_number", found.CustomerNumber))
	return toCustomerDTO(found), nil
}

// GetAccounts возвращает все счета клиента вместе с их типами.
// Для неизвестного клиента возвращается пустой список.
func (s *CustomerService) GetAccounts(ctx context.Context, customerNumber uuid.UUID) (_ []AccountDTO, err error) {
	const op = "GetAccounts"
	defer recoverOperation(s.logger, op, &err)

	s.logger.Info("Получение счетов клиента", zap.Stringer("customer_number", customerNumber))

	accounts, err := store.GetRepository[models.Account](s.uow()).Find(ctx, func(a *models.Account) bool {
		return a.Customer.CustomerNumber == customerNumber
	}, "Customer", "AccountType")
	if err != nil {
		return nil, fault(s.logger, op, err)
	}

	result := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		result = append(result, toAccountDTO(a))
	}

	s.logger.Info("Счета клиента получены",
		zap.Stringer("customer_number", customerNumber),
		zap.Int("count", len(result)),
	)
	return result, nil
}

// TransferFunds переводит средства между счетами и возвращает новые балансы обоих счетов.
// Сумма, достаточность средств и совпадение счетов здесь не проверяются.
func (s *CustomerService) TransferFunds(ctx context.Context, sourceID, targetID uuid.UUID, amount decimal.Decimal) (sourceBalance, targetBalance decimal.Decimal, err error) {
	const op = "TransferFunds"
	defer recoverOperation(s.logger, op, &err)

	log := s.logger.With(
		zap.Stringer("source", sourceID),
		zap.Stringer("target", targetID),
		zap.Stringer("amount", amount),
	)
	log.Info("Перевод средств")

	uow := s.uow()
	accounts := store.GetRepository[models.Account](uow)

	// Ищем счет списания и счет зачисления
	source, err := accounts.First(ctx, byAccountID(sourceID))
	if err != nil {
		return decimal.Zero, decimal.Zero, fault(log, op, err)
	}
	target, err := accounts.First(ctx, byAccountID(targetID))
	if err != nil {
		return decimal.Zero, decimal.Zero, fault(log, op, err)
	}
	if source == nil || target == nil {
		log.Warn("Счет для перевода не найден",
			zap.Bool("source_found", source != nil),
			zap.Bool("target_found", target != nil),
		)
		return decimal.Zero, decimal.Zero, ErrAccountNotFound
	}

	// Для перевода на тот же счет source и target указывают на один экземпляр
	source.Balance = source.Balance.Sub(amount)
	target.Balance = target.Balance.Add(amount)

	if err := uow.Commit(ctx); err != nil {
		return decimal.Zero, decimal.Zero, fault(log, op, err)
	}

	log.Info("Перевод выполнен",
		zap.Stringer("source_balance", source.Balance),
		zap.Stringer("target_balance", target.Balance),
	)
	return source.Balance, target.Balance, nil
}

// byAccountID отбирает счет по внешнему идентификатору
func byAccountID(id uuid.UUID) store.Predicate[models.Account] {
	return func(a *models.Account) bool {
		return a.AccountID == id
	}
}

// byCustomerNumber отбирает клиента по внешнему номеру
func byCustomerNumber(number uuid.UUID) store.Predicate[models.Customer] {
	return func(c *models.Customer) bool {
		return c.CustomerNumber == number
	}
}
