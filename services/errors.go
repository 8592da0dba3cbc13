package services

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ResultError описывает неуспешный результат операции сервиса:
// машинный код и сообщение для пользователя
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ResultError) Error() string {
	return e.Code + ": " + e.Message
}

// Is сравнивает ошибки по коду
func (e *ResultError) Is(target error) bool {
	var t *ResultError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Известные ошибки предметной области
var (
	ErrRecordNotFound  = &ResultError{Code: "Error.RecordNotFound", Message: "запись не найдена"}
	ErrNullValue       = &ResultError{Code: "Error.NullValue", Message: "передано пустое значение"}
	ErrAccountNotFound = &ResultError{Code: "AccountNotFound", Message: "счет списания или зачисления не найден"}
	ErrInvalidAccount  = &ResultError{Code: "InvalidAccount", Message: "счет не принадлежит клиенту"}
	ErrBadRating       = &ResultError{Code: "BadRating", Message: "недостаточный кредитный рейтинг"}
)

// operationError возвращает обобщенную ошибку операции.
// Исходная ошибка только логируется и наружу не передается.
func operationError(operation string) *ResultError {
	return &ResultError{
		Code:    "Error." + operation,
		Message: fmt.Sprintf("не удалось выполнить операцию %s", operation),
	}
}

// FromOptional превращает возможно отсутствующее значение в результат:
// nil дает ErrRecordNotFound
func FromOptional[T any](v *T) (*T, error) {
	if v == nil {
		return nil, ErrRecordNotFound
	}
	return v, nil
}

// Require проверяет, что значение передано: nil дает ErrNullValue
func Require[T any](v *T) (*T, error) {
	if v == nil {
		return nil, ErrNullValue
	}
	return v, nil
}

// Code возвращает код ошибки сервиса или пустую строку для nil
func Code(err error) string {
	if err == nil {
		return ""
	}
	var re *ResultError
	if errors.As(err, &re) {
		return re.Code
	}
	return "Error.Unknown"
}

// fault логирует непредвиденную ошибку хранилища и возвращает обобщенную ошибку операции
func fault(logger *zap.Logger, operation string, err error) error {
	logger.Error("Ошибка выполнения операции", zap.String("operation", operation), zap.Error(err))
	return operationError(operation)
}

// recoverOperation перехватывает панику внутри операции и превращает ее в ошибку операции.
// Вызывается через defer с указателем на именованный результат.
func recoverOperation(logger *zap.Logger, operation string, errp *error) {
	if r := recover(); r != nil {
		logger.Error("Паника при выполнении операции",
			zap.String("operation", operation),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
		*errp = operationError(operation)
	}
}

// safeGo запускает fn в группе и возвращает панику внутри горутины как ошибку операции
func safeGo(g *errgroup.Group, logger *zap.Logger, operation string, fn func() error) {
	g.Go(func() (err error) {
		defer recoverOperation(logger, operation, &err)
		return fn()
	})
}
