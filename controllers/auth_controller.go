package controllers

import (
	"errors"
	"net/http"
	"time"

	"bankdemo/config"
	"bankdemo/middleware"
	"bankdemo/services"
	"bankdemo/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthController обрабатывает вход клиента
type AuthController struct {
	customers CustomerService
	validate  *validator.Validate
	secret    string
	expiresIn time.Duration
	metrics   *utils.Metrics
	logger    *zap.Logger
}

// SignInRequest представляет данные для входа
type SignInRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// SignInResponse представляет ответ с токеном
type SignInResponse struct {
	Token          string    `json:"token"`
	CustomerNumber uuid.UUID `json:"customer_number"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// NewAuthController создает новый экземпляр AuthController
func NewAuthController(cfg *config.Config, customers CustomerService, metrics *utils.Metrics, logger *zap.Logger) *AuthController {
	return &AuthController{
		customers: customers,
		validate:  validator.New(),
		secret:    cfg.JWT.SecretKey,
		expiresIn: time.Duration(cfg.JWT.ExpiresIn) * time.Hour,
		metrics:   metrics,
		logger:    logger.Named("auth-controller"),
	}
}

// SignIn обрабатывает вход клиента по имени
func (ac *AuthController) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "InvalidRequest", "неверное тело запроса")
		return
	}

	// Валидация запроса
	if err := validateRequest(ac.validate, req); err != nil {
		badRequest(c, "InvalidRequest", err.Error())
		return
	}

	// Ищем клиента по имени
	customer, err := ac.customers.GetByName(c.Request.Context(), req.Name)
	record(ac.metrics, "GetByName", err)
	if err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			ac.logger.Warn("Неудачная попытка входа", zap.String("name", req.Name))
			c.AbortWithStatusJSON(http.StatusUnauthorized, services.ResultError{Code: "Unauthorized", Message: "Not a valid name"})
			return
		}
		respondError(c, err)
		return
	}

	// Создаем JWT токен
	expiresAt := time.Now().Add(ac.expiresIn)
	token, err := middleware.IssueToken(ac.secret, customer.CustomerNumber, customer.FirstName, ac.expiresIn)
	if err != nil {
		ac.logger.Error("Не удалось создать токен", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, services.ResultError{Code: "Error.SignIn", Message: "не удалось создать токен"})
		return
	}

	ac.logger.Info("Клиент вошел в систему", zap.Stringer("customer_number", customer.CustomerNumber))
	c.JSON(http.StatusOK, SignInResponse{
		Token:          token,
		CustomerNumber: customer.CustomerNumber,
		FirstName:      customer.FirstName,
		LastName:       customer.LastName,
		ExpiresAt:      expiresAt.UTC(),
	})
}
