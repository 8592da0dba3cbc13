package controllers

import (
	"bankdemo/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует маршруты API в группе (обычно /api)
func RegisterRoutes(api *gin.RouterGroup, secret string, auth *AuthController, accounts *AccountController, loans *LoanController) {
	// Публичные маршруты для аутентификации
	api.POST("/auth/signIn", auth.SignIn)

	// Защищенные маршруты
	protected := api.Group("")
	protected.Use(middleware.Auth(secret))

	// Маршруты для работы со счетами
	protected.GET("/accounts", accounts.GetAccounts)
	protected.GET("/accounts/:id", accounts.GetAccount)
	protected.POST("/accounts/:id/transfer", accounts.Transfer)

	// Маршруты для работы с кредитами
	protected.GET("/loans", loans.GetLoanForm)
	protected.POST("/loans", loans.ApplyForLoan)
}
