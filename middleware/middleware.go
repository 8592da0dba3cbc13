package middleware

import (
	"net/http"
	"strconv"
	"time"

	"bankdemo/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit middleware для ограничения частоты запросов по IP-адресу клиента
func RateLimit(limiter *utils.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Получаем IP-адрес клиента
		clientIP := c.ClientIP()

		// Проверяем лимит
		if !limiter.Allow(clientIP) {
			reset := limiter.ResetTime(clientIP)
			c.Header("Retry-After", strconv.Itoa(int(time.Until(reset).Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "TooManyRequests",
				"message": "слишком много запросов",
				"reset":   reset.UTC().Format(time.RFC3339),
			})
			return
		}

		// Добавляем заголовки с информацией о лимитах
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(clientIP)))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(limiter.ResetTime(clientIP).Unix(), 10))

		c.Next()
	}
}

// Logger middleware для логирования запросов
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Начало запроса
		startTime := time.Now()

		// Обработка запроса
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(startTime)),
			zap.String("client_ip", c.ClientIP()),
		}

		// Логируем ошибки обработчиков
		if len(c.Errors) > 0 {
			logger.Error("Запрос завершился с ошибкой", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Info("Запрос обработан", fields...)
	}
}

// Recovery middleware для обработки паник
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// Логируем панику
				logger.Error("Паника при обработке запроса",
					zap.Any("panic", err),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)

				// Отправляем ответ клиенту
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    "Error.Internal",
					"message": "внутренняя ошибка сервера",
				})
			}
		}()

		c.Next()
	}
}

// Metrics middleware для учета запросов в prometheus
func Metrics(metrics *utils.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		// Используем шаблон маршрута, чтобы не плодить метки по идентификаторам
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(startTime))
	}
}

// CORS middleware для CORS
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
