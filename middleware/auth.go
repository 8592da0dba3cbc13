package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// customerNumberKey ключ номера клиента в контексте gin
const customerNumberKey = "customer_number"

// Claims содержит данные клиента в JWT токене
type Claims struct {
	CustomerNumber uuid.UUID `json:"customer_number"`
	Name           string    `json:"name"`
	jwt.RegisteredClaims
}

// IssueToken создает подписанный JWT токен клиента
func IssueToken(secret string, customerNumber uuid.UUID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		CustomerNumber: customerNumber,
		Name:           name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerNumber.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken проверяет подпись и срок действия токена
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.CustomerNumber == uuid.Nil {
		return nil, errors.New("customer number is missing in token")
	}
	return claims, nil
}

// Auth middleware проверяет JWT токен и сохраняет номер клиента в контексте
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Получаем токен из заголовка
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "Unauthorized",
				"message": "требуется заголовок Authorization",
			})
			return
		}

		// Убираем префикс "Bearer " если он есть
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "Unauthorized",
				"message": "недействительный токен",
			})
			return
		}

		c.Set(customerNumberKey, claims.CustomerNumber)
		c.Next()
	}
}

// CustomerNumber возвращает номер клиента, установленный Auth
func CustomerNumber(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(customerNumberKey)
	if !ok {
		return uuid.Nil, false
	}
	number, ok := v.(uuid.UUID)
	return number, ok
}
