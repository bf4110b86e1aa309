package auth

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Claims — данные пользователя из токена API.
type Claims struct {
	UserID   int
	Username string
}

// Claims разбирает текущий токен без проверки подписи: ключ знает только API,
// витрине нужны лишь идентификатор и имя пользователя.
func (s *Store) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, domain.ErrNoToken
	}
	return ParseClaims(token)
}

// ParseClaims извлекает sub и user из JWT без проверки подписи.
func ParseClaims(token string) (Claims, error) {
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return Claims{}, fmt.Errorf("parse token claims: %w", err)
	}

	var claims Claims
	switch sub := mapClaims["sub"].(type) {
	case float64:
		claims.UserID = int(sub)
	case string:
		id, err := strconv.Atoi(sub)
		if err != nil {
			return Claims{}, fmt.Errorf("parse token subject %q: %w", sub, err)
		}
		claims.UserID = id
	}
	if user, ok := mapClaims["user"].(string); ok {
		claims.Username = user
	}
	return claims, nil
}

// UserIDOr возвращает функцию, отдающую id пользователя из токена или fallback.
func (s *Store) UserIDOr(fallback int) func() int {
	return func() int {
		claims, err := s.Claims()
		if err != nil || claims.UserID == 0 {
			return fallback
		}
		return claims.UserID
	}
}
