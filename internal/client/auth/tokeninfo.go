package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims - claims access token сервера объявлений
type AccessClaims struct {
	Telephone string `json:"telephone,omitempty"`
	jwt.RegisteredClaims
}

// TokenInfo - сведения из access token. Подпись не проверяется: это делает сервер.
type TokenInfo struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
	Subject   string
	Telephone string
}

// ExpiresIn возвращает оставшееся время жизни токена
func (i *TokenInfo) ExpiresIn(now time.Time) time.Duration {
	if i.ExpiresAt.IsZero() {
		return 0
	}
	return i.ExpiresAt.Sub(now)
}

// Expired сообщает, истёк ли токен к моменту now
func (i *TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// ParseTokenInfo декодирует access token без проверки подписи
func ParseTokenInfo(token string) (*TokenInfo, error) {
	var claims AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode access token: %w", err)
	}

	info := &TokenInfo{
		Subject:   claims.Subject,
		Telephone: claims.Telephone,
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}

// IsTokenExpired сообщает, истёк ли токен. Нечитаемый токен считается истёкшим.
func IsTokenExpired(token string, now time.Time) bool {
	info, err := ParseTokenInfo(token)
	if err != nil {
		return true
	}
	return info.Expired(now)
}
