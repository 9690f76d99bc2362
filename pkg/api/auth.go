package api

import (
	"errors"

	"github.com/iudanet/camerannonces/internal/models"
)

// ErrMalformed означает, что ответ сервера не соответствует ожидаемой схеме
var ErrMalformed = errors.New("malformed response")

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Telephone  string `json:"telephone"`  // нормализованный номер
	MotDePasse string `json:"motDePasse"` // пароль
}

// RegisterRequest представляет запрос на регистрацию
type RegisterRequest struct {
	Nom        string `json:"nom"`
	Telephone  string `json:"telephone"`
	MotDePasse string `json:"motDePasse"`
	Email      string `json:"email,omitempty"`
	Ville      string `json:"ville,omitempty"`
	Quartier   string `json:"quartier,omitempty"`
}

// RefreshRequest представляет запрос на обновление пары токенов
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ResetPasswordRequest представляет запрос на сброс пароля
type ResetPasswordRequest struct {
	Telephone         string `json:"telephone"`
	NouveauMotDePasse string `json:"nouveauMotDePasse"`
}

// ChangePasswordRequest представляет запрос на смену пароля
type ChangePasswordRequest struct {
	AncienMotDePasse  string `json:"ancienMotDePasse"`
	NouveauMotDePasse string `json:"nouveauMotDePasse"`
}

// Envelope - общие поля всех ответов сервера
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded сообщает, что сервер подтвердил успех операции
func (e Envelope) Succeeded() bool {
	return e.Success
}

// Reason возвращает сообщение сервера об ошибке
func (e Envelope) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// TokensDTO - токены в формате сервера
type TokensDTO struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	TokenType        string `json:"tokenType"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

// Credentials преобразует DTO в доменную пару токенов
func (t *TokensDTO) Credentials() *models.CredentialPair {
	kind := t.TokenType
	if kind == "" {
		kind = "Bearer"
	}
	return &models.CredentialPair{
		AccessToken:       t.AccessToken,
		RefreshToken:      t.RefreshToken,
		TokenKind:         kind,
		AccessTTLSeconds:  t.ExpiresIn,
		RefreshTTLSeconds: t.RefreshExpiresIn,
	}
}

func (t *TokensDTO) validate() error {
	if t == nil || t.AccessToken == "" || t.RefreshToken == "" {
		return errors.Join(ErrMalformed, errors.New("tokens are missing"))
	}
	return nil
}

// AuthResponse - ответ на login/register
type AuthResponse struct {
	Envelope
	User   *models.Profile `json:"user"`
	Tokens *TokensDTO      `json:"tokens"`
}

// Validate проверяет схему успешного ответа
func (r *AuthResponse) Validate() error {
	if r.User == nil {
		return errors.Join(ErrMalformed, errors.New("user is missing"))
	}
	return r.Tokens.validate()
}

// RefreshResponse - ответ на /auth/refresh
type RefreshResponse struct {
	Envelope
	Tokens *TokensDTO `json:"tokens"`
}

// Validate проверяет схему успешного ответа
func (r *RefreshResponse) Validate() error {
	return r.Tokens.validate()
}

// ProfileResponse - ответ на /auth/me
type ProfileResponse struct {
	Envelope
	User           *models.Profile `json:"user"`
	TokenExpiresIn int64           `json:"tokenExpiresIn,omitempty"`
}

// Validate проверяет схему успешного ответа
func (r *ProfileResponse) Validate() error {
	if r.User == nil {
		return errors.Join(ErrMalformed, errors.New("user is missing"))
	}
	return nil
}

// CheckPhoneResponse - ответ на /auth/check-phone
type CheckPhoneResponse struct {
	Envelope
	Available *bool `json:"available"`
}

// Validate проверяет схему успешного ответа
func (r *CheckPhoneResponse) Validate() error {
	if r.Available == nil {
		return errors.Join(ErrMalformed, errors.New("available flag is missing"))
	}
	return nil
}

// MessageResponse - ответ без полезной нагрузки (logout, reset-password, ...)
type MessageResponse struct {
	Envelope
}

// Validate для MessageResponse всегда успешна
func (r *MessageResponse) Validate() error {
	return nil
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Envelope
}
