package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iudanet/camerannonces/internal/client/transport"
	"github.com/iudanet/camerannonces/internal/models"
	"github.com/iudanet/camerannonces/pkg/api"
)

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	call := transport.Call{Method: http.MethodPost, Path: "/auth/login", Anonymous: true}
	if err := c.jsonCall(ctx, call, req, &resp, FallbackLogin); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	call := transport.Call{Method: http.MethodPost, Path: "/auth/register", Anonymous: true}
	if err := c.jsonCall(ctx, call, req, &resp, FallbackRegister); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новую пару.
// Вызов анонимный: 401 на нём не запускает повторное обновление.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.RefreshResponse, error) {
	var resp api.RefreshResponse
	call := transport.Call{Method: http.MethodPost, Path: "/auth/refresh", Anonymous: true}
	if err := c.jsonCall(ctx, call, api.RefreshRequest{RefreshToken: refreshToken}, &resp, FallbackRefresh); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshCredentials - Refresh в форме transport.RefreshFunc
func (c *Client) RefreshCredentials(ctx context.Context, refreshToken string) (*models.CredentialPair, error) {
	resp, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return resp.Tokens.Credentials(), nil
}

// Me возвращает профиль текущего пользователя
func (c *Client) Me(ctx context.Context) (*api.ProfileResponse, error) {
	var resp api.ProfileResponse
	if err := c.call(ctx, transport.NewCall(http.MethodGet, "/auth/me"), &resp, FallbackProfile); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout уведомляет сервер о выходе.
// 401 не запускает обновление токенов: сессия всё равно завершается.
func (c *Client) Logout(ctx context.Context) error {
	var resp api.MessageResponse
	call := transport.Call{Method: http.MethodPost, Path: "/auth/logout", NoRefresh: true}
	return c.call(ctx, call, &resp, FallbackLogout)
}

// CheckPhone проверяет, свободен ли номер телефона
func (c *Client) CheckPhone(ctx context.Context, phone string) (*api.CheckPhoneResponse, error) {
	var resp api.CheckPhoneResponse
	call := transport.Call{
		Method:    http.MethodGet,
		Path:      "/auth/check-phone",
		Query:     url.Values{"telephone": {phone}},
		Anonymous: true,
	}
	if err := c.call(ctx, call, &resp, FallbackCheckPhone); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword устанавливает новый пароль по номеру телефона
func (c *Client) ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	call := transport.Call{Method: http.MethodPost, Path: "/auth/reset-password", Anonymous: true}
	if err := c.jsonCall(ctx, call, req, &resp, FallbackResetPassword); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangePassword меняет пароль текущего пользователя
func (c *Client) ChangePassword(ctx context.Context, req api.ChangePasswordRequest) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	call := transport.NewCall(http.MethodPost, "/auth/change-password")
	if err := c.jsonCall(ctx, call, req, &resp, FallbackChangePassword); err != nil {
		return nil, err
	}
	return &resp, nil
}
