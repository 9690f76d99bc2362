package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iudanet/camerannonces/internal/models"
	"github.com/iudanet/camerannonces/internal/validation"
	"github.com/iudanet/camerannonces/pkg/api"
)

// ErrNotLoggedIn возвращается операциями, которым нужен сохранённый токен
var ErrNotLoggedIn = errors.New("not logged in")

// logoutTimeout ограничивает уведомление сервера о выходе
const logoutTimeout = 5 * time.Second

// API - вызовы сервера, которые использует Service
type API interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Me(ctx context.Context) (*api.ProfileResponse, error)
	Logout(ctx context.Context) error
	CheckPhone(ctx context.Context, phone string) (*api.CheckPhoneResponse, error)
	ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.MessageResponse, error)
	ChangePassword(ctx context.Context, req api.ChangePasswordRequest) (*api.MessageResponse, error)
}

// Refresher выполняет явное обновление токенов через общий single-flight
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Service реализует операции аутентификации.
// Проверка полей выполняется до любого сетевого вызова.
type Service struct {
	api       API
	store     *TokenStore
	refresher Refresher
	logger    zerolog.Logger
}

// NewService создаёт сервис аутентификации
func NewService(client API, store *TokenStore, refresher Refresher, logger zerolog.Logger) *Service {
	return &Service{
		api:       client,
		store:     store,
		refresher: refresher,
		logger:    logger.With().Str("component", "auth").Logger(),
	}
}

// Login выполняет вход и сохраняет пару токенов и профиль
func (s *Service) Login(ctx context.Context, form validation.LoginForm) (*models.Profile, error) {
	phone, err := validation.ValidateLogin(form)
	if err != nil {
		return nil, err
	}

	resp, err := s.api.Login(ctx, api.LoginRequest{Telephone: phone, MotDePasse: form.Password})
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, resp); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", resp.User.ID).Msg("logged in")
	return resp.User, nil
}

// Register создаёт аккаунт и сразу входит в него
func (s *Service) Register(ctx context.Context, form validation.RegisterForm) (*models.Profile, error) {
	normalized, err := validation.ValidateRegistration(form)
	if err != nil {
		return nil, err
	}

	resp, err := s.api.Register(ctx, api.RegisterRequest{
		Nom:        normalized.Name,
		Telephone:  normalized.Phone,
		MotDePasse: normalized.Password,
		Email:      normalized.Email,
		Ville:      normalized.City,
		Quartier:   normalized.District,
	})
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, resp); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", resp.User.ID).Msg("registered")
	return resp.User, nil
}

func (s *Service) persist(ctx context.Context, resp *api.AuthResponse) error {
	if err := s.store.Save(ctx, resp.Tokens.Credentials()); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	// Кэш профиля не критичен для входа
	if err := s.store.SaveUser(ctx, resp.User); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache profile")
	}
	return nil
}

// Logout уведомляет сервер (ошибка игнорируется) и всегда очищает хранилище
func (s *Service) Logout(ctx context.Context) error {
	if s.store.IsLoggedIn(ctx) {
		lctx, cancel := context.WithTimeout(ctx, logoutTimeout)
		if err := s.api.Logout(lctx); err != nil {
			s.logger.Debug().Err(err).Msg("server logout failed, clearing local session anyway")
		}
		cancel()
	}

	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.logger.Info().Msg("logged out")
	return nil
}

// RefreshTokens явно обновляет пару токенов
func (s *Service) RefreshTokens(ctx context.Context) error {
	if s.refresher == nil {
		return fmt.Errorf("token refresh is not configured")
	}
	return s.refresher.Refresh(ctx)
}

// Profile загружает профиль текущего пользователя и обновляет кэш
func (s *Service) Profile(ctx context.Context) (*models.Profile, error) {
	resp, err := s.api.Me(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveUser(ctx, resp.User); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache profile")
	}
	return resp.User, nil
}

// CachedProfile возвращает последний сохранённый профиль
func (s *Service) CachedProfile(ctx context.Context) (*models.Profile, bool) {
	return s.store.User(ctx)
}

// IsLoggedIn проверяет наличие access token
func (s *Service) IsLoggedIn(ctx context.Context) bool {
	return s.store.IsLoggedIn(ctx)
}

// ClearSession удаляет токены и профиль без обращения к серверу
func (s *Service) ClearSession(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// CheckPhoneAvailability проверяет, свободен ли номер для регистрации
func (s *Service) CheckPhoneAvailability(ctx context.Context, phone string) (bool, error) {
	normalized, err := validation.ValidatePhone(phone)
	if err != nil {
		return false, err
	}

	resp, err := s.api.CheckPhone(ctx, normalized)
	if err != nil {
		return false, err
	}
	return *resp.Available, nil
}

// ResetPassword задаёт новый пароль по номеру телефона
func (s *Service) ResetPassword(ctx context.Context, form validation.ResetPasswordForm) error {
	phone, err := validation.ValidatePasswordReset(form)
	if err != nil {
		return err
	}

	_, err = s.api.ResetPassword(ctx, api.ResetPasswordRequest{Telephone: phone, NouveauMotDePasse: form.NewPassword})
	return err
}

// ChangePassword меняет пароль текущего пользователя
func (s *Service) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	if err := validation.ValidatePasswordChange(oldPassword, newPassword, confirm); err != nil {
		return err
	}

	_, err := s.api.ChangePassword(ctx, api.ChangePasswordRequest{
		AncienMotDePasse:  oldPassword,
		NouveauMotDePasse: newPassword,
	})
	return err
}

// TokenInfo декодирует сохранённый access token
func (s *Service) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	token, ok := s.store.AccessToken(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return ParseTokenInfo(token)
}
