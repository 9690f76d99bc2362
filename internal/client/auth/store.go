package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iudanet/camerannonces/internal/client/storage"
	"github.com/iudanet/camerannonces/internal/crypto"
	"github.com/iudanet/camerannonces/internal/models"
)

// TokenStore хранит пару токенов и кэш профиля поверх storage.AuthStorage.
// Чтения никогда не возвращают ошибку: нечитаемые или повреждённые данные считаются отсутствующими.
// Если задан Sealer, токены шифруются перед записью на диск.
type TokenStore struct {
	storage storage.AuthStorage
	sealer  *crypto.Sealer
	logger  zerolog.Logger
	now     func() time.Time
}

// StoreOption настраивает TokenStore
type StoreOption func(*TokenStore)

// WithSealer включает шифрование токенов
func WithSealer(sealer *crypto.Sealer) StoreOption {
	return func(s *TokenStore) {
		s.sealer = sealer
	}
}

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) StoreOption {
	return func(s *TokenStore) {
		s.now = now
	}
}

// NewTokenStore создаёт хранилище токенов
func NewTokenStore(st storage.AuthStorage, logger zerolog.Logger, opts ...StoreOption) *TokenStore {
	s := &TokenStore{
		storage: st,
		logger:  logger.With().Str("component", "token_store").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDeviceSealer выводит ключ шифрования из парольной фразы и идентификатора устройства
func NewDeviceSealer(ctx context.Context, st storage.AuthStorage, passphrase string) (*crypto.Sealer, error) {
	deviceID, err := st.DeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device id: %w", err)
	}

	id, err := uuid.Parse(deviceID)
	if err != nil {
		return nil, fmt.Errorf("invalid device id: %w", err)
	}

	key, err := crypto.DeriveStoreKey(passphrase, id[:])
	if err != nil {
		return nil, fmt.Errorf("failed to derive store key: %w", err)
	}

	return crypto.NewSealer(key)
}

// Save атомарно перезаписывает оба токена
func (s *TokenStore) Save(ctx context.Context, pair *models.CredentialPair) error {
	data, err := s.seal(pair)
	if err != nil {
		return err
	}
	if err := s.storage.SaveAuth(ctx, data); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// SaveIf атомарно заменяет пару, если match(текущая пара) истинно.
// При отсутствии пары match не вызывается и замена не выполняется.
func (s *TokenStore) SaveIf(ctx context.Context, match func(current models.CredentialPair) bool, next *models.CredentialPair) (bool, error) {
	data, err := s.seal(next)
	if err != nil {
		return false, err
	}

	swapped, err := s.storage.SwapAuth(ctx, func(current *storage.AuthData) bool {
		pair, ok := s.open(current)
		return ok && match(*pair)
	}, data)
	if err != nil {
		return false, fmt.Errorf("failed to swap tokens: %w", err)
	}
	return swapped, nil
}

// ClearIf атомарно удаляет токены и профиль, если match(текущая пара) истинно.
// Если пары нет (или она нечитаема), хранилище считается уже очищенным и возвращается true.
func (s *TokenStore) ClearIf(ctx context.Context, match func(current models.CredentialPair) bool) (bool, error) {
	cleared, err := s.storage.SwapAuth(ctx, func(current *storage.AuthData) bool {
		pair, ok := s.open(current)
		return !ok || match(*pair)
	}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to clear tokens: %w", err)
	}
	return cleared, nil
}

// Credentials возвращает обе части пары одним чтением
func (s *TokenStore) Credentials(ctx context.Context) (*models.CredentialPair, bool) {
	data, err := s.storage.GetAuth(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrAuthNotFound) {
			s.logger.Warn().Err(err).Msg("token storage unreadable, treating as absent")
		}
		return nil, false
	}
	return s.open(data)
}

// AccessToken возвращает access token, если он есть
func (s *TokenStore) AccessToken(ctx context.Context) (string, bool) {
	pair, ok := s.Credentials(ctx)
	if !ok || pair.AccessToken == "" {
		return "", false
	}
	return pair.AccessToken, true
}

// RefreshToken возвращает refresh token, если он есть
func (s *TokenStore) RefreshToken(ctx context.Context) (string, bool) {
	pair, ok := s.Credentials(ctx)
	if !ok || pair.RefreshToken == "" {
		return "", false
	}
	return pair.RefreshToken, true
}

// SavedAt возвращает время сохранения текущей пары
func (s *TokenStore) SavedAt(ctx context.Context) (time.Time, bool) {
	data, err := s.storage.GetAuth(ctx)
	if err != nil || data.SavedAt == 0 {
		return time.Time{}, false
	}
	return time.Unix(data.SavedAt, 0), true
}

// IsLoggedIn проверяет только наличие access token; срок действия не проверяется
func (s *TokenStore) IsLoggedIn(ctx context.Context) bool {
	_, ok := s.AccessToken(ctx)
	return ok
}

// SaveUser кэширует профиль независимо от токенов
func (s *TokenStore) SaveUser(ctx context.Context, profile *models.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is nil")
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := s.storage.SaveProfile(ctx, data); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// User возвращает закэшированный профиль
func (s *TokenStore) User(ctx context.Context) (*models.Profile, bool) {
	data, err := s.storage.GetProfile(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrProfileNotFound) {
			s.logger.Warn().Err(err).Msg("profile cache unreadable, treating as absent")
		}
		return nil, false
	}

	var profile models.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		s.logger.Warn().Err(err).Msg("profile cache corrupted, treating as absent")
		return nil, false
	}
	return &profile, true
}

// Clear удаляет токены и профиль. Идемпотентна.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.storage.DeleteAuth(ctx); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

func (s *TokenStore) seal(pair *models.CredentialPair) (*storage.AuthData, error) {
	if !pair.Complete() {
		return nil, fmt.Errorf("credential pair is incomplete")
	}

	data := &storage.AuthData{
		AccessToken:       pair.AccessToken,
		RefreshToken:      pair.RefreshToken,
		TokenKind:         pair.TokenKind,
		AccessTTLSeconds:  pair.AccessTTLSeconds,
		RefreshTTLSeconds: pair.RefreshTTLSeconds,
		SavedAt:           s.now().Unix(),
	}

	if s.sealer == nil {
		return data, nil
	}

	var err error
	if data.AccessToken, err = s.sealer.Seal(pair.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	if data.RefreshToken, err = s.sealer.Seal(pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}
	data.Sealed = true
	return data, nil
}

func (s *TokenStore) open(data *storage.AuthData) (*models.CredentialPair, bool) {
	if data == nil {
		return nil, false
	}

	pair := &models.CredentialPair{
		AccessToken:       data.AccessToken,
		RefreshToken:      data.RefreshToken,
		TokenKind:         data.TokenKind,
		AccessTTLSeconds:  data.AccessTTLSeconds,
		RefreshTTLSeconds: data.RefreshTTLSeconds,
	}

	if !data.Sealed {
		return pair, true
	}

	if s.sealer == nil {
		s.logger.Warn().Msg("tokens are encrypted but no passphrase configured, treating as absent")
		return nil, false
	}

	var err error
	if pair.AccessToken, err = s.sealer.Open(data.AccessToken); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decrypt access token, treating as absent")
		return nil, false
	}
	if pair.RefreshToken, err = s.sealer.Open(data.RefreshToken); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decrypt refresh token, treating as absent")
		return nil, false
	}
	return pair, true
}
