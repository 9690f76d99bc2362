package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iudanet/camerannonces/internal/apperr"
	"github.com/iudanet/camerannonces/internal/client/events"
	"github.com/iudanet/camerannonces/internal/models"
)

var (
	errNoRefreshToken = errors.New("no refresh token stored")
	errRejectedTwice  = errors.New("request unauthorized after token refresh")
	errSessionEnded   = errors.New("session ended during token refresh")
)

// TokenStore - хранилище токенов, которым пользуется Authorizer
type TokenStore interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	SaveIf(ctx context.Context, match func(current models.CredentialPair) bool, next *models.CredentialPair) (bool, error)
	ClearIf(ctx context.Context, match func(current models.CredentialPair) bool) (bool, error)
}

// RefreshFunc обменивает refresh token на новую пару.
// Вызов должен быть анонимным, чтобы не войти повторно в восстановление после 401.
type RefreshFunc func(ctx context.Context, refreshToken string) (*models.CredentialPair, error)

// refreshCall - отметка об идущем обновлении; все ожидающие получают один результат
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Authorizer прикрепляет bearer токен к запросам и восстанавливается после 401.
//
// Одновременно выполняется не более одного обновления токенов: запросы, получившие 401
// пока обновление идёт, ждут его результата. Если обновление не удалось или повторный
// запрос снова получил 401, хранилище очищается и публикуется events.SessionInvalidated.
type Authorizer struct {
	store   TokenStore
	refresh RefreshFunc
	bus     *events.Bus
	metrics *Metrics
	logger  zerolog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending *refreshCall
}

// AuthorizerOption настраивает Authorizer
type AuthorizerOption func(*Authorizer)

// WithRefreshTimeout задаёт таймаут вызова обновления
func WithRefreshTimeout(d time.Duration) AuthorizerOption {
	return func(a *Authorizer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithAuthMetrics подключает счётчики обновлений и инвалидаций
func WithAuthMetrics(m *Metrics) AuthorizerOption {
	return func(a *Authorizer) {
		a.metrics = m
	}
}

// NewAuthorizer создаёт Authorizer
func NewAuthorizer(store TokenStore, refresh RefreshFunc, bus *events.Bus, logger zerolog.Logger, opts ...AuthorizerOption) *Authorizer {
	a := &Authorizer{
		store:   store,
		refresh: refresh,
		bus:     bus,
		logger:  logger.With().Str("component", "authorizer").Logger(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Install подключает стадии Authorizer к конвейеру
func (a *Authorizer) Install(p *Pipeline) {
	p.UseRequest(a.BearerStage())
	p.UseResponse(a.RecoverStage())
}

// BearerStage прикрепляет Authorization: Bearer к неанонимным вызовам
func (a *Authorizer) BearerStage() RequestStage {
	return RequestFunc(func(ctx context.Context, call Call, req *http.Request) error {
		if call.Anonymous {
			return nil
		}

		token := call.Token
		if token == "" {
			token, _ = a.store.AccessToken(ctx)
		}
		if token != "" {
			req.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
		return nil
	})
}

// RecoverStage обрабатывает 401: обновляет токены и повторяет вызов один раз
func (a *Authorizer) RecoverStage() ResponseStage {
	return ResponseFunc(a.recoverUnauthorized)
}

func (a *Authorizer) recoverUnauthorized(ctx context.Context, resp *Response) (*Call, error) {
	if resp.StatusCode != http.StatusUnauthorized || resp.Call.Anonymous || resp.Call.NoRefresh {
		return nil, nil
	}

	// Повторный 401 - сессия недействительна
	if resp.Call.Attempt > 0 {
		failed := resp.Token
		a.invalidate(ctx, func(current models.CredentialPair) bool {
			return current.AccessToken == failed
		}, events.ReasonUnauthorizedAfterRefresh)
		return nil, apperr.SessionExpired(errRejectedTwice)
	}

	token, err := a.tokenAfter(ctx, resp.Token)
	if err != nil {
		return nil, err
	}

	next := resp.Call.Retry().WithToken(token)
	return &next, nil
}

// tokenAfter возвращает токен, который заменяет отвергнутый сервером failed
func (a *Authorizer) tokenAfter(ctx context.Context, failed string) (string, error) {
	a.mu.Lock()

	// Обновление уже идёт: ждём его результата
	if p := a.pending; p != nil {
		a.mu.Unlock()
		a.metrics.refresh(RefreshCoalesced)
		return p.wait(ctx)
	}

	// Токен уже заменён (обновлением или входом), пока запрос был в пути
	current, ok := a.store.AccessToken(ctx)
	if ok && current != failed {
		a.mu.Unlock()
		a.metrics.refresh(RefreshStale)
		return current, nil
	}

	// Пару удалили, пока запрос был в пути: сессия уже завершена и об этом оповещено
	if _, hasRefresh := a.store.RefreshToken(ctx); !ok && !hasRefresh && failed != "" {
		a.mu.Unlock()
		return "", apperr.SessionExpired(errSessionEnded)
	}

	p := &refreshCall{done: make(chan struct{})}
	a.pending = p
	a.mu.Unlock()

	return a.run(ctx, p)
}

// Refresh принудительно обновляет пару токенов.
// Если обновление уже идёт, присоединяется к нему.
func (a *Authorizer) Refresh(ctx context.Context) error {
	a.mu.Lock()
	if p := a.pending; p != nil {
		a.mu.Unlock()
		a.metrics.refresh(RefreshCoalesced)
		_, err := p.wait(ctx)
		return err
	}

	p := &refreshCall{done: make(chan struct{})}
	a.pending = p
	a.mu.Unlock()

	_, err := a.run(ctx, p)
	return err
}

// run выполняет обновление и снимает отметку, освобождая ожидающих
func (a *Authorizer) run(ctx context.Context, p *refreshCall) (string, error) {
	p.token, p.err = a.doRefresh(ctx)

	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()
	close(p.done)

	return p.token, p.err
}

func (p *refreshCall) wait(ctx context.Context) (string, error) {
	select {
	case <-p.done:
		return p.token, p.err
	case <-ctx.Done():
		return "", apperr.Network(fmt.Errorf("waiting for token refresh: %w", ctx.Err()))
	}
}

func (a *Authorizer) doRefresh(ctx context.Context) (string, error) {
	// Результат ждут и другие запросы: отмена инициатора обновление не прерывает
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	refreshToken, ok := a.store.RefreshToken(rctx)
	if !ok {
		a.metrics.refresh(RefreshFailure)
		a.invalidate(rctx, func(current models.CredentialPair) bool {
			return current.RefreshToken == ""
		}, events.ReasonNoRefreshToken)
		return "", apperr.SessionExpired(errNoRefreshToken)
	}

	a.logger.Debug().Msg("refreshing tokens")

	pair, err := a.refresh(rctx, refreshToken)
	if err == nil && !pair.Complete() {
		err = fmt.Errorf("refresh returned incomplete credentials")
	}
	if err != nil {
		a.metrics.refresh(RefreshFailure)
		a.logger.Warn().Err(err).Msg("token refresh failed")
		a.invalidate(rctx, func(current models.CredentialPair) bool {
			return current.RefreshToken == refreshToken
		}, events.ReasonRefreshFailed)
		return "", apperr.SessionExpired(err)
	}

	// Сохраняем только если пару не заменили вход или выход
	saved, err := a.store.SaveIf(rctx, func(current models.CredentialPair) bool {
		return current.RefreshToken == refreshToken
	}, pair)
	switch {
	case err != nil:
		// Сервер уже сменил пару, а сохранённая отозвана: сессию не продолжить
		a.metrics.refresh(RefreshFailure)
		a.logger.Error().Err(err).Msg("failed to persist refreshed tokens")
		a.invalidate(rctx, func(current models.CredentialPair) bool {
			return current.RefreshToken == refreshToken
		}, events.ReasonRefreshFailed)
		return "", apperr.SessionExpired(fmt.Errorf("persist refreshed tokens: %w", err))
	case !saved:
		current, ok := a.store.AccessToken(rctx)
		if !ok {
			a.metrics.refresh(RefreshFailure)
			return "", apperr.SessionExpired(errSessionEnded)
		}
		a.logger.Debug().Msg("credentials replaced during refresh, using current ones")
		a.metrics.refresh(RefreshSuccess)
		return current, nil
	}

	a.metrics.refresh(RefreshSuccess)
	a.bus.Publish(events.Event{Kind: events.TokensRefreshed})
	return pair.AccessToken, nil
}

// invalidate очищает хранилище, если в нём всё ещё лежит отвергнутая пара, и оповещает подписчиков
func (a *Authorizer) invalidate(ctx context.Context, match func(models.CredentialPair) bool, reason events.Reason) {
	cleared, err := a.store.ClearIf(context.WithoutCancel(ctx), match)
	if err != nil {
		// Не смогли очистить: всё равно оповещаем, чтобы интерфейс потребовал вход
		a.logger.Error().Err(err).Msg("failed to clear tokens")
		cleared = true
	}
	if !cleared {
		a.logger.Debug().Str("reason", string(reason)).Msg("newer credentials stored, session kept")
		return
	}

	a.logger.Info().Str("reason", string(reason)).Msg("session invalidated")
	a.metrics.invalidation(string(reason))
	a.bus.Publish(events.Invalidated(reason))
}
