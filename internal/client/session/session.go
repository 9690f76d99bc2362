// Package session реализует конечный автомат сессии клиента.
//
// Session - единственный владелец состояния входа. Переходы выполняются последовательно;
// наблюдатели получают снимки через Watch и не могут задержать переход.
// Session подписывается на events.SessionInvalidated и переходит в StatusAnonymous,
// когда конвейер запросов не смог восстановить сессию.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iudanet/camerannonces/internal/apperr"
	"github.com/iudanet/camerannonces/internal/client/events"
	"github.com/iudanet/camerannonces/internal/models"
	"github.com/iudanet/camerannonces/internal/validation"
)

// ErrNotAuthenticated возвращается операциями, которым нужен вход
var ErrNotAuthenticated = errors.New("not authenticated")

// Auth - операции аутентификации, которые использует Session
type Auth interface {
	Login(ctx context.Context, form validation.LoginForm) (*models.Profile, error)
	Register(ctx context.Context, form validation.RegisterForm) (*models.Profile, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*models.Profile, error)
	CachedProfile(ctx context.Context) (*models.Profile, bool)
	IsLoggedIn(ctx context.Context) bool
	ClearSession(ctx context.Context) error
}

// Session хранит состояние входа
type Session struct {
	auth   Auth
	bus    *events.Bus
	logger zerolog.Logger

	// opMu сериализует переходы
	opMu sync.Mutex

	mu       sync.RWMutex
	state    State
	watchers map[int]chan State
	nextID   int
	started  bool
	closed   bool

	unsubscribe func()
	listenDone  chan struct{}
}

// New создаёт сессию в состоянии StatusInitializing
func New(auth Auth, bus *events.Bus, logger zerolog.Logger) *Session {
	return &Session{
		auth:     auth,
		bus:      bus,
		logger:   logger.With().Str("component", "session").Logger(),
		state:    State{Status: StatusInitializing},
		watchers: make(map[int]chan State),
	}
}

// Start подписывается на инвалидацию и выполняет начальный переход.
// После возврата сессия всегда в StatusAuthenticated или StatusAnonymous.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session is closed")
	}
	if !s.started {
		s.started = true
		ch, cancel := s.bus.Subscribe()
		s.unsubscribe = cancel
		s.listenDone = make(chan struct{})
		go s.listen(ch)
	}
	s.mu.Unlock()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	cached, hasUser := s.auth.CachedProfile(ctx)
	loggedIn := s.auth.IsLoggedIn(ctx)

	if !hasUser || !loggedIn {
		// Неполная сессия: токены без профиля или профиль без токенов
		if hasUser || loggedIn {
			s.clearStored(ctx)
		}
		s.setState(State{Status: StatusAnonymous})
		return nil
	}

	s.logger.Debug().Int64("user_id", cached.ID).Msg("restoring session")

	profile, err := s.auth.Profile(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to restore session")
		s.clearStored(ctx)
		next := State{Status: StatusAnonymous}
		// Истёкшую сессию отмечает обработчик инвалидации
		if !errors.Is(err, apperr.ErrSessionExpired) {
			next.LastError = err
		}
		s.setState(next)
		return nil
	}

	s.setState(State{Status: StatusAuthenticated, User: profile})
	return nil
}

// Login выполняет вход. При ошибке состояние не меняется, ошибка сохраняется в LastError.
func (s *Session) Login(ctx context.Context, form validation.LoginForm) (*models.Profile, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.resetError()

	profile, err := s.auth.Login(ctx, form)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.setState(State{Status: StatusAuthenticated, User: profile})
	return profile, nil
}

// Register создаёт аккаунт и входит в него
func (s *Session) Register(ctx context.Context, form validation.RegisterForm) (*models.Profile, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.resetError()

	profile, err := s.auth.Register(ctx, form)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.setState(State{Status: StatusAuthenticated, User: profile})
	return profile, nil
}

// Logout всегда переводит сессию в StatusAnonymous.
// Ошибка возвращается только если не удалось очистить локальное хранилище.
func (s *Session) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.auth.Logout(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("logout failed to clear local session")
	}

	s.setState(State{Status: StatusAnonymous})
	return err
}

// RefreshProfile перезагружает профиль вошедшего пользователя
func (s *Session) RefreshProfile(ctx context.Context) (*models.Profile, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.resetError()

	if !s.State().IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	profile, err := s.auth.Profile(ctx)
	if err != nil {
		// SessionExpired обрабатывается подпиской на инвалидацию
		if !errors.Is(err, apperr.ErrSessionExpired) {
			s.fail(err)
		}
		return nil, err
	}

	s.mu.Lock()
	if s.state.Status == StatusAuthenticated {
		s.state.User = profile
		s.notifyLocked()
	}
	s.mu.Unlock()
	return profile, nil
}

// DismissError сбрасывает LastError
func (s *Session) DismissError() {
	s.resetError()
}

// State возвращает текущий снимок
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Watch возвращает канал снимков, начиная с текущего.
// Медленный наблюдатель пропускает промежуточные снимки, но всегда видит последний.
func (s *Session) Watch() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	ch <- s.state.clone()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if w, ok := s.watchers[id]; ok {
				delete(s.watchers, id)
				close(w)
			}
		})
	}
}

// Close отписывается от шины и закрывает каналы наблюдателей
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe, done := s.unsubscribe, s.listenDone
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		<-done
	}
}

func (s *Session) listen(ch <-chan events.Event) {
	defer close(s.listenDone)

	for ev := range ch {
		if ev.Kind == events.SessionInvalidated {
			s.invalidated(ev.Reason)
		}
	}
}

func (s *Session) invalidated(reason events.Reason) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	ctx := context.Background()

	// Событие от прежней пары: после него пользователь уже вошёл заново
	if s.auth.IsLoggedIn(ctx) {
		s.logger.Debug().Str("reason", string(reason)).Msg("ignoring invalidation of replaced credentials")
		return
	}

	s.logger.Info().Str("reason", string(reason)).Msg("session invalidated")
	s.setState(State{Status: StatusAnonymous, LastError: apperr.SessionExpired(errors.New(string(reason)))})
}

func (s *Session) clearStored(ctx context.Context) {
	if err := s.auth.ClearSession(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear stored session")
	}
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	s.notifyLocked()
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastError = err
	s.notifyLocked()
}

func (s *Session) resetError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LastError == nil {
		return
	}
	s.state.LastError = nil
	s.notifyLocked()
}

// notifyLocked отправляет снимок наблюдателям без блокировки. Вызывается под s.mu.
func (s *Session) notifyLocked() {
	if s.closed {
		return
	}
	snapshot := s.state.clone()
	for _, ch := range s.watchers {
		// Вытесняем непрочитанный снимок
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
