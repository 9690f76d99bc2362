package session

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/camerannonces/internal/apperr"
	clientapi "github.com/iudanet/camerannonces/internal/client/api"
	"github.com/iudanet/camerannonces/internal/client/auth"
	"github.com/iudanet/camerannonces/internal/client/backendtest"
	"github.com/iudanet/camerannonces/internal/client/events"
	"github.com/iudanet/camerannonces/internal/client/storage/boltdb"
	"github.com/iudanet/camerannonces/internal/client/transport"
	"github.com/iudanet/camerannonces/internal/models"
	"github.com/iudanet/camerannonces/internal/validation"
)

const (
	testPhone    = "237698123456"
	testPassword = "secret1"
)

type fixture struct {
	backend *backendtest.Backend
	store   *auth.TokenStore
	svc     *auth.Service
	bus     *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := backendtest.New(t)

	st, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	store := auth.NewTokenStore(st, zerolog.Nop())

	p, err := transport.NewPipeline(backend.URL(),
		transport.WithHTTPClient(backend.Client()),
		transport.WithTimeout(2*time.Second),
	)
	require.NoError(t, err)
	p.UseRequest(transport.JSONHeaders())

	client := clientapi.NewClient(p)
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	authz := transport.NewAuthorizer(store, client.RefreshCredentials, bus, zerolog.Nop())
	authz.Install(p)

	return &fixture{
		backend: backend,
		store:   store,
		svc:     auth.NewService(client, store, authz, zerolog.Nop()),
		bus:     bus,
	}
}

func (f *fixture) newSession(t *testing.T) *Session {
	t.Helper()

	s := New(f.svc, f.bus, zerolog.Nop())
	t.Cleanup(s.Close)
	return s
}

func (f *fixture) startedSession(t *testing.T) *Session {
	t.Helper()

	s := f.newSession(t)
	require.NoError(t, s.Start(context.Background()))
	return s
}

func loginForm() validation.LoginForm {
	return validation.LoginForm{Phone: testPhone, Password: testPassword}
}

func TestSession_InitialState(t *testing.T) {
	f := newFixture(t)
	s := f.newSession(t)

	state := s.State()
	assert.Equal(t, StatusInitializing, state.Status)
	assert.Nil(t, state.User)
}

func TestSession_StartAnonymous(t *testing.T) {
	f := newFixture(t)
	s := f.startedSession(t)

	assert.Equal(t, StatusAnonymous, s.State().Status)
	assert.Equal(t, 0, f.backend.Calls("/auth/me"))
}

func TestSession_StartRestoresSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")

	_, err := f.svc.Login(ctx, loginForm())
	require.NoError(t, err)

	// Устаревший кэш профиля перезаписывается ответом сервера
	require.NoError(t, f.store.SaveUser(ctx, &models.Profile{ID: 1, DisplayName: "Ancien nom"}))

	s := f.startedSession(t)
	state := s.State()
	require.Equal(t, StatusAuthenticated, state.Status)
	assert.Equal(t, "Jean", state.User.DisplayName)

	cached, ok := f.store.User(ctx)
	require.True(t, ok)
	assert.Equal(t, "Jean", cached.DisplayName)
}

func TestSession_StartRefreshesExpiredAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")

	_, err := f.svc.Login(ctx, loginForm())
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()

	s := f.startedSession(t)
	assert.Equal(t, StatusAuthenticated, s.State().Status)
	assert.Equal(t, 1, f.backend.Calls("/auth/refresh"))
}

// Устаревший refresh token при запуске: сессия анонимна, хранилище очищено
func TestSession_StartWithStaleRefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.store.Save(ctx, &models.CredentialPair{AccessToken: "A-old", RefreshToken: "R-old"}))
	require.NoError(t, f.store.SaveUser(ctx, &models.Profile{ID: 1, DisplayName: "Jean"}))

	s := f.startedSession(t)

	state := s.State()
	assert.Equal(t, StatusAnonymous, state.Status)
	assert.Nil(t, state.User)
	assert.False(t, f.store.IsLoggedIn(ctx))
	_, ok := f.store.User(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, f.backend.Calls("/auth/refresh"))

	require.Eventually(t, func() bool {
		return apperrIsExpired(s.State().LastError)
	}, time.Second, 10*time.Millisecond)
}

func TestSession_StartProfileFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")

	_, err := f.svc.Login(ctx, loginForm())
	require.NoError(t, err)
	f.backend.Override("/auth/me", http.StatusBadGateway, "", 0)

	s := f.startedSession(t)
	state := s.State()
	assert.Equal(t, StatusAnonymous, state.Status)
	assert.False(t, f.store.IsLoggedIn(ctx))
	require.Error(t, state.LastError)
	assert.ErrorIs(t, state.LastError, apperr.ErrServer)
	assert.False(t, apperrIsExpired(state.LastError))
}

func TestSession_StartNetworkFailureIsReported(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")

	_, err := f.svc.Login(ctx, loginForm())
	require.NoError(t, err)
	f.backend.Close()

	s := f.startedSession(t)
	state := s.State()
	assert.Equal(t, StatusAnonymous, state.Status)
	assert.ErrorIs(t, state.LastError, apperr.ErrNetwork)
}

func TestSession_StartWithTokensButNoProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Save(ctx, &models.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}))

	s := f.startedSession(t)
	assert.Equal(t, StatusAnonymous, s.State().Status)
	assert.False(t, f.store.IsLoggedIn(ctx))
	assert.Equal(t, 0, f.backend.Calls("/auth/me"))
}

func TestSession_Login(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")
	s := f.startedSession(t)

	profile, err := s.Login(context.Background(), loginForm())
	require.NoError(t, err)

	state := s.State()
	assert.Equal(t, StatusAuthenticated, state.Status)
	assert.Equal(t, profile.ID, state.User.ID)
	assert.NoError(t, state.LastError)
}

func TestSession_LoginFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")
	s := f.startedSession(t)

	_, err := s.Login(context.Background(), validation.LoginForm{Phone: testPhone, Password: "wrongpass"})
	require.Error(t, err)

	state := s.State()
	assert.Equal(t, StatusAnonymous, state.Status)
	assert.ErrorIs(t, state.LastError, apperr.ErrAuthRejected)

	// Следующее действие пользователя сбрасывает ошибку
	_, err = s.Login(context.Background(), loginForm())
	require.NoError(t, err)
	assert.NoError(t, s.State().LastError)
}

func TestSession_LoginValidationError(t *testing.T) {
	f := newFixture(t)
	s := f.startedSession(t)

	_, err := s.Login(context.Background(), validation.LoginForm{Phone: "12345", Password: testPassword})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, validation.FieldPhone, apperr.FieldOf(s.State().LastError))

	s.DismissError()
	assert.NoError(t, s.State().LastError)
}

func TestSession_Register(t *testing.T) {
	f := newFixture(t)
	s := f.startedSession(t)

	profile, err := s.Register(context.Background(), validation.RegisterForm{
		Name:            "Jean",
		Phone:           "698123456",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, testPhone, profile.PhoneNumber)
	assert.True(t, s.State().IsAuthenticated())
}

func TestSession_Logout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")
	s := f.startedSession(t)

	_, err := s.Login(ctx, loginForm())
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx))
	state := s.State()
	assert.Equal(t, StatusAnonymous, state.Status)
	assert.Nil(t, state.User)
	assert.False(t, f.store.IsLoggedIn(ctx))
}

// Выход при ошибке сервера всё равно завершает сессию
func TestSession_LogoutServerFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")
	s := f.startedSession(t)

	_, err := s.Login(ctx, loginForm())
	require.NoError(t, err)

	f.backend.Override("/auth/logout", http.StatusServiceUnavailable, "", 0)

	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, StatusAnonymous, s.State().Status)
	assert.False(t, f.store.IsLoggedIn(ctx))
}

func TestSession_InvalidatedByPipeline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")
	s := f.startedSession(t)

	_, err := s.Login(ctx, loginForm())
	require.NoError(t, err)

	f.backend.ExpireAccessTokens()
	f.backend.RevokeRefreshTokens()

	_, err = s.RefreshProfile(ctx)
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)

	require.Eventually(t, func() bool {
		state := s.State()
		return state.Status == StatusAnonymous && apperrIsExpired(state.LastError)
	}, time.Second, 10*time.Millisecond)

	state := s.State()
	assert.Nil(t, state.User)
	assert.Equal(t, apperr.MsgSessionExpired, state.LastError.Error())
}

// Инвалидация, пришедшая после нового входа, не разлогинивает пользователя
func TestSession_StaleInvalidationIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")
	s := f.startedSession(t)

	_, err := s.Login(ctx, loginForm())
	require.NoError(t, err)

	f.bus.Publish(events.Invalidated(events.ReasonRefreshFailed))

	// Даём слушателю обработать событие
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StatusAuthenticated, s.State().Status)
}

func TestSession_InvalidationWhileAnonymous(t *testing.T) {
	f := newFixture(t)
	s := f.startedSession(t)

	f.bus.Publish(events.Invalidated(events.ReasonNoRefreshToken))

	require.Eventually(t, func() bool {
		return apperrIsExpired(s.State().LastError)
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, StatusAnonymous, s.State().Status)
}

func TestSession_RefreshProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")
	s := f.startedSession(t)

	_, err := s.RefreshProfile(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = s.Login(ctx, loginForm())
	require.NoError(t, err)

	profile, err := s.RefreshProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jean", profile.DisplayName)
	assert.True(t, s.State().IsAuthenticated())
}

func TestSession_Watch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")
	s := f.startedSession(t)

	ch, cancel := s.Watch()
	defer cancel()

	initial := <-ch
	assert.Equal(t, StatusAnonymous, initial.Status)

	_, err := s.Login(ctx, loginForm())
	require.NoError(t, err)

	select {
	case st := <-ch:
		assert.Equal(t, StatusAuthenticated, st.Status)
		require.NotNil(t, st.User)
		// Снимок не разделяет профиль с сессией
		st.User.DisplayName = "changed"
		assert.Equal(t, "Jean", s.State().User.DisplayName)
	case <-time.After(time.Second):
		t.Fatal("state not delivered")
	}
}

// Наблюдатель, который не читает канал, не блокирует переходы
func TestSession_StalledWatcher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")
	s := f.startedSession(t)

	_, cancel := s.Watch()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 3 {
			_, _ = s.Login(ctx, loginForm())
			_ = s.Logout(ctx)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transitions blocked by stalled watcher")
	}
}

func TestSession_WatchSeesLatestState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.AddUser(testPhone, testPassword, "Jean")
	s := f.startedSession(t)

	ch, cancel := s.Watch()
	defer cancel()

	_, err := s.Login(ctx, loginForm())
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx))

	// Промежуточные снимки вытеснены, последний доступен
	assert.Equal(t, StatusAnonymous, (<-ch).Status)
}

func TestSession_Close(t *testing.T) {
	f := newFixture(t)
	s := f.startedSession(t)

	ch, cancel := s.Watch()
	defer cancel()
	<-ch

	s.Close()
	s.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Error(t, s.Start(context.Background()))
}

func apperrIsExpired(err error) bool {
	return err != nil && errors.Is(err, apperr.ErrSessionExpired)
}
