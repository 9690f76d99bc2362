package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/camerannonces/internal/client/backendtest"
	"github.com/iudanet/camerannonces/internal/client/session"
	"github.com/iudanet/camerannonces/internal/client/transport"
	"github.com/iudanet/camerannonces/internal/config"
	"github.com/iudanet/camerannonces/internal/validation"
)

const (
	testPhone    = "237698123456"
	testPassword = "secret123"
)

func testConfig(t *testing.T, backend *backendtest.Backend) *config.Config {
	t.Helper()

	dir := t.TempDir()
	return &config.Config{
		ServerURL:      backend.URL(),
		DBPath:         filepath.Join(dir, "client.db"),
		CachePath:      filepath.Join(dir, "cache.db"),
		LogLevel:       "warn",
		MetricsFile:    filepath.Join(dir, "metrics.prom"),
		RequestTimeout: 2 * time.Second,
		CacheTTL:       time.Hour,
	}
}

func openApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	return a
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), &config.Config{}, zerolog.Nop())
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestApp_SessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	backend := backendtest.New(t)
	backend.AddUser(testPhone, testPassword, "Jean")
	cfg := testConfig(t, backend)

	a := openApp(t, cfg)
	_, err := a.Session.Login(ctx, validation.LoginForm{Phone: "698123456", Password: testPassword})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b := openApp(t, cfg)
	defer b.Close()

	state := b.Session.State()
	assert.Equal(t, session.StatusAuthenticated, state.Status)
	assert.Equal(t, "Jean", state.User.DisplayName)
}

func TestApp_RequestHeaders(t *testing.T) {
	backend := backendtest.New(t)
	a := openApp(t, testConfig(t, backend))
	defer a.Close()

	_, err := a.Catalog.Regions(context.Background())
	require.NoError(t, err)

	headers := backend.LastHeader("/cities/regions")
	assert.NotEmpty(t, headers.Get(transport.HeaderRequestID))
	assert.NotEmpty(t, headers.Get(transport.HeaderDeviceID))
	assert.Equal(t, "application/json", headers.Get(transport.HeaderAccept))
}

func TestApp_CatalogCached(t *testing.T) {
	ctx := context.Background()
	backend := backendtest.New(t)
	cfg := testConfig(t, backend)

	a := openApp(t, cfg)
	_, err := a.Catalog.Categories(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b := openApp(t, cfg)
	defer b.Close()
	_, err = b.Catalog.Categories(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.Calls("/categories"))
}

func TestApp_UnavailableCacheDegrades(t *testing.T) {
	backend := backendtest.New(t)
	cfg := testConfig(t, backend)
	cfg.CachePath = filepath.Join(t.TempDir(), "missing", "dir", "cache.db")

	a := openApp(t, cfg)
	defer a.Close()

	categories, err := a.Catalog.Categories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 3)
}

func TestApp_WritesMetrics(t *testing.T) {
	backend := backendtest.New(t)
	backend.AddUser(testPhone, testPassword, "Jean")
	cfg := testConfig(t, backend)

	a := openApp(t, cfg)
	_, err := a.Session.Login(context.Background(), validation.LoginForm{Phone: testPhone, Password: testPassword})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	content, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `annonces_client_requests_total{code="200",method="POST"} 1`)
}

func TestApp_EncryptedStore(t *testing.T) {
	ctx := context.Background()
	backend := backendtest.New(t)
	backend.AddUser(testPhone, testPassword, "Jean")
	cfg := testConfig(t, backend)
	cfg.StorePassphrase = "correct horse"

	a := openApp(t, cfg)
	_, err := a.Session.Login(ctx, validation.LoginForm{Phone: testPhone, Password: testPassword})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// Та же фраза: сессия восстанавливается
	b := openApp(t, cfg)
	assert.True(t, b.Session.State().IsAuthenticated())
	require.NoError(t, b.Close())

	// Другая фраза: токены не читаются, сессия анонимна
	cfg.StorePassphrase = "wrong horse"
	c := openApp(t, cfg)
	defer c.Close()
	assert.Equal(t, session.StatusAnonymous, c.Session.State().Status)
	_, ok := c.Store.AccessToken(ctx)
	assert.False(t, ok)
}
