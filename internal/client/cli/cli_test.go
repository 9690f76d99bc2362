package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/camerannonces/internal/apperr"
	"github.com/iudanet/camerannonces/internal/client/app"
	"github.com/iudanet/camerannonces/internal/client/backendtest"
	"github.com/iudanet/camerannonces/internal/client/iocli"
	"github.com/iudanet/camerannonces/internal/config"
)

const (
	testPhone    = "237698123456"
	testPassword = "secret123"
)

// console собирает вывод и отдаёт заготовленный ввод
type console struct {
	mu        sync.Mutex
	out       strings.Builder
	inputs    []string
	passwords []string
}

func (c *console) next(queue *[]string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(*queue) == 0 {
		return "", io.EOF
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v, nil
}

func (c *console) mock() *iocli.IOMock {
	return &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			c.mu.Lock()
			defer c.mu.Unlock()
			fmt.Fprintln(&c.out, a...)
		},
		PrintfFunc: func(format string, a ...any) {
			c.mu.Lock()
			defer c.mu.Unlock()
			fmt.Fprintf(&c.out, format, a...)
		},
		WriteFunc: func(p []byte) (int, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.out.Write(p)
		},
		ReadInputFunc: func(string) (string, error) {
			return c.next(&c.inputs)
		},
		ReadPasswordFunc: func(string) (string, error) {
			return c.next(&c.passwords)
		},
	}
}

func (c *console) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

type harness struct {
	backend *backendtest.Backend
	cfg     config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	backend := backendtest.New(t)
	dir := t.TempDir()
	return &harness{
		backend: backend,
		cfg: config.Config{
			ServerURL:      backend.URL(),
			DBPath:         filepath.Join(dir, "client.db"),
			CachePath:      filepath.Join(dir, "cache.db"),
			LogLevel:       "error",
			RequestTimeout: 2 * time.Second,
			CacheTTL:       time.Hour,
		},
	}
}

// run выполняет одну команду в отдельном экземпляре Cli, как отдельный запуск процесса
func (h *harness) run(t *testing.T, con *console, args ...string) (string, error) {
	t.Helper()

	if con == nil {
		con = &console{}
	}
	cfg := h.cfg
	c := New(con.mock(), &cfg, app.New, BuildInfo{Version: "1.2.3", BuildDate: "2025-06-01", GitCommit: "abc123"}, WithLogOutput(io.Discard))
	err := c.Execute(context.Background(), args)
	return con.String(), err
}

func (h *harness) login(t *testing.T) {
	t.Helper()

	h.backend.AddUser(testPhone, testPassword, "Jean")
	_, err := h.run(t, &console{passwords: []string{testPassword}}, "login", "--phone", testPhone)
	require.NoError(t, err)
}

func TestCli_Version(t *testing.T) {
	con := &console{}
	// Пустая конфигурация: version не открывает клиент
	c := New(con.mock(), &config.Config{}, app.New, BuildInfo{Version: "1.2.3", BuildDate: "2025-06-01", GitCommit: "abc123"})

	require.NoError(t, c.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, con.String(), "Version:    1.2.3")
	assert.Contains(t, con.String(), "Git Commit: abc123")
}

func TestCli_InvalidConfig(t *testing.T) {
	h := newHarness(t)
	h.cfg.ServerURL = "ftp://annonces.cm"

	out, err := h.run(t, nil, "regions")
	assert.ErrorContains(t, err, "invalid configuration")
	assert.Contains(t, out, "Erreur:")
}

func TestCli_LoginAndStatus(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser(testPhone, testPassword, "Jean")

	con := &console{inputs: []string{"698123456"}, passwords: []string{testPassword}}
	out, err := h.run(t, con, "login")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Connexion réussie. Bienvenue, Jean!")

	out, err = h.run(t, nil, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Statut: connecté")
	assert.Contains(t, out, "Jean (237698123456)")
	assert.Contains(t, out, "Jeton d'accès valide encore")
}

func TestCli_StatusAnonymous(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, nil, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Statut: non connecté")
	assert.Equal(t, 0, h.backend.Calls("/auth/me"))
}

func TestCli_LoginValidationError(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, &console{passwords: []string{testPassword}}, "login", "--phone", "12345")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, out, "✗ telephone:")
	assert.Equal(t, 0, h.backend.Calls("/auth/login"))
}

func TestCli_LoginRejected(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser(testPhone, testPassword, "Jean")

	out, err := h.run(t, &console{passwords: []string{"wrongpass"}}, "login", "-p", testPhone)
	assert.ErrorIs(t, err, apperr.ErrAuthRejected)
	assert.Contains(t, out, "Erreur: "+backendtest.MsgBadCredentials)
}

func TestCli_LoginInputClosed(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, &console{}, "login")
	assert.ErrorIs(t, err, io.EOF)
}

func TestCli_Register(t *testing.T) {
	h := newHarness(t)

	con := &console{passwords: []string{testPassword, testPassword}}
	out, err := h.run(t, con, "register", "--name", "Marie", "--phone", "677001122", "--city", "Douala")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compte créé. Bienvenue, Marie!")

	out, err = h.run(t, nil, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Profil ===")
	assert.Contains(t, out, "Téléphone: 237677001122")
}

func TestCli_RegisterPasswordMismatch(t *testing.T) {
	h := newHarness(t)

	con := &console{inputs: []string{"Marie", "677001122"}, passwords: []string{testPassword, "different"}}
	out, err := h.run(t, con, "register")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, out, "✗ ")
	assert.Equal(t, 0, h.backend.Calls("/auth/register"))
}

func TestCli_Logout(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out, err := h.run(t, nil, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Déconnecté")
	assert.Equal(t, 1, h.backend.Calls("/auth/logout"))

	out, err = h.run(t, nil, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Statut: non connecté")
}

func TestCli_LogoutServerFailure(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.Override("/auth/logout", http.StatusInternalServerError, "", 0)

	out, err := h.run(t, nil, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Déconnecté")

	out, _ = h.run(t, nil, "status")
	assert.Contains(t, out, "Statut: non connecté")
}

func TestCli_WhoamiRequiresLogin(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, nil, "whoami")
	assert.Error(t, err)
	assert.Contains(t, out, msgNotLoggedIn)
}

// Истёкшая сессия во время команды: сообщение печатается ровно один раз
func TestCli_SessionExpiredDuringCommand(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.backend.Override("/favorites", http.StatusUnauthorized, `{"message":"Token invalide"}`, 0)
	h.backend.RevokeRefreshTokens()

	out, err := h.run(t, nil, "favorites", "list")
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)
	assert.Equal(t, 1, strings.Count(out, apperr.MsgSessionExpired))

	h.backend.Reset("/favorites")
	out, err = h.run(t, nil, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Statut: non connecté")
}

func TestCli_SessionExpiredAtStartup(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.backend.ExpireAccessTokens()
	h.backend.RevokeRefreshTokens()

	out, err := h.run(t, nil, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Statut: non connecté")
	assert.LessOrEqual(t, strings.Count(out, apperr.MsgSessionExpired), 1)
}

func TestCli_RestoreFailureIsShown(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.backend.Override("/auth/me", http.StatusBadGateway, "", 0)

	out, err := h.run(t, nil, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Erreur: "+apperr.MsgServer)
	assert.Contains(t, out, "Statut: non connecté")
	assert.NotContains(t, out, apperr.MsgSessionExpired)
}

func TestCli_CheckPhone(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser(testPhone, testPassword, "Jean")

	out, err := h.run(t, nil, "check-phone", "698123456")
	require.NoError(t, err)
	assert.Contains(t, out, "✗ Numéro déjà utilisé")

	out, err = h.run(t, nil, "check-phone", "677001122")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Numéro disponible")

	_, err = h.run(t, nil, "check-phone")
	assert.Error(t, err)
}

func TestCli_ResetPassword(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser(testPhone, testPassword, "Jean")

	con := &console{passwords: []string{"nouveau1", "nouveau1"}}
	out, err := h.run(t, con, "reset-password", "--phone", testPhone)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Mot de passe réinitialisé")
	assert.Equal(t, "nouveau1", h.backend.Password(testPhone))

	con = &console{passwords: []string{"nouveau1", "nouveau1"}}
	out, err = h.run(t, con, "reset-password", "--phone", "677001122")
	assert.ErrorIs(t, err, apperr.ErrAuthRejected)
	assert.Contains(t, out, backendtest.MsgUserNotFound)
}

func TestCli_ChangePassword(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, nil, "change-password")
	assert.True(t, errors.Is(err, errNotLoggedIn))

	h.login(t)

	con := &console{passwords: []string{"mauvais1", "nouveau1", "nouveau1"}}
	out, err := h.run(t, con, "change-password")
	assert.ErrorIs(t, err, apperr.ErrAuthRejected)
	assert.Contains(t, out, backendtest.MsgWrongOldPasswd)

	con = &console{passwords: []string{testPassword, "nouveau1", "nouveau1"}}
	out, err = h.run(t, con, "change-password")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Mot de passe modifié")
	assert.Equal(t, "nouveau1", h.backend.Password(testPhone))
}

func TestCli_Categories(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, nil, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Immobilier")
	assert.Contains(t, out, "Électronique")

	// Второй запуск читает кэш
	_, err = h.run(t, nil, "categories")
	require.NoError(t, err)
	assert.Equal(t, 1, h.backend.Calls("/categories"))

	_, err = h.run(t, nil, "categories", "--refresh")
	require.NoError(t, err)
	assert.Equal(t, 2, h.backend.Calls("/categories"))

	out, err = h.run(t, nil, "categories", "--count")
	require.NoError(t, err)
	assert.Contains(t, out, "Véhicules (1)")
}

func TestCli_CitiesAndRegions(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, nil, "cities")
	require.NoError(t, err)
	assert.Contains(t, out, "Douala (Littoral)\n  - Akwa\n  - Bonapriso\n")
	assert.Contains(t, out, "Yaoundé (Centre)")

	out, err = h.run(t, nil, "regions")
	require.NoError(t, err)
	assert.Equal(t, "Centre\nLittoral\n", out)
}

func TestCli_Listings(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, nil, "listings", "--size", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Appartement 3 pièces à Bonapriso")
	assert.Contains(t, out, "250 000 FCFA")
	assert.Contains(t, out, "[URGENT]")
	assert.Contains(t, out, "Page 1/2, 3 annonces")
	assert.NotContains(t, out, "iPhone")
}

func TestCli_Listing(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, nil, "listing", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Toyota Corolla 2015 ===")
	assert.Contains(t, out, "Prix:      6 500 000 FCFA (négociable)")
	assert.Contains(t, out, "Catégorie: Véhicules")
	assert.Contains(t, out, "Lieu:      Yaoundé, Bastos")
	assert.Contains(t, out, "Publié:    01/06/2025")

	out, err = h.run(t, nil, "listing", "99")
	assert.ErrorIs(t, err, apperr.ErrAuthRejected)
	assert.Contains(t, out, "Erreur: "+backendtest.MsgListingNotFound)

	_, err = h.run(t, nil, "listing", "abc")
	assert.ErrorContains(t, err, "invalid listing id")
}

func TestCli_Search(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, nil, "search", "iphone")
	require.NoError(t, err)
	assert.Contains(t, out, "iPhone 13 Pro")
	assert.Contains(t, out, "[PREMIUM]")
	assert.NotContains(t, out, "Toyota")

	out, err = h.run(t, nil, "search", "--city", "Douala", "--max-price", "100000")
	require.NoError(t, err)
	assert.Contains(t, out, "Aucune annonce trouvée.")
}

func TestCli_Favorites(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, nil, "favorites", "list")
	assert.Error(t, err)
	assert.Contains(t, out, msgNotLoggedIn)

	h.login(t)

	out, err = h.run(t, nil, "favorites", "add", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Annonce 3 ajoutée aux favoris")

	out, err = h.run(t, nil, "favorites", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "iPhone 13 Pro")

	out, err = h.run(t, nil, "favorites", "remove", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Annonce 3 retirée des favoris")
	assert.Empty(t, h.backend.Favorites(testPhone))

	out, err = h.run(t, nil, "my-listings")
	require.NoError(t, err)
	assert.Contains(t, out, "Aucune annonce trouvée.")
}

// Истёкший access token обновляется прозрачно для команды
func TestCli_TransparentRefresh(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.ExpireAccessTokens()

	out, err := h.run(t, nil, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Nom:       Jean")
	assert.Equal(t, 1, h.backend.Calls("/auth/refresh"))
	assert.NotContains(t, out, apperr.MsgSessionExpired)
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		want   string
		amount int64
	}{
		{amount: 0, want: "0 FCFA"},
		{amount: 950, want: "950 FCFA"},
		{amount: 1000, want: "1 000 FCFA"},
		{amount: 250000, want: "250 000 FCFA"},
		{amount: 6500000, want: "6 500 000 FCFA"},
		{amount: -12000, want: "-12 000 FCFA"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPrice(tt.amount))
		})
	}
}
