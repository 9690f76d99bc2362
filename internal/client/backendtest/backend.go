// Package backendtest предоставляет фейковый сервер объявлений для тестов клиента.
//
// Сервер хранит пользователей и токены в памяти, выпускает настоящие JWT
// и позволяет подменять ответы, задерживать их и считать вызовы по пути.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/camerannonces/internal/models"
)

// PathPrefix - префикс API на тестовом сервере
const PathPrefix = "/api"

// Сообщения сервера
const (
	MsgBadCredentials  = "Numéro de téléphone ou mot de passe incorrect"
	MsgPhoneTaken      = "Ce numéro de téléphone est déjà utilisé"
	MsgInvalidRefresh  = "Refresh token invalide ou expiré"
	MsgUserNotFound    = "Utilisateur non trouvé"
	MsgWrongOldPasswd  = "Ancien mot de passe incorrect"
	MsgListingNotFound = "Annonce non trouvée"
)

type user struct {
	profile  models.Profile
	password string
}

type override struct {
	body      string
	status    int
	remaining int // 0 - без ограничения
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Backend - фейковый сервер
type Backend struct {
	t      testing.TB
	server *httptest.Server
	tokens *tokenIssuer

	mu        sync.Mutex
	users     map[string]*user // по телефону
	access    map[string]string
	refresh   map[string]string
	favorites map[string]map[int64]bool
	calls     map[string]int
	headers   map[string]http.Header
	overrides map[string]override
	delays    map[string]time.Duration
	nextID    int64

	categories []models.Category
	cities     []models.City
	regions    []string
	listings   []models.Listing
}

// New запускает тестовый сервер; он останавливается по завершении теста
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		t: t,
		tokens: &tokenIssuer{
			secret:     []byte("backendtest-secret"),
			accessTTL:  15 * time.Minute,
			refreshTTL: 7 * 24 * time.Hour,
		},
		users:     make(map[string]*user),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
		favorites: make(map[string]map[int64]bool),
		calls:     make(map[string]int),
		headers:   make(map[string]http.Header),
		overrides: make(map[string]override),
		delays:    make(map[string]time.Duration),
		nextID:    1,
	}
	b.seedCatalog()

	b.server = httptest.NewServer(b.router())
	t.Cleanup(b.server.Close)
	return b
}

func (b *Backend) router() http.Handler {
	r := mux.NewRouter()
	r.Use(b.recovery, b.control)

	a := r.PathPrefix(PathPrefix).Subrouter()
	a.HandleFunc("/auth/login", b.handleLogin).Methods(http.MethodPost)
	a.HandleFunc("/auth/register", b.handleRegister).Methods(http.MethodPost)
	a.HandleFunc("/auth/refresh", b.handleRefresh).Methods(http.MethodPost)
	a.HandleFunc("/auth/check-phone", b.handleCheckPhone).Methods(http.MethodGet)
	a.HandleFunc("/auth/reset-password", b.handleResetPassword).Methods(http.MethodPost)
	a.HandleFunc("/categories", b.handleCategories).Methods(http.MethodGet)
	a.HandleFunc("/categories/with-count", b.handleCategoriesWithCount).Methods(http.MethodGet)
	a.HandleFunc("/cities", b.handleCities).Methods(http.MethodGet)
	a.HandleFunc("/cities/regions", b.handleRegions).Methods(http.MethodGet)
	a.HandleFunc("/cities/{id:[0-9]+}/quartiers", b.handleQuartiers).Methods(http.MethodGet)
	a.HandleFunc("/listings", b.handleListings).Methods(http.MethodGet)
	a.HandleFunc("/listings/{id:[0-9]+}", b.handleListing).Methods(http.MethodGet)
	a.HandleFunc("/search", b.handleSearch).Methods(http.MethodPost)

	// Защищённые маршруты
	p := a.NewRoute().Subrouter()
	p.Use(b.requireAuth)
	p.HandleFunc("/auth/me", b.handleMe).Methods(http.MethodGet)
	p.HandleFunc("/auth/logout", b.handleLogout).Methods(http.MethodPost)
	p.HandleFunc("/auth/change-password", b.handleChangePassword).Methods(http.MethodPost)
	p.HandleFunc("/favorites", b.handleFavorites).Methods(http.MethodGet)
	p.HandleFunc("/favorites/{id:[0-9]+}", b.handleAddFavorite).Methods(http.MethodPost)
	p.HandleFunc("/favorites/{id:[0-9]+}", b.handleRemoveFavorite).Methods(http.MethodDelete)
	p.HandleFunc("/user/my-listings", b.handleMyListings).Methods(http.MethodGet)

	return r
}

// URL возвращает базовый URL API (с префиксом /api)
func (b *Backend) URL() string {
	return b.server.URL + PathPrefix
}

// Client возвращает HTTP клиент тестового сервера
func (b *Backend) Client() *http.Client {
	return b.server.Client()
}

// AddUser регистрирует пользователя напрямую
func (b *Backend) AddUser(phone, password, name string) models.Profile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(phone, password, name)
}

func (b *Backend) addUserLocked(phone, password, name string) models.Profile {
	u := &user{
		password: password,
		profile: models.Profile{
			ID:          b.nextID,
			DisplayName: name,
			PhoneNumber: phone,
			CurrentPlan: "GRATUIT",
			CreatedAt:   models.Timestamp{Time: time.Now().UTC().Truncate(time.Second)},
			IsActive:    true,
		},
	}
	b.nextID++
	b.users[phone] = u
	return u.profile
}

// Password возвращает текущий пароль пользователя
func (b *Backend) Password(phone string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u, ok := b.users[phone]; ok {
		return u.password
	}
	return ""
}

// ExpireAccessTokens отзывает все выданные access token, как если бы они истекли
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.access)
}

// RevokeRefreshTokens отзывает все refresh token
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.refresh)
}

// Close останавливает сервер до конца теста: запросы получают ошибку соединения
func (b *Backend) Close() {
	b.server.Close()
}

// Override подменяет ответы на path (без префикса /api). times == 0 - до Reset.
func (b *Backend) Override(path string, status int, body string, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[path] = override{status: status, body: body, remaining: times}
}

// Delay задерживает ответы на path
func (b *Backend) Delay(path string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[path] = d
}

// Reset снимает подмены и задержки для path
func (b *Backend) Reset(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.overrides, path)
	delete(b.delays, path)
}

// Calls возвращает число запросов к path
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// LastHeader возвращает заголовки последнего запроса к path
func (b *Backend) LastHeader(path string) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[path]
}

// Favorites возвращает ID избранных объявлений пользователя
func (b *Backend) Favorites(phone string) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ids []int64
	for _, l := range b.listings {
		if b.favorites[phone][l.ID] {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

func (b *Backend) userByAccess(token string) (*user, bool) {
	if _, err := b.tokens.validate(token); err != nil {
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	phone, ok := b.access[token]
	if !ok {
		return nil, false
	}
	u, ok := b.users[phone]
	return u, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// AddListing добавляет объявление в каталог
func (b *Backend) AddListing(l models.Listing) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listings = append(b.listings, l)
}
