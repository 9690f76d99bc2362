package backendtest

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

type ctxKey int

const userKey ctxKey = iota

// recovery возвращает 500 вместо падения тестового сервера
func (b *Backend) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				b.t.Logf("backendtest: panic on %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "Erreur interne du serveur"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// control считает вызовы и применяет подмены ответов и задержки
func (b *Backend) control(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, PathPrefix)

		b.mu.Lock()
		b.calls[path]++
		b.headers[path] = r.Header.Clone()
		delay := b.delays[path]
		ov, overridden := b.overrides[path]
		if overridden && ov.remaining > 0 {
			ov.remaining--
			if ov.remaining == 0 {
				delete(b.overrides, path)
			} else {
				b.overrides[path] = ov
			}
		}
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if overridden {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(ov.status)
			_, _ = w.Write([]byte(ov.body))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth пропускает только запросы с действующим access token
func (b *Backend) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Ожидаем формат: "Bearer <token>"
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeJSON(w, http.StatusUnauthorized, envelope{Message: "Token manquant"})
			return
		}

		u, ok := b.userByAccess(parts[1])
		if !ok {
			writeJSON(w, http.StatusUnauthorized, envelope{Message: "Token invalide ou expiré"})
			return
		}

		ctx := context.WithValue(r.Context(), userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) *user {
	u, _ := r.Context().Value(userKey).(*user)
	return u
}
