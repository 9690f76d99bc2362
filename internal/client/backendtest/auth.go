package backendtest

import (
	"encoding/json"
	"net/http"

	"github.com/iudanet/camerannonces/internal/models"
	"github.com/iudanet/camerannonces/pkg/api"
)

type authResponse struct {
	envelope
	User   *models.Profile `json:"user,omitempty"`
	Tokens *api.TokensDTO  `json:"tokens,omitempty"`
}

// issueLocked выпускает пару токенов. Вызывается под b.mu.
func (b *Backend) issueLocked(u *user) (*api.TokensDTO, error) {
	access, err := b.tokens.accessToken(u.profile.ID, u.profile.PhoneNumber)
	if err != nil {
		return nil, err
	}
	refresh, err := b.tokens.refreshToken()
	if err != nil {
		return nil, err
	}

	b.access[access] = u.profile.PhoneNumber
	b.refresh[refresh] = u.profile.PhoneNumber

	return &api.TokensDTO{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int64(b.tokens.accessTTL.Seconds()),
		RefreshExpiresIn: int64(b.tokens.refreshTTL.Seconds()),
	}, nil
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Requête invalide"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[req.Telephone]
	if !ok || u.password != req.MotDePasse {
		writeJSON(w, http.StatusUnauthorized, envelope{Message: MsgBadCredentials})
		return
	}

	tokens, err := b.issueLocked(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Message: err.Error()})
		return
	}

	profile := u.profile
	writeJSON(w, http.StatusOK, authResponse{
		envelope: envelope{Success: true, Message: "Connexion réussie"},
		User:     &profile,
		Tokens:   tokens,
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Requête invalide"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.users[req.Telephone]; exists {
		writeJSON(w, http.StatusConflict, envelope{Message: MsgPhoneTaken})
		return
	}

	b.addUserLocked(req.Telephone, req.MotDePasse, req.Nom)
	u := b.users[req.Telephone]
	u.profile.Email = req.Email
	u.profile.City = req.Ville
	u.profile.District = req.Quartier

	tokens, err := b.issueLocked(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Message: err.Error()})
		return
	}

	profile := u.profile
	writeJSON(w, http.StatusCreated, authResponse{
		envelope: envelope{Success: true, Message: "Inscription réussie"},
		User:     &profile,
		Tokens:   tokens,
	})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Requête invalide"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	phone, ok := b.refresh[req.RefreshToken]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, envelope{Message: MsgInvalidRefresh})
		return
	}

	// Ротация: старый refresh token больше не действует
	delete(b.refresh, req.RefreshToken)

	tokens, err := b.issueLocked(b.users[phone])
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		envelope: envelope{Success: true},
		Tokens:   tokens,
	})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	profile := currentUser(r).profile
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		envelope
		User           *models.Profile `json:"user"`
		TokenExpiresIn int64           `json:"tokenExpiresIn"`
	}{
		envelope:       envelope{Success: true},
		User:           &profile,
		TokenExpiresIn: int64(b.tokens.accessTTL.Seconds()),
	})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	phone := currentUser(r).profile.PhoneNumber
	for token, owner := range b.access {
		if owner == phone {
			delete(b.access, token)
		}
	}
	for token, owner := range b.refresh {
		if owner == phone {
			delete(b.refresh, token)
		}
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Déconnexion réussie"})
}

func (b *Backend) handleCheckPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("telephone")

	b.mu.Lock()
	_, taken := b.users[phone]
	b.mu.Unlock()

	available := !taken
	writeJSON(w, http.StatusOK, struct {
		envelope
		Available *bool `json:"available"`
	}{
		envelope:  envelope{Success: true},
		Available: &available,
	})
}

func (b *Backend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Requête invalide"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[req.Telephone]
	if !ok {
		writeJSON(w, http.StatusNotFound, envelope{Message: MsgUserNotFound})
		return
	}
	u.password = req.NouveauMotDePasse

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Mot de passe réinitialisé"})
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Requête invalide"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u := currentUser(r)
	if u.password != req.AncienMotDePasse {
		// success:false на 200, как делает сервер
		writeJSON(w, http.StatusOK, envelope{Message: MsgWrongOldPasswd})
		return
	}
	u.password = req.NouveauMotDePasse

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Mot de passe modifié"})
}
