package session

import (
	"github.com/iudanet/camerannonces/internal/models"
)

// Status - состояние сессии
type Status string

const (
	StatusInitializing  Status = "initializing"
	StatusAnonymous     Status = "anonymous"
	StatusAuthenticated Status = "authenticated"
)

// State - снимок сессии. User != nil только в StatusAuthenticated.
type State struct {
	User      *models.Profile
	LastError error // последняя ошибка; сбрасывается следующим действием пользователя
	Status    Status
}

// IsAuthenticated сообщает, вошёл ли пользователь
func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated
}

// clone возвращает снимок, не разделяющий профиль с сессией
func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
