package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		err  error
		kind error
		name string
	}{
		{name: "validation", err: Validation("telephone", "bad"), kind: ErrValidation},
		{name: "network", err: Network(errors.New("dial tcp")), kind: ErrNetwork},
		{name: "server", err: Server(500, nil), kind: ErrServer},
		{name: "rejected", err: Rejected(400, "Mot de passe incorrect", "x"), kind: ErrAuthRejected},
		{name: "session expired", err: SessionExpired(nil), kind: ErrSessionExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)

			wrapped := fmt.Errorf("login failed: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
		})
	}
}

func TestError_KindsDoNotOverlap(t *testing.T) {
	err := Network(errors.New("timeout"))
	assert.NotErrorIs(t, err, ErrServer)
	assert.NotErrorIs(t, err, ErrSessionExpired)
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "Mot de passe incorrect", Rejected(400, "Mot de passe incorrect", "fallback").Error())
	assert.Equal(t, "fallback", Rejected(400, "", "fallback").Error())
	assert.Equal(t, MsgNetwork, Network(errors.New("dial")).Error())
	assert.Equal(t, MsgSessionExpired, SessionExpired(nil).Error())
}

func TestError_UnwrapCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Network(cause)
	assert.ErrorIs(t, err, cause)
}

func TestFieldOf(t *testing.T) {
	err := fmt.Errorf("register: %w", Validation("motDePasse", "too short"))
	assert.Equal(t, "motDePasse", FieldOf(err))
	assert.Equal(t, "", FieldOf(errors.New("plain")))
}
