// Package api содержит типизированного клиента REST API сервера объявлений.
//
// Все вызовы идут через transport.Pipeline; ответы декодируются в конверты из pkg/api
// и приводятся к видам ошибок apperr.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/camerannonces/internal/apperr"
	"github.com/iudanet/camerannonces/internal/client/transport"
	"github.com/iudanet/camerannonces/pkg/api"
)

// Сообщения по умолчанию, если сервер не прислал своего
const (
	FallbackLogin          = "Erreur lors de la connexion"
	FallbackRegister       = "Erreur lors de l'inscription"
	FallbackRefresh        = "Erreur lors du rafraîchissement"
	FallbackProfile        = "Erreur lors de la récupération du profil"
	FallbackCheckPhone     = "Impossible de vérifier le numéro"
	FallbackResetPassword  = "Erreur lors de la réinitialisation"
	FallbackChangePassword = "Erreur lors du changement de mot de passe"
	FallbackLogout         = "Erreur lors de la déconnexion"
	FallbackCatalog        = "Impossible de charger les données"
	FallbackListings       = "Impossible de charger les annonces"
	FallbackListing        = "Impossible de charger l'annonce"
	FallbackSearch         = "Impossible de rechercher"
	FallbackFavorites      = "Impossible de mettre à jour les favoris"
)

// Doer выполняет вызов через конвейер
type Doer interface {
	Do(ctx context.Context, call transport.Call) (*transport.Response, error)
}

// envelope - типизированный ответ сервера
type envelope interface {
	Succeeded() bool
	Reason() string
	Validate() error
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	pipeline Doer
}

// NewClient создает новый API клиент поверх конвейера
func NewClient(pipeline Doer) *Client {
	return &Client{pipeline: pipeline}
}

// call выполняет вызов и декодирует ответ в out
func (c *Client) call(ctx context.Context, call transport.Call, out envelope, fallback string) error {
	resp, err := c.pipeline.Do(ctx, call)
	if err != nil {
		return classify(err)
	}
	return decode(resp, out, fallback)
}

// jsonCall выполняет вызов с JSON телом
func (c *Client) jsonCall(ctx context.Context, call transport.Call, body any, out envelope, fallback string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	call.Body = data
	return c.call(ctx, call, out, fallback)
}

// classify приводит ошибку конвейера к виду apperr
func classify(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Network(err)
}

// decode разбирает ответ:
// 5xx или тело неверной формы - ErrServer, 4xx или success:false - ErrAuthRejected.
func decode(resp *transport.Response, out envelope, fallback string) error {
	if resp.StatusCode >= 500 {
		return apperr.Server(resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if resp.StatusCode >= 400 {
		var errResp api.ErrorResponse
		// Тело ошибки может быть не JSON; тогда используем fallback
		_ = json.Unmarshal(resp.Body, &errResp)
		return apperr.Rejected(resp.StatusCode, errResp.Reason(), fallback)
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return apperr.Server(resp.StatusCode, errors.Join(api.ErrMalformed, fmt.Errorf("failed to decode response: %w", err)))
	}

	// success:false - отказ независимо от статуса
	if !out.Succeeded() {
		return apperr.Rejected(resp.StatusCode, out.Reason(), fallback)
	}

	if err := out.Validate(); err != nil {
		return apperr.Server(resp.StatusCode, err)
	}
	return nil
}
