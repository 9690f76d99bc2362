package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Заголовки, которые выставляет конвейер
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderRequestID     = "X-Request-ID"
	HeaderDeviceID      = "X-Device-ID"
)

const contentTypeJSON = "application/json"

// JSONHeaders выставляет Accept и Content-Type для JSON API
func JSONHeaders() RequestStage {
	return RequestFunc(func(_ context.Context, call Call, req *http.Request) error {
		req.Header.Set(HeaderAccept, contentTypeJSON)
		if call.Body != nil {
			req.Header.Set(HeaderContentType, contentTypeJSON)
		}
		return nil
	})
}

// RequestID присваивает каждой попытке уникальный X-Request-ID
func RequestID() RequestStage {
	return RequestFunc(func(_ context.Context, _ Call, req *http.Request) error {
		req.Header.Set(HeaderRequestID, uuid.NewString())
		return nil
	})
}

// DeviceIDSource возвращает идентификатор установки
type DeviceIDSource interface {
	DeviceID(ctx context.Context) (string, error)
}

// DeviceID добавляет X-Device-ID. Ошибка чтения идентификатора не прерывает запрос.
func DeviceID(src DeviceIDSource, logger zerolog.Logger) RequestStage {
	return RequestFunc(func(ctx context.Context, _ Call, req *http.Request) error {
		id, err := src.DeviceID(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("device id unavailable")
			return nil
		}
		req.Header.Set(HeaderDeviceID, id)
		return nil
	})
}

// StaticHeader выставляет фиксированный заголовок (например, User-Agent)
func StaticHeader(name, value string) RequestStage {
	return RequestFunc(func(_ context.Context, _ Call, req *http.Request) error {
		if name == "" {
			return fmt.Errorf("header name is empty")
		}
		req.Header.Set(name, value)
		return nil
	})
}

// Logging пишет строку лога на каждую попытку вызова. Токены в лог не попадают.
type Logging struct {
	logger zerolog.Logger
}

// NewLogging создаёт стадию логирования
func NewLogging(logger zerolog.Logger) *Logging {
	return &Logging{logger: logger.With().Str("component", "transport").Logger()}
}

// HandleResponse логирует ответ и никогда не прерывает вызов
func (l *Logging) HandleResponse(_ context.Context, resp *Response) (*Call, error) {
	var event *zerolog.Event
	switch {
	case resp.StatusCode >= 500:
		event = l.logger.Error()
	case resp.StatusCode >= 400:
		event = l.logger.Info()
	default:
		event = l.logger.Debug()
	}

	event.
		Str("method", resp.Call.Method).
		Str("path", resp.Call.Path).
		Int("status", resp.StatusCode).
		Int("attempt", resp.Call.Attempt).
		Bool("authorized", resp.Token != "").
		Str("request_id", resp.RequestID).
		Dur("duration", resp.Duration).
		Msg("HTTP request")
	return nil, nil
}

// ObserveFailure логирует транспортную ошибку
func (l *Logging) ObserveFailure(_ context.Context, call Call, err error) {
	l.logger.Warn().
		Err(err).
		Str("method", call.Method).
		Str("path", call.Path).
		Int("attempt", call.Attempt).
		Bool("timeout", IsTimeout(err)).
		Msg("HTTP request failed")
}
