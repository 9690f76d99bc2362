// Package transport реализует конвейер авторизованных запросов к серверу объявлений.
//
// Каждый вызов проходит упорядоченные стадии запроса (заголовки, токен, идентификаторы),
// отправляется, затем проходит стадии ответа (логирование, метрики, восстановление после 401).
// Стадия ответа может запросить повтор, вернув следующий Call; число попыток ограничено.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iudanet/camerannonces/internal/apperr"
)

const (
	// DefaultTimeout - таймаут одного HTTP запроса
	DefaultTimeout = 10 * time.Second
	// DefaultMaxAttempts - исходный запрос плюс один повтор
	DefaultMaxAttempts = 2
	// maxResponseSize ограничивает размер читаемого тела ответа
	maxResponseSize = 10 << 20
)

// RequestStage подготавливает HTTP запрос перед отправкой
type RequestStage interface {
	PrepareRequest(ctx context.Context, call Call, req *http.Request) error
}

// ResponseStage обрабатывает ответ.
// nil, nil - продолжить; next != nil - повторить вызов next; ошибка прерывает вызов.
type ResponseStage interface {
	HandleResponse(ctx context.Context, resp *Response) (next *Call, err error)
}

// FailureObserver получает транспортные ошибки (ответа от сервера нет)
type FailureObserver interface {
	ObserveFailure(ctx context.Context, call Call, err error)
}

// RequestFunc адаптирует функцию к RequestStage
type RequestFunc func(ctx context.Context, call Call, req *http.Request) error

func (f RequestFunc) PrepareRequest(ctx context.Context, call Call, req *http.Request) error {
	return f(ctx, call, req)
}

// ResponseFunc адаптирует функцию к ResponseStage
type ResponseFunc func(ctx context.Context, resp *Response) (*Call, error)

func (f ResponseFunc) HandleResponse(ctx context.Context, resp *Response) (*Call, error) {
	return f(ctx, resp)
}

// Pipeline отправляет вызовы через упорядоченные стадии
type Pipeline struct {
	httpClient  *http.Client
	logger      zerolog.Logger
	baseURL     string
	request     []RequestStage
	response    []ResponseStage
	maxAttempts int
	timeout     time.Duration
	mu          sync.RWMutex
}

// Option настраивает Pipeline
type Option func(*Pipeline)

// WithHTTPClient задаёт HTTP клиент (например, httptest клиент)
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) {
		p.httpClient = c
	}
}

// WithTimeout задаёт таймаут одного запроса
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithLogger задаёт логгер
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMaxAttempts ограничивает число попыток одного вызова
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// NewPipeline создаёт конвейер для базового URL
func NewPipeline(baseURL string, opts ...Option) (*Pipeline, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	p := &Pipeline{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:      zerolog.Nop(),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(p)
	}

	// Таймаут применяется к копии, чтобы не менять переданный клиент
	if p.timeout > 0 {
		c := *p.httpClient
		c.Timeout = p.timeout
		p.httpClient = &c
	}
	return p, nil
}

// UseRequest добавляет стадии запроса в конец цепочки
func (p *Pipeline) UseRequest(stages ...RequestStage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.request = append(p.request, stages...)
}

// UseResponse добавляет стадии ответа в конец цепочки
func (p *Pipeline) UseResponse(stages ...ResponseStage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.response = append(p.response, stages...)
}

// Do выполняет вызов. Транспортные ошибки возвращаются как apperr.ErrNetwork и не повторяются.
func (p *Pipeline) Do(ctx context.Context, call Call) (*Response, error) {
	p.mu.RLock()
	requestStages := append([]RequestStage(nil), p.request...)
	responseStages := append([]ResponseStage(nil), p.response...)
	p.mu.RUnlock()

	for {
		resp, err := p.send(ctx, call, requestStages)
		if err != nil {
			for _, stage := range responseStages {
				if obs, ok := stage.(FailureObserver); ok {
					obs.ObserveFailure(ctx, call, err)
				}
			}
			return nil, err
		}

		next, err := p.handle(ctx, resp, responseStages)
		if err != nil {
			return resp, err
		}
		if next == nil {
			return resp, nil
		}

		if next.Attempt <= call.Attempt || next.Attempt >= p.maxAttempts {
			p.logger.Warn().
				Str("path", call.Path).
				Int("attempt", next.Attempt).
				Msg("retry limit reached")
			return resp, nil
		}
		call = *next
	}
}

func (p *Pipeline) handle(ctx context.Context, resp *Response, stages []ResponseStage) (*Call, error) {
	for _, stage := range stages {
		next, err := stage.HandleResponse(ctx, resp)
		if err != nil {
			return nil, err
		}
		if next != nil {
			return next, nil
		}
	}
	return nil, nil
}

func (p *Pipeline) send(ctx context.Context, call Call, stages []RequestStage) (*Response, error) {
	target := p.baseURL + call.Path
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	var body io.Reader
	if call.Body != nil {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for _, stage := range stages {
		if err := stage.PrepareRequest(ctx, call, req); err != nil {
			return nil, fmt.Errorf("failed to prepare request: %w", err)
		}
	}

	start := time.Now()
	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Network(err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("failed to read response body: %w", err))
	}

	return &Response{
		Call:       call,
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		Token:      bearerToken(req),
		RequestID:  req.Header.Get(HeaderRequestID),
		Duration:   time.Since(start),
	}, nil
}

// IsTimeout сообщает, что вызов завершился по таймауту
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func bearerToken(req *http.Request) string {
	token, ok := strings.CutPrefix(req.Header.Get(HeaderAuthorization), "Bearer ")
	if !ok {
		return ""
	}
	return token
}
