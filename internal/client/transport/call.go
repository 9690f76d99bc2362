package transport

import (
	"net/http"
	"net/url"
	"time"
)

// Call описывает один логический запрос к серверу.
// Call неизменяем: стадии не модифицируют его, а возвращают копию (см. Retry, WithToken).
type Call struct {
	Query     url.Values
	Method    string
	Path      string // путь относительно базового URL, например "/auth/me"
	Token     string // явный bearer токен; пустой - взять текущий из хранилища
	Body      []byte // JSON тело запроса
	Anonymous bool   // не прикреплять токен и не восстанавливаться после 401
	NoRefresh bool   // прикрепить токен, но 401 вернуть как есть
	Attempt   int    // номер попытки, 0 - первая
}

// NewCall создаёт вызов без тела
func NewCall(method, path string) Call {
	return Call{Method: method, Path: path}
}

// Retry возвращает копию вызова для следующей попытки
func (c Call) Retry() Call {
	c.Attempt++
	return c
}

// WithToken возвращает копию вызова с явным bearer токеном
func (c Call) WithToken(token string) Call {
	c.Token = token
	return c
}

// Response - ответ сервера на одну попытку вызова
type Response struct {
	Header     http.Header
	Call       Call
	RequestID  string
	Token      string // bearer токен, с которым ушёл запрос
	Body       []byte
	StatusCode int
	Duration   time.Duration
}

// IsSuccess сообщает о статусе 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
