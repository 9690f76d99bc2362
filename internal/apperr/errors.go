// Package apperr определяет таксономию ошибок клиента.
//
// Каждая ошибка, которую видит вызывающий код, относится к одному из видов:
//
//	ErrValidation     - клиентская проверка до сетевого вызова
//	ErrNetwork        - таймаут, недоступный сервер, DNS
//	ErrAuthRejected   - сервер отклонил учётные данные (success:false или 4xx)
//	ErrSessionExpired - refresh не удался или повторный 401
//	ErrServer         - 5xx или ответ неверной формы
//
// Проверка вида выполняется через errors.Is:
//
//	switch {
//	case errors.Is(err, apperr.ErrValidation):
//	    // показать ошибку поля
//	case errors.Is(err, apperr.ErrSessionExpired):
//	    // предложить войти заново
//	}
package apperr

import (
	"errors"
	"fmt"
)

// Виды ошибок.
var (
	ErrValidation     = errors.New("validation error")
	ErrNetwork        = errors.New("network error")
	ErrAuthRejected   = errors.New("authentication rejected")
	ErrSessionExpired = errors.New("session expired")
	ErrServer         = errors.New("server error")
)

// Сообщения по умолчанию для пользователя.
const (
	MsgNetwork        = "Erreur de connexion au serveur, veuillez réessayer"
	MsgServer         = "Erreur du serveur, veuillez réessayer plus tard"
	MsgSessionExpired = "Session expirée, veuillez vous reconnecter"
)

// Error описывает ошибку с видом, сообщением для пользователя и исходной причиной.
type Error struct {
	Kind    error  // один из Err* выше
	Message string // человекочитаемое сообщение
	Field   string // поле формы для ошибок валидации
	Status  int    // HTTP статус, если известен
	Err     error  // исходная причина
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

// Unwrap возвращает исходную причину.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с её видом.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// Validation создаёт ошибку валидации поля.
func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Network оборачивает транспортную ошибку.
func Network(err error) *Error {
	return &Error{Kind: ErrNetwork, Message: MsgNetwork, Err: err}
}

// Server создаёт ошибку сервера или неверного ответа.
func Server(status int, err error) *Error {
	return &Error{Kind: ErrServer, Message: MsgServer, Status: status, Err: err}
}

// Rejected создаёт ошибку отказа. Если сервер не прислал сообщения, используется fallback.
func Rejected(status int, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{Kind: ErrAuthRejected, Status: status, Message: message}
}

// SessionExpired создаёт ошибку истёкшей сессии.
func SessionExpired(err error) *Error {
	return &Error{Kind: ErrSessionExpired, Message: MsgSessionExpired, Status: 401, Err: err}
}

// FieldOf возвращает поле формы, к которому относится ошибка валидации.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
