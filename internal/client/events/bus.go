// Package events реализует широковещательную шину событий сессии.
//
// Шина создаётся один раз на процесс и передаётся компонентам явно.
// Доставка неблокирующая: подписчик с заполненным буфером пропускает событие.
package events

import (
	"sync"
)

// Kind - тип события
type Kind string

const (
	// SessionInvalidated - токены удалены, пользователь должен войти заново
	SessionInvalidated Kind = "session_invalidated"
	// TokensRefreshed - пара токенов успешно обновлена
	TokensRefreshed Kind = "tokens_refreshed"
)

// Reason - причина инвалидации сессии
type Reason string

const (
	ReasonNoRefreshToken           Reason = "no_refresh_token"
	ReasonRefreshFailed            Reason = "token_refresh_failed"
	ReasonUnauthorizedAfterRefresh Reason = "unauthorized_after_refresh"
)

// DefaultBuffer - размер буфера канала подписчика
const DefaultBuffer = 8

// Event - событие шины
type Event struct {
	Kind   Kind
	Reason Reason // только для SessionInvalidated
}

// Bus рассылает события всем подписчикам
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBus создаёт шину
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe регистрирует подписчика. cancel закрывает канал и может вызываться повторно.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, DefaultBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish отправляет событие всем подписчикам, не дожидаясь их.
// Если буфер подписчика заполнен, TokensRefreshed отбрасывается, а SessionInvalidated
// вытесняет самое старое непрочитанное событие.
// Возвращает количество подписчиков, получивших событие.
func (b *Bus) Publish(ev Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, ch := range b.subs {
		if send(ch, ev) {
			delivered++
		}
	}
	return delivered
}

func send(ch chan Event, ev Event) bool {
	for {
		select {
		case ch <- ev:
			return true
		default:
		}
		if ev.Kind != SessionInvalidated {
			return false
		}
		// Освобождаем место
		select {
		case <-ch:
		default:
		}
	}
}

// Close закрывает все подписки
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Invalidated создаёт событие инвалидации сессии
func Invalidated(reason Reason) Event {
	return Event{Kind: SessionInvalidated, Reason: reason}
}
