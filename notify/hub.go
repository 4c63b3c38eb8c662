package notify

import (
	"sync"
	"time"
)

// Hub is the process-wide notification channel. Publishing never blocks:
// a subscriber whose buffer is full misses the message.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Notification
	nextID int
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[int]chan Notification),
		buffer: buffer,
	}
}

// Subscribe returns a channel of future notifications and a cancel func that
// closes it.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Notification, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) publish(level Level, msg string) {
	n := Notification{Level: level, Message: msg, Time: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

func (h *Hub) Error(msg string)   { h.publish(LevelError, msg) }
func (h *Hub) Success(msg string) { h.publish(LevelSuccess, msg) }
func (h *Hub) Info(msg string)    { h.publish(LevelInfo, msg) }
