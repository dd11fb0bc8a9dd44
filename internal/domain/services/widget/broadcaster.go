package widget

import (
	"errors"
	"sync"

	"github.com/meagent/meagent_service/internal/domain/services/navigation/views"
)

// ErrTooManySubscribers is returned when a session already has its maximum of event streams
var ErrTooManySubscribers = errors.New("too many event subscribers for session")

// Broadcaster fans the controller's screens out to the session's event
// streams. Each subscriber holds only the latest screen; a slow reader skips
// intermediate screens instead of blocking the controller.
type Broadcaster struct {
	mu     sync.Mutex
	latest views.Screen
	subs   map[chan views.Screen]struct{}
	max    int
	closed bool
}

// NewBroadcaster creates a broadcaster allowing at most max subscribers (0 means unlimited)
func NewBroadcaster(max int) *Broadcaster {
	return &Broadcaster{
		latest: views.Hidden(),
		subs:   make(map[chan views.Screen]struct{}),
		max:    max,
	}
}

// Publish records s and offers it to every subscriber without blocking
func (b *Broadcaster) Publish(s views.Screen) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.latest = s
	for ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Latest returns the last published screen
func (b *Broadcaster) Latest() views.Screen {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// Subscribe returns a channel primed with the latest screen. The channel is
// closed by unsubscribe or when the broadcaster closes.
func (b *Broadcaster) Subscribe() (<-chan views.Screen, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrSessionNotFound
	}
	if b.max > 0 && len(b.subs) >= b.max {
		return nil, nil, ErrTooManySubscribers
	}
	ch := make(chan views.Screen, 1)
	ch <- b.latest
	b.subs[ch] = struct{}{}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
	return ch, unsubscribe, nil
}

// Subscribers returns the number of open streams
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every stream
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
