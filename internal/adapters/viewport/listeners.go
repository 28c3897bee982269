// Package viewport provides ports.Viewport implementations: an in-process
// viewport for the terminal demo and a remote one driven by a websocket client.
package viewport

import "github.com/samirrijal/bilbomap/internal/core/ports"

type listener struct {
	id int
	fn func()
}

// listeners is an ordered set of event handlers.
type listeners struct {
	next  int
	items []listener
}

func (l *listeners) add(fn func()) ports.Subscription {
	l.next++
	id := l.next
	l.items = append(l.items, listener{id: id, fn: fn})
	return subscription(func() { l.remove(id) })
}

func (l *listeners) remove(id int) {
	for i, it := range l.items {
		if it.id == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return
		}
	}
}

func (l *listeners) fire() {
	items := make([]listener, len(l.items))
	copy(items, l.items)
	for _, it := range items {
		it.fn()
	}
}

func (l *listeners) len() int { return len(l.items) }

func (l *listeners) clear() { l.items = nil }

type subscription func()

func (s subscription) Remove() { s() }
