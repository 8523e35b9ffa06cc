package reactive

import (
	"reflect"
	"sync"
)

// source is the subscriber list shared by signals and memos.
type source struct {
	id uint64

	mu   sync.RWMutex
	subs []Listener
}

// dependent is a listener that remembers what it read so it can unsubscribe
// before re-running.
type dependent interface {
	Listener
	track(src *source)
}

func (s *source) subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.subs {
		if existing.ID() == l.ID() {
			return
		}
	}
	s.subs = append(s.subs, l)
}

func (s *source) unsubscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.subs {
		if existing.ID() == l.ID() {
			last := len(s.subs) - 1
			s.subs[i] = s.subs[last]
			s.subs = s.subs[:last]
			return
		}
	}
}

// observe subscribes the active listener, if any.
func (s *source) observe() {
	l := currentListener()
	if l == nil {
		return
	}
	s.subscribe(l)
	if d, ok := l.(dependent); ok {
		d.track(s)
	}
}

// notify marks subscribers dirty, or queues them while a batch is open.
// The subscriber slice is copied so listeners may unsubscribe while being notified.
func (s *source) notify() {
	s.mu.RLock()
	subs := append([]Listener(nil), s.subs...)
	s.mu.RUnlock()

	st := current()
	if st.batchDepth > 0 {
		st.pending = append(st.pending, subs...)
		return
	}
	for _, l := range subs {
		l.MarkDirty()
	}
}

// subscriberCount is used by tests.
func (s *source) subscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Equal is the default change detector: == for the common scalar kinds,
// reflect.DeepEqual for everything else.
func Equal[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		bv, ok := any(b).(int)
		return ok && av == bv
	case int64:
		bv, ok := any(b).(int64)
		return ok && av == bv
	case uint64:
		bv, ok := any(b).(uint64)
		return ok && av == bv
	case float64:
		bv, ok := any(b).(float64)
		return ok && av == bv
	case string:
		bv, ok := any(b).(string)
		return ok && av == bv
	case bool:
		bv, ok := any(b).(bool)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}
