package dance

import "sync"

// serial runs posted functions one at a time, in the order they were posted. The goroutine that
// posts into an idle queue drains it; anything posted while a drain is in progress, including
// from inside a running function, is picked up by that drainer. This makes re-entrant calls safe
// and keeps every posted function strictly sequential.
type serial struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

func (s *serial) post(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	s.drain()
}

func (s *serial) drain() {
	defer func() {
		if r := recover(); r != nil {
			// let the next post resume draining
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			panic(r)
		}
	}()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()
		next()
	}
}
