package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/getlantern/oauthdance/dance"
	"github.com/getlantern/oauthdance/events"
)

// statePrinter prints the state changes of one dance. It subscribes before the dance exists and
// holds back events until follow names the dance to print.
type statePrinter struct {
	out io.Writer
	sub *events.Subscription[dance.StateChanged]

	mu      sync.Mutex
	id      string
	pending []dance.StateChanged
}

func newStatePrinter(out io.Writer) *statePrinter {
	p := &statePrinter{out: out}
	p.sub = events.Subscribe(p.onStateChanged)
	return p
}

func (p *statePrinter) onStateChanged(evt dance.StateChanged) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.id == "" {
		p.pending = append(p.pending, evt)
		return
	}
	p.print(evt)
}

// follow prints the held back events of dance id and every later one.
func (p *statePrinter) follow(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = id
	for _, evt := range p.pending {
		p.print(evt)
	}
	p.pending = nil
}

func (p *statePrinter) print(evt dance.StateChanged) {
	if evt.DanceID == p.id {
		fmt.Fprintf(p.out, "[%s] %s -> %s\n", evt.DanceID, evt.From, evt.To)
	}
}

func (p *statePrinter) stop() {
	p.sub.Unsubscribe()
}
