package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/getlantern/oauthdance/dance"
)

// navigator is the part of a dance.Session the terminal surface drives.
type navigator interface {
	Navigate(url string) dance.Navigation
	Cancel()
}

// terminalSurface stands in for a browser. It prints the verification page for the user to open
// and feeds every address the user pastes back to the dance as a navigation.
type terminalSurface struct {
	out io.Writer

	mu      sync.Mutex
	visible bool

	closeOnce sync.Once
	closed    chan struct{}
}

var _ dance.Surface = (*terminalSurface)(nil)

func newTerminalSurface(out io.Writer) *terminalSurface {
	return &terminalSurface{out: out, closed: make(chan struct{})}
}

func (s *terminalSurface) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = true
}

func (s *terminalSurface) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visible {
		fmt.Fprintln(s.out, "Authorization received, fetching the access token...")
	}
	s.visible = false
}

func (s *terminalSurface) LoadURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "Open this address in a browser and authorize the application:\n\n    %s\n\n", url)
	fmt.Fprintln(s.out, "Then paste the address of the page you end up on and press enter.")
}

func (s *terminalSurface) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *terminalSurface) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// readNavigations forwards each non-empty line of r to nav. Running out of input before the dance
// has finished cancels it.
func (s *terminalSurface) readNavigations(r io.Reader, nav navigator) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if s.isClosed() {
			return
		}
		url := strings.TrimSpace(scanner.Text())
		if url == "" {
			continue
		}
		if nav.Navigate(url) == dance.Proceed {
			s.mu.Lock()
			fmt.Fprintln(s.out, "That is not the authorization result page, keep going in the browser and paste the final address.")
			s.mu.Unlock()
		}
	}
	if !s.isClosed() {
		nav.Cancel()
	}
}
