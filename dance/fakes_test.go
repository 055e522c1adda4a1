package dance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alitto/pond"
	"github.com/stretchr/testify/require"

	"github.com/getlantern/oauthdance/internal"
)

const waitTimeout = 2 * time.Second

type accessCall struct {
	token, secret, verifier string
}

// fakeProvider returns canned results. A non-nil gate blocks the matching leg until it is closed
// or the dance context is cancelled.
type fakeProvider struct {
	mu           sync.Mutex
	requestToken *RequestToken
	requestErr   error
	accessToken  *AccessToken
	accessErr    error
	requestGate  chan struct{}
	accessGate   chan struct{}
	panicOnLeg   bool
	ignoreCancel bool

	requestCalls int
	accessCalls  []accessCall
	accessCalled chan accessCall
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		requestToken: &RequestToken{Token: "rt1", Secret: "s1", VerificationURL: "https://provider/auth?x=1"},
		accessToken:  &AccessToken{Token: "at1", Secret: "s2"},
		accessCalled: make(chan accessCall, 16),
	}
}

func (p *fakeProvider) RequestToken(ctx context.Context) (*RequestToken, error) {
	p.mu.Lock()
	p.requestCalls++
	gate, shouldPanic := p.requestGate, p.panicOnLeg
	p.mu.Unlock()
	if shouldPanic {
		panic("provider exploded")
	}
	if err := p.wait(ctx, gate); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requestToken, p.requestErr
}

func (p *fakeProvider) AccessToken(ctx context.Context, token, secret, verifier string) (*AccessToken, error) {
	call := accessCall{token: token, secret: secret, verifier: verifier}
	p.mu.Lock()
	p.accessCalls = append(p.accessCalls, call)
	gate := p.accessGate
	p.mu.Unlock()
	p.accessCalled <- call
	if err := p.wait(ctx, gate); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accessToken, p.accessErr
}

func (p *fakeProvider) wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	if p.ignoreCancel {
		<-gate
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *fakeProvider) accessCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accessCalls)
}

// fakeSurface records every command it receives.
type fakeSurface struct {
	mu       sync.Mutex
	commands []string
	loaded   chan string
	onLoad   func(url string)
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{loaded: make(chan string, 16)}
}

func (s *fakeSurface) record(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
}

func (s *fakeSurface) LoadURL(url string) {
	s.record("load " + url)
	s.loaded <- url
	if s.onLoad != nil {
		s.onLoad(url)
	}
}

func (s *fakeSurface) Show()  { s.record("show") }
func (s *fakeSurface) Hide()  { s.record("hide") }
func (s *fakeSurface) Close() { s.record("close") }

func (s *fakeSurface) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *fakeSurface) count(cmd string) int {
	n := 0
	for _, c := range s.Commands() {
		if c == cmd {
			n++
		}
	}
	return n
}

// outcome is what a recordingListener was told.
type outcome struct {
	kind  ErrorKind
	token *AccessToken
}

type recordingListener struct {
	mu       sync.Mutex
	outcomes []outcome
	notified chan outcome
	onError  func(ErrorKind)
}

func newRecordingListener() *recordingListener {
	return &recordingListener{notified: make(chan outcome, 16)}
}

func (l *recordingListener) OnError(kind ErrorKind) {
	l.add(outcome{kind: kind})
	if l.onError != nil {
		l.onError(kind)
	}
}

func (l *recordingListener) OnComplete(token *AccessToken) {
	l.add(outcome{token: token})
}

func (l *recordingListener) add(o outcome) {
	l.mu.Lock()
	l.outcomes = append(l.outcomes, o)
	l.mu.Unlock()
	l.notified <- o
}

func (l *recordingListener) Outcomes() []outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]outcome(nil), l.outcomes...)
}

func (l *recordingListener) wait(t *testing.T) outcome {
	t.Helper()
	select {
	case o := <-l.notified:
		return o
	case <-time.After(waitTimeout):
		require.FailNow(t, "listener was not notified")
		return outcome{}
	}
}

func newTestController(t *testing.T, p Provider, s Surface, l Listener) *Controller {
	t.Helper()
	pool := pond.New(4, 16)
	t.Cleanup(pool.StopAndWait)
	c, err := NewController(p, s, l, WithWorkerPool(pool), WithLogger(internal.NoOpLogger()))
	require.NoError(t, err)
	return c
}

func waitLoaded(t *testing.T, s *fakeSurface) string {
	t.Helper()
	select {
	case url := <-s.loaded:
		return url
	case <-time.After(waitTimeout):
		require.FailNow(t, "verification page was not loaded")
		return ""
	}
}

func waitAccessCall(t *testing.T, p *fakeProvider) accessCall {
	t.Helper()
	select {
	case call := <-p.accessCalled:
		return call
	case <-time.After(waitTimeout):
		require.FailNow(t, "access token was not requested")
		return accessCall{}
	}
}

func waitDone(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(waitTimeout):
		require.FailNow(t, "dance did not terminate")
	}
}
