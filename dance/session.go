package dance

import (
	"context"
)

// Result holds the outcome of a dance run through a Session.
type Result struct {
	Token *AccessToken
	// Err is one of the ErrorKind values when the dance did not complete.
	Err error
}

// Session represents a running dance with a channel based API.
type Session struct {
	// Result receives exactly one value: the access token on success, or the ErrorKind the dance
	// ended with.
	Result <-chan Result

	controller *Controller
}

// Run creates a controller for provider and surface and starts it. Cancelling ctx aborts the dance.
func Run(ctx context.Context, provider Provider, surface Surface, opts ...Option) (*Session, error) {
	resultChan := make(chan Result, 1) // never blocks the controller
	listener := ListenerFuncs{
		Error: func(kind ErrorKind) {
			resultChan <- Result{Err: kind}
		},
		Complete: func(token *AccessToken) {
			resultChan <- Result{Token: token}
		},
	}
	// The provider context keeps the values of ctx but not its cancellation: cancelling ctx must
	// surface as Aborted, not as a failed leg.
	opts = append([]Option{WithContext(context.WithoutCancel(ctx))}, opts...)
	c, err := NewController(provider, surface, listener, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, c.Abort)
	go func() {
		<-c.Done()
		stop()
	}()
	return &Session{Result: resultChan, controller: c}, nil
}

// ID returns the dance ID.
func (s *Session) ID() string {
	return s.controller.ID()
}

// State returns the current state of the dance.
func (s *Session) State() FlowState {
	return s.controller.State()
}

// Navigate forwards a navigation intent from the surface. See Controller.OnNavigationRequested.
func (s *Session) Navigate(url string) Navigation {
	return s.controller.OnNavigationRequested(url)
}

// Cancel aborts the dance. It is safe to call multiple times and after the dance has finished.
func (s *Session) Cancel() {
	s.controller.Abort()
}

// Done is closed when the dance has terminated.
func (s *Session) Done() <-chan struct{} {
	return s.controller.Done()
}

// Wait blocks until the dance finishes or ctx is done.
func (s *Session) Wait(ctx context.Context) (*AccessToken, error) {
	select {
	case res := <-s.Result:
		return res.Token, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
