package dance

import "context"

// Provider performs the two network legs of the dance. Both calls block and are always invoked off
// the controller's serialized context. Any returned error is treated as a terminal failure of
// that leg.
type Provider interface {
	RequestToken(ctx context.Context) (*RequestToken, error)
	AccessToken(ctx context.Context, token, secret, verifier string) (*AccessToken, error)
}

// Surface is the page-display capability driven by the controller, such as an embedded browser
// or a terminal prompt. Commands are fire-and-forget. The surface reports navigations back
// through Controller.OnNavigationRequested.
type Surface interface {
	LoadURL(url string)
	Show()
	Hide()
	// Close is issued exactly once, when the dance terminates.
	Close()
}

// Listener receives the outcome of a dance. Exactly one of its methods is called exactly once.
type Listener interface {
	OnError(kind ErrorKind)
	OnComplete(token *AccessToken)
}

// ListenerFuncs adapts a pair of functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Error    func(kind ErrorKind)
	Complete func(token *AccessToken)
}

func (l ListenerFuncs) OnError(kind ErrorKind) {
	if l.Error != nil {
		l.Error(kind)
	}
}

func (l ListenerFuncs) OnComplete(token *AccessToken) {
	if l.Complete != nil {
		l.Complete(token)
	}
}
