package dance

// FlowState is the position of a dance in its state machine.
type FlowState int32

const (
	StateIdle FlowState = iota
	StateAwaitingRequestToken
	StateDisplayingAuthPage
	StateAwaitingAccessToken
	// StateSucceeded and StateFailed are the two variants of the terminated state.
	StateSucceeded
	StateFailed
)

func (s FlowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRequestToken:
		return "awaiting_request_token"
	case StateDisplayingAuthPage:
		return "displaying_auth_page"
	case StateAwaitingAccessToken:
		return "awaiting_access_token"
	case StateSucceeded:
		return "terminated(success)"
	case StateFailed:
		return "terminated(error)"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen from s.
func (s FlowState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// ErrorKind classifies why a dance ended without an access token. It implements error so it can
// be returned from a Session and matched with errors.Is.
type ErrorKind int

const (
	// Aborted means the dance was cancelled by the caller, usually on a close or back gesture.
	Aborted ErrorKind = iota + 1
	// RequestTokenFailed means the provider failed the first leg.
	RequestTokenFailed
	// AccessTokenFailed means the provider failed the verifier exchange.
	AccessTokenFailed
	// Denied means the provider redirected to the success page without a usable verifier,
	// typically because the user declined consent.
	Denied
)

func (k ErrorKind) String() string {
	switch k {
	case Aborted:
		return "aborted"
	case RequestTokenFailed:
		return "request_token_failed"
	case AccessTokenFailed:
		return "access_token_failed"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

func (k ErrorKind) Error() string {
	switch k {
	case Aborted:
		return "authorization aborted"
	case RequestTokenFailed:
		return "failed to obtain request token"
	case AccessTokenFailed:
		return "failed to exchange verifier for access token"
	case Denied:
		return "authorization denied"
	default:
		return "unknown authorization error"
	}
}

// StateChanged is published on the events bus for every transition of every dance.
type StateChanged struct {
	DanceID string
	From    FlowState
	To      FlowState
}
