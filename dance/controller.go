// Package dance drives the three-legged OAuth 1.0a authorization dance against BlueVia: it fetches a
// request token, sends a rendering surface to the authorization page, intercepts the redirect that
// carries the verifier and exchanges it for an access token.
//
// All state transitions run on a serialized context owned by the Controller. The two provider calls
// run on a worker pool and post their results back onto that context, so navigation callbacks and
// network completions never race on the dance state.
package dance

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/getlantern/oauthdance/events"
	"github.com/getlantern/oauthdance/internal"
	"github.com/getlantern/oauthdance/metrics"
	"github.com/getlantern/oauthdance/traces"
)

const (
	legRequestToken = "request_token"
	legAccessToken  = "access_token"
)

var defaultPool = sync.OnceValue(func() *pond.WorkerPool {
	return pond.New(8, 64, pond.IdleTimeout(30*time.Second))
})

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used by the controller. The dance ID is added to every record.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithWorkerPool runs the provider legs on pool instead of the shared default pool. The caller
// owns pool and must keep it running until the dance is done.
func WithWorkerPool(pool *pond.WorkerPool) Option {
	return func(c *Controller) {
		if pool != nil {
			c.pool = pool
		}
	}
}

// WithContext sets the parent of the context handed to the provider. Cancelling it fails the leg in
// flight; use Abort, or Run with a cancellable context, to end the dance as Aborted.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.parent = ctx
		}
	}
}

// Controller runs a single dance. It is safe for concurrent use.
type Controller struct {
	id       string
	provider Provider
	surface  Surface
	listener Listener
	pool     *pond.WorkerPool
	logger   *slog.Logger
	tracer   trace.Tracer

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	exec    serial
	started atomic.Bool
	state   atomic.Int32
	done    chan struct{}

	// owned by exec
	requestToken *RequestToken
	verifier     string
	span         trace.Span
}

// NewController creates a controller in the idle state. Nothing happens until Start is called.
func NewController(provider Provider, surface Surface, listener Listener, opts ...Option) (*Controller, error) {
	if provider == nil || surface == nil || listener == nil {
		return nil, ErrNilCollaborator
	}
	c := &Controller{
		id:       uuid.NewString(),
		provider: provider,
		surface:  surface,
		listener: listener,
		logger:   slog.Default(),
		tracer:   traces.Tracer(),
		parent:   context.Background(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = defaultPool()
	}
	c.logger = c.logger.With("dance_id", c.id)
	c.ctx, c.cancel = context.WithCancel(c.parent)
	return c, nil
}

// ID returns the unique identifier of this dance.
func (c *Controller) ID() string {
	return c.id
}

// State returns a snapshot of the current flow state.
func (c *Controller) State() FlowState {
	return FlowState(c.state.Load())
}

// Done is closed once the dance has terminated and the listener has been notified.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Start begins the dance by requesting a request token. It returns immediately; the outcome is
// reported to the listener. Start returns ErrInvalidState if the dance was already started or has
// already terminated.
func (c *Controller) Start() error {
	if c.State() != StateIdle || !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("start: %w", ErrInvalidState)
	}
	c.exec.post(c.begin)
	return nil
}

// OnNavigationRequested must be called by the surface for every page load it is about to make.
// Navigations outside the success page are left to the surface. The success redirect is always
// consumed; it either carries the verifier, which starts the access token exchange, or the dance
// ends as Denied.
func (c *Controller) OnNavigationRequested(url string) Navigation {
	if !IsSuccessRedirect(url) {
		c.logger.Log(context.Background(), internal.LevelTrace, "Passing navigation through", "url", url)
		return Proceed
	}
	c.exec.post(func() { c.intercept(url) })
	return Consume
}

// Abort cancels the dance and reports Aborted. It is a no-op once the dance has terminated.
func (c *Controller) Abort() {
	c.exec.post(func() {
		if c.State().Terminal() {
			c.logger.Debug("Ignoring abort, dance already terminated", "state", c.State())
			return
		}
		c.fail(Aborted)
	})
}

func (c *Controller) begin() {
	if !c.transition(StateIdle, StateAwaitingRequestToken) {
		c.logger.Debug("Not starting dance", "state", c.State())
		return
	}
	c.logger.Debug("Starting dance")
	c.ctx, c.span = c.tracer.Start(c.ctx, "oauth_dance", trace.WithAttributes(attribute.String("dance.id", c.id)))
	runLeg(c, legRequestToken, c.provider.RequestToken, c.onRequestToken)
}

func (c *Controller) onRequestToken(rt *RequestToken, err error) {
	if c.State() != StateAwaitingRequestToken {
		c.logger.Debug("Ignoring stale request token result", "state", c.State())
		return
	}
	if err == nil && (rt == nil || rt.VerificationURL == "") {
		err = fmt.Errorf("provider returned an unusable request token: %v", rt)
	}
	if err != nil {
		c.logger.Error("Failed to get request token", "error", err)
		c.fail(RequestTokenFailed)
		return
	}
	c.logger.Debug("Got request token", "token", rt)
	c.requestToken = rt
	c.transition(StateAwaitingRequestToken, StateDisplayingAuthPage)
	c.surface.Show()
	c.logger.Debug("Loading verification page", "url", rt.VerificationURL)
	c.surface.LoadURL(rt.VerificationURL)
}

func (c *Controller) intercept(url string) {
	if c.State() != StateDisplayingAuthPage {
		c.logger.Debug("Ignoring success redirect", "state", c.State(), "url", url)
		return
	}
	verifier, ok := ExtractVerifier(url)
	if !ok {
		c.logger.Info("Success page reached without a verifier", "url", url)
		c.fail(Denied)
		return
	}
	c.logger.Debug("Got the authorization")
	c.verifier = verifier
	c.transition(StateDisplayingAuthPage, StateAwaitingAccessToken)
	c.surface.Hide()
	rt := c.requestToken
	runLeg(c, legAccessToken, func(ctx context.Context) (*AccessToken, error) {
		return c.provider.AccessToken(ctx, rt.Token, rt.Secret, verifier)
	}, c.onAccessToken)
}

func (c *Controller) onAccessToken(at *AccessToken, err error) {
	if c.State() != StateAwaitingAccessToken {
		c.logger.Debug("Ignoring stale access token result", "state", c.State())
		return
	}
	if err == nil && at == nil {
		err = fmt.Errorf("provider returned no access token")
	}
	if err != nil {
		c.logger.Error("Failed to get access token", "error", err)
		c.fail(AccessTokenFailed)
		return
	}
	c.terminate(StateSucceeded)
	c.logger.Info("Authorization complete")
	metrics.RecordOutcome(c.ctx, "success")
	defer c.finish()
	c.listener.OnComplete(at)
}

func (c *Controller) fail(kind ErrorKind) {
	c.terminate(StateFailed)
	c.logger.Info("Authorization failed", "reason", kind)
	if c.span != nil {
		c.span.SetAttributes(attribute.String("dance.error", kind.String()))
	}
	metrics.RecordOutcome(c.ctx, kind.String())
	defer c.finish()
	c.listener.OnError(kind)
}

// finish closes the surface and releases Done waiters. It runs even if the listener panics.
func (c *Controller) finish() {
	defer close(c.done)
	c.surface.Close()
}

// terminate moves to a terminal state, releases the tokens held for the dance and cancels any
// in-flight provider call.
func (c *Controller) terminate(to FlowState) {
	c.transition(c.State(), to)
	c.requestToken = nil
	c.verifier = ""
	c.cancel()
	if c.span != nil {
		c.span.End()
	}
}

func (c *Controller) transition(from, to FlowState) bool {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	c.logger.Log(c.ctx, internal.LevelTrace, "Dance state changed", "from", from, "to", to)
	events.Emit(StateChanged{DanceID: c.id, From: from, To: to})
	return true
}

// runLeg submits a blocking provider call to the worker pool and posts its result back onto the
// controller's serialized context.
func runLeg[T any](c *Controller, leg string, call func(context.Context) (T, error), done func(T, error)) {
	parent := c.ctx
	submitted := trySubmit(c.pool, func() {
		ctx, span := c.tracer.Start(parent, leg)
		start := time.Now()
		res, err := safeCall(ctx, call)
		metrics.RecordLeg(ctx, leg, time.Since(start), err)
		if err != nil {
			traces.RecordError(ctx, err)
		}
		span.End()
		c.exec.post(func() { done(res, err) })
	})
	if !submitted {
		err := fmt.Errorf("%s: %w", leg, ErrPoolStopped)
		c.exec.post(func() {
			var zero T
			done(zero, err)
		})
	}
}

// trySubmit reports whether pool accepted task. pond panics when submitting to a stopped pool, which
// can race with the Stopped check.
func trySubmit(pool *pond.WorkerPool, task func()) (ok bool) {
	if pool.Stopped() {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	pool.Submit(task)
	return true
}

func safeCall[T any](ctx context.Context, call func(context.Context) (T, error)) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return call(ctx)
}
