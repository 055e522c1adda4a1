// Package oauthdance authorizes an application against BlueVia through the OAuth 1.0a dance. It
// wires settings, logging, error reporting and telemetry around the dance package and hands out a
// dance.Session per authorization.
package oauthdance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alitto/pond"

	"github.com/getlantern/oauthdance/bluevia"
	"github.com/getlantern/oauthdance/common"
	"github.com/getlantern/oauthdance/common/deviceid"
	"github.com/getlantern/oauthdance/common/env"
	"github.com/getlantern/oauthdance/common/reporting"
	"github.com/getlantern/oauthdance/common/settings"
	"github.com/getlantern/oauthdance/dance"
	"github.com/getlantern/oauthdance/telemetry"
)

const poolHarvestInterval = time.Minute

// Options configures a Client. Empty paths and levels fall back to the defaults of common.Init.
type Options struct {
	DataDir  string
	LogDir   string
	LogLevel string
	// ConsumerKey and ConsumerSecret take precedence over the environment and the settings file.
	ConsumerKey    string
	ConsumerSecret string
	// DanceTimeout aborts a dance that has not finished in time. Zero uses the configured default.
	DanceTimeout time.Duration
	// Provider replaces the BlueVia client. Used in tests.
	Provider dance.Provider
}

// Client starts authorization dances.
type Client struct {
	provider dance.Provider
	pool     *pond.WorkerPool
	timeout  time.Duration

	mu       sync.Mutex
	sessions map[*dance.Session]struct{}
	closed   bool

	shutdownFuncs []func(context.Context) error
	closeOnce     sync.Once
}

// ErrClosed is returned by Authorize once the client has been closed.
var ErrClosed = errors.New("client closed")

// New initializes logging, settings, error reporting and telemetry and returns a Client ready to
// authorize.
func New(opts Options) (*Client, error) {
	if err := common.Init(opts.DataDir, opts.LogDir, opts.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	if err := settings.InitSettings(common.DataPath()); err != nil {
		common.Close(context.Background())
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	reporting.Init(env.String(env.SentryDSN, settings.GetString(settings.SentryDSNKey)), common.Version)

	c := &Client{
		pool:     pond.New(8, 64, pond.IdleTimeout(30*time.Second), pond.PanicHandler(onPoolPanic)),
		timeout:  opts.DanceTimeout,
		sessions: make(map[*dance.Session]struct{}),
	}
	if c.timeout == 0 {
		c.timeout = settings.GetDuration(settings.DanceTimeoutKey)
	}

	provider := opts.Provider
	if provider == nil {
		client, err := bluevia.NewClient(blueviaConfig(opts), slog.Default())
		if err != nil {
			c.pool.Stop()
			common.Close(context.Background())
			return nil, err
		}
		provider = client
	}
	c.provider = &reportingProvider{Provider: provider}

	if err := telemetry.Init(context.Background(), telemetryConfig()); err != nil {
		// telemetry is best effort
		slog.Error("Failed to initialize telemetry", "error", err)
	}
	telemetry.HarvestPoolMetrics(c.pool, poolHarvestInterval)

	c.addShutdownFunc(
		func(context.Context) error {
			c.pool.StopAndWait()
			return nil
		},
		telemetry.Close,
		func(context.Context) error {
			reporting.Flush(2 * time.Second)
			return nil
		},
		common.Close,
	)
	return c, nil
}

func blueviaConfig(opts Options) bluevia.Config {
	cfg := bluevia.Config{
		ConsumerKey:     opts.ConsumerKey,
		ConsumerSecret:  opts.ConsumerSecret,
		RequestTokenURL: settings.GetString(settings.RequestTokenURLKey),
		AuthorizeURL:    settings.GetString(settings.AuthorizeURLKey),
		AccessTokenURL:  settings.GetString(settings.AccessTokenURLKey),
		CallbackURL:     settings.GetString(settings.CallbackURLKey),
	}
	if cfg.ConsumerKey == "" {
		cfg.ConsumerKey = env.String(env.ConsumerKey, settings.GetString(settings.ConsumerKeyKey))
	}
	if cfg.ConsumerSecret == "" {
		cfg.ConsumerSecret = env.String(env.ConsumerSecret, settings.GetString(settings.ConsumerSecretKey))
	}
	return cfg
}

func telemetryConfig() telemetry.Config {
	endpoint := env.String(env.OTELEndpoint, settings.GetString(settings.OTELEndpointKey))
	cfg := telemetry.Config{
		Endpoint:       endpoint,
		Headers:        settings.GetStringMap(settings.OTELHeadersKey),
		Insecure:       settings.GetBool(settings.OTELInsecureKey),
		SampleRate:     settings.GetFloat64(settings.OTELSampleRateKey),
		TracesEnabled:  endpoint != "",
		MetricsEnabled: endpoint != "",
	}
	if endpoint != "" {
		cfg.DeviceID = deviceid.Get()
	}
	return cfg
}

func onPoolPanic(p any) {
	slog.Error("Worker pool task panicked", "panic", p)
	reporting.PanicListener(fmt.Sprintf("worker pool task panicked: %v", p))
}

// Authorize starts a dance that drives surface. Cancelling ctx, or exceeding the dance timeout,
// aborts it.
func (c *Client) Authorize(ctx context.Context, surface dance.Surface) (*dance.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	cancel := context.CancelFunc(func() {})
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	session, err := dance.Run(ctx, c.provider, surface,
		dance.WithWorkerPool(c.pool),
		dance.WithLogger(slog.Default()),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start dance: %w", err)
	}
	c.sessions[session] = struct{}{}
	go func() {
		<-session.Done()
		c.mu.Lock()
		delete(c.sessions, session)
		c.mu.Unlock()
		cancel()
	}()
	return session, nil
}

// ActiveDances returns the number of dances started by this client that have not yet terminated.
func (c *Client) ActiveDances() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Client) addShutdownFunc(fns ...func(context.Context) error) {
	for _, fn := range fns {
		if fn != nil {
			c.shutdownFuncs = append(c.shutdownFuncs, fn)
		}
	}
}

// Close aborts every dance that has not terminated, waits for in-flight provider calls, then flushes
// telemetry and error reports.
func (c *Client) Close(ctx context.Context) error {
	var errs error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		active := make([]*dance.Session, 0, len(c.sessions))
		for session := range c.sessions {
			active = append(active, session)
		}
		c.mu.Unlock()
		if len(active) > 0 {
			slog.Info("Aborting active dances", "count", len(active))
		}
		for _, session := range active {
			session.Cancel()
		}
		for _, shutdown := range c.shutdownFuncs {
			if err := shutdown(ctx); err != nil {
				slog.Error("Failed to shutdown", "error", err)
				errs = errors.Join(errs, err)
			}
		}
	})
	return errs
}

// reportingProvider sends provider failures to error reporting. Cancellations are expected when a
// dance is aborted and are not reported.
type reportingProvider struct {
	dance.Provider
}

func (p *reportingProvider) RequestToken(ctx context.Context) (*dance.RequestToken, error) {
	rt, err := p.Provider.RequestToken(ctx)
	report(err, bluevia.LegRequestToken)
	return rt, err
}

func (p *reportingProvider) AccessToken(ctx context.Context, token, secret, verifier string) (*dance.AccessToken, error) {
	at, err := p.Provider.AccessToken(ctx, token, secret, verifier)
	report(err, bluevia.LegAccessToken)
	return at, err
}

func report(err error, leg string) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	reporting.CaptureError(err, map[string]string{"leg": leg})
}
