// Package bluevia implements the provider side of the authorization dance on top of the BlueVia
// OAuth 1.0a endpoints.
package bluevia

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dghubble/oauth1"

	"github.com/getlantern/oauthdance/dance"
)

const (
	LegRequestToken = "request_token"
	LegAccessToken  = "access_token"
)

// ProviderError is returned when one of the OAuth legs fails.
type ProviderError struct {
	Leg string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("bluevia %s: %v", e.Leg, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Client talks to BlueVia. It implements dance.Provider.
type Client struct {
	config *oauth1.Config
	logger *slog.Logger
}

var _ dance.Provider = (*Client)(nil)

// NewClient returns a client for cfg. Empty endpoints fall back to the production BlueVia ones.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bluevia config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: &oauth1.Config{
			ConsumerKey:    cfg.ConsumerKey,
			ConsumerSecret: cfg.ConsumerSecret,
			CallbackURL:    cfg.CallbackURL,
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: cfg.RequestTokenURL,
				AuthorizeURL:    cfg.AuthorizeURL,
				AccessTokenURL:  cfg.AccessTokenURL,
			},
		},
		logger: logger.With("provider", "bluevia"),
	}, nil
}

// RequestToken obtains an unauthorized request token and the page where the user grants access.
func (c *Client) RequestToken(ctx context.Context) (*dance.RequestToken, error) {
	type result struct {
		token, secret string
	}
	res, err := await(ctx, func() (result, error) {
		token, secret, err := c.config.RequestToken()
		return result{token, secret}, err
	})
	if err != nil {
		return nil, &ProviderError{Leg: LegRequestToken, Err: err}
	}
	authURL, err := c.config.AuthorizationURL(res.token)
	if err != nil {
		return nil, &ProviderError{Leg: LegRequestToken, Err: err}
	}
	c.logger.Debug("Obtained request token")
	return &dance.RequestToken{
		Token:           res.token,
		Secret:          res.secret,
		VerificationURL: authURL.String(),
	}, nil
}

// AccessToken exchanges an authorized request token and its verifier for an access token.
func (c *Client) AccessToken(ctx context.Context, token, secret, verifier string) (*dance.AccessToken, error) {
	at, err := await(ctx, func() (dance.AccessToken, error) {
		t, s, err := c.config.AccessToken(token, secret, verifier)
		return dance.AccessToken{Token: t, Secret: s}, err
	})
	if err != nil {
		return nil, &ProviderError{Leg: LegAccessToken, Err: err}
	}
	c.logger.Debug("Obtained access token")
	return &at, nil
}

// await runs fn on its own goroutine and returns early if ctx is done first. oauth1 does not take a
// context, so an abandoned request runs to completion in the background and its result is dropped.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		val, err := fn()
		ch <- outcome{val, err}
	}()
	select {
	case o := <-ch:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
