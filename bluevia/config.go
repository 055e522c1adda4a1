package bluevia

import (
	"errors"
	"fmt"
	"net/url"
)

const (
	DefaultRequestTokenURL = "https://api.bluevia.com/services/REST/Oauth/getRequestToken/"
	DefaultAuthorizeURL    = "https://connect.bluevia.com/authorise"
	DefaultAccessTokenURL  = "https://api.bluevia.com/services/REST/Oauth/getAccessToken/"

	// OutOfBand is the callback used when the verifier is read from the success page instead of
	// being delivered to a callback URL.
	OutOfBand = "oob"
)

// Config holds the consumer credentials and endpoints used to talk to BlueVia.
type Config struct {
	ConsumerKey     string
	ConsumerSecret  string
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
	CallbackURL     string
}

// DefaultConfig returns a Config for the production BlueVia endpoints.
func DefaultConfig(consumerKey, consumerSecret string) Config {
	return Config{
		ConsumerKey:     consumerKey,
		ConsumerSecret:  consumerSecret,
		RequestTokenURL: DefaultRequestTokenURL,
		AuthorizeURL:    DefaultAuthorizeURL,
		AccessTokenURL:  DefaultAccessTokenURL,
		CallbackURL:     OutOfBand,
	}
}

func (c Config) withDefaults() Config {
	if c.RequestTokenURL == "" {
		c.RequestTokenURL = DefaultRequestTokenURL
	}
	if c.AuthorizeURL == "" {
		c.AuthorizeURL = DefaultAuthorizeURL
	}
	if c.AccessTokenURL == "" {
		c.AccessTokenURL = DefaultAccessTokenURL
	}
	if c.CallbackURL == "" {
		c.CallbackURL = OutOfBand
	}
	return c
}

// Validate checks that the consumer credentials are set and every endpoint is an absolute URL.
func (c Config) Validate() error {
	var errs []error
	if c.ConsumerKey == "" {
		errs = append(errs, errors.New("consumer key is required"))
	}
	if c.ConsumerSecret == "" {
		errs = append(errs, errors.New("consumer secret is required"))
	}
	for name, raw := range map[string]string{
		"request token URL": c.RequestTokenURL,
		"authorize URL":     c.AuthorizeURL,
		"access token URL":  c.AccessTokenURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid %s %q", name, raw))
		}
	}
	return errors.Join(errs...)
}
