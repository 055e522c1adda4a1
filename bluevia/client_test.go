package bluevia

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlantern/oauthdance/dance"
	"github.com/getlantern/oauthdance/internal"
)

// fakeServer answers the two OAuth 1.0a token endpoints.
type fakeServer struct {
	*httptest.Server
	requestStatus int
	accessStatus  int
	accessBody    string
	block         chan struct{}
	headers       chan string
}

func newFakeServer(t *testing.T) *fakeServer {
	fs := &fakeServer{
		requestStatus: http.StatusOK,
		accessStatus:  http.StatusOK,
		accessBody:    "oauth_token=at1&oauth_token_secret=s2",
		headers:       make(chan string, 4),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/request", func(w http.ResponseWriter, r *http.Request) {
		fs.headers <- r.Header.Get("Authorization")
		if fs.block != nil {
			<-fs.block
		}
		w.WriteHeader(fs.requestStatus)
		fmt.Fprint(w, "oauth_token=rt1&oauth_token_secret=s1&oauth_callback_confirmed=true")
	})
	mux.HandleFunc("/access", func(w http.ResponseWriter, r *http.Request) {
		fs.headers <- r.Header.Get("Authorization")
		w.WriteHeader(fs.accessStatus)
		fmt.Fprint(w, fs.accessBody)
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Config{
		ConsumerKey:     "key",
		ConsumerSecret:  "secret",
		RequestTokenURL: fs.URL + "/request",
		AuthorizeURL:    fs.URL + "/authorise",
		AccessTokenURL:  fs.URL + "/access",
	}, internal.NoOpLogger())
	require.NoError(t, err)
	return c
}

func TestRequestToken(t *testing.T) {
	fs := newFakeServer(t)
	rt, err := fs.client(t).RequestToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &dance.RequestToken{
		Token:           "rt1",
		Secret:          "s1",
		VerificationURL: fs.URL + "/authorise?oauth_token=rt1",
	}, rt)

	header := <-fs.headers
	assert.True(t, strings.HasPrefix(header, "OAuth "), header)
	assert.Contains(t, header, `oauth_consumer_key="key"`)
	assert.Contains(t, header, `oauth_callback="oob"`)
	assert.Contains(t, header, `oauth_signature_method="HMAC-SHA1"`)
}

func TestRequestTokenFailure(t *testing.T) {
	fs := newFakeServer(t)
	fs.requestStatus = http.StatusUnauthorized
	_, err := fs.client(t).RequestToken(context.Background())
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, LegRequestToken, perr.Leg)
}

func TestRequestTokenCancelled(t *testing.T) {
	fs := newFakeServer(t)
	fs.block = make(chan struct{})
	// runs before the server is closed
	t.Cleanup(func() { close(fs.block) })

	client := fs.client(t)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := client.RequestToken(ctx)
		errCh <- err
	}()
	<-fs.headers
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
		var perr *ProviderError
		assert.True(t, errors.As(err, &perr))
	case <-time.After(2 * time.Second):
		require.FailNow(t, "request token call did not return after cancellation")
	}
}

func TestAccessToken(t *testing.T) {
	fs := newFakeServer(t)
	at, err := fs.client(t).AccessToken(context.Background(), "rt1", "s1", "v42")
	require.NoError(t, err)
	assert.Equal(t, &dance.AccessToken{Token: "at1", Secret: "s2"}, at)

	header := <-fs.headers
	assert.Contains(t, header, `oauth_token="rt1"`)
	assert.Contains(t, header, `oauth_verifier="v42"`)
}

func TestAccessTokenFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"missing token", http.StatusOK, "oauth_problem=token_rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeServer(t)
			fs.accessStatus = tt.status
			fs.accessBody = tt.body
			_, err := fs.client(t).AccessToken(context.Background(), "rt1", "s1", "v42")
			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, LegAccessToken, perr.Leg)
		})
	}
}

func TestAccessTokenContextAlreadyDone(t *testing.T) {
	fs := newFakeServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fs.client(t).AccessToken(ctx, "rt1", "s1", "v42")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fs.headers)
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(Config{ConsumerSecret: "secret"}, nil)
	assert.ErrorContains(t, err, "consumer key is required")

	_, err = NewClient(Config{ConsumerKey: "key", ConsumerSecret: "secret", AccessTokenURL: "/relative"}, nil)
	assert.ErrorContains(t, err, "access token URL")

	c, err := NewClient(DefaultConfig("key", "secret"), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAuthorizeURL, c.config.Endpoint.AuthorizeURL)
	assert.Equal(t, OutOfBand, c.config.CallbackURL)
}
