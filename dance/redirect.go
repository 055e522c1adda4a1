package dance

import (
	"regexp"
	"strings"
)

const (
	// SuccessPrefix is where the provider sends the user once the authorization page is done.
	// Any navigation starting with it ends the page phase of the dance.
	SuccessPrefix = "https://m.connect.bluevia.com/en/authorise/success/"

	// verifierExpr must match the provider's redirect bit for bit, including the double escaped
	// slash (%252F) and the unescaped dots.
	verifierExpr = `^https://m.connect.bluevia.com/en/authorise/success/%252F(.+)/.+$`
)

var verifierPattern = regexp.MustCompile(verifierExpr)

// Navigation tells the rendering surface what to do with a navigation it reported.
type Navigation int

const (
	// Proceed lets the surface load the URL itself.
	Proceed Navigation = iota
	// Consume means the controller handled the URL and the surface must not load it.
	Consume
)

func (n Navigation) String() string {
	if n == Consume {
		return "consume"
	}
	return "proceed"
}

// IsSuccessRedirect reports whether url is the provider's redirect back to the success page.
func IsSuccessRedirect(url string) bool {
	return strings.HasPrefix(url, SuccessPrefix)
}

// ExtractVerifier returns the verifier embedded in a success redirect. ok is false when the URL
// does not have the exact shape the provider uses for granted authorizations.
func ExtractVerifier(url string) (verifier string, ok bool) {
	m := verifierPattern.FindStringSubmatch(url)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}
