package dance

import "fmt"

// RequestToken is the temporary credential returned by the first leg of the dance together with
// the page the user has to visit to authorize it.
type RequestToken struct {
	Token           string
	Secret          string
	VerificationURL string
}

// String omits the secret so tokens can be logged.
func (t *RequestToken) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("RequestToken{token: %s, url: %s}", t.Token, t.VerificationURL)
}

// AccessToken is the long-lived credential produced by the final leg. It is handed to the listener
// and never retained by the controller.
type AccessToken struct {
	Token  string `json:"token" yaml:"token"`
	Secret string `json:"secret" yaml:"secret"`
}

func (t *AccessToken) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("AccessToken{token: %s}", t.Token)
}
