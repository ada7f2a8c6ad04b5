package models

import "time"

// OAuthState is the transient record binding an authorization request to
// its callback. It lives in the state cache between initiate and callback
// and is consumed exactly once.
type OAuthState struct {
	Provider    string    `json:"provider"`
	InstanceURL string    `json:"instance_url,omitempty"`
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
}
