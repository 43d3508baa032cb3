// Package auth obtains and persists the OAuth2 credential used to talk to
// Google Drive. A credential is loaded from the token file, refreshed when it
// has expired, or created through an interactive browser consent flow.
package auth

import (
	"slices"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultTokenURI       = "https://oauth2.googleapis.com/token"
	defaultUniverseDomain = "googleapis.com"
)

// Credential is the authorized-user token bundle stored in token.json. The
// field names match the format written by Google's client libraries so the
// file can be shared with other tools.
type Credential struct {
	Token          string    `json:"token"`
	RefreshToken   string    `json:"refresh_token"`
	TokenURI       string    `json:"token_uri"`
	ClientID       string    `json:"client_id"`
	ClientSecret   string    `json:"client_secret"`
	Scopes         []string  `json:"scopes"`
	UniverseDomain string    `json:"universe_domain,omitempty"`
	Account        string    `json:"account"`
	Expiry         time.Time `json:"expiry,omitzero"`
}

// State is the outcome of inspecting a stored credential.
type State int

const (
	// StateValid means the credential can be used as is.
	StateValid State = iota
	// StateRefresh means the access token must be refreshed with the refresh token.
	StateRefresh
	// StateConsent means the user has to authorize the application again.
	StateConsent
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateRefresh:
		return "refresh"
	case StateConsent:
		return "consent"
	default:
		return "unknown"
	}
}

// Assess decides what must happen before cred can be used for the given scopes.
func Assess(cred *Credential, scopes []string, now time.Time) State {
	if cred == nil || !cred.covers(scopes) {
		return StateConsent
	}

	if cred.Token != "" && (cred.Expiry.IsZero() || now.Before(cred.Expiry.Add(-expiryDelta))) {
		return StateValid
	}

	// A stored refresh token is always tried before consent, including when
	// the access token is missing but the recorded expiry is still ahead.
	if cred.RefreshToken != "" {
		return StateRefresh
	}

	return StateConsent
}

// expiryDelta mirrors the margin oauth2.Token uses before treating a token as expired.
const expiryDelta = 10 * time.Second

// covers reports whether every requested scope was granted. A credential that
// does not record its scopes is assumed to carry the requested ones.
func (c *Credential) covers(scopes []string) bool {
	if len(c.Scopes) == 0 {
		return true
	}

	for _, s := range scopes {
		if !slices.Contains(c.Scopes, s) {
			return false
		}
	}

	return true
}

// OAuthConfig returns the client configuration embedded in the credential.
func (c *Credential) OAuthConfig() *oauth2.Config {
	tokenURI := c.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}

	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURI,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// OAuthToken converts the credential to an oauth2 token.
func (c *Credential) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.Token,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// withToken returns a copy of c carrying tok. An empty refresh token in tok
// keeps the existing one, since Google omits it from refresh responses.
func (c *Credential) withToken(tok *oauth2.Token) *Credential {
	next := *c
	next.Token = tok.AccessToken
	next.Expiry = tok.Expiry.UTC()

	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}

	return &next
}

// newCredential builds a credential from a freshly exchanged token.
func newCredential(cfg *oauth2.Config, tok *oauth2.Token) *Credential {
	return &Credential{
		Token:          tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenURI:       cfg.Endpoint.TokenURL,
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		Scopes:         slices.Clone(cfg.Scopes),
		UniverseDomain: defaultUniverseDomain,
		Expiry:         tok.Expiry.UTC(),
	}
}
