package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Authorizer obtains a brand-new token through user interaction.
type Authorizer interface {
	Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// Manager produces a usable credential for the configured scopes, persisting
// it to TokenPath whenever it had to be created or refreshed.
type Manager struct {
	CredentialsPath string
	TokenPath       string
	Scopes          []string
	Authorizer      Authorizer
	Logger          *slog.Logger

	now func() time.Time
}

// NewManager returns a Manager that runs the loopback consent flow when needed.
func NewManager(credentialsPath, tokenPath string, scopes []string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		CredentialsPath: credentialsPath,
		TokenPath:       tokenPath,
		Scopes:          scopes,
		Authorizer:      &LoopbackFlow{OpenURL: OpenBrowser, Logger: logger},
		Logger:          logger,
	}
}

// Credential loads, refreshes or creates the credential. Any error is fatal
// for the caller; nothing is retried.
func (m *Manager) Credential(ctx context.Context) (*Credential, State, error) {
	cred, err := LoadCredential(m.TokenPath)
	if err != nil {
		return nil, StateConsent, err
	}

	state := Assess(cred, m.Scopes, m.clock())
	m.logger().Debug("assessed stored credential",
		slog.String("path", m.TokenPath),
		slog.String("state", state.String()),
	)

	switch state {
	case StateValid:
		return cred, state, nil
	case StateRefresh:
		cred, err = m.refresh(ctx, cred)
	case StateConsent:
		cred, err = m.consent(ctx)
	}

	if err != nil {
		return nil, state, err
	}

	if err := SaveCredential(m.TokenPath, cred); err != nil {
		return nil, state, err
	}

	m.logger().Info("saved credential",
		slog.String("path", m.TokenPath),
		slog.Time("expiry", cred.Expiry),
	)

	return cred, state, nil
}

// Client returns an HTTP client authorized with the managed credential.
// Tokens refreshed by the client during the run are written back to TokenPath.
func (m *Manager) Client(ctx context.Context) (*http.Client, error) {
	cred, _, err := m.Credential(ctx)
	if err != nil {
		return nil, err
	}

	src := &persistingSource{
		base:   cred.OAuthConfig().TokenSource(ctx, cred.OAuthToken()),
		cred:   cred,
		path:   m.TokenPath,
		logger: m.logger(),
	}

	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(cred.OAuthToken(), src)), nil
}

func (m *Manager) refresh(ctx context.Context, cred *Credential) (*Credential, error) {
	m.logger().Info("refreshing expired access token", slog.Time("expiry", cred.Expiry))

	// Dropping the access token forces the token source to hit the token endpoint.
	tok, err := cred.OAuthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("auth: refreshing token: %w", err)
	}

	return cred.withToken(tok), nil
}

func (m *Manager) consent(ctx context.Context) (*Credential, error) {
	secrets, err := os.ReadFile(m.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("auth: reading client secrets: %w", err)
	}

	cfg, err := google.ConfigFromJSON(secrets, m.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("auth: parsing client secrets %s: %w", m.CredentialsPath, err)
	}

	m.logger().Info("starting interactive consent flow", slog.Any("scopes", m.Scopes))

	tok, err := m.Authorizer.Authorize(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return newCredential(cfg, tok), nil
}

func (m *Manager) clock() time.Time {
	if m.now != nil {
		return m.now()
	}

	return time.Now()
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}

	return slog.Default()
}

// persistingSource saves every new access token handed out by base.
type persistingSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	cred *Credential
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken == p.cred.Token {
		return tok, nil
	}

	p.cred = p.cred.withToken(tok)

	if err := SaveCredential(p.path, p.cred); err != nil {
		p.logger.Warn("failed to persist refreshed token", slog.String("error", err.Error()))
	} else {
		p.logger.Info("persisted refreshed token", slog.String("path", p.path))
	}

	return tok, nil
}
