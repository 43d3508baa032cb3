package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
)

const (
	stateTokenBytes = 16
	shutdownTimeout = 5 * time.Second
)

// LoopbackFlow runs the installed-app authorization code flow. It listens on
// an ephemeral loopback port, sends the user to the consent page and
// exchanges the code delivered to the callback for a token.
type LoopbackFlow struct {
	// OpenURL launches a browser; nil only prints the URL.
	OpenURL func(string) error
	// Out receives the authorization URL. Defaults to os.Stdout.
	Out    io.Writer
	Logger *slog.Logger
}

type callbackResult struct {
	code string
	err  error
}

// Authorize obtains a token for cfg. cfg.RedirectURL is overwritten with the
// address of the local callback listener.
func (f *LoopbackFlow) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	logger := f.logger()

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("auth: binding callback listener: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", port)

	state, err := generateState()
	if err != nil {
		_ = listener.Close()

		return nil, fmt.Errorf("auth: generating state token: %w", err)
	}

	resultCh := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		handleCallback(w, r, state, resultCh)
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			deliver(resultCh, callbackResult{err: fmt.Errorf("auth: callback server: %w", serveErr)})
		}
	}()

	defer f.shutdown(srv)

	logger.Info("callback server listening", slog.Int("port", port))

	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	f.launch(authURL)

	var code string

	select {
	case result := <-resultCh:
		if result.err != nil {
			return nil, result.err
		}

		code = result.code
	case <-ctx.Done():
		return nil, fmt.Errorf("auth: consent canceled: %w", ctx.Err())
	}

	logger.Info("received authorization code, exchanging for token")

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("auth: token exchange failed: %w", err)
	}

	return tok, nil
}

func (f *LoopbackFlow) launch(authURL string) {
	out := f.Out
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintf(out, "Please visit this URL to authorize this application: %s\n", authURL)

	if f.OpenURL == nil {
		return
	}

	if err := f.OpenURL(authURL); err != nil {
		f.logger().Warn("failed to open browser", slog.String("error", err.Error()))
	}
}

func (f *LoopbackFlow) shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		f.logger().Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

func (f *LoopbackFlow) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}

	return slog.Default()
}

// handleCallback validates the redirect and hands the code to Authorize.
func handleCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	q := r.URL.Query()

	// Browsers ask for /favicon.ico and similar; only the redirect carries state.
	if q.Get("state") == "" && q.Get("error") == "" && q.Get("code") == "" {
		http.NotFound(w, r)

		return
	}

	if q.Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		deliver(resultCh, callbackResult{err: fmt.Errorf("auth: OAuth2 state mismatch")})

		return
	}

	if errParam := q.Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		deliver(resultCh, callbackResult{err: fmt.Errorf("auth: authorization failed: %s", errParam)})

		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		deliver(resultCh, callbackResult{err: fmt.Errorf("auth: callback missing authorization code")})

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><p>The authentication flow has completed. You may close this window.</p></body></html>")
	deliver(resultCh, callbackResult{code: code})
}

// deliver sends without blocking; only the first result matters.
func deliver(ch chan<- callbackResult, r callbackResult) {
	select {
	case ch <- r:
	default:
	}
}

func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
