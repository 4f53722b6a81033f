package mail

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/yonca-ai/yonca/internal/logger"
	"github.com/yonca-ai/yonca/internal/tools"
)

// Authenticator runs the OAuth consent flow against the mail provider.
// Read-only mail scope; nothing here can send or modify messages.
type Authenticator struct {
	cfg *oauth2.Config
}

// NewAuthenticator loads the OAuth client configuration from the client
// secret file downloaded from the provider's console.
func NewAuthenticator(clientSecretPath string) (*Authenticator, error) {
	data, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("reading client secret: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret: %w", err)
	}
	return &Authenticator{cfg: cfg}, nil
}

type authResult struct {
	code string
	err  error
}

// Interactive obtains a fresh token through browser consent: a loopback
// redirect server receives the authorization code. The wait is human-paced
// and has no timeout of its own; only ctx cancellation or an explicit
// denial ends it early.
func (a *Authenticator) Interactive(ctx context.Context) (*oauth2.Token, error) {
	log := logger.ForComponent("mail-auth")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting redirect listener: %w", err)
	}
	defer ln.Close()

	cfg := *a.cfg
	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	results := make(chan authResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- authResult{err: tools.Authorizationf("authorization response state mismatch")}
		case q.Get("error") != "":
			fmt.Fprintln(w, "Authorization denied. You can close this tab.")
			results <- authResult{err: tools.Authorizationf("authorization denied: %s", q.Get("error"))}
		default:
			fmt.Fprintln(w, "Authorization complete. You can close this tab.")
			results <- authResult{code: q.Get("code")}
		}
	})
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Close()

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	log.Info("waiting for browser consent", "url", url)
	fmt.Fprintf(os.Stderr, "Open this URL in your browser to authorize mail access:\n%s\n", url)

	var res authResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, tools.Authorizationf("authorization cancelled")
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := cfg.Exchange(ctx, res.code)
	if err != nil {
		return nil, tools.Authorizationf("exchanging authorization code: %v", err)
	}
	return tok, nil
}

// Refresh exchanges the refresh credential for a new access token without
// user interaction.
func (a *Authenticator) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := a.cfg.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	return fresh, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
