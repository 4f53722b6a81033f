package email

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/yonca-ai/yonca/internal/logger"
	"github.com/yonca-ai/yonca/internal/mail"
	"github.com/yonca-ai/yonca/internal/tools"
)

// Account states. Expiry is detected lazily: a provider call failing with
// an expired token moves the account to StateExpired, and the next step of
// the ladder (silent refresh, then interactive consent) runs immediately.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateExpired      State = "expired"
)

// Authorizer is the consent-flow boundary; mail.Authenticator is the real
// implementation and tests substitute a scripted one.
type Authorizer interface {
	Interactive(ctx context.Context) (*oauth2.Token, error)
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
}

// DialFunc opens a provider session for a token.
type DialFunc func(ctx context.Context, tok *oauth2.Token) (mail.Provider, error)

type account struct {
	token    *oauth2.Token
	provider mail.Provider
	state    State
}

// Manager owns the per-account token lifecycle. Accounts are independent;
// nothing is shared between them except the encrypted token directory.
type Manager struct {
	auth     Authorizer
	tokens   *mail.TokenStore
	dial     DialFunc
	accounts map[string]*account
	log      *slog.Logger
}

func NewManager(auth Authorizer, tokens *mail.TokenStore, dial DialFunc) *Manager {
	if dial == nil {
		dial = func(ctx context.Context, tok *oauth2.Token) (mail.Provider, error) {
			return mail.NewGmailProvider(ctx, tok)
		}
	}
	return &Manager{
		auth:     auth,
		tokens:   tokens,
		dial:     dial,
		accounts: map[string]*account{},
		log:      logger.ForComponent("email"),
	}
}

// Connect brings an account to the connected state: stored valid token if
// one exists, else silent refresh, else interactive consent. A denied
// consent leaves the account disconnected.
func (m *Manager) Connect(ctx context.Context, name string) (string, error) {
	if acct, ok := m.accounts[name]; ok && acct.state == StateConnected {
		return "Account '" + name + "' is already connected.", nil
	}

	tok, err := m.tokens.Load(name)
	switch {
	case err == nil && tok.Valid():
		// stored token still good
	case err == nil:
		m.log.Info("stored token expired, refreshing", "account", name)
		tok, err = m.auth.Refresh(ctx, tok)
		if err != nil {
			m.log.Warn("silent refresh failed, starting consent flow", "account", name, "error", err)
			tok, err = m.auth.Interactive(ctx)
		}
	case tools.KindOf(err) == tools.KindNotFound:
		tok, err = m.auth.Interactive(ctx)
	default:
		return "", err
	}
	if err != nil {
		m.setState(name, StateDisconnected)
		return "", err
	}

	if err := m.tokens.Save(name, tok); err != nil {
		return "", err
	}
	provider, err := m.dial(ctx, tok)
	if err != nil {
		m.setState(name, StateDisconnected)
		return "", err
	}
	m.accounts[name] = &account{token: tok, provider: provider, state: StateConnected}
	return "Account '" + name + "' connected.", nil
}

// Accounts reports every known account with its state. Accounts with a
// stored token but no live session show as disconnected.
func (m *Manager) Accounts() (map[string]State, error) {
	stored, err := m.tokens.Accounts()
	if err != nil {
		return nil, err
	}
	states := map[string]State{}
	for _, name := range stored {
		states[name] = StateDisconnected
	}
	for name, acct := range m.accounts {
		states[name] = acct.state
	}
	return states, nil
}

func (m *Manager) Unread(ctx context.Context, name string, max int) ([]mail.Message, error) {
	var msgs []mail.Message
	err := m.withProvider(ctx, name, func(p mail.Provider) error {
		var err error
		msgs, err = p.ListUnread(ctx, max)
		return err
	})
	return msgs, err
}

func (m *Manager) Recent(ctx context.Context, name string, max int) ([]mail.Message, error) {
	var msgs []mail.Message
	err := m.withProvider(ctx, name, func(p mail.Provider) error {
		var err error
		msgs, err = p.ListRecent(ctx, max)
		return err
	})
	return msgs, err
}

// SearchMail runs a query. Queries with wildcard terms or date bounds are
// evaluated locally over the recent inbox, since the provider's own query
// language does not cover them.
func (m *Manager) SearchMail(ctx context.Context, name, query string, max int) ([]mail.Message, error) {
	parsed := mail.ParseQuery(query)
	local := !parsed.After.IsZero() || !parsed.Before.IsZero()
	for _, term := range parsed.Terms {
		if containsWildcard(term) {
			local = true
		}
	}

	var msgs []mail.Message
	err := m.withProvider(ctx, name, func(p mail.Provider) error {
		var err error
		if local {
			msgs, err = p.ListRecent(ctx, 50)
			if err == nil {
				msgs = parsed.Filter(msgs)
				if max > 0 && len(msgs) > max {
					msgs = msgs[:max]
				}
			}
			return err
		}
		msgs, err = p.Search(ctx, query, max)
		return err
	})
	return msgs, err
}

// Important returns the unread messages matching the importance keywords,
// in provider order.
func (m *Manager) Important(ctx context.Context, name string) ([]mail.Message, error) {
	msgs, err := m.Unread(ctx, name, 25)
	if err != nil {
		return nil, err
	}
	return mail.Important(msgs), nil
}

func (m *Manager) Content(ctx context.Context, name, id string) (mail.Message, error) {
	var msg mail.Message
	err := m.withProvider(ctx, name, func(p mail.Provider) error {
		var err error
		msg, err = p.Fetch(ctx, id)
		return err
	})
	return msg, err
}

// withProvider runs op against a connected account, handling lazy expiry:
// on ErrTokenExpired the account moves to expired, a silent refresh is
// attempted, and only if that fails does the interactive flow run. The op
// is retried once with the renewed session.
func (m *Manager) withProvider(ctx context.Context, name string, op func(mail.Provider) error) error {
	acct, ok := m.accounts[name]
	if !ok || acct.state != StateConnected {
		return tools.Authorizationf("account '%s' is not connected, use connect_account first", name)
	}

	err := op(acct.provider)
	if !errors.Is(err, mail.ErrTokenExpired) {
		return err
	}

	acct.state = StateExpired
	m.log.Info("token expired, refreshing", "account", name)

	tok, rerr := m.auth.Refresh(ctx, acct.token)
	if rerr != nil {
		m.log.Warn("silent refresh failed, starting consent flow", "account", name, "error", rerr)
		tok, rerr = m.auth.Interactive(ctx)
	}
	if rerr != nil {
		acct.state = StateDisconnected
		return tools.Authorizationf("account '%s' session expired and could not be renewed: %v", name, rerr)
	}

	if err := m.tokens.Save(name, tok); err != nil {
		return err
	}
	provider, err := m.dial(ctx, tok)
	if err != nil {
		acct.state = StateDisconnected
		return err
	}
	acct.token = tok
	acct.provider = provider
	acct.state = StateConnected
	return op(provider)
}

func (m *Manager) setState(name string, s State) {
	if acct, ok := m.accounts[name]; ok {
		acct.state = s
	}
}

func containsWildcard(s string) bool {
	for _, r := range s {
		if r == '*' || r == '?' {
			return true
		}
	}
	return false
}
