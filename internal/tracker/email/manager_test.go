package email

import (
	"context"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/yonca-ai/yonca/internal/mail"
	"github.com/yonca-ai/yonca/internal/tools"
)

type fakeAuth struct {
	interactiveTok   *oauth2.Token
	interactiveErr   error
	refreshTok       *oauth2.Token
	refreshErr       error
	interactiveCalls int
	refreshCalls     int
}

func (f *fakeAuth) Interactive(ctx context.Context) (*oauth2.Token, error) {
	f.interactiveCalls++
	return f.interactiveTok, f.interactiveErr
}

func (f *fakeAuth) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	f.refreshCalls++
	return f.refreshTok, f.refreshErr
}

type fakeProvider struct {
	msgs        []mail.Message
	expireCalls int
}

func (f *fakeProvider) fail() bool {
	if f.expireCalls > 0 {
		f.expireCalls--
		return true
	}
	return false
}

func (f *fakeProvider) ListUnread(ctx context.Context, max int) ([]mail.Message, error) {
	if f.fail() {
		return nil, mail.ErrTokenExpired
	}
	return f.msgs, nil
}

func (f *fakeProvider) ListRecent(ctx context.Context, max int) ([]mail.Message, error) {
	if f.fail() {
		return nil, mail.ErrTokenExpired
	}
	return f.msgs, nil
}

func (f *fakeProvider) Search(ctx context.Context, query string, max int) ([]mail.Message, error) {
	if f.fail() {
		return nil, mail.ErrTokenExpired
	}
	return f.msgs, nil
}

func (f *fakeProvider) Fetch(ctx context.Context, id string) (mail.Message, error) {
	if f.fail() {
		return mail.Message{}, mail.ErrTokenExpired
	}
	for _, m := range f.msgs {
		if m.ID == id {
			return m, nil
		}
	}
	return mail.Message{}, tools.NotFoundf("message %s not found", id)
}

func validToken(access string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: access,
		Expiry:      time.Now().Add(time.Hour),
	}
}

func newTestManager(t *testing.T, auth *fakeAuth, provider *fakeProvider) *Manager {
	t.Helper()
	tokens := mail.NewTokenStore(t.TempDir(), "test-pass")
	dial := func(ctx context.Context, tok *oauth2.Token) (mail.Provider, error) {
		return provider, nil
	}
	return NewManager(auth, tokens, dial)
}

func TestConnectWithoutStoredTokenUsesConsent(t *testing.T) {
	auth := &fakeAuth{interactiveTok: validToken("fresh")}
	m := newTestManager(t, auth, &fakeProvider{})

	if _, err := m.Connect(context.Background(), "school"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if auth.interactiveCalls != 1 {
		t.Errorf("interactive calls = %d, want 1", auth.interactiveCalls)
	}

	// Token must be persisted for the next connect.
	states, err := m.Accounts()
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if states["school"] != StateConnected {
		t.Errorf("state = %s, want connected", states["school"])
	}
}

func TestConnectWithStoredValidTokenSkipsConsent(t *testing.T) {
	auth := &fakeAuth{}
	tokens := mail.NewTokenStore(t.TempDir(), "test-pass")
	if err := tokens.Save("school", validToken("stored")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	provider := &fakeProvider{}
	m := NewManager(auth, tokens, func(ctx context.Context, tok *oauth2.Token) (mail.Provider, error) {
		return provider, nil
	})

	if _, err := m.Connect(context.Background(), "school"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if auth.interactiveCalls != 0 || auth.refreshCalls != 0 {
		t.Errorf("stored valid token must not trigger auth, got interactive=%d refresh=%d",
			auth.interactiveCalls, auth.refreshCalls)
	}
}

func TestExpiredTokenIsSilentlyRefreshed(t *testing.T) {
	auth := &fakeAuth{refreshTok: validToken("renewed")}
	provider := &fakeProvider{
		msgs:        []mail.Message{{ID: "1", Subject: "hi"}},
		expireCalls: 1,
	}
	m := newTestManager(t, auth, provider)
	auth.interactiveTok = validToken("first")

	if _, err := m.Connect(context.Background(), "school"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	auth.interactiveCalls = 0

	msgs, err := m.Unread(context.Background(), "school", 10)
	if err != nil {
		t.Fatalf("Unread after expiry: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("messages = %d, want 1", len(msgs))
	}
	if auth.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", auth.refreshCalls)
	}
	// Refresh succeeded, so no browser interaction may happen.
	if auth.interactiveCalls != 0 {
		t.Errorf("interactive calls = %d, want 0", auth.interactiveCalls)
	}

	states, _ := m.Accounts()
	if states["school"] != StateConnected {
		t.Errorf("state = %s, want connected", states["school"])
	}
}

func TestRefreshFailureFallsBackToConsent(t *testing.T) {
	auth := &fakeAuth{
		interactiveTok: validToken("via-browser"),
		refreshErr:     tools.Authorizationf("refresh token revoked"),
	}
	provider := &fakeProvider{expireCalls: 1}
	m := newTestManager(t, auth, provider)

	if _, err := m.Connect(context.Background(), "school"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	auth.interactiveCalls = 0

	if _, err := m.Unread(context.Background(), "school", 10); err != nil {
		t.Fatalf("Unread: %v", err)
	}
	if auth.refreshCalls != 1 || auth.interactiveCalls != 1 {
		t.Errorf("refresh=%d interactive=%d, want 1 and 1", auth.refreshCalls, auth.interactiveCalls)
	}
}

func TestDeniedConsentDisconnectsAccount(t *testing.T) {
	auth := &fakeAuth{
		interactiveTok: validToken("first"),
	}
	provider := &fakeProvider{expireCalls: 1}
	m := newTestManager(t, auth, provider)

	if _, err := m.Connect(context.Background(), "school"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	auth.refreshErr = tools.Authorizationf("revoked")
	auth.interactiveTok = nil
	auth.interactiveErr = tools.Authorizationf("authorization denied: access_denied")

	_, err := m.Unread(context.Background(), "school", 10)
	if tools.KindOf(err) != tools.KindAuthorization {
		t.Fatalf("expected authorization error, got %v", err)
	}

	states, _ := m.Accounts()
	if states["school"] != StateDisconnected {
		t.Errorf("state = %s, want disconnected", states["school"])
	}
}

func TestOperationsRequireConnection(t *testing.T) {
	m := newTestManager(t, &fakeAuth{}, &fakeProvider{})

	_, err := m.Unread(context.Background(), "nobody", 10)
	if tools.KindOf(err) != tools.KindAuthorization {
		t.Errorf("expected authorization error, got %v", err)
	}
}

func TestImportantFiltersUnread(t *testing.T) {
	auth := &fakeAuth{interactiveTok: validToken("t")}
	provider := &fakeProvider{msgs: []mail.Message{
		{ID: "1", Subject: "lunch?"},
		{ID: "2", Subject: "PS4 deadline moved"},
		{ID: "3", Subject: "urgent: fees due"},
	}}
	m := newTestManager(t, auth, provider)

	if _, err := m.Connect(context.Background(), "school"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	msgs, err := m.Important(context.Background(), "school")
	if err != nil {
		t.Fatalf("Important: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "2" || msgs[1].ID != "3" {
		t.Errorf("important = %+v", msgs)
	}
}

func TestSearchWildcardFiltersLocally(t *testing.T) {
	auth := &fakeAuth{interactiveTok: validToken("t")}
	provider := &fakeProvider{msgs: []mail.Message{
		{ID: "1", Subject: "grades", From: "registrar@ku.edu.tr", Date: "2025-03-01"},
		{ID: "2", Subject: "sale", From: "promo@shop.example", Date: "2025-03-02"},
	}}
	m := newTestManager(t, auth, provider)

	if _, err := m.Connect(context.Background(), "school"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	msgs, err := m.SearchMail(context.Background(), "school", "*@ku.edu.tr", 10)
	if err != nil {
		t.Fatalf("SearchMail: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "1" {
		t.Errorf("search result = %+v", msgs)
	}
}
