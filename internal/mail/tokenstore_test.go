package mail

import (
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/yonca-ai/yonca/internal/tools"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	ts := NewTokenStore(t.TempDir(), "passphrase")

	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	if err := ts.Save("school", tok); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := ts.Load("school")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != tok.AccessToken || got.RefreshToken != tok.RefreshToken {
		t.Errorf("token = %+v, want %+v", got, tok)
	}
	if !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("expiry = %v, want %v", got.Expiry, tok.Expiry)
	}
}

func TestTokenStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	if err := NewTokenStore(dir, "right").Save("a", &oauth2.Token{AccessToken: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err := NewTokenStore(dir, "wrong").Load("a")
	if tools.KindOf(err) != tools.KindAuthorization {
		t.Errorf("expected authorization error, got %v", err)
	}
}

func TestTokenStoreMissingAccount(t *testing.T) {
	ts := NewTokenStore(t.TempDir(), "p")
	_, err := ts.Load("nobody")
	if tools.KindOf(err) != tools.KindNotFound {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestTokenStoreAccounts(t *testing.T) {
	ts := NewTokenStore(t.TempDir(), "p")
	for _, name := range []string{"personal", "school"} {
		if err := ts.Save(name, &oauth2.Token{AccessToken: name}); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
	}

	accounts, err := ts.Accounts()
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(accounts) != 2 || accounts[0] != "personal" || accounts[1] != "school" {
		t.Errorf("accounts = %v", accounts)
	}

	if err := ts.Delete("personal"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	accounts, _ = ts.Accounts()
	if len(accounts) != 1 || accounts[0] != "school" {
		t.Errorf("accounts after delete = %v", accounts)
	}
}

func TestTokenStoreRejectsBadAccountNames(t *testing.T) {
	ts := NewTokenStore(t.TempDir(), "p")
	for _, name := range []string{"", "   ", "../escape", "a/b"} {
		if err := ts.Save(name, &oauth2.Token{}); tools.KindOf(err) != tools.KindValidation {
			t.Errorf("Save(%q): expected validation error, got %v", name, err)
		}
	}
}
