package mail

import (
	"context"
	"errors"
)

// ErrTokenExpired marks a provider call rejected because the access token
// is no longer valid.
var ErrTokenExpired = errors.New("mail: access token expired")

// Message is the normalized record produced by every provider. Body is
// populated only by Fetch; list and search calls carry the snippet.
type Message struct {
	ID      string
	Subject string
	From    string
	Date    string
	Snippet string
	Body    string
	Unread  bool
}

// Provider is the mail backend boundary. Every call requires a valid access
// token; an expired or revoked token is reported as ErrTokenExpired so the
// caller can refresh and retry.
type Provider interface {
	ListUnread(ctx context.Context, max int) ([]Message, error)
	ListRecent(ctx context.Context, max int) ([]Message, error)
	Search(ctx context.Context, query string, max int) ([]Message, error)
	Fetch(ctx context.Context, id string) (Message, error)
}
