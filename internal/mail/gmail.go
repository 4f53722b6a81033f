package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	netmail "net/mail"
	"strings"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GmailProvider talks to the Gmail API with a fixed access token.
// StaticTokenSource is deliberate: the client must not refresh behind our
// back, because expiry has to surface as ErrTokenExpired so the session
// manager can run its own refresh ladder.
type GmailProvider struct {
	svc *gmail.Service
}

func NewGmailProvider(ctx context.Context, tok *oauth2.Token) (*GmailProvider, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(tok)))
	if err != nil {
		return nil, fmt.Errorf("creating gmail client: %w", err)
	}
	return &GmailProvider{svc: svc}, nil
}

func (g *GmailProvider) ListUnread(ctx context.Context, max int) ([]Message, error) {
	return g.list(ctx, "is:unread in:inbox", max)
}

func (g *GmailProvider) ListRecent(ctx context.Context, max int) ([]Message, error) {
	return g.list(ctx, "in:inbox", max)
}

func (g *GmailProvider) Search(ctx context.Context, query string, max int) ([]Message, error) {
	return g.list(ctx, query, max)
}

func (g *GmailProvider) list(ctx context.Context, query string, max int) ([]Message, error) {
	if max <= 0 {
		max = 10
	}
	res, err := g.svc.Users.Messages.List("me").Q(query).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, wrapGmailErr(err)
	}

	var msgs []Message
	for _, ref := range res.Messages {
		full, err := g.svc.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).Do()
		if err != nil {
			return nil, wrapGmailErr(err)
		}
		msgs = append(msgs, fromGmail(full, ""))
	}
	return msgs, nil
}

// Fetch retrieves one message in full, decoding its plain-text body.
func (g *GmailProvider) Fetch(ctx context.Context, id string) (Message, error) {
	full, err := g.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return Message{}, wrapGmailErr(err)
	}
	return fromGmail(full, bodyText(full.Payload)), nil
}

func fromGmail(m *gmail.Message, body string) Message {
	msg := Message{
		ID:      m.Id,
		Snippet: m.Snippet,
		Body:    body,
	}
	for _, label := range m.LabelIds {
		if label == "UNREAD" {
			msg.Unread = true
		}
	}
	if m.Payload == nil {
		return msg
	}
	for _, h := range m.Payload.Headers {
		switch h.Name {
		case "Subject":
			msg.Subject = h.Value
		case "From":
			msg.From = h.Value
		case "Date":
			if t, err := netmail.ParseDate(h.Value); err == nil {
				msg.Date = t.Format("2006-01-02")
			} else {
				msg.Date = h.Value
			}
		}
	}
	return msg
}

// bodyText finds the first text/plain part, decodes its base64url payload
// and converts it to UTF-8 according to the part's declared charset.
func bodyText(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if strings.HasPrefix(part.MimeType, "text/plain") && part.Body != nil && part.Body.Data != "" {
		raw, err := base64.RawURLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
		return DecodeCharset(raw, partCharset(part))
	}
	for _, child := range part.Parts {
		if text := bodyText(child); text != "" {
			return text
		}
	}
	return ""
}

func partCharset(part *gmail.MessagePart) string {
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, "Content-Type") {
			if _, params, err := mime.ParseMediaType(h.Value); err == nil {
				return params["charset"]
			}
		}
	}
	return ""
}

func wrapGmailErr(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 401 || apiErr.Code == 403) {
		return ErrTokenExpired
	}
	// oauth2 reports an expired static token before the request is sent.
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return ErrTokenExpired
	}
	return fmt.Errorf("gmail: %w", err)
}
