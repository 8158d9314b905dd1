// Package google connects owners' Google accounts and talks to their
// calendars on their behalf.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/example/meetsched/internal/domain/scheduling"
)

// Scopes requested when an owner connects their account.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/calendar.readonly", // freebusy
	"https://www.googleapis.com/auth/gmail.send",
}

// ErrNotConnected is returned when an owner has not granted calendar access.
var ErrNotConnected = errors.New("google account not connected")

const callbackPath = "/oauth/google/callback"

func OAuthConfig(clientID, clientSecret, baseURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  strings.TrimRight(baseURL, "/") + callbackPath,
		Scopes:       Scopes,
	}
}

// CredentialStore persists the grant per owner.
type CredentialStore interface {
	Get(ctx context.Context, ownerID string) (scheduling.CalendarCredential, error)
	Save(ctx context.Context, c scheduling.CalendarCredential) error
}

// Tokens turns stored grants into token sources. Refreshed access tokens live
// only in the returned source; the stored refresh token stays valid.
type Tokens struct {
	Config *oauth2.Config
	Store  CredentialStore
}

// AuthCodeURL asks for offline access with forced consent so Google returns a
// refresh token on every connect.
func (t *Tokens) AuthCodeURL(state string) string {
	return t.Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens and stores them for ownerID.
func (t *Tokens) Exchange(ctx context.Context, ownerID, code string) error {
	tok, err := t.Config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	return t.Store.Save(ctx, scheduling.CalendarCredential{
		OwnerID:      ownerID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	})
}

func (t *Tokens) TokenSource(ctx context.Context, ownerID string) (oauth2.TokenSource, error) {
	c, err := t.Store.Get(ctx, ownerID)
	if errors.Is(err, scheduling.ErrNoRecord) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if c.AccessToken == "" && c.RefreshToken == "" {
		return nil, ErrNotConnected
	}
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
	// Detached so a cancelled request does not poison a later refresh.
	return t.Config.TokenSource(context.WithoutCancel(ctx), tok), nil
}
