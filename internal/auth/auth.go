// Package auth handles owner passwords and the signed cookies that carry
// owner sessions and OAuth state.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/meetsched/internal/domain/scheduling"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	sessionCookie = "meetsched_session"
	stateCookie   = "meetsched_oauth_state"

	sessionTTL = 14 * 24 * time.Hour
	stateTTL   = 10 * time.Minute
)

func HashPassword(pw string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
}

func CheckPassword(hash []byte, pw string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(pw)) == nil
}

// OwnerLookup finds an owner by login email.
type OwnerLookup interface {
	ByEmail(ctx context.Context, email string) (scheduling.Owner, error)
}

// Authenticate returns the owner for email when pw matches. Unknown emails
// and wrong passwords both yield ErrInvalidCredentials.
func Authenticate(ctx context.Context, owners OwnerLookup, email, pw string) (scheduling.Owner, error) {
	o, err := owners.ByEmail(ctx, email)
	if errors.Is(err, scheduling.ErrNoRecord) {
		// Burn comparable time so unknown emails are not distinguishable.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pw))
		return scheduling.Owner{}, ErrInvalidCredentials
	}
	if err != nil {
		return scheduling.Owner{}, err
	}
	if !CheckPassword(o.PasswordHash, pw) {
		return scheduling.Owner{}, ErrInvalidCredentials
	}
	return o, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("meetsched"), bcrypt.DefaultCost)

type Session struct {
	OwnerID string
	Issued  time.Time
}

// Sessions signs and encrypts cookies with securecookie.
type Sessions struct {
	session *securecookie.SecureCookie
	state   *securecookie.SecureCookie
	secure  bool
}

// NewSessions marks cookies Secure when secure is set (production behind TLS).
func NewSessions(hashKey, blockKey []byte, secure bool) *Sessions {
	s := securecookie.New(hashKey, blockKey)
	s.MaxAge(int(sessionTTL.Seconds()))
	st := securecookie.New(hashKey, blockKey)
	st.MaxAge(int(stateTTL.Seconds()))
	return &Sessions{session: s, state: st, secure: secure}
}

func (s *Sessions) Set(w http.ResponseWriter, ownerID string) error {
	encoded, err := s.session.Encode(sessionCookie, map[string]string{
		"oid": ownerID,
		"iat": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	http.SetCookie(w, s.cookie(sessionCookie, encoded, sessionTTL))
	return nil
}

func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(sessionCookie, "", -1))
}

func (s *Sessions) Get(r *http.Request) (Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return Session{}, false
	}
	val := map[string]string{}
	if err := s.session.Decode(sessionCookie, c.Value, &val); err != nil {
		return Session{}, false
	}
	oid := val["oid"]
	if oid == "" {
		return Session{}, false
	}
	issued, _ := time.Parse(time.RFC3339, val["iat"])
	return Session{OwnerID: oid, Issued: issued}, true
}

// NewState stores a random OAuth state bound to ownerID in a short-lived
// cookie and returns it for the authorization URL.
func (s *Sessions) NewState(w http.ResponseWriter, ownerID string) (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	encoded, err := s.state.Encode(stateCookie, map[string]string{"state": state, "oid": ownerID})
	if err != nil {
		return "", err
	}
	http.SetCookie(w, s.cookie(stateCookie, encoded, stateTTL))
	return state, nil
}

// CheckState consumes the state cookie and reports whether it matches got for ownerID.
func (s *Sessions) CheckState(w http.ResponseWriter, r *http.Request, ownerID, got string) bool {
	c, err := r.Cookie(stateCookie)
	if err != nil {
		return false
	}
	http.SetCookie(w, s.cookie(stateCookie, "", -1))
	val := map[string]string{}
	if err := s.state.Decode(stateCookie, c.Value, &val); err != nil {
		return false
	}
	return got != "" && val["state"] == got && val["oid"] == ownerID
}

func (s *Sessions) cookie(name, value string, ttl time.Duration) *http.Cookie {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
		MaxAge:   maxAge,
	}
}
