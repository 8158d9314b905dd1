package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meetsched/internal/domain/scheduling"
)

type owners map[string]scheduling.Owner

func (o owners) ByEmail(_ context.Context, email string) (scheduling.Owner, error) {
	if ow, ok := o[email]; ok {
		return ow, nil
	}
	return scheduling.Owner{}, scheduling.ErrNoRecord
}

func TestAuthenticate(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	db := owners{"host@example.com": {ID: "o1", Email: "host@example.com", PasswordHash: hash}}

	o, err := Authenticate(context.Background(), db, "host@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	_, err = Authenticate(context.Background(), db, "host@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = Authenticate(context.Background(), db, "nobody@example.com", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func newSessions() *Sessions {
	return NewSessions([]byte("0123456789abcdef0123456789abcdef"), []byte("abcdef0123456789abcdef0123456789"), false)
}

// replay copies the Set-Cookie headers of rec onto a fresh request.
func replay(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			r.AddCookie(c)
		}
	}
	return r
}

func TestSessionRoundTrip(t *testing.T) {
	s := newSessions()
	rec := httptest.NewRecorder()
	require.NoError(t, s.Set(rec, "owner-1"))

	sess, ok := s.Get(replay(rec))
	require.True(t, ok)
	assert.Equal(t, "owner-1", sess.OwnerID)
	assert.False(t, sess.Issued.IsZero())

	_, ok = s.Get(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	other := NewSessions([]byte("ffffffffffffffffffffffffffffffff"), []byte("abcdef0123456789abcdef0123456789"), false)
	_, ok = other.Get(replay(rec))
	assert.False(t, ok, "cookie signed with another key is rejected")

	cleared := httptest.NewRecorder()
	s.Clear(cleared)
	assert.Equal(t, -1, cleared.Result().Cookies()[0].MaxAge)
}

func TestOAuthState(t *testing.T) {
	s := newSessions()
	rec := httptest.NewRecorder()
	state, err := s.NewState(rec, "owner-1")
	require.NoError(t, err)
	require.NotEmpty(t, state)

	assert.True(t, s.CheckState(httptest.NewRecorder(), replay(rec), "owner-1", state))
	assert.False(t, s.CheckState(httptest.NewRecorder(), replay(rec), "owner-2", state))
	assert.False(t, s.CheckState(httptest.NewRecorder(), replay(rec), "owner-1", "forged"))
	assert.False(t, s.CheckState(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "owner-1", state))
}
