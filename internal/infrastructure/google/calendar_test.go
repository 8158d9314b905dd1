package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/example/meetsched/internal/domain/scheduling"
)

type staticTokens struct{ err error }

func (s staticTokens) TokenSource(context.Context, string) (oauth2.TokenSource, error) {
	if s.err != nil {
		return nil, s.err
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", Expiry: time.Now().Add(time.Hour)}), nil
}

func newTestCalendar(t *testing.T, h http.HandlerFunc) *Calendar {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewCalendar(staticTokens{}, "none", option.WithEndpoint(srv.URL+"/"))
}

func TestQueryBusy(t *testing.T) {
	var req struct {
		TimeMin string `json:"timeMin"`
		TimeMax string `json:"timeMax"`
		Items   []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	c := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/freeBusy", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"calendars":{"primary":{"busy":[
			{"start":"2026-03-02T10:15:00+01:00","end":"2026-03-02T10:45:00+01:00"},
			{"start":"2026-03-02T11:00:00Z","end":"2026-03-02T11:00:00Z"}
		]}}}`))
	})

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	busy, err := c.QueryBusy(context.Background(), "owner", start, start.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "2026-03-02T09:00:00Z", req.TimeMin)
	assert.Equal(t, "2026-03-02T10:00:00Z", req.TimeMax)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "primary", req.Items[0].ID)

	require.Len(t, busy, 1, "empty intervals are dropped")
	assert.Equal(t, time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC), busy[0].Start)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 45, 0, 0, time.UTC), busy[0].End)
}

func TestQueryBusy_FractionalWindowRoundsOutwards(t *testing.T) {
	var req struct {
		TimeMin string `json:"timeMin"`
		TimeMax string `json:"timeMax"`
	}
	c := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"calendars":{"primary":{"busy":[]}}}`))
	})

	start := time.Date(2026, 3, 2, 9, 7, 13, 500_000_000, time.UTC)
	_, err := c.QueryBusy(context.Background(), "owner", start, start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02T09:07:13Z", req.TimeMin)
	assert.Equal(t, "2026-03-02T09:37:14Z", req.TimeMax)
}

func TestQueryBusy_CalendarError(t *testing.T) {
	c := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"calendars":{"primary":{"errors":[{"domain":"global","reason":"notFound"}]}}}`))
	})
	_, err := c.QueryBusy(context.Background(), "owner", time.Now(), time.Now().Add(time.Hour))
	assert.ErrorContains(t, err, "notFound")
}

func TestCreateEvent(t *testing.T) {
	var got struct {
		Summary string `json:"summary"`
		Start   struct {
			DateTime string `json:"dateTime"`
			TimeZone string `json:"timeZone"`
		} `json:"start"`
		Attendees []struct {
			Email string `json:"email"`
		} `json:"attendees"`
	}
	c := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "none", r.URL.Query().Get("sendUpdates"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc123","status":"confirmed"}`))
	})

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	id, err := c.CreateEvent(context.Background(), "owner", scheduling.EventInput{
		Title:     "Intro call",
		Start:     start,
		End:       start.Add(30 * time.Minute),
		TimeZone:  "Europe/Berlin",
		Attendees: []string{"host@example.com", "guest@example.org"},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, "Intro call", got.Summary)
	assert.Equal(t, "2026-03-02T09:00:00Z", got.Start.DateTime)
	assert.Equal(t, "Europe/Berlin", got.Start.TimeZone)
	require.Len(t, got.Attendees, 2)
	assert.Equal(t, "guest@example.org", got.Attendees[1].Email)
}

func TestCreateEvent_UpstreamError(t *testing.T) {
	c := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"insufficient permissions"}}`))
	})
	_, err := c.CreateEvent(context.Background(), "owner", scheduling.EventInput{Title: "x", Start: time.Now(), End: time.Now().Add(time.Minute)})
	assert.ErrorContains(t, err, "insufficient permissions")
}

func TestCancelEvent(t *testing.T) {
	status := http.StatusNoContent
	var path string
	c := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		path = r.URL.Path
		w.WriteHeader(status)
	})

	require.NoError(t, c.CancelEvent(context.Background(), "owner", "abc123"))
	assert.Equal(t, "/calendars/primary/events/abc123", path)

	status = http.StatusGone
	assert.NoError(t, c.CancelEvent(context.Background(), "owner", "abc123"))

	status = http.StatusInternalServerError
	assert.Error(t, c.CancelEvent(context.Background(), "owner", "abc123"))
}

func TestNotConnected(t *testing.T) {
	c := NewCalendar(staticTokens{err: ErrNotConnected}, "")
	_, err := c.QueryBusy(context.Background(), "owner", time.Now(), time.Now().Add(time.Hour))
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.Equal(t, "all", c.sendUpdates)
}
