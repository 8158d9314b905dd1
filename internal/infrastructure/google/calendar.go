package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/example/meetsched/internal/domain/scheduling"
)

const primaryCalendar = "primary"

// TokenSourcer yields per-owner credentials.
type TokenSourcer interface {
	TokenSource(ctx context.Context, ownerID string) (oauth2.TokenSource, error)
}

// Calendar reads busy time from and writes events to each owner's primary
// calendar. It implements scheduling.BusyProvider and scheduling.EventCreator.
type Calendar struct {
	tokens      TokenSourcer
	sendUpdates string
	opts        []option.ClientOption
}

var (
	_ scheduling.BusyProvider = (*Calendar)(nil)
	_ scheduling.EventCreator = (*Calendar)(nil)
)

// NewCalendar uses sendUpdates ("all", "externalOnly", "none") for event
// inserts and deletes. Extra options are appended to every service, which is
// how tests point it at a local server.
func NewCalendar(tokens TokenSourcer, sendUpdates string, opts ...option.ClientOption) *Calendar {
	if sendUpdates == "" {
		sendUpdates = "all"
	}
	return &Calendar{tokens: tokens, sendUpdates: sendUpdates, opts: opts}
}

func (c *Calendar) service(ctx context.Context, ownerID string) (*calendar.Service, error) {
	ts, err := c.tokens.TokenSource(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return svc, nil
}

func (c *Calendar) QueryBusy(ctx context.Context, ownerID string, start, end time.Time) ([]scheduling.Interval, error) {
	svc, err := c.service(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	res, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: floorSecond(start).Format(time.RFC3339),
		TimeMax: ceilSecond(end).Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: primaryCalendar}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	cal, ok := res.Calendars[primaryCalendar]
	if !ok {
		return nil, fmt.Errorf("freebusy: no result for %s calendar", primaryCalendar)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("freebusy: %s", cal.Errors[0].Reason)
	}

	out := make([]scheduling.Interval, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		s, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, fmt.Errorf("freebusy: bad start %q: %w", p.Start, err)
		}
		e, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, fmt.Errorf("freebusy: bad end %q: %w", p.End, err)
		}
		iv := scheduling.Interval{Start: s.UTC(), End: e.UTC()}
		if iv.Valid() {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (c *Calendar) CreateEvent(ctx context.Context, ownerID string, in scheduling.EventInput) (string, error) {
	svc, err := c.service(ctx, ownerID)
	if err != nil {
		return "", err
	}
	ev := &calendar.Event{
		Summary:     in.Title,
		Description: in.Description,
		Start:       &calendar.EventDateTime{DateTime: in.Start.Format(time.RFC3339), TimeZone: in.TimeZone},
		End:         &calendar.EventDateTime{DateTime: in.End.Format(time.RFC3339), TimeZone: in.TimeZone},
	}
	for _, a := range in.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: a})
	}
	created, err := svc.Events.Insert(primaryCalendar, ev).SendUpdates(c.sendUpdates).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}

// CancelEvent deletes the event. An event that is already gone counts as cancelled.
func (c *Calendar) CancelEvent(ctx context.Context, ownerID, eventID string) error {
	svc, err := c.service(ctx, ownerID)
	if err != nil {
		return err
	}
	err = svc.Events.Delete(primaryCalendar, eventID).SendUpdates(c.sendUpdates).Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Freebusy takes whole-second RFC 3339 bounds; round outwards so the query
// never covers less than [start, end).
func floorSecond(t time.Time) time.Time { return t.UTC().Truncate(time.Second) }

func ceilSecond(t time.Time) time.Time {
	f := floorSecond(t)
	if f.Before(t) {
		return f.Add(time.Second)
	}
	return f
}
