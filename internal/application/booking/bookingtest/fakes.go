// Package bookingtest provides in-memory implementations of the scheduling
// ports for tests.
package bookingtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/meetsched/internal/domain/scheduling"
)

type Store struct {
	mu           sync.Mutex
	owners       map[string]scheduling.Owner
	meetingTypes map[string]scheduling.MeetingType
	bookings     map[string]scheduling.Booking

	// InsertErr, when set, is returned by InsertConfirmed instead of inserting.
	InsertErr error

	Reads     int
	Mutations int
}

func NewStore() *Store {
	return &Store{
		owners:       map[string]scheduling.Owner{},
		meetingTypes: map[string]scheduling.MeetingType{},
		bookings:     map[string]scheduling.Booking{},
	}
}

func (s *Store) AddOwner(o scheduling.Owner) scheduling.Owner {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	s.owners[o.ID] = o
	return o
}

func (s *Store) AddMeetingType(mt scheduling.MeetingType) scheduling.MeetingType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mt.ID == "" {
		mt.ID = uuid.NewString()
	}
	s.meetingTypes[mt.ID] = mt
	return mt
}

// AddBooking stores b without any overlap check.
func (s *Store) AddBooking(b scheduling.Booking) scheduling.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.bookings[b.ID] = b
	return b
}

func (s *Store) Owner(_ context.Context, id string) (scheduling.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	o, ok := s.owners[id]
	if !ok {
		return scheduling.Owner{}, scheduling.ErrNoRecord
	}
	return o, nil
}

func (s *Store) MeetingType(_ context.Context, id string) (scheduling.MeetingType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	mt, ok := s.meetingTypes[id]
	if !ok {
		return scheduling.MeetingType{}, scheduling.ErrNoRecord
	}
	return mt, nil
}

func (s *Store) Booking(_ context.Context, id string) (scheduling.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	b, ok := s.bookings[id]
	if !ok {
		return scheduling.Booking{}, scheduling.ErrNoRecord
	}
	return b, nil
}

func (s *Store) OverlappingBookings(_ context.Context, ownerID string, start, end time.Time) ([]scheduling.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	return s.overlappingLocked(ownerID, scheduling.Interval{Start: start, End: end}), nil
}

func (s *Store) overlappingLocked(ownerID string, window scheduling.Interval) []scheduling.Booking {
	var out []scheduling.Booking
	for _, b := range s.bookings {
		if b.OwnerID != ownerID || b.Status != scheduling.StatusConfirmed {
			continue
		}
		if scheduling.Overlaps(b.Interval(), window) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// InsertConfirmed enforces the same exclusion rule as the Postgres schema.
func (s *Store) InsertConfirmed(_ context.Context, b scheduling.Booking) (scheduling.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return scheduling.Booking{}, s.InsertErr
	}
	if len(s.overlappingLocked(b.OwnerID, b.Interval())) > 0 {
		return scheduling.Booking{}, scheduling.ErrOverlap
	}
	s.Mutations++
	b.ID = uuid.NewString()
	b.Status = scheduling.StatusConfirmed
	b.CreatedAt = time.Now().UTC()
	s.bookings[b.ID] = b
	return b, nil
}

func (s *Store) SetBookingStatus(_ context.Context, id string, status scheduling.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return scheduling.ErrNoRecord
	}
	if b.Status == status {
		return scheduling.ErrStatusUnchanged
	}
	if status == scheduling.StatusConfirmed && len(s.overlappingLocked(b.OwnerID, b.Interval())) > 0 {
		return scheduling.ErrOverlap
	}
	s.Mutations++
	b.Status = status
	s.bookings[id] = b
	return nil
}

// Confirmed returns all confirmed bookings ordered by start.
func (s *Store) Confirmed() []scheduling.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []scheduling.Booking
	for _, b := range s.bookings {
		if b.Status == scheduling.StatusConfirmed {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Calendar fakes both the busy provider and the event creator.
type Calendar struct {
	mu     sync.Mutex
	busy   map[string][]scheduling.Interval
	events map[string]scheduling.EventInput

	// EventsAreBusy makes created events show up in later busy queries.
	EventsAreBusy bool
	BusyErr       error
	CreateErr     error
	CancelErr     error
	// OnCreate runs before an event is created, outside the fake's lock.
	OnCreate func()

	BusyCalls   int
	CreateCalls int
	Cancelled   []string
}

func NewCalendar() *Calendar {
	return &Calendar{
		busy:   map[string][]scheduling.Interval{},
		events: map[string]scheduling.EventInput{},
	}
}

func (c *Calendar) AddBusy(ownerID string, iv ...scheduling.Interval) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy[ownerID] = append(c.busy[ownerID], iv...)
}

func (c *Calendar) QueryBusy(_ context.Context, ownerID string, start, end time.Time) ([]scheduling.Interval, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BusyCalls++
	if c.BusyErr != nil {
		return nil, c.BusyErr
	}
	window := scheduling.Interval{Start: start, End: end}
	var out []scheduling.Interval
	for _, b := range c.busy[ownerID] {
		if scheduling.Overlaps(b, window) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *Calendar) CreateEvent(_ context.Context, ownerID string, in scheduling.EventInput) (string, error) {
	if c.OnCreate != nil {
		c.OnCreate()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CreateCalls++
	if c.CreateErr != nil {
		return "", c.CreateErr
	}
	id := fmt.Sprintf("evt-%d", len(c.events)+1)
	c.events[id] = in
	if c.EventsAreBusy {
		c.busy[ownerID] = append(c.busy[ownerID], scheduling.Interval{Start: in.Start, End: in.End})
	}
	return id, nil
}

func (c *Calendar) CancelEvent(_ context.Context, _ string, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Cancelled = append(c.Cancelled, eventID)
	if c.CancelErr != nil {
		return c.CancelErr
	}
	delete(c.events, eventID)
	return nil
}

func (c *Calendar) Event(id string) (scheduling.EventInput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.events[id]
	return e, ok
}

func (c *Calendar) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BusyCalls + c.CreateCalls + len(c.Cancelled)
}

type Notifier struct {
	mu   sync.Mutex
	Sent []scheduling.Notification
	Err  error
}

func (n *Notifier) Send(_ context.Context, msg scheduling.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Sent = append(n.Sent, msg)
	return nil
}

func (n *Notifier) Messages() []scheduling.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]scheduling.Notification(nil), n.Sent...)
}
