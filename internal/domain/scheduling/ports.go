package scheduling

import (
	"context"
	"errors"
	"time"
)

// ErrOverlap is returned by Store.InsertConfirmed when the booking would
// overlap another confirmed booking of the same owner.
var ErrOverlap = errors.New("booking overlaps an existing confirmed booking")

// ErrNoRecord is returned by Store lookups that match nothing.
var ErrNoRecord = errors.New("record not found")

// ErrStatusUnchanged is returned by Store.SetBookingStatus when the booking
// already has the requested status. Of several concurrent callers moving one
// booking to the same status, exactly one gets nil.
var ErrStatusUnchanged = errors.New("booking already has that status")

// BusyProvider reports when an owner's primary calendar is unavailable.
type BusyProvider interface {
	QueryBusy(ctx context.Context, ownerID string, start, end time.Time) ([]Interval, error)
}

type EventInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string
}

// EventCreator writes events to an owner's calendar.
type EventCreator interface {
	CreateEvent(ctx context.Context, ownerID string, in EventInput) (string, error)
	CancelEvent(ctx context.Context, ownerID, eventID string) error
}

type Store interface {
	Owner(ctx context.Context, id string) (Owner, error)
	MeetingType(ctx context.Context, id string) (MeetingType, error)
	Booking(ctx context.Context, id string) (Booking, error)
	OverlappingBookings(ctx context.Context, ownerID string, start, end time.Time) ([]Booking, error)
	InsertConfirmed(ctx context.Context, b Booking) (Booking, error)
	SetBookingStatus(ctx context.Context, id string, status Status) error
}

type Notification struct {
	OwnerID string
	To      string
	From    string
	Subject string
	Body    string
	// Invite, when set, is attached as a text/calendar part.
	Invite *Invite
}

type Invite struct {
	UID         string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Organizer   string
	Attendees   []string
	Cancelled   bool
}

// Notifier hands a message off for delivery. Delivery itself is the
// implementation's concern.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
