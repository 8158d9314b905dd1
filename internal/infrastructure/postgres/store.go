// Package postgres implements the scheduling store on top of internal/db.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/example/meetsched/internal/db"
	"github.com/example/meetsched/internal/domain/scheduling"
)

// Store bundles the repositories into a scheduling.Store.
type Store struct {
	Owners       *OwnerRepo
	MeetingTypes *MeetingTypeRepo
	Bookings     *BookingRepo
}

var _ scheduling.Store = (*Store)(nil)

func NewStore(d *db.DB) *Store {
	return &Store{
		Owners:       NewOwnerRepo(d),
		MeetingTypes: NewMeetingTypeRepo(d),
		Bookings:     NewBookingRepo(d),
	}
}

func (s *Store) Owner(ctx context.Context, id string) (scheduling.Owner, error) {
	return s.Owners.ByID(ctx, id)
}

func (s *Store) MeetingType(ctx context.Context, id string) (scheduling.MeetingType, error) {
	return s.MeetingTypes.ByID(ctx, id)
}

func (s *Store) Booking(ctx context.Context, id string) (scheduling.Booking, error) {
	return s.Bookings.ByID(ctx, id)
}

func (s *Store) OverlappingBookings(ctx context.Context, ownerID string, start, end time.Time) ([]scheduling.Booking, error) {
	return s.Bookings.Overlapping(ctx, ownerID, start, end)
}

func (s *Store) InsertConfirmed(ctx context.Context, b scheduling.Booking) (scheduling.Booking, error) {
	return s.Bookings.InsertConfirmed(ctx, b)
}

func (s *Store) SetBookingStatus(ctx context.Context, id string, status scheduling.Status) error {
	return s.Bookings.SetStatus(ctx, id, status)
}

// notFound turns a missing row into scheduling.ErrNoRecord and wraps anything else.
func notFound(err error) error {
	err = db.WrapNotFound(err)
	if errors.Is(err, db.ErrNotFound) {
		return scheduling.ErrNoRecord
	}
	return err
}
