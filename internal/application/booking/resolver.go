// Package booking turns an owner's busy time and confirmed bookings into
// offerable slots and commits reservations against them.
package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/meetsched/internal/domain/scheduling"
	"github.com/example/meetsched/internal/logging"
	"github.com/example/meetsched/internal/metrics"
)

const DefaultMaxWindow = 62 * 24 * time.Hour

// Resolver is safe for concurrent use. Bookings for the same owner are
// serialized in-process; the store is expected to enforce the same rule
// across processes.
type Resolver struct {
	Store    scheduling.Store
	Busy     scheduling.BusyProvider
	Events   scheduling.EventCreator
	Notifier scheduling.Notifier

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// MaxWindow bounds the span of one availability query. Zero means DefaultMaxWindow.
	MaxWindow time.Duration
	// MinNotice is the minimum lead time between now and a bookable slot start.
	MinNotice time.Duration
	// Now defaults to time.Now.
	Now func() time.Time

	locks ownerLocks
}

type Availability struct {
	MeetingTypeID   string
	DurationMinutes int
	Timezone        string
	Slots           []scheduling.Slot
}

type BookRequest struct {
	MeetingTypeID  string
	RecipientName  string
	RecipientEmail string
	Start          time.Time
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Resolver) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Resolver) maxWindow() time.Duration {
	if r.MaxWindow <= 0 {
		return DefaultMaxWindow
	}
	return r.MaxWindow
}

// Availability lists the slots of a meeting type inside [from, to] that are
// free in the owner's calendar and not taken by a confirmed booking.
func (r *Resolver) Availability(ctx context.Context, meetingTypeID string, from, to time.Time) (Availability, error) {
	res, err := r.availability(ctx, meetingTypeID, from, to)
	result := "ok"
	if err != nil {
		result = string(scheduling.KindOf(err))
	}
	r.Metrics.AvailabilityServed(result, len(res.Slots))
	return res, err
}

func (r *Resolver) availability(ctx context.Context, meetingTypeID string, from, to time.Time) (Availability, error) {
	if meetingTypeID == "" {
		return Availability{}, scheduling.Invalid("meetingTypeId required")
	}
	if from.IsZero() || to.IsZero() {
		return Availability{}, scheduling.Invalid("from and to required")
	}
	if !from.Before(to) {
		return Availability{}, scheduling.Invalid("from must be before to")
	}
	if to.Sub(from) > r.maxWindow() {
		return Availability{}, scheduling.Invalid("window longer than %s", r.maxWindow())
	}

	mt, err := r.meetingType(ctx, meetingTypeID)
	if err != nil {
		return Availability{}, err
	}
	if mt.DurationMinutes <= 0 {
		return Availability{}, scheduling.Invalid("meeting type %s has non-positive duration", mt.ID)
	}

	var (
		busy  []scheduling.Interval
		local []scheduling.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		busy, err = r.queryBusy(gctx, mt.OwnerID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		local, err = r.overlapping(gctx, mt.OwnerID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return Availability{}, err
	}

	for _, b := range local {
		busy = append(busy, b.Interval())
	}

	cutoff := r.now().Add(r.MinNotice)
	slots := []scheduling.Slot{}
	for s := range scheduling.GenerateSlots(from, to, mt.Duration(), busy) {
		if s.Start.Before(cutoff) {
			continue
		}
		slots = append(slots, s)
	}

	return Availability{
		MeetingTypeID:   mt.ID,
		DurationMinutes: mt.DurationMinutes,
		Timezone:        mt.Timezone,
		Slots:           slots,
	}, nil
}

// Book validates req against fresh calendar and store state, creates the
// calendar event, persists the booking as confirmed and notifies both parties.
func (r *Resolver) Book(ctx context.Context, req BookRequest) (scheduling.Booking, error) {
	b, err := r.book(ctx, req)
	if err != nil {
		r.Metrics.BookingResult(string(scheduling.KindOf(err)))
		return scheduling.Booking{}, err
	}
	r.Metrics.BookingResult(metrics.ResultConfirmed)
	return b, nil
}

func (r *Resolver) book(ctx context.Context, req BookRequest) (scheduling.Booking, error) {
	req, err := r.validate(req)
	if err != nil {
		return scheduling.Booking{}, err
	}

	mt, err := r.meetingType(ctx, req.MeetingTypeID)
	if err != nil {
		return scheduling.Booking{}, err
	}
	if mt.DurationMinutes <= 0 {
		return scheduling.Booking{}, scheduling.Invalid("meeting type %s has non-positive duration", mt.ID)
	}
	owner, err := r.Store.Owner(ctx, mt.OwnerID)
	if err != nil {
		return scheduling.Booking{}, scheduling.Upstream("load owner", err)
	}

	window := scheduling.Interval{Start: req.Start, End: req.Start.Add(mt.Duration())}
	log := r.log().With(logging.Operation("book"), logging.Owner(owner.ID), zap.String("meeting_type_id", mt.ID))

	unlock, err := r.locks.acquire(ctx, owner.ID)
	if err != nil {
		return scheduling.Booking{}, scheduling.Upstream("wait for owner lock", err)
	}
	defer unlock()

	busy, err := r.queryBusy(ctx, owner.ID, window.Start, window.End)
	if err != nil {
		return scheduling.Booking{}, err
	}
	if scheduling.OverlapsAny(window, busy) {
		log.Info("booking rejected: calendar busy", zap.Time("start", window.Start))
		return scheduling.Booking{}, &scheduling.Error{Kind: scheduling.KindCalendarConflict, Msg: "requested time is busy in the owner's calendar"}
	}

	existing, err := r.overlapping(ctx, owner.ID, window.Start, window.End)
	if err != nil {
		return scheduling.Booking{}, err
	}
	if len(existing) > 0 {
		log.Info("booking rejected: already booked", zap.Time("start", window.Start), logging.Booking(existing[0].ID))
		return scheduling.Booking{}, &scheduling.Error{Kind: scheduling.KindLocalConflict, Msg: "requested time is already booked"}
	}

	start := time.Now()
	eventID, err := r.Events.CreateEvent(ctx, owner.ID, scheduling.EventInput{
		Title:       fmt.Sprintf("%s: %s and %s", mt.Title, owner.Name, req.RecipientName),
		Description: mt.Description,
		Start:       window.Start,
		End:         window.End,
		TimeZone:    mt.Timezone,
		Attendees:   []string{owner.Email, req.RecipientEmail},
	})
	r.Metrics.ObserveUpstream("calendar.create_event", start, err)
	if err != nil {
		return scheduling.Booking{}, scheduling.Upstream("create calendar event", err)
	}

	start = time.Now()
	booked, err := r.Store.InsertConfirmed(ctx, scheduling.Booking{
		MeetingTypeID:  mt.ID,
		OwnerID:        owner.ID,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
		Start:          window.Start,
		End:            window.End,
		Status:         scheduling.StatusConfirmed,
		EventID:        eventID,
	})
	r.Metrics.ObserveUpstream("store.insert_booking", start, err)
	if err != nil {
		r.compensate(ctx, log, owner.ID, eventID)
		if errors.Is(err, scheduling.ErrOverlap) {
			return scheduling.Booking{}, &scheduling.Error{Kind: scheduling.KindLocalConflict, Msg: "requested time is already booked", Err: err}
		}
		return scheduling.Booking{}, scheduling.Upstream("persist booking", err)
	}

	log.Info("booking confirmed", logging.Booking(booked.ID), zap.Time("start", booked.Start), logging.UserHash(booked.RecipientEmail))
	r.notifyConfirmed(ctx, log, owner, mt, booked)
	return booked, nil
}

// Cancel marks a confirmed booking of ownerID as cancelled, removes its
// calendar event and tells the recipient.
func (r *Resolver) Cancel(ctx context.Context, ownerID, bookingID string) (scheduling.Booking, error) {
	b, err := r.Store.Booking(ctx, bookingID)
	if errors.Is(err, scheduling.ErrNoRecord) || (err == nil && b.OwnerID != ownerID) {
		return scheduling.Booking{}, scheduling.NotFound("booking %s", bookingID)
	}
	if err != nil {
		return scheduling.Booking{}, scheduling.Upstream("load booking", err)
	}
	if b.Status == scheduling.StatusCancelled {
		return scheduling.Booking{}, scheduling.Invalid("booking %s is already cancelled", bookingID)
	}

	// Only one of several concurrent cancels gets past the conditional write,
	// so the event is deleted and the recipient told at most once.
	switch err := r.Store.SetBookingStatus(ctx, b.ID, scheduling.StatusCancelled); {
	case errors.Is(err, scheduling.ErrStatusUnchanged):
		return scheduling.Booking{}, scheduling.Invalid("booking %s is already cancelled", bookingID)
	case errors.Is(err, scheduling.ErrNoRecord):
		return scheduling.Booking{}, scheduling.NotFound("booking %s", bookingID)
	case err != nil:
		return scheduling.Booking{}, scheduling.Upstream("cancel booking", err)
	}
	b.Status = scheduling.StatusCancelled
	r.Metrics.BookingResult(metrics.ResultCancelled)

	log := r.log().With(logging.Operation("cancel"), logging.Owner(ownerID), logging.Booking(b.ID))
	if b.EventID != "" {
		if err := r.Events.CancelEvent(ctx, ownerID, b.EventID); err != nil {
			log.Warn("calendar event not removed", zap.String("event_id", b.EventID), zap.Error(err))
		}
	}

	owner, err := r.Store.Owner(ctx, ownerID)
	if err != nil {
		log.Warn("cancellation notice skipped", zap.Error(err))
		return b, nil
	}
	mt, err := r.Store.MeetingType(ctx, b.MeetingTypeID)
	if err != nil {
		log.Warn("cancellation notice skipped", zap.Error(err))
		return b, nil
	}
	r.dispatch(ctx, log, cancellationNotice(owner, mt, b))
	log.Info("booking cancelled")
	return b, nil
}

func (r *Resolver) validate(req BookRequest) (BookRequest, error) {
	req.MeetingTypeID = strings.TrimSpace(req.MeetingTypeID)
	req.RecipientName = strings.TrimSpace(req.RecipientName)
	req.RecipientEmail = strings.TrimSpace(req.RecipientEmail)

	if req.MeetingTypeID == "" {
		return req, scheduling.Invalid("meetingTypeId required")
	}
	if req.RecipientName == "" {
		return req, scheduling.Invalid("recipientName required")
	}
	if req.RecipientEmail == "" {
		return req, scheduling.Invalid("recipientEmail required")
	}
	addr, err := mail.ParseAddress(req.RecipientEmail)
	if err != nil {
		return req, scheduling.Invalid("recipientEmail %q is not a valid address", req.RecipientEmail)
	}
	req.RecipientEmail = addr.Address
	if req.Start.IsZero() {
		return req, scheduling.Invalid("startTime required")
	}
	if req.Start.Truncate(time.Second) != req.Start {
		return req, scheduling.Invalid("startTime must be a whole second")
	}
	if req.Start.Before(r.now().Add(r.MinNotice)) {
		return req, scheduling.Invalid("startTime is too soon or in the past")
	}
	return req, nil
}

func (r *Resolver) meetingType(ctx context.Context, id string) (scheduling.MeetingType, error) {
	mt, err := r.Store.MeetingType(ctx, id)
	if errors.Is(err, scheduling.ErrNoRecord) {
		return scheduling.MeetingType{}, scheduling.NotFound("meeting type %s", id)
	}
	if err != nil {
		return scheduling.MeetingType{}, scheduling.Upstream("load meeting type", err)
	}
	return mt, nil
}

func (r *Resolver) queryBusy(ctx context.Context, ownerID string, from, to time.Time) ([]scheduling.Interval, error) {
	start := time.Now()
	busy, err := r.Busy.QueryBusy(ctx, ownerID, from, to)
	r.Metrics.ObserveUpstream("calendar.query_busy", start, err)
	if err != nil {
		return nil, scheduling.Upstream("query calendar busy intervals", err)
	}
	return busy, nil
}

func (r *Resolver) overlapping(ctx context.Context, ownerID string, from, to time.Time) ([]scheduling.Booking, error) {
	start := time.Now()
	bs, err := r.Store.OverlappingBookings(ctx, ownerID, from, to)
	r.Metrics.ObserveUpstream("store.overlapping_bookings", start, err)
	if err != nil {
		return nil, scheduling.Upstream("query confirmed bookings", err)
	}
	return bs, nil
}

// compensate removes an event created for a booking that was never persisted.
// It runs detached from ctx so a cancelled request still cleans up.
func (r *Resolver) compensate(ctx context.Context, log *zap.Logger, ownerID, eventID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	r.Metrics.Compensation()
	if err := r.Events.CancelEvent(cctx, ownerID, eventID); err != nil {
		log.Error("orphaned calendar event", zap.String("event_id", eventID), zap.Error(err))
		return
	}
	log.Warn("calendar event cancelled after failed persist", zap.String("event_id", eventID))
}

func (r *Resolver) notifyConfirmed(ctx context.Context, log *zap.Logger, owner scheduling.Owner, mt scheduling.MeetingType, b scheduling.Booking) {
	for _, n := range confirmationNotices(owner, mt, b) {
		r.dispatch(ctx, log, n)
	}
}

func (r *Resolver) dispatch(ctx context.Context, log *zap.Logger, n scheduling.Notification) {
	if r.Notifier == nil {
		return
	}
	err := r.Notifier.Send(ctx, n)
	r.Metrics.Notification(err)
	if err != nil {
		log.Warn("notification not dispatched", logging.UserHash(n.To), zap.Error(err))
	}
}
