package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/meetsched/internal/domain/scheduling"
)

const noticeTimeLayout = "Monday, January 2, 2006 15:04 MST"

func localTime(t time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format(noticeTimeLayout)
}

func invite(owner scheduling.Owner, mt scheduling.MeetingType, b scheduling.Booking) *scheduling.Invite {
	return &scheduling.Invite{
		UID:         b.ID + "@meetsched",
		Title:       mt.Title,
		Description: mt.Description,
		Start:       b.Start,
		End:         b.End,
		Organizer:   owner.Email,
		Attendees:   []string{owner.Email, b.RecipientEmail},
		Cancelled:   b.Status == scheduling.StatusCancelled,
	}
}

// confirmationNotices returns the recipient notice followed by the owner notice.
func confirmationNotices(owner scheduling.Owner, mt scheduling.MeetingType, b scheduling.Booking) []scheduling.Notification {
	when := localTime(b.Start, mt.Timezone)

	var rb strings.Builder
	fmt.Fprintf(&rb, "Hi %s,\n\n", b.RecipientName)
	fmt.Fprintf(&rb, "your %q with %s is confirmed for %s (%d minutes).\n", mt.Title, owner.Name, when, mt.DurationMinutes)
	if mt.Description != "" {
		fmt.Fprintf(&rb, "\n%s\n", mt.Description)
	}
	fmt.Fprintf(&rb, "\nBooking reference: %s\n", b.ID)

	var ob strings.Builder
	fmt.Fprintf(&ob, "%s <%s> booked %q for %s (%d minutes).\n", b.RecipientName, b.RecipientEmail, mt.Title, when, mt.DurationMinutes)
	fmt.Fprintf(&ob, "\nBooking reference: %s\n", b.ID)

	inv := invite(owner, mt, b)
	return []scheduling.Notification{
		{
			OwnerID: owner.ID,
			To:      b.RecipientEmail,
			From:    owner.Email,
			Subject: fmt.Sprintf("Confirmed: %s with %s on %s", mt.Title, owner.Name, when),
			Body:    rb.String(),
			Invite:  inv,
		},
		{
			OwnerID: owner.ID,
			To:      owner.Email,
			From:    owner.Email,
			Subject: fmt.Sprintf("New booking: %s with %s on %s", mt.Title, b.RecipientName, when),
			Body:    ob.String(),
		},
	}
}

func cancellationNotice(owner scheduling.Owner, mt scheduling.MeetingType, b scheduling.Booking) scheduling.Notification {
	when := localTime(b.Start, mt.Timezone)
	body := fmt.Sprintf("Hi %s,\n\nyour %q with %s on %s has been cancelled.\n\nBooking reference: %s\n",
		b.RecipientName, mt.Title, owner.Name, when, b.ID)
	return scheduling.Notification{
		OwnerID: owner.ID,
		To:      b.RecipientEmail,
		From:    owner.Email,
		Subject: fmt.Sprintf("Cancelled: %s with %s on %s", mt.Title, owner.Name, when),
		Body:    body,
		Invite:  invite(owner, mt, b),
	}
}
