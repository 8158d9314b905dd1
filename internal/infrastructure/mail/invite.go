package mail

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/meetsched/internal/domain/scheduling"
)

const productID = "-//meetsched//EN"

// inviteMethod is the iTIP method matching the invite's state.
func inviteMethod(inv *scheduling.Invite) string {
	if inv.Cancelled {
		return "CANCEL"
	}
	return "REQUEST"
}

// EncodeInvite renders inv as an iCalendar object suitable for a
// text/calendar attachment.
func EncodeInvite(inv *scheduling.Invite, stamp time.Time) ([]byte, error) {
	ev := ical.NewComponent(ical.CompEvent)
	ev.Props.SetText(ical.PropUID, inv.UID)
	ev.Props.SetText(ical.PropSummary, inv.Title)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeStart, inv.Start.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeEnd, inv.End.UTC())
	if inv.Description != "" {
		ev.Props.SetText(ical.PropDescription, inv.Description)
	}

	seq, status := "0", "CONFIRMED"
	if inv.Cancelled {
		seq, status = "1", "CANCELLED"
	}
	ev.Props.SetText(ical.PropSequence, seq)
	ev.Props.SetText(ical.PropStatus, status)

	if inv.Organizer != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.Value = "mailto:" + inv.Organizer
		ev.Props.Add(p)
	}
	for _, a := range inv.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.Value = "mailto:" + a
		p.Params.Set("ROLE", "REQ-PARTICIPANT")
		ev.Props.Add(p)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropMethod, inviteMethod(inv))
	cal.Children = append(cal.Children, ev)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode invite: %w", err)
	}
	return buf.Bytes(), nil
}
