// Package queue moves notification delivery out of the request path using
// asynq on Redis.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/example/meetsched/internal/domain/scheduling"
)

const (
	TypeNotificationSend = "notification:send"
	QueueNotifications   = "notifications"
)

type invitePayload struct {
	UID         string    `json:"uid"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Organizer   string    `json:"organizer"`
	Attendees   []string  `json:"attendees"`
	Cancelled   bool      `json:"cancelled,omitempty"`
}

type notificationPayload struct {
	OwnerID string         `json:"ownerId"`
	To      string         `json:"to"`
	From    string         `json:"from"`
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Invite  *invitePayload `json:"invite,omitempty"`
}

func NewNotificationTask(n scheduling.Notification) (*asynq.Task, error) {
	p := notificationPayload{
		OwnerID: n.OwnerID,
		To:      n.To,
		From:    n.From,
		Subject: n.Subject,
		Body:    n.Body,
	}
	if inv := n.Invite; inv != nil {
		p.Invite = &invitePayload{
			UID:         inv.UID,
			Title:       inv.Title,
			Description: inv.Description,
			Start:       inv.Start,
			End:         inv.End,
			Organizer:   inv.Organizer,
			Attendees:   inv.Attendees,
			Cancelled:   inv.Cancelled,
		}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotificationSend, b,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(8),
		asynq.Timeout(30*time.Second),
	), nil
}

func parseNotification(t *asynq.Task) (scheduling.Notification, error) {
	var p notificationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return scheduling.Notification{}, fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	n := scheduling.Notification{
		OwnerID: p.OwnerID,
		To:      p.To,
		From:    p.From,
		Subject: p.Subject,
		Body:    p.Body,
	}
	if inv := p.Invite; inv != nil {
		n.Invite = &scheduling.Invite{
			UID:         inv.UID,
			Title:       inv.Title,
			Description: inv.Description,
			Start:       inv.Start,
			End:         inv.End,
			Organizer:   inv.Organizer,
			Attendees:   inv.Attendees,
			Cancelled:   inv.Cancelled,
		}
	}
	return n, nil
}
