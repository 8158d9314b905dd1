package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/example/meetsched/internal/domain/scheduling"
	"github.com/example/meetsched/internal/infrastructure/google"
)

// GmailSender delivers notifications from the owner's own mailbox, so the
// From address is always the owner's.
type GmailSender struct {
	tokens google.TokenSourcer
	opts   []option.ClientOption
	now    func() time.Time
}

var _ scheduling.Notifier = (*GmailSender)(nil)

func NewGmailSender(tokens google.TokenSourcer, opts ...option.ClientOption) *GmailSender {
	return &GmailSender{tokens: tokens, opts: opts, now: time.Now}
}

func (s *GmailSender) Send(ctx context.Context, n scheduling.Notification) error {
	raw, err := BuildMessage(n, s.now())
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}
	ts, err := s.tokens.TokenSource(ctx, n.OwnerID)
	if err != nil {
		return err
	}
	svc, err := gmail.NewService(ctx, append([]option.ClientOption{option.WithTokenSource(ts)}, s.opts...)...)
	if err != nil {
		return fmt.Errorf("gmail service: %w", err)
	}
	_, err = svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	return nil
}
