package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/meetsched/internal/application/booking/bookingtest"
	"github.com/example/meetsched/internal/domain/scheduling"
	"github.com/example/meetsched/internal/metrics"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, t)
	return &asynq.TaskInfo{ID: "task-1", Type: t.Type()}, nil
}

func sample() scheduling.Notification {
	return scheduling.Notification{
		OwnerID: "owner-1",
		To:      "rita@example.org",
		From:    "host@example.com",
		Subject: "Confirmed",
		Body:    "see you",
		Invite: &scheduling.Invite{
			UID:       "b1@meetsched",
			Title:     "Intro",
			Start:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			End:       time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
			Organizer: "host@example.com",
			Attendees: []string{"host@example.com", "rita@example.org"},
		},
	}
}

func TestNotifierEnqueuesAndHandlerDelivers(t *testing.T) {
	enq := &fakeEnqueuer{}
	require.NoError(t, NewNotifier(enq, nil).Send(context.Background(), sample()))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TypeNotificationSend, enq.tasks[0].Type())

	delivered := &bookingtest.Notifier{}
	h := Handler(delivered, metrics.New(), zap.NewNop())
	require.NoError(t, h.ProcessTask(context.Background(), enq.tasks[0]))

	got := delivered.Messages()
	require.Len(t, got, 1)
	want := sample()
	assert.Equal(t, want.To, got[0].To)
	require.NotNil(t, got[0].Invite)
	assert.True(t, want.Invite.Start.Equal(got[0].Invite.Start))
	assert.Equal(t, want.Invite.Attendees, got[0].Invite.Attendees)
}

func TestNotifierEnqueueError(t *testing.T) {
	enq := &fakeEnqueuer{err: errors.New("redis down")}
	err := NewNotifier(enq, nil).Send(context.Background(), sample())
	assert.ErrorContains(t, err, "redis down")
}

func TestHandlerSkipsRetryOnBadPayload(t *testing.T) {
	h := Handler(&bookingtest.Notifier{}, nil, zap.NewNop())
	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeNotificationSend, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlerRetriesDeliveryFailure(t *testing.T) {
	h := Handler(&bookingtest.Notifier{Err: errors.New("gmail 500")}, nil, zap.NewNop())
	task, err := NewNotificationTask(sample())
	require.NoError(t, err)
	err = h.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestInlineDetachesFromRequest(t *testing.T) {
	next := &bookingtest.Notifier{}
	in := NewInline(next, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, in.Send(ctx, sample()))
	cancel()
	in.Wait()
	assert.Len(t, next.Messages(), 1)
}
