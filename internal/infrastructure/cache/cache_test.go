package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meetsched/internal/application/booking/bookingtest"
	"github.com/example/meetsched/internal/domain/scheduling"
)

func TestStore_CachesLookups(t *testing.T) {
	inner := bookingtest.NewStore()
	o := inner.AddOwner(scheduling.Owner{Email: "o@example.com"})
	mt := inner.AddMeetingType(scheduling.MeetingType{OwnerID: o.ID, Title: "t", DurationMinutes: 15, Timezone: "UTC"})

	s, err := New(inner, 2, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := s.MeetingType(ctx, mt.ID)
		require.NoError(t, err)
		assert.Equal(t, mt, got)
		_, err = s.Owner(ctx, o.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.Reads)

	_, err = s.MeetingType(ctx, "missing")
	assert.ErrorIs(t, err, scheduling.ErrNoRecord)
	_, err = s.MeetingType(ctx, "missing")
	assert.ErrorIs(t, err, scheduling.ErrNoRecord, "misses are not cached")
	assert.Equal(t, 4, inner.Reads)

	cs := s.(*Store)
	cs.Forget(mt.ID)
	_, err = s.MeetingType(ctx, mt.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, inner.Reads)
	assert.Equal(t, 2, cs.Len())
}

func TestNew_DisabledReturnsInner(t *testing.T) {
	inner := bookingtest.NewStore()
	s, err := New(inner, 0, nil)
	require.NoError(t, err)
	assert.Same(t, inner, s)
}

func TestStore_PassesThroughWrites(t *testing.T) {
	inner := bookingtest.NewStore()
	s, err := New(inner, 4, nil)
	require.NoError(t, err)
	_, err = s.InsertConfirmed(context.Background(), scheduling.Booking{OwnerID: "o"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.Mutations)
}
