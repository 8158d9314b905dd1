package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meetsched/internal/db"
	"github.com/example/meetsched/internal/domain/scheduling"
	"github.com/example/meetsched/internal/infrastructure/crypto"
	"github.com/example/meetsched/internal/migrate"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	url := os.Getenv("MEETSCHED_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MEETSCHED_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	d, err := db.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	require.NoError(t, d.Ping(ctx))
	_, err = migrate.Up(ctx, d)
	require.NoError(t, err)
	return d
}

func seed(t *testing.T, s *Store) (scheduling.Owner, scheduling.MeetingType) {
	t.Helper()
	ctx := context.Background()
	o, err := s.Owners.Create(ctx, scheduling.Owner{
		Email:        uuid.NewString() + "@example.com",
		Name:         "Test Owner",
		PasswordHash: []byte("x"),
	})
	require.NoError(t, err)
	mt, err := s.MeetingTypes.Create(ctx, scheduling.MeetingType{
		OwnerID: o.ID, Title: "Sync", DurationMinutes: 30, Timezone: "UTC",
	})
	require.NoError(t, err)
	return o, mt
}

func TestStore_Lookups(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	o, mt := seed(t, s)

	got, err := s.Owner(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Email, got.Email)

	byEmail, err := s.Owners.ByEmail(ctx, " "+o.Email+" ")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byEmail.ID)

	_, err = s.Owners.Create(ctx, scheduling.Owner{Email: o.Email, Name: "dup", PasswordHash: []byte("x")})
	assert.ErrorIs(t, err, ErrEmailTaken)

	gotMT, err := s.MeetingType(ctx, mt.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, gotMT.DurationMinutes)

	list, err := s.MeetingTypes.ListByOwner(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		_, err = s.MeetingType(ctx, id)
		assert.ErrorIs(t, err, scheduling.ErrNoRecord)
		_, err = s.Booking(ctx, id)
		assert.ErrorIs(t, err, scheduling.ErrNoRecord)
		_, err = s.Owner(ctx, id)
		assert.ErrorIs(t, err, scheduling.ErrNoRecord)
	}
}

func TestBookingRepo_Exclusion(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	o, mt := seed(t, s)
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)

	b := scheduling.Booking{
		MeetingTypeID: mt.ID, OwnerID: o.ID, RecipientName: "R", RecipientEmail: "r@example.org",
		Start: start, End: start.Add(30 * time.Minute), EventID: "evt-1",
	}
	first, err := s.InsertConfirmed(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusConfirmed, first.Status)

	clash := b
	clash.Start, clash.End = start.Add(15*time.Minute), start.Add(45*time.Minute)
	_, err = s.InsertConfirmed(ctx, clash)
	assert.ErrorIs(t, err, scheduling.ErrOverlap)

	touching := b
	touching.Start, touching.End = start.Add(30*time.Minute), start.Add(time.Hour)
	_, err = s.InsertConfirmed(ctx, touching)
	require.NoError(t, err)

	over, err := s.OverlappingBookings(ctx, o.ID, start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, over, 2)

	require.NoError(t, s.SetBookingStatus(ctx, first.ID, scheduling.StatusCancelled))
	assert.ErrorIs(t, s.SetBookingStatus(ctx, first.ID, scheduling.StatusCancelled), scheduling.ErrStatusUnchanged)
	_, err = s.InsertConfirmed(ctx, clash)
	assert.ErrorIs(t, err, scheduling.ErrOverlap, "still clashes with the touching booking")

	again := b
	_, err = s.InsertConfirmed(ctx, again)
	require.NoError(t, err, "cancelled bookings free their slot")

	assert.ErrorIs(t, s.SetBookingStatus(ctx, uuid.NewString(), scheduling.StatusCancelled), scheduling.ErrNoRecord)
	assert.ErrorIs(t, s.SetBookingStatus(ctx, "not-a-uuid", scheduling.StatusCancelled), scheduling.ErrNoRecord)
}

func TestBookingRepo_ConcurrentSetStatus(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	o, mt := seed(t, s)
	start := time.Date(2030, 2, 4, 9, 0, 0, 0, time.UTC)

	b, err := s.InsertConfirmed(ctx, scheduling.Booking{
		MeetingTypeID: mt.ID, OwnerID: o.ID, RecipientName: "R", RecipientEmail: "r@example.org",
		Start: start, End: start.Add(30 * time.Minute), EventID: "evt-1",
	})
	require.NoError(t, err)

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.SetBookingStatus(ctx, b.ID, scheduling.StatusCancelled)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, scheduling.ErrStatusUnchanged)
	}
	assert.Equal(t, 1, ok)
}

func TestBookingRepo_ConcurrentInsert(t *testing.T) {
	s := NewStore(openTestDB(t))
	o, mt := seed(t, s)
	start := time.Date(2030, 2, 4, 14, 0, 0, 0, time.UTC)

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.InsertConfirmed(context.Background(), scheduling.Booking{
				MeetingTypeID: mt.ID, OwnerID: o.ID, RecipientName: "R", RecipientEmail: "r@example.org",
				Start: start, End: start.Add(30 * time.Minute),
			})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, scheduling.ErrOverlap)
	}
	assert.Equal(t, 1, ok)
}

func TestCredentialRepo(t *testing.T) {
	d := openTestDB(t)
	s := NewStore(d)
	o, _ := seed(t, s)
	sealer, err := crypto.New(make([]byte, 32))
	require.NoError(t, err)
	repo := NewCredentialRepo(d, sealer)
	ctx := context.Background()

	_, err = repo.Get(ctx, o.ID)
	assert.ErrorIs(t, err, scheduling.ErrNoRecord)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.Save(ctx, scheduling.CalendarCredential{
		OwnerID: o.ID, AccessToken: "access-1", RefreshToken: "refresh-1", TokenType: "Bearer", Expiry: expiry,
	}))
	require.NoError(t, repo.Save(ctx, scheduling.CalendarCredential{
		OwnerID: o.ID, AccessToken: "access-2", TokenType: "Bearer", Expiry: expiry,
	}))

	c, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", c.AccessToken)
	assert.Equal(t, "refresh-1", c.RefreshToken)
	assert.True(t, expiry.Equal(c.Expiry))
}
