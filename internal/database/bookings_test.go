package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBooking(t *testing.T, db *DB, itemID, bookerID int64, start, end time.Time, status models.BookingStatus) *models.Booking {
	t.Helper()
	b := &models.Booking{ItemID: itemID, BookerID: bookerID, Start: start, End: end, Status: status}
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b
}

func ids(bookings []*models.Booking) []int64 {
	out := make([]int64, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.ID)
	}
	return out
}

func TestBookings_GetJoined(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "Kayak", true)

	now := time.Now()
	b := createTestBooking(t, db, item.ID, booker.ID, now.Add(time.Hour), now.Add(2*time.Hour), models.StatusWaiting)
	assert.Equal(t, int64(1), b.Version)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kayak", got.ItemName)
	assert.Equal(t, owner.ID, got.ItemOwnerID)
	assert.Equal(t, "booker", got.BookerName)
	assert.Equal(t, models.StatusWaiting, got.Status)
	assert.True(t, got.Start.Equal(b.Start))

	_, err = db.GetBooking(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookings_UpdateStatusWithVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "Kayak", true)
	now := time.Now()
	b := createTestBooking(t, db, item.ID, booker.ID, now.Add(time.Hour), now.Add(2*time.Hour), models.StatusWaiting)

	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusApproved))

	// A writer holding the stale version loses.
	err := db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusRejected)
	assert.True(t, errors.Is(err, ErrConcurrentModification))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestBookings_ListByState(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "Tent", true)

	now := time.Now().UTC().Truncate(time.Second)
	past := createTestBooking(t, db, item.ID, booker.ID, now.Add(-3*time.Hour), now.Add(-2*time.Hour), models.StatusApproved)
	current := createTestBooking(t, db, item.ID, booker.ID, now.Add(-time.Hour), now.Add(time.Hour), models.StatusApproved)
	future := createTestBooking(t, db, item.ID, booker.ID, now.Add(2*time.Hour), now.Add(3*time.Hour), models.StatusWaiting)
	rejected := createTestBooking(t, db, item.ID, booker.ID, now.Add(4*time.Hour), now.Add(5*time.Hour), models.StatusRejected)

	list := func(state models.BookingState, byOwner bool) []int64 {
		f := models.BookingFilter{State: state, Now: now, Limit: 100}
		if byOwner {
			f.OwnerID = owner.ID
		} else {
			f.BookerID = booker.ID
		}
		res, err := db.ListBookings(ctx, f)
		require.NoError(t, err)
		return ids(res)
	}

	for _, byOwner := range []bool{false, true} {
		assert.Equal(t, []int64{rejected.ID, future.ID, current.ID, past.ID}, list(models.StateAll, byOwner))
		assert.Equal(t, []int64{current.ID}, list(models.StateCurrent, byOwner))
		assert.Equal(t, []int64{past.ID}, list(models.StatePast, byOwner))
		assert.Equal(t, []int64{rejected.ID, future.ID}, list(models.StateFuture, byOwner))
		assert.Equal(t, []int64{future.ID}, list(models.StateWaiting, byOwner))
		assert.Equal(t, []int64{rejected.ID}, list(models.StateRejected, byOwner))
	}

	t.Run("CurrentPastFutureDisjoint", func(t *testing.T) {
		seen := map[int64]models.BookingState{}
		for _, st := range []models.BookingState{models.StateCurrent, models.StatePast, models.StateFuture} {
			for _, id := range list(st, false) {
				prev, dup := seen[id]
				assert.False(t, dup, "booking %d in both %s and %s", id, prev, st)
				seen[id] = st
			}
		}
	})

	t.Run("OtherUsersSeeNothing", func(t *testing.T) {
		res, err := db.ListBookings(ctx, models.BookingFilter{BookerID: owner.ID, State: models.StateAll, Now: now})
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("UnknownState", func(t *testing.T) {
		_, err := db.ListBookings(ctx, models.BookingFilter{BookerID: booker.ID, State: "FOO", Now: now})
		var use *models.UnknownStateError
		assert.True(t, errors.As(err, &use))
	})

	t.Run("FilterWithoutSubject", func(t *testing.T) {
		_, err := db.ListBookings(ctx, models.BookingFilter{State: models.StateAll, Now: now})
		assert.Error(t, err)
	})
}

func TestBookings_PaginationIsPrefix(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "Bike", true)

	now := time.Now()
	for i := 0; i < 7; i++ {
		start := now.Add(time.Duration(i+1) * time.Hour)
		createTestBooking(t, db, item.ID, booker.ID, start, start.Add(30*time.Minute), models.StatusWaiting)
	}

	full, err := db.ListBookings(ctx, models.BookingFilter{OwnerID: owner.ID, State: models.StateAll, Now: now})
	require.NoError(t, err)
	require.Len(t, full, 7)
	for i := 1; i < len(full); i++ {
		assert.True(t, full[i-1].Start.After(full[i].Start), "ordered by start descending")
	}

	var paged []*models.Booking
	for offset := 0; offset < 6; offset += 3 {
		page, err := db.ListBookings(ctx, models.BookingFilter{OwnerID: owner.ID, State: models.StateAll, Now: now, Offset: offset, Limit: 3})
		require.NoError(t, err)
		paged = append(paged, page...)
	}
	assert.Equal(t, ids(full[:6]), ids(paged))
}

func TestBookings_AdjacentAndStarted(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	stranger := createTestUser(t, db, "stranger")
	item := createTestItem(t, db, owner.ID, "Boat", true)
	now := time.Now()

	last, next, err := db.GetAdjacentBookings(ctx, item.ID, now)
	require.NoError(t, err)
	assert.Nil(t, last)
	assert.Nil(t, next)

	older := createTestBooking(t, db, item.ID, booker.ID, now.Add(-48*time.Hour), now.Add(-47*time.Hour), models.StatusApproved)
	recent := createTestBooking(t, db, item.ID, booker.ID, now.Add(-2*time.Hour), now.Add(-time.Hour), models.StatusApproved)
	createTestBooking(t, db, item.ID, stranger.ID, now.Add(-90*time.Minute), now.Add(-80*time.Minute), models.StatusRejected)
	soon := createTestBooking(t, db, item.ID, stranger.ID, now.Add(time.Hour), now.Add(2*time.Hour), models.StatusWaiting)
	createTestBooking(t, db, item.ID, stranger.ID, now.Add(30*time.Minute), now.Add(40*time.Minute), models.StatusRejected)
	createTestBooking(t, db, item.ID, booker.ID, now.Add(5*time.Hour), now.Add(6*time.Hour), models.StatusApproved)

	last, next, err = db.GetAdjacentBookings(ctx, item.ID, now)
	require.NoError(t, err)
	require.NotNil(t, last)
	require.NotNil(t, next)
	assert.Equal(t, recent.ID, last.ID)
	assert.Equal(t, booker.ID, last.BookerID)
	assert.Equal(t, soon.ID, next.ID)
	assert.NotEqual(t, older.ID, last.ID)

	ok, err := db.HasStartedBooking(ctx, item.ID, booker.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	// stranger only has a rejected past booking and a future one
	ok, err = db.HasStartedBooking(ctx, item.ID, stranger.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)
}
