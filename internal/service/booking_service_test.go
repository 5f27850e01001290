package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	svc      *BookingService
	bookings *mockBookingRepo
	items    *mockItemRepo
	users    *mockUserRepo
	bus      *mockEventBus
	worker   *mockWorker
	now      time.Time
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		bookings: new(mockBookingRepo),
		items:    new(mockItemRepo),
		users:    new(mockUserRepo),
		bus:      new(mockEventBus),
		worker:   new(mockWorker),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := zerolog.New(io.Discard)
	f.svc = NewBookingService(f.bookings, f.items, f.users, f.bus, f.worker, 100, &logger)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *bookingFixture) assertAll(t *testing.T) {
	f.bookings.AssertExpectations(t)
	f.items.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.bus.AssertExpectations(t)
	f.worker.AssertExpectations(t)
}

var (
	owner  = &models.User{ID: 1, Name: "Owner", Email: "owner@example.com"}
	booker = &models.User{ID: 2, Name: "Booker", Email: "booker@example.com"}
)

func TestBookingService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newBookingFixture()
		item := &models.Item{ID: 5, Name: "Drill", Available: true, OwnerID: owner.ID}
		start, end := f.now.Add(time.Minute), f.now.Add(2*time.Minute)

		f.users.On("GetUserByID", ctx, booker.ID).Return(booker, nil).Once()
		f.items.On("GetItemByID", ctx, item.ID).Return(item, nil).Once()
		f.bookings.On("CreateBooking", ctx, mock.AnythingOfType("*models.Booking")).
			Run(func(args mock.Arguments) { args.Get(1).(*models.Booking).ID = 10 }).
			Return(nil).Once()
		f.bus.On("PublishJSON", events.EventBookingCreated, mock.Anything).Return(nil).Once()
		f.worker.On("EnqueueTask", ctx, models.SyncTaskUpsert, int64(10), mock.Anything, models.BookingStatus("")).Return(nil).Once()

		b, err := f.svc.Create(ctx, booker.ID, item.ID, start, end)
		require.NoError(t, err)
		assert.Equal(t, int64(10), b.ID)
		assert.Equal(t, models.StatusWaiting, b.Status)
		assert.Equal(t, "Drill", b.ItemName)
		assert.Equal(t, "Booker", b.BookerName)
		f.assertAll(t)
	})

	failures := []struct {
		name  string
		item  *models.Item
		start time.Duration
		end   time.Duration
		kind  error
	}{
		{"EndBeforeStart", &models.Item{ID: 5, Available: true, OwnerID: owner.ID}, 2 * time.Hour, time.Hour, domain.ErrValidation},
		{"EndEqualsStart", &models.Item{ID: 5, Available: true, OwnerID: owner.ID}, time.Hour, time.Hour, domain.ErrValidation},
		{"StartInPast", &models.Item{ID: 5, Available: true, OwnerID: owner.ID}, -time.Minute, time.Hour, domain.ErrValidation},
		{"ItemUnavailable", &models.Item{ID: 5, Available: false, OwnerID: owner.ID}, time.Hour, 2 * time.Hour, domain.ErrValidation},
		{"OwnBooking", &models.Item{ID: 5, Available: true, OwnerID: booker.ID}, time.Hour, 2 * time.Hour, domain.ErrForbidden},
	}
	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookingFixture()
			f.users.On("GetUserByID", ctx, booker.ID).Return(booker, nil).Once()
			f.items.On("GetItemByID", ctx, tc.item.ID).Return(tc.item, nil).Once()

			_, err := f.svc.Create(ctx, booker.ID, tc.item.ID, f.now.Add(tc.start), f.now.Add(tc.end))
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
			f.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
			f.assertAll(t)
		})
	}

	t.Run("UnavailableMessageNamesItem", func(t *testing.T) {
		f := newBookingFixture()
		item := &models.Item{ID: 77, Available: false, OwnerID: owner.ID}
		f.users.On("GetUserByID", ctx, booker.ID).Return(booker, nil).Once()
		f.items.On("GetItemByID", ctx, item.ID).Return(item, nil).Once()

		_, err := f.svc.Create(ctx, booker.ID, item.ID, f.now.Add(time.Hour), f.now.Add(2*time.Hour))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id=77")
	})

	t.Run("UnknownBooker", func(t *testing.T) {
		f := newBookingFixture()
		f.users.On("GetUserByID", ctx, int64(99)).Return(nil, database.ErrNotFound).Once()

		_, err := f.svc.Create(ctx, 99, 5, f.now.Add(time.Hour), f.now.Add(2*time.Hour))
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		f.assertAll(t)
	})

	t.Run("UnknownItem", func(t *testing.T) {
		f := newBookingFixture()
		f.users.On("GetUserByID", ctx, booker.ID).Return(booker, nil).Once()
		f.items.On("GetItemByID", ctx, int64(404)).Return(nil, database.ErrNotFound).Once()

		_, err := f.svc.Create(ctx, booker.ID, 404, f.now.Add(time.Hour), f.now.Add(2*time.Hour))
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		f.assertAll(t)
	})

	t.Run("MissingFields", func(t *testing.T) {
		f := newBookingFixture()
		_, err := f.svc.Create(ctx, booker.ID, 0, time.Time{}, time.Time{})
		require.True(t, errors.Is(err, domain.ErrValidation))
		assert.Len(t, domain.FieldErrors(err), 3)
	})
}

func waitingBooking() *models.Booking {
	return &models.Booking{
		ID: 10, ItemID: 5, BookerID: booker.ID, ItemOwnerID: owner.ID,
		Status: models.StatusWaiting, Version: 3,
	}
}

func TestBookingService_SetStatus(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		approved bool
		status   models.BookingStatus
		event    string
	}{
		{true, models.StatusApproved, events.EventBookingApproved},
		{false, models.StatusRejected, events.EventBookingRejected},
	} {
		t.Run(string(tc.status), func(t *testing.T) {
			f := newBookingFixture()
			f.users.On("GetUserByID", ctx, owner.ID).Return(owner, nil).Once()
			f.bookings.On("GetBooking", ctx, int64(10)).Return(waitingBooking(), nil).Once()
			f.bookings.On("UpdateBookingStatusWithVersion", ctx, int64(10), int64(3), tc.status).Return(nil).Once()
			f.bus.On("PublishJSON", tc.event, mock.Anything).Return(nil).Once()
			f.worker.On("EnqueueTask", ctx, models.SyncTaskUpdateStatus, int64(10), mock.Anything, tc.status).Return(nil).Once()

			b, err := f.svc.SetStatus(ctx, owner.ID, 10, tc.approved)
			require.NoError(t, err)
			assert.Equal(t, tc.status, b.Status)
			assert.Equal(t, int64(4), b.Version)
			f.assertAll(t)
		})
	}

	t.Run("RepeatedTransitionIsConflict", func(t *testing.T) {
		for _, tc := range []struct {
			current  models.BookingStatus
			approved bool
			message  string
		}{
			{models.StatusApproved, true, "already approved"},
			{models.StatusRejected, false, "already rejected"},
		} {
			f := newBookingFixture()
			b := waitingBooking()
			b.Status = tc.current
			f.users.On("GetUserByID", ctx, owner.ID).Return(owner, nil).Once()
			f.bookings.On("GetBooking", ctx, int64(10)).Return(b, nil).Once()

			_, err := f.svc.SetStatus(ctx, owner.ID, 10, tc.approved)
			require.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)
			assert.Contains(t, err.Error(), tc.message)
			f.bookings.AssertNotCalled(t, "UpdateBookingStatusWithVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("ApprovedCanBeRejected", func(t *testing.T) {
		f := newBookingFixture()
		b := waitingBooking()
		b.Status = models.StatusApproved
		f.users.On("GetUserByID", ctx, owner.ID).Return(owner, nil).Once()
		f.bookings.On("GetBooking", ctx, int64(10)).Return(b, nil).Once()
		f.bookings.On("UpdateBookingStatusWithVersion", ctx, int64(10), int64(3), models.StatusRejected).Return(nil).Once()
		f.bus.On("PublishJSON", events.EventBookingRejected, mock.Anything).Return(nil).Once()
		f.worker.On("EnqueueTask", ctx, models.SyncTaskUpdateStatus, int64(10), mock.Anything, models.StatusRejected).Return(nil).Once()

		res, err := f.svc.SetStatus(ctx, owner.ID, 10, false)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, res.Status)
		f.assertAll(t)
	})

	t.Run("NotOwner", func(t *testing.T) {
		f := newBookingFixture()
		f.users.On("GetUserByID", ctx, booker.ID).Return(booker, nil).Once()
		f.bookings.On("GetBooking", ctx, int64(10)).Return(waitingBooking(), nil).Once()

		_, err := f.svc.SetStatus(ctx, booker.ID, 10, true)
		assert.True(t, errors.Is(err, domain.ErrForbidden))
		f.assertAll(t)
	})

	t.Run("MissingBooking", func(t *testing.T) {
		f := newBookingFixture()
		f.users.On("GetUserByID", ctx, owner.ID).Return(owner, nil).Once()
		f.bookings.On("GetBooking", ctx, int64(10)).Return(nil, database.ErrNotFound).Once()

		_, err := f.svc.SetStatus(ctx, owner.ID, 10, true)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("LostRace", func(t *testing.T) {
		f := newBookingFixture()
		f.users.On("GetUserByID", ctx, owner.ID).Return(owner, nil).Once()
		f.bookings.On("GetBooking", ctx, int64(10)).Return(waitingBooking(), nil).Once()
		f.bookings.On("UpdateBookingStatusWithVersion", ctx, int64(10), int64(3), models.StatusApproved).
			Return(database.ErrConcurrentModification).Once()

		_, err := f.svc.SetStatus(ctx, owner.ID, 10, true)
		assert.True(t, errors.Is(err, domain.ErrConcurrentModification))
		f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})
}

func TestBookingService_Get(t *testing.T) {
	ctx := context.Background()

	for _, userID := range []int64{owner.ID, booker.ID} {
		f := newBookingFixture()
		f.bookings.On("GetBooking", ctx, int64(10)).Return(waitingBooking(), nil).Once()
		b, err := f.svc.Get(ctx, userID, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(10), b.ID)
	}

	f := newBookingFixture()
	f.bookings.On("GetBooking", ctx, int64(10)).Return(waitingBooking(), nil).Once()
	_, err := f.svc.Get(ctx, 3, 10)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestBookingService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("ByBookerBuildsFilter", func(t *testing.T) {
		f := newBookingFixture()
		want := models.BookingFilter{BookerID: booker.ID, State: models.StatePast, Now: f.now, Offset: 20, Limit: 10}
		f.users.On("GetUserByID", ctx, booker.ID).Return(booker, nil).Once()
		f.bookings.On("ListBookings", ctx, want).Return([]*models.Booking{waitingBooking()}, nil).Once()

		res, err := f.svc.ListByBooker(ctx, booker.ID, "past", 20, 10)
		require.NoError(t, err)
		assert.Len(t, res, 1)
		f.assertAll(t)
	})

	t.Run("ByOwnerClampsSize", func(t *testing.T) {
		f := newBookingFixture()
		want := models.BookingFilter{OwnerID: owner.ID, State: models.StateAll, Now: f.now, Offset: 0, Limit: 100}
		f.users.On("GetUserByID", ctx, owner.ID).Return(owner, nil).Once()
		f.bookings.On("ListBookings", ctx, want).Return([]*models.Booking{}, nil).Once()

		_, err := f.svc.ListByOwner(ctx, owner.ID, "ALL", 0, 1000)
		require.NoError(t, err)
		f.assertAll(t)
	})

	t.Run("UnknownStateSameForBothListings", func(t *testing.T) {
		f := newBookingFixture()
		_, errBooker := f.svc.ListByBooker(ctx, booker.ID, "FOO", 0, 10)
		_, errOwner := f.svc.ListByOwner(ctx, owner.ID, "FOO", 0, 10)
		require.True(t, errors.Is(errBooker, domain.ErrUnknownState))
		require.True(t, errors.Is(errOwner, domain.ErrUnknownState))
		assert.Equal(t, errBooker.Error(), errOwner.Error())
		assert.Equal(t, "Unknown state: FOO", errBooker.Error())
		f.users.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
	})

	t.Run("NegativeFrom", func(t *testing.T) {
		f := newBookingFixture()
		_, err := f.svc.ListByBooker(ctx, booker.ID, "ALL", -1, 10)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("ZeroSize", func(t *testing.T) {
		f := newBookingFixture()
		_, err := f.svc.ListByOwner(ctx, owner.ID, "ALL", 0, 0)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("ExportUnpaged", func(t *testing.T) {
		f := newBookingFixture()
		want := models.BookingFilter{OwnerID: owner.ID, State: models.StateWaiting, Now: f.now}
		f.users.On("GetUserByID", ctx, owner.ID).Return(owner, nil).Once()
		f.bookings.On("ListBookings", ctx, want).Return([]*models.Booking{waitingBooking()}, nil).Once()

		res, err := f.svc.ExportByOwner(ctx, owner.ID, "WAITING")
		require.NoError(t, err)
		assert.Len(t, res, 1)
	})
}
