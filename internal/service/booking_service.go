package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"
	"shareit/internal/validator"

	"github.com/rs/zerolog"
)

type BookingService struct {
	bookings     domain.BookingRepository
	items        domain.ItemRepository
	users        domain.UserRepository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	maxPageSize  int
	now          func() time.Time
	logger       *zerolog.Logger
}

func NewBookingService(
	bookings domain.BookingRepository,
	items domain.ItemRepository,
	users domain.UserRepository,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	maxPageSize int,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		bookings:     bookings,
		items:        items,
		users:        users,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		maxPageSize:  maxPageSize,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *BookingService) Create(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.Booking, error) {
	v := validator.New()
	v.CheckField(itemID > 0, "itemId", "must not be null")
	v.CheckField(!start.IsZero(), "start", "must not be null")
	v.CheckField(!end.IsZero(), "end", "must not be null")
	if err := v.Err(); err != nil {
		return nil, err
	}

	booker, err := findUser(ctx, s.users, bookerID)
	if err != nil {
		return nil, err
	}
	item, err := findItem(ctx, s.items, itemID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case !end.After(start):
		return nil, domain.Validation("booking end %s must be after start %s",
			end.Format(models.TimeLayout), start.Format(models.TimeLayout))
	case start.Before(now):
		return nil, domain.Validation("booking start %s is in the past", start.Format(models.TimeLayout))
	case item.OwnerID == bookerID:
		return nil, domain.Forbidden("owner cannot book their own item with id=%d", item.ID)
	case !item.Available:
		return nil, domain.Validation("item with id=%d is not available for booking", item.ID)
	}

	booking := &models.Booking{
		Start:    start,
		End:      end,
		ItemID:   item.ID,
		BookerID: booker.ID,
		Status:   models.StatusWaiting,
	}
	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	booking.ItemName = item.Name
	booking.ItemOwnerID = item.OwnerID
	booking.BookerName = booker.Name

	metrics.IncBookingCreated()
	s.logger.Info().Int64("booking_id", booking.ID).Int64("item_id", item.ID).Int64("booker_id", booker.ID).Msg("Booking created")

	s.publishEvent(events.EventBookingCreated, *booking, bookerID)
	s.enqueueSync(ctx, *booking, models.SyncTaskUpsert)

	return booking, nil
}

// SetStatus lets the item owner approve or reject a booking. Re-applying the
// status a booking already has is refused.
func (s *BookingService) SetStatus(ctx context.Context, ownerID, bookingID int64, approved bool) (*models.Booking, error) {
	if _, err := findUser(ctx, s.users, ownerID); err != nil {
		return nil, err
	}
	booking, err := findBooking(ctx, s.bookings, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ItemOwnerID != ownerID {
		return nil, domain.Forbidden("user with id=%d is not the owner of item with id=%d", ownerID, booking.ItemID)
	}

	target := models.StatusRejected
	if approved {
		target = models.StatusApproved
	}
	if booking.Status == target {
		return nil, domain.Conflict("booking with id=%d is already %s", booking.ID, strings.ToLower(string(target)))
	}

	err = s.bookings.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, target)
	if errors.Is(err, database.ErrConcurrentModification) {
		return nil, domain.ConcurrentModification("booking with id=%d was modified concurrently, retry", booking.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("update booking %d status: %w", booking.ID, err)
	}

	booking.Status = target
	booking.Version++

	metrics.IncBookingTransition(string(target))
	s.logger.Info().Int64("booking_id", booking.ID).Str("status", string(target)).Msg("Booking status changed")

	eventType := events.EventBookingRejected
	if approved {
		eventType = events.EventBookingApproved
	}
	s.publishEvent(eventType, *booking, ownerID)
	s.enqueueSync(ctx, *booking, models.SyncTaskUpdateStatus)

	return booking, nil
}

// Get returns a booking to its booker or to the owner of the booked item.
func (s *BookingService) Get(ctx context.Context, userID, bookingID int64) (*models.Booking, error) {
	booking, err := findBooking(ctx, s.bookings, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookerID != userID && booking.ItemOwnerID != userID {
		return nil, domain.Forbidden("user with id=%d has no access to booking with id=%d", userID, bookingID)
	}
	return booking, nil
}

func (s *BookingService) ListByBooker(ctx context.Context, bookerID int64, state string, from, size int) ([]*models.Booking, error) {
	filter, err := s.buildFilter(ctx, bookerID, state, from, size)
	if err != nil {
		return nil, err
	}
	filter.BookerID = bookerID
	return s.list(ctx, filter)
}

func (s *BookingService) ListByOwner(ctx context.Context, ownerID int64, state string, from, size int) ([]*models.Booking, error) {
	filter, err := s.buildFilter(ctx, ownerID, state, from, size)
	if err != nil {
		return nil, err
	}
	filter.OwnerID = ownerID
	return s.list(ctx, filter)
}

// ExportByOwner returns every owner booking matching state, unpaged.
func (s *BookingService) ExportByOwner(ctx context.Context, ownerID int64, state string) ([]*models.Booking, error) {
	st, err := models.ParseBookingState(state)
	if err != nil {
		return nil, domain.UnknownState(state)
	}
	if _, err := findUser(ctx, s.users, ownerID); err != nil {
		return nil, err
	}
	return s.list(ctx, models.BookingFilter{OwnerID: ownerID, State: st, Now: s.now()})
}

func (s *BookingService) buildFilter(ctx context.Context, userID int64, state string, from, size int) (models.BookingFilter, error) {
	st, err := models.ParseBookingState(state)
	if err != nil {
		return models.BookingFilter{}, domain.UnknownState(state)
	}
	offset, limit, err := pageBounds(from, size, s.maxPageSize)
	if err != nil {
		return models.BookingFilter{}, err
	}
	if _, err := findUser(ctx, s.users, userID); err != nil {
		return models.BookingFilter{}, err
	}
	return models.BookingFilter{State: st, Now: s.now(), Offset: offset, Limit: limit}, nil
}

func (s *BookingService) list(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) publishEvent(eventType string, booking models.Booking, changedByID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		ItemID:      booking.ItemID,
		ItemName:    booking.ItemName,
		OwnerID:     booking.ItemOwnerID,
		BookerID:    booking.BookerID,
		BookerName:  booking.BookerName,
		Status:      string(booking.Status),
		Start:       booking.Start,
		End:         booking.End,
		ChangedByID: changedByID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status models.BookingStatus
	if taskType == models.SyncTaskUpdateStatus {
		status = booking.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking.ID, &booking, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
