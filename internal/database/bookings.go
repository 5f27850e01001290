package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/models"
)

const bookingSelect = `SELECT b.id, b.start_date, b.end_date, b.item_id, b.booker_id, b.status, b.version,
                 b.created_at, b.updated_at, i.name, i.owner_id, COALESCE(u.name, '')
          FROM bookings b
          JOIN items i ON i.id = b.item_id
          LEFT JOIN users u ON u.id = b.booker_id`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.Start, &b.End, &b.ItemID, &b.BookerID, &b.Status, &b.Version,
		&b.CreatedAt, &b.UpdatedAt, &b.ItemName, &b.ItemOwnerID, &b.BookerName)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (start_date, end_date, item_id, booker_id, status, version, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := dbTime(time.Now())
	booking.Start = dbTime(booking.Start)
	booking.End = dbTime(booking.End)
	result, err := db.ExecContext(ctx, query,
		booking.Start, booking.End, booking.ItemID, booking.BookerID, booking.Status, 1, now, now)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.Version = 1
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := scanBooking(db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// UpdateBookingStatusWithVersion applies the status only if nobody changed the
// booking since it was read at fromVersion.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.BookingStatus) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, dbTime(time.Now()), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// statePredicate maps a state filter to a WHERE fragment over alias b.
func statePredicate(state models.BookingState, now time.Time) (string, []interface{}, error) {
	now = dbTime(now)
	switch state {
	case models.StateAll, "":
		return "", nil, nil
	case models.StateCurrent:
		return " AND b.start_date <= ? AND b.end_date >= ?", []interface{}{now, now}, nil
	case models.StatePast:
		return " AND b.end_date < ?", []interface{}{now}, nil
	case models.StateFuture:
		return " AND b.start_date > ?", []interface{}{now}, nil
	case models.StateWaiting:
		return " AND b.status = ?", []interface{}{models.StatusWaiting}, nil
	case models.StateRejected:
		return " AND b.status = ?", []interface{}{models.StatusRejected}, nil
	default:
		return "", nil, &models.UnknownStateError{Literal: string(state)}
	}
}

func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var (
		where string
		args  []interface{}
	)
	switch {
	case filter.BookerID != 0:
		where, args = ` WHERE b.booker_id = ?`, []interface{}{filter.BookerID}
	case filter.OwnerID != 0:
		where, args = ` WHERE i.owner_id = ?`, []interface{}{filter.OwnerID}
	default:
		return nil, errors.New("booking filter needs a booker or an owner")
	}

	pred, predArgs, err := statePredicate(filter.State, filter.Now)
	if err != nil {
		return nil, err
	}
	args = append(args, predArgs...)

	query := bookingSelect + where + pred + ` ORDER BY b.start_date DESC, b.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// GetAdjacentBookings returns the latest non-rejected booking that started
// before now and the earliest one starting after now.
func (db *DB) GetAdjacentBookings(ctx context.Context, itemID int64, now time.Time) (last, next *models.BookingRef, err error) {
	now = dbTime(now)
	lastQuery := `SELECT id, booker_id FROM bookings
                  WHERE item_id = ? AND status != ? AND start_date < ?
                  ORDER BY start_date DESC LIMIT 1`
	nextQuery := `SELECT id, booker_id FROM bookings
                  WHERE item_id = ? AND status != ? AND start_date > ?
                  ORDER BY start_date ASC LIMIT 1`

	last, err = db.queryBookingRef(ctx, lastQuery, itemID, models.StatusRejected, now)
	if err != nil {
		return nil, nil, err
	}
	next, err = db.queryBookingRef(ctx, nextQuery, itemID, models.StatusRejected, now)
	if err != nil {
		return nil, nil, err
	}
	return last, next, nil
}

func (db *DB) queryBookingRef(ctx context.Context, query string, args ...interface{}) (*models.BookingRef, error) {
	var ref models.BookingRef
	err := db.QueryRowContext(ctx, query, args...).Scan(&ref.ID, &ref.BookerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get adjacent booking: %w", err)
	}
	return &ref, nil
}

// HasStartedBooking reports whether bookerID holds a non-rejected booking of
// the item that has already started.
func (db *DB) HasStartedBooking(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM bookings
              WHERE item_id = ? AND booker_id = ? AND status != ? AND start_date < ?)`
	var exists bool
	err := db.QueryRowContext(ctx, query, itemID, bookerID, models.StatusRejected, dbTime(now)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check bookings: %w", err)
	}
	return exists, nil
}
