package models

import "time"

type Item struct {
	ID          int64     `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Available   bool      `json:"available" yaml:"available"`
	OwnerID     int64     `json:"owner_id" yaml:"owner_id"`
	RequestID   *int64    `json:"request_id,omitempty" yaml:"request_id"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

type ItemPatch struct {
	Name        *string
	Description *string
	Available   *bool
}

// BookingRef is the short form of a booking shown on an item card.
type BookingRef struct {
	ID       int64 `json:"id"`
	BookerID int64 `json:"booker_id"`
}

// ItemDetails is an item together with its comments and, for the owner,
// the nearest bookings around the current moment.
type ItemDetails struct {
	Item
	LastBooking *BookingRef
	NextBooking *BookingRef
	Comments    []Comment
}

// ItemDraft is the input for a new listing. Available is a pointer so that
// a missing flag can be told apart from false.
type ItemDraft struct {
	Name        string
	Description string
	Available   *bool
	RequestID   *int64
}
