package models

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// BookingState buckets bookings relative to the moment of the query.
type BookingState string

const (
	StateAll      BookingState = "ALL"
	StateCurrent  BookingState = "CURRENT"
	StatePast     BookingState = "PAST"
	StateFuture   BookingState = "FUTURE"
	StateWaiting  BookingState = "WAITING"
	StateRejected BookingState = "REJECTED"
)

// UnknownStateError is returned for a state literal outside the known set.
type UnknownStateError struct {
	Literal string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("Unknown state: %s", e.Literal)
}

// ParseBookingState accepts a state literal in any letter case.
// An empty literal means ALL.
func ParseBookingState(s string) (BookingState, error) {
	if strings.TrimSpace(s) == "" {
		return StateAll, nil
	}
	switch st := BookingState(strings.ToUpper(strings.TrimSpace(s))); st {
	case StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected:
		return st, nil
	default:
		return "", &UnknownStateError{Literal: s}
	}
}

type Booking struct {
	ID        int64         `json:"id"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	ItemID    int64         `json:"item_id"`
	BookerID  int64         `json:"booker_id"`
	Status    BookingStatus `json:"status"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Filled by joined reads.
	ItemName    string `json:"item_name,omitempty"`
	ItemOwnerID int64  `json:"item_owner_id,omitempty"`
	BookerName  string `json:"booker_name,omitempty"`
}

// BookingFilter selects bookings for one user, either as booker or as owner
// of the booked item. Exactly one of BookerID and OwnerID must be set.
type BookingFilter struct {
	BookerID int64
	OwnerID  int64
	State    BookingState
	Now      time.Time
	Offset   int
	Limit    int
}
