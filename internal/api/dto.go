package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"shareit/internal/models"
)

// Timestamp is a time encoded without zone, as clients send and expect it.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(models.TimeLayout))
}

// UnmarshalJSON accepts the zone-less layout (read as UTC) or RFC3339.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if parsed, err := time.ParseInLocation(models.TimeLayout, raw, time.UTC); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", raw)
	}
	t.Time = parsed.UTC()
	return nil
}

type userRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

type itemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
	RequestID   *int64  `json:"requestId"`
}

type bookingRefResponse struct {
	ID       int64 `json:"id"`
	BookerID int64 `json:"bookerId"`
}

type itemResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Available   bool                `json:"available"`
	RequestID   *int64              `json:"requestId,omitempty"`
	OwnerID     int64               `json:"ownerId"`
	LastBooking *bookingRefResponse `json:"lastBooking,omitempty"`
	NextBooking *bookingRefResponse `json:"nextBooking,omitempty"`
	Comments    []commentResponse   `json:"comments"`
}

func toItemResponse(it *models.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Available:   it.Available,
		RequestID:   it.RequestID,
		OwnerID:     it.OwnerID,
		Comments:    []commentResponse{},
	}
}

func toItemDetailsResponse(d *models.ItemDetails) itemResponse {
	resp := toItemResponse(&d.Item)
	resp.LastBooking = toBookingRef(d.LastBooking)
	resp.NextBooking = toBookingRef(d.NextBooking)
	resp.Comments = make([]commentResponse, 0, len(d.Comments))
	for i := range d.Comments {
		resp.Comments = append(resp.Comments, toCommentResponse(&d.Comments[i]))
	}
	return resp
}

func toBookingRef(ref *models.BookingRef) *bookingRefResponse {
	if ref == nil {
		return nil
	}
	return &bookingRefResponse{ID: ref.ID, BookerID: ref.BookerID}
}

type commentRequest struct {
	Text string `json:"text"`
}

type commentResponse struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	AuthorName string    `json:"authorName"`
	ItemID     int64     `json:"itemId"`
	Created    Timestamp `json:"created"`
}

func toCommentResponse(c *models.Comment) commentResponse {
	return commentResponse{
		ID:         c.ID,
		Text:       c.Text,
		AuthorName: c.AuthorName,
		ItemID:     c.ItemID,
		Created:    Timestamp{c.Created},
	}
}

type bookingRequest struct {
	ItemID int64      `json:"itemId"`
	Start  *Timestamp `json:"start"`
	End    *Timestamp `json:"end"`
}

type namedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type bookingResponse struct {
	ID     int64                `json:"id"`
	Start  Timestamp            `json:"start"`
	End    Timestamp            `json:"end"`
	Status models.BookingStatus `json:"status"`
	Booker namedRef             `json:"booker"`
	Item   namedRef             `json:"item"`
}

func toBookingResponse(b *models.Booking) bookingResponse {
	return bookingResponse{
		ID:     b.ID,
		Start:  Timestamp{b.Start},
		End:    Timestamp{b.End},
		Status: b.Status,
		Booker: namedRef{ID: b.BookerID, Name: b.BookerName},
		Item:   namedRef{ID: b.ItemID, Name: b.ItemName},
	}
}

func toBookingResponses(bookings []*models.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

type itemRequestRequest struct {
	Description string `json:"description"`
}

type requestItemResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	RequestID   int64  `json:"requestId"`
	OwnerID     int64  `json:"ownerId"`
}

type itemRequestResponse struct {
	ID          int64                 `json:"id"`
	Description string                `json:"description"`
	RequestorID int64                 `json:"requestorId"`
	Created     Timestamp             `json:"created"`
	Items       []requestItemResponse `json:"items"`
}

func toItemRequestResponse(r *models.ItemRequest, items []models.Item) itemRequestResponse {
	resp := itemRequestResponse{
		ID:          r.ID,
		Description: r.Description,
		RequestorID: r.RequestorID,
		Created:     Timestamp{r.Created},
		Items:       make([]requestItemResponse, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, requestItemResponse{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Available:   it.Available,
			RequestID:   r.ID,
			OwnerID:     it.OwnerID,
		})
	}
	return resp
}

func toRequestsResponse(reqs []*models.RequestWithItems) []itemRequestResponse {
	out := make([]itemRequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toItemRequestResponse(&r.ItemRequest, r.Items))
	}
	return out
}
