package models

import "time"

type ItemRequest struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	RequestorID int64     `json:"requestor_id"`
	Created     time.Time `json:"created"`
}

// RequestWithItems is a request together with the items offered against it.
type RequestWithItems struct {
	ItemRequest
	Items []Item
}
