package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/export"
	"shareit/internal/models"
	"shareit/internal/validator"
)

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req bookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var start, end time.Time
	if req.Start != nil {
		start = req.Start.Time
	}
	if req.End != nil {
		end = req.End.Time
	}

	booking, err := s.svc.Bookings.Create(r.Context(), userID, req.ItemID, start, end)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *HTTPServer) handleSetBookingStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r)
	if !ok {
		return
	}

	approved, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get("approved")))
	if err != nil {
		v := validator.New()
		v.CheckField(false, "approved", "must be true or false")
		writeDomainError(w, r, v.Err())
		return
	}

	booking, err := s.svc.Bookings.SetStatus(r.Context(), userID, bookingID, approved)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r)
	if !ok {
		return
	}

	booking, err := s.svc.Bookings.Get(r.Context(), userID, bookingID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	from, size, ok := page(w, r, s.paging.DefaultPageSize)
	if !ok {
		return
	}

	bookings, err := s.svc.Bookings.ListByBooker(r.Context(), userID, r.URL.Query().Get("state"), from, size)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

func (s *HTTPServer) handleListOwnerBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	from, size, ok := page(w, r, s.paging.OwnerPageSize)
	if !ok {
		return
	}

	bookings, err := s.svc.Bookings.ListByOwner(r.Context(), userID, r.URL.Query().Get("state"), from, size)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

// handleExportOwnerBookings renders the whole owner listing as xlsx.
func (s *HTTPServer) handleExportOwnerBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	rawState := r.URL.Query().Get("state")

	bookings, err := s.svc.Bookings.ExportByOwner(r.Context(), userID, rawState)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	state, err := models.ParseBookingState(rawState)
	if err != nil {
		writeDomainError(w, r, domain.UnknownState(rawState))
		return
	}

	var buf bytes.Buffer
	title := fmt.Sprintf("Owner %d: %s", userID, state)
	if err := export.WriteBookings(&buf, title, bookings); err != nil {
		writeDomainError(w, r, err)
		return
	}

	fileName := export.FileName(userID, state, time.Now())
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
