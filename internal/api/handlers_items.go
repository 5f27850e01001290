package api

import (
	"net/http"

	"shareit/internal/models"
)

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	draft := models.ItemDraft{Available: req.Available, RequestID: req.RequestID}
	if req.Name != nil {
		draft.Name = *req.Name
	}
	if req.Description != nil {
		draft.Description = *req.Description
	}

	item, err := s.svc.Items.Create(r.Context(), userID, draft)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *HTTPServer) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := models.ItemPatch{Name: req.Name, Description: req.Description, Available: req.Available}
	item, err := s.svc.Items.Update(r.Context(), userID, itemID, patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *HTTPServer) handleGetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}

	details, err := s.svc.Items.Get(r.Context(), userID, itemID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDetailsResponse(details))
}

func (s *HTTPServer) handleListItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	from, size, ok := page(w, r, s.paging.OwnerPageSize)
	if !ok {
		return
	}

	items, err := s.svc.Items.ListByOwner(r.Context(), userID, from, size)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, d := range items {
		out = append(out, toItemDetailsResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	from, size, ok := page(w, r, s.paging.OwnerPageSize)
	if !ok {
		return
	}

	items, err := s.svc.Items.Search(r.Context(), userID, r.URL.Query().Get("text"), from, size)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := s.svc.Items.AddComment(r.Context(), userID, itemID, req.Text)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(comment))
}
