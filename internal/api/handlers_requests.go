package api

import (
	"net/http"
)

func (s *HTTPServer) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req itemRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := s.svc.Requests.Create(r.Context(), userID, req.Description)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemRequestResponse(created, nil))
}

func (s *HTTPServer) handleListOwnRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	reqs, err := s.svc.Requests.ListOwn(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestsResponse(reqs))
}

func (s *HTTPServer) handleListOtherRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	from, size, ok := page(w, r, s.paging.DefaultPageSize)
	if !ok {
		return
	}

	reqs, err := s.svc.Requests.ListOthers(r.Context(), userID, from, size)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestsResponse(reqs))
}

func (s *HTTPServer) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r)
	if !ok {
		return
	}

	req, err := s.svc.Requests.Get(r.Context(), userID, requestID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemRequestResponse(&req.ItemRequest, req.Items))
}
