package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/validator"

	"github.com/rs/zerolog"
)

type RequestService struct {
	requests    domain.RequestRepository
	items       domain.ItemRepository
	users       domain.UserRepository
	maxPageSize int
	now         func() time.Time
	logger      *zerolog.Logger
}

func NewRequestService(requests domain.RequestRepository, items domain.ItemRepository, users domain.UserRepository, maxPageSize int, logger *zerolog.Logger) *RequestService {
	return &RequestService{
		requests:    requests,
		items:       items,
		users:       users,
		maxPageSize: maxPageSize,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *RequestService) Create(ctx context.Context, requestorID int64, description string) (*models.ItemRequest, error) {
	v := validator.New()
	v.CheckField(validator.NotBlank(description), "description", "must not be blank")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := findUser(ctx, s.users, requestorID); err != nil {
		return nil, err
	}

	req := &models.ItemRequest{
		Description: strings.TrimSpace(description),
		RequestorID: requestorID,
		Created:     s.now(),
	}
	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create item request: %w", err)
	}

	s.logger.Info().Int64("request_id", req.ID).Int64("requestor_id", requestorID).Msg("Item request created")
	return req, nil
}

// ListOwn returns the caller's requests, newest first, with offered items.
func (s *RequestService) ListOwn(ctx context.Context, requestorID int64) ([]*models.RequestWithItems, error) {
	if _, err := findUser(ctx, s.users, requestorID); err != nil {
		return nil, err
	}
	reqs, err := s.requests.GetRequestsByRequestor(ctx, requestorID)
	if err != nil {
		return nil, fmt.Errorf("list item requests of %d: %w", requestorID, err)
	}
	return s.withItems(ctx, reqs)
}

// ListOthers pages through requests made by other users, newest first.
func (s *RequestService) ListOthers(ctx context.Context, userID int64, from, size int) ([]*models.RequestWithItems, error) {
	offset, limit, err := pageBounds(from, size, s.maxPageSize)
	if err != nil {
		return nil, err
	}
	if _, err := findUser(ctx, s.users, userID); err != nil {
		return nil, err
	}
	reqs, err := s.requests.GetRequestsExcluding(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list item requests: %w", err)
	}
	return s.withItems(ctx, reqs)
}

func (s *RequestService) Get(ctx context.Context, userID, requestID int64) (*models.RequestWithItems, error) {
	if _, err := findUser(ctx, s.users, userID); err != nil {
		return nil, err
	}
	req, err := findRequest(ctx, s.requests, requestID)
	if err != nil {
		return nil, err
	}
	res, err := s.withItems(ctx, []*models.ItemRequest{req})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (s *RequestService) withItems(ctx context.Context, reqs []*models.ItemRequest) ([]*models.RequestWithItems, error) {
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ID)
	}
	byRequest, err := s.items.GetItemsByRequestIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get items for requests: %w", err)
	}

	result := make([]*models.RequestWithItems, 0, len(reqs))
	for _, r := range reqs {
		items := byRequest[r.ID]
		if items == nil {
			items = []models.Item{}
		}
		result = append(result, &models.RequestWithItems{ItemRequest: *r, Items: items})
	}
	return result, nil
}
