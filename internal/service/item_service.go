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
	"shareit/internal/models"
	"shareit/internal/validator"

	"github.com/rs/zerolog"
)

// ItemService manages listings and the comments left on them.
const (
	maxDescriptionChars = 200
	descriptionTooLong  = "must be at most 200 characters"
)

type ItemService struct {
	items       domain.ItemRepository
	users       domain.UserRepository
	requests    domain.RequestRepository
	bookings    domain.BookingRepository
	comments    domain.CommentRepository
	eventBus    domain.EventPublisher
	maxPageSize int
	now         func() time.Time
	logger      *zerolog.Logger
}

// ItemStores groups the repositories ItemService reads and writes.
type ItemStores struct {
	Items    domain.ItemRepository
	Users    domain.UserRepository
	Requests domain.RequestRepository
	Bookings domain.BookingRepository
	Comments domain.CommentRepository
}

func NewItemService(stores ItemStores, eventBus domain.EventPublisher, maxPageSize int, logger *zerolog.Logger) *ItemService {
	return &ItemService{
		items:       stores.Items,
		users:       stores.Users,
		requests:    stores.Requests,
		bookings:    stores.Bookings,
		comments:    stores.Comments,
		eventBus:    eventBus,
		maxPageSize: maxPageSize,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *ItemService) Create(ctx context.Context, ownerID int64, draft models.ItemDraft) (*models.Item, error) {
	v := validator.New()
	v.CheckField(validator.NotBlank(draft.Name), "name", "must not be blank")
	v.CheckField(validator.NotBlank(draft.Description), "description", "must not be blank")
	v.CheckField(validator.MaxChars(strings.TrimSpace(draft.Description), maxDescriptionChars), "description", descriptionTooLong)
	v.CheckField(draft.Available != nil, "available", "must not be null")
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := findUser(ctx, s.users, ownerID); err != nil {
		return nil, err
	}
	if draft.RequestID != nil {
		if _, err := findRequest(ctx, s.requests, *draft.RequestID); err != nil {
			return nil, err
		}
	}

	item := &models.Item{
		Name:        strings.TrimSpace(draft.Name),
		Description: strings.TrimSpace(draft.Description),
		Available:   *draft.Available,
		OwnerID:     ownerID,
		RequestID:   draft.RequestID,
	}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", ownerID).Msg("Item created")
	return item, nil
}

// Update applies a partial change. Only the owner may edit an item.
func (s *ItemService) Update(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error) {
	v := validator.New()
	if patch.Name != nil {
		v.CheckField(validator.NotBlank(*patch.Name), "name", "must not be blank")
	}
	if patch.Description != nil {
		v.CheckField(validator.NotBlank(*patch.Description), "description", "must not be blank")
		v.CheckField(validator.MaxChars(strings.TrimSpace(*patch.Description), maxDescriptionChars), "description", descriptionTooLong)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := findUser(ctx, s.users, ownerID); err != nil {
		return nil, err
	}
	item, err := findItem(ctx, s.items, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, domain.Forbidden("user with id=%d is not the owner of item with id=%d", ownerID, itemID)
	}

	if patch.Name != nil {
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}

	if err := s.items.UpdateItem(ctx, item); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NotFound("item with id=%d not found", itemID)
		}
		return nil, fmt.Errorf("update item %d: %w", itemID, err)
	}

	s.logger.Info().Int64("item_id", item.ID).Msg("Item updated")
	return item, nil
}

// Get returns an item with its comments. The nearest bookings are shown
// only to the owner.
func (s *ItemService) Get(ctx context.Context, userID, itemID int64) (*models.ItemDetails, error) {
	item, err := findItem(ctx, s.items, itemID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, item, userID)
}

func (s *ItemService) ListByOwner(ctx context.Context, ownerID int64, from, size int) ([]*models.ItemDetails, error) {
	offset, limit, err := pageBounds(from, size, s.maxPageSize)
	if err != nil {
		return nil, err
	}
	if _, err := findUser(ctx, s.users, ownerID); err != nil {
		return nil, err
	}

	items, err := s.items.GetItemsByOwner(ctx, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list items of owner %d: %w", ownerID, err)
	}

	result := make([]*models.ItemDetails, 0, len(items))
	for _, item := range items {
		d, err := s.details(ctx, item, ownerID)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// Search finds available items by substring of name or description.
// Blank text yields no results.
func (s *ItemService) Search(ctx context.Context, userID int64, text string, from, size int) ([]*models.Item, error) {
	offset, limit, err := pageBounds(from, size, s.maxPageSize)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []*models.Item{}, nil
	}

	items, err := s.items.SearchItems(ctx, strings.TrimSpace(text), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	s.logger.Debug().Int64("user_id", userID).Str("text", text).Int("found", len(items)).Msg("Item search")
	return items, nil
}

// AddComment stores a comment from a user whose booking of the item has
// already started and was not rejected.
func (s *ItemService) AddComment(ctx context.Context, authorID, itemID int64, text string) (*models.Comment, error) {
	v := validator.New()
	v.CheckField(validator.NotBlank(text), "text", "must not be blank")
	if err := v.Err(); err != nil {
		return nil, err
	}

	author, err := findUser(ctx, s.users, authorID)
	if err != nil {
		return nil, err
	}
	item, err := findItem(ctx, s.items, itemID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	used, err := s.bookings.HasStartedBooking(ctx, item.ID, author.ID, now)
	if err != nil {
		return nil, fmt.Errorf("check bookings of item %d: %w", item.ID, err)
	}
	if !used {
		return nil, domain.Validation("user with id=%d has not used item with id=%d", author.ID, item.ID)
	}

	comment := &models.Comment{
		Text:       strings.TrimSpace(text),
		ItemID:     item.ID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Created:    now,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	if s.eventBus != nil {
		payload := events.CommentEventPayload{
			CommentID:  comment.ID,
			ItemID:     item.ID,
			AuthorID:   author.ID,
			AuthorName: author.Name,
			Text:       comment.Text,
		}
		if err := s.eventBus.PublishJSON(events.EventCommentCreated, payload); err != nil {
			s.logger.Error().Err(err).Int64("comment_id", comment.ID).Msg("publish event error")
		}
	}

	return comment, nil
}

func (s *ItemService) details(ctx context.Context, item *models.Item, viewerID int64) (*models.ItemDetails, error) {
	d := &models.ItemDetails{Item: *item}

	comments, err := s.comments.GetCommentsByItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("get comments of item %d: %w", item.ID, err)
	}
	d.Comments = comments

	if item.OwnerID == viewerID {
		last, next, err := s.bookings.GetAdjacentBookings(ctx, item.ID, s.now())
		if err != nil {
			return nil, fmt.Errorf("get bookings of item %d: %w", item.ID, err)
		}
		d.LastBooking = last
		d.NextBooking = next
	}
	return d, nil
}
