package service

import (
	"context"
	"errors"
	"fmt"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/validator"
)

func findUser(ctx context.Context, repo domain.UserRepository, id int64) (*models.User, error) {
	user, err := repo.GetUserByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.NotFound("user with id=%d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

func findItem(ctx context.Context, repo domain.ItemRepository, id int64) (*models.Item, error) {
	item, err := repo.GetItemByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.NotFound("item with id=%d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

func findBooking(ctx context.Context, repo domain.BookingRepository, id int64) (*models.Booking, error) {
	booking, err := repo.GetBooking(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.NotFound("booking with id=%d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return booking, nil
}

func findRequest(ctx context.Context, repo domain.RequestRepository, id int64) (*models.ItemRequest, error) {
	req, err := repo.GetRequestByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.NotFound("item request with id=%d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item request %d: %w", id, err)
	}
	return req, nil
}

// pageBounds validates from/size and clamps size to maxSize when positive.
func pageBounds(from, size, maxSize int) (offset, limit int, err error) {
	v := validator.New()
	v.CheckField(from >= 0, "from", "must be greater than or equal to 0")
	v.CheckField(size > 0, "size", "must be greater than 0")
	if err := v.Err(); err != nil {
		return 0, 0, err
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return from, size, nil
}
