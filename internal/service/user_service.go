package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/validator"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.UserRepository
	logger *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.TrimSpace(user.Email)

	v := validator.New()
	v.CheckField(validator.NotBlank(user.Name), "name", "must not be blank")
	checkEmail(v, user.Email)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrEmailExists) {
			return nil, domain.AlreadyExists("user with email %s already exists", user.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("User created")
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	v := validator.New()
	if patch.Name != nil {
		v.CheckField(validator.NotBlank(*patch.Name), "name", "must not be blank")
	}
	if patch.Email != nil {
		checkEmail(v, strings.TrimSpace(*patch.Email))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := findUser(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		user.Email = strings.TrimSpace(*patch.Email)
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, database.ErrEmailExists):
			return nil, domain.AlreadyExists("user with email %s already exists", user.Email)
		case errors.Is(err, database.ErrNotFound):
			return nil, domain.NotFound("user with id=%d not found", id)
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("User updated")
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return findUser(ctx, s.repo, id)
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.GetAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteUser(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return domain.NotFound("user with id=%d not found", id)
	}
	if errors.Is(err, database.ErrReferenced) {
		return domain.InUse("user with id=%d still has items, bookings, requests or comments", id)
	}
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	s.logger.Info().Int64("user_id", id).Msg("User deleted")
	return nil
}

func checkEmail(v *validator.Validator, email string) {
	v.CheckField(validator.NotBlank(email), "email", "must not be blank")
	v.CheckField(validator.Matches(email, validator.EmailRX), "email", "must be a well-formed email address")
}
