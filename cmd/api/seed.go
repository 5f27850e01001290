package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"shareit/internal/api"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type seedItem struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Available   *bool  `yaml:"available"`
	OwnerEmail  string `yaml:"owner_email"`
}

type seedFile struct {
	Users []models.User `yaml:"users"`
	Items []seedItem    `yaml:"items"`
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &seed, nil
}

// seedDatabase fills an empty database from the seed file. A database that
// already has users is left untouched.
func seedDatabase(ctx context.Context, path string, users domain.UserRepository, svc api.Services, logger *zerolog.Logger) error {
	existing, err := users.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info().Int("users", len(existing)).Msg("database not empty, skipping seed")
		return nil
	}

	seed, err := loadSeed(path)
	if err != nil {
		return err
	}

	owners := make(map[string]int64, len(seed.Users))
	for i := range seed.Users {
		u := seed.Users[i]
		created, err := svc.Users.Create(ctx, &models.User{Name: u.Name, Email: u.Email})
		if err != nil {
			return fmt.Errorf("seed user %q: %w", u.Email, err)
		}
		owners[strings.ToLower(created.Email)] = created.ID
	}

	for _, it := range seed.Items {
		ownerID, ok := owners[strings.ToLower(strings.TrimSpace(it.OwnerEmail))]
		if !ok {
			return fmt.Errorf("seed item %q: unknown owner %q", it.Name, it.OwnerEmail)
		}
		draft := models.ItemDraft{Name: it.Name, Description: it.Description, Available: it.Available}
		if _, err := svc.Items.Create(ctx, ownerID, draft); err != nil {
			return fmt.Errorf("seed item %q: %w", it.Name, err)
		}
	}

	logger.Info().Int("users", len(seed.Users)).Int("items", len(seed.Items)).Str("path", path).Msg("database seeded")
	return nil
}
