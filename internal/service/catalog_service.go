package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"swapshelf/internal/ids"
	"swapshelf/internal/models"
	"swapshelf/internal/repository"
)

const maxPageSize = 100

type CreateUserInput struct {
	ID          string
	DisplayName string
	Role        string
	Credits     int64
}

// CatalogService serves read paths and account provisioning.
type CatalogService struct {
	store repository.Store
	log   zerolog.Logger
}

func NewCatalogService(store repository.Store, log zerolog.Logger) *CatalogService {
	return &CatalogService{store: store, log: log}
}

func (s *CatalogService) CreateUser(ctx context.Context, in CreateUserInput) (models.User, error) {
	if in.Credits < 0 {
		return models.User{}, fmt.Errorf("%w: credits must be non-negative", ErrInvalidUser)
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	switch role {
	case "":
		role = models.UserRoleUser
	case models.UserRoleUser, models.UserRoleAdmin:
	default:
		return models.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, in.Role)
	}

	user := models.User{
		ID:          strings.TrimSpace(in.ID),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        role,
		Credits:     in.Credits,
	}
	if user.ID == "" {
		user.ID = ids.New()
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("user created")
	return s.store.GetUser(ctx, user.ID)
}

func (s *CatalogService) GetUser(ctx context.Context, id string) (models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("%w: %s", ErrUnknownUser, id)
	}
	return user, err
}

func (s *CatalogService) GetListing(ctx context.Context, id string) (models.Listing, error) {
	listing, err := s.store.GetListing(ctx, repository.CollectionListings, id)
	if errors.Is(err, repository.ErrListingNotFound) {
		return models.Listing{}, ErrItemNotFound
	}
	return listing, err
}

func (s *CatalogService) ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.ListListings(ctx, repository.CollectionListings, limit, offset)
}

func (s *CatalogService) ListFlagged(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.ListListings(ctx, repository.CollectionFlagged, limit, offset)
}

func (s *CatalogService) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.TransactionRecord, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.ListTransactions(ctx, userID, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
