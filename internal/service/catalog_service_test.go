package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"swapshelf/internal/models"
	"swapshelf/internal/repository"
)

func TestCreateUser(t *testing.T) {
	svc := NewCatalogService(repository.NewMemory(), zerolog.Nop())
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserInput{ID: "alice", Credits: 10})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Role != models.UserRoleUser || user.Credits != 10 {
		t.Errorf("unexpected user %+v", user)
	}

	if _, err := svc.CreateUser(ctx, CreateUserInput{ID: "alice"}); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, CreateUserInput{ID: "bob", Credits: -1}); !errors.Is(err, ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser for negative credits, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, CreateUserInput{ID: "bob", Role: "root"}); !errors.Is(err, ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser for bad role, got %v", err)
	}

	generated, err := svc.CreateUser(ctx, CreateUserInput{Role: "ADMIN"})
	if err != nil {
		t.Fatalf("CreateUser generated: %v", err)
	}
	if generated.ID == "" || generated.Role != models.UserRoleAdmin {
		t.Errorf("unexpected generated user %+v", generated)
	}
}

func TestCatalogLookups(t *testing.T) {
	store := repository.NewMemory()
	seedUser(t, store, "alice", 0)
	seedListing(t, store, "item", "alice", 3)
	svc := NewCatalogService(store, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.GetUser(ctx, "ghost"); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}
	if _, err := svc.GetListing(ctx, "nope"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
	listing, err := svc.GetListing(ctx, "item")
	if err != nil || listing.Credits != 3 {
		t.Errorf("unexpected listing %+v, err %v", listing, err)
	}
	listings, err := svc.ListListings(ctx, 0, -5)
	if err != nil || len(listings) != 1 {
		t.Errorf("expected one listing, got %d, err %v", len(listings), err)
	}
	flagged, err := svc.ListFlagged(ctx, 10, 0)
	if err != nil || len(flagged) != 0 {
		t.Errorf("expected empty hold queue, got %d, err %v", len(flagged), err)
	}
}
