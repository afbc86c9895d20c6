package repository

import (
	"context"
	"errors"
	"fmt"

	"swapshelf/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrDuplicate       = errors.New("record already exists")
	// ErrConflict reports that a record read inside a transaction was changed
	// by a concurrent writer before commit. Callers may retry the whole unit.
	ErrConflict = errors.New("write conflict")
)

// Collection names the two listing destinations.
type Collection string

const (
	CollectionListings Collection = "listings"
	CollectionFlagged  Collection = "flagged_listings"
)

func (c Collection) table() (string, error) {
	switch c {
	case CollectionListings:
		return "listings", nil
	case CollectionFlagged:
		return "flagged_listings", nil
	default:
		return "", fmt.Errorf("unknown collection %q", string(c))
	}
}

// Store is the durable listing repository.
type Store interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetListing(ctx context.Context, collection Collection, id string) (models.Listing, error)
	ListListings(ctx context.Context, collection Collection, limit, offset int) ([]models.Listing, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.TransactionRecord, error)

	// RunInTx runs fn as one atomic unit. Either every write made through tx
	// commits or none does. A concurrent modification of anything fn read
	// surfaces as ErrConflict.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the read-modify-write view handed to RunInTx callbacks. Updates are
// conditional on the Version carried by the record that was read.
type Tx interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	GetListing(ctx context.Context, collection Collection, id string) (models.Listing, error)
	InsertListing(ctx context.Context, collection Collection, listing models.Listing) error
	UpdateUser(ctx context.Context, user models.User) error
	UpdateListing(ctx context.Context, collection Collection, listing models.Listing) error
	InsertTransaction(ctx context.Context, record models.TransactionRecord) error
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
