package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"swapshelf/internal/ids"
	"swapshelf/internal/models"
	"swapshelf/internal/queue"
	"swapshelf/internal/repository"
)

type TransferInput struct {
	GiverID     string
	ReceiverID  string
	ItemID      string
	RequesterID string
}

// TransferService moves a listed item from giver to receiver. The receiver
// pays the item's credits to the giver.
type TransferService struct {
	store  repository.Store
	events EventPublisher
	retry  RetryOptions
	log    zerolog.Logger
}

func NewTransferService(store repository.Store, events EventPublisher, retry RetryOptions, log zerolog.Logger) *TransferService {
	return &TransferService{
		store:  store,
		events: events,
		retry:  retry,
		log:    log,
	}
}

func (s *TransferService) Transfer(ctx context.Context, in TransferInput) (models.TransactionRecord, error) {
	var record models.TransactionRecord

	err := runTx(ctx, s.store, s.retry, func(tx repository.Tx) error {
		rec, err := s.apply(ctx, tx, in)
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTransactionConflict) {
			s.log.Warn().Err(err).Str("item_id", in.ItemID).Msg("transfer gave up after conflicts")
		}
		return models.TransactionRecord{}, err
	}

	s.log.Info().
		Str("transaction_id", record.ID).
		Str("item_id", record.ItemID).
		Str("giver_id", record.GiverID).
		Str("receiver_id", record.ReceiverID).
		Int64("credits", record.Credits).
		Msg("transfer committed")

	publish(ctx, s.events, s.log, queue.Event{
		Type:          queue.EventTransferCompleted,
		TransactionID: record.ID,
		ListingID:     record.ItemID,
		GiverID:       record.GiverID,
		ReceiverID:    record.ReceiverID,
		Credits:       strconv.FormatInt(record.Credits, 10),
	})
	return record, nil
}

// apply validates and stages one attempt. It runs again from scratch on every
// retry, so every check sees the latest committed state. The giver is not
// required to be the item's lister; the transaction log records who gave it.
func (s *TransferService) apply(ctx context.Context, tx repository.Tx, in TransferInput) (models.TransactionRecord, error) {
	if in.RequesterID != in.GiverID && in.RequesterID != in.ReceiverID {
		return models.TransactionRecord{}, ErrUnauthorized
	}
	if in.GiverID == in.ReceiverID {
		return models.TransactionRecord{}, ErrSelfTransfer
	}

	item, err := tx.GetListing(ctx, repository.CollectionListings, in.ItemID)
	if errors.Is(err, repository.ErrListingNotFound) {
		return models.TransactionRecord{}, ErrItemNotFound
	}
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("load item: %w", err)
	}
	if item.Status == models.ListingStatusGiven {
		return models.TransactionRecord{}, ErrAlreadyGiven
	}

	giver, err := s.loadParty(ctx, tx, in.GiverID)
	if err != nil {
		return models.TransactionRecord{}, err
	}
	receiver, err := s.loadParty(ctx, tx, in.ReceiverID)
	if err != nil {
		return models.TransactionRecord{}, err
	}

	if receiver.Credits < item.Credits {
		return models.TransactionRecord{}, fmt.Errorf("%w: balance %d, price %d", ErrInsufficientCredits, receiver.Credits, item.Credits)
	}

	giver.Credits += item.Credits
	receiver.Credits -= item.Credits
	item.Status = models.ListingStatusGiven

	if err := tx.UpdateUser(ctx, giver); err != nil {
		return models.TransactionRecord{}, err
	}
	if err := tx.UpdateUser(ctx, receiver); err != nil {
		return models.TransactionRecord{}, err
	}
	if err := tx.UpdateListing(ctx, repository.CollectionListings, item); err != nil {
		return models.TransactionRecord{}, err
	}

	record := models.TransactionRecord{
		ID:         ids.New(),
		GiverID:    giver.ID,
		ReceiverID: receiver.ID,
		ItemID:     item.ID,
		Credits:    item.Credits,
		Status:     models.TransactionStatusCompleted,
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.InsertTransaction(ctx, record); err != nil {
		return models.TransactionRecord{}, err
	}
	return record, nil
}

func (s *TransferService) loadParty(ctx context.Context, tx repository.Tx, id string) (models.User, error) {
	user, err := tx.GetUser(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("%w: %s", ErrUnknownUser, id)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user %s: %w", id, err)
	}
	return user, nil
}
