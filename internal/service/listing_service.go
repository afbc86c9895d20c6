package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"swapshelf/internal/ids"
	"swapshelf/internal/ingest"
	"swapshelf/internal/models"
	"swapshelf/internal/moderation"
	"swapshelf/internal/queue"
	"swapshelf/internal/repository"
	"swapshelf/internal/storage"
)

// Pipeline scores a submission.
type Pipeline interface {
	Process(ctx context.Context, sub ingest.Submission) (ingest.Result, error)
}

// ObjectStore holds listing images.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (storage.Reference, error)
	MakePublic(ctx context.Context, ref storage.Reference) error
	Remove(ctx context.Context, ref storage.Reference) error
	PublicURL(ref storage.Reference) string
}

type SubmitInput struct {
	OwnerID    string
	Submission ingest.Submission
}

type SubmitResult struct {
	Listing    models.Listing
	Decision   moderation.Decision
	Collection repository.Collection
}

type ListingServiceOptions struct {
	UploadWorkers int
	Retry         RetryOptions
}

// ListingService turns a scored submission into a stored listing, either in
// the public catalog or in the moderation hold queue.
type ListingService struct {
	store    repository.Store
	pipeline Pipeline
	router   moderation.Router
	objects  ObjectStore
	events   EventPublisher
	opts     ListingServiceOptions
	log      zerolog.Logger
}

func NewListingService(
	store repository.Store,
	pipeline Pipeline,
	router moderation.Router,
	objects ObjectStore,
	events EventPublisher,
	opts ListingServiceOptions,
	log zerolog.Logger,
) *ListingService {
	return &ListingService{
		store:    store,
		pipeline: pipeline,
		router:   router,
		objects:  objects,
		events:   events,
		opts:     opts,
		log:      log,
	}
}

func (s *ListingService) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	// The owner must exist before anything is classified or uploaded.
	if _, err := s.store.GetUser(ctx, in.OwnerID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return SubmitResult{}, fmt.Errorf("%w: %s", ErrUnknownOwner, in.OwnerID)
		}
		return SubmitResult{}, fmt.Errorf("load owner: %w", err)
	}

	scored, err := s.pipeline.Process(ctx, in.Submission)
	if err != nil {
		return SubmitResult{}, err
	}

	decision := s.router.Route(scored.RiskScores())
	collection := repository.CollectionListings
	if decision == moderation.DecisionFlagged {
		collection = repository.CollectionFlagged
	}

	refs, err := s.upload(ctx, collection, scored.Images)
	if err != nil {
		s.cleanup(ctx, refs)
		return SubmitResult{}, err
	}

	urls := make([]string, len(refs))
	for i, ref := range refs {
		urls[i] = s.objects.PublicURL(ref)
	}

	listing := models.Listing{
		ID:         ids.New(),
		OwnerID:    in.OwnerID,
		Metadata:   in.Submission.Fields.Metadata(),
		ImageURLs:  urls,
		RiskScores: scored.RiskScores(),
		Status:     models.ListingStatusActive,
		Credits:    in.Submission.Fields.Credits(),
	}

	err = runTx(ctx, s.store, s.opts.Retry, func(tx repository.Tx) error {
		owner, err := tx.GetUser(ctx, in.OwnerID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownOwner, in.OwnerID)
		}
		if err != nil {
			return err
		}
		if err := tx.InsertListing(ctx, collection, listing); err != nil {
			return err
		}
		if collection == repository.CollectionFlagged {
			owner.FlaggedItemIDs = append(owner.FlaggedItemIDs, listing.ID)
		} else {
			owner.ListedItemIDs = append(owner.ListedItemIDs, listing.ID)
		}
		return tx.UpdateUser(ctx, owner)
	})
	if err != nil {
		s.cleanup(ctx, refs)
		return SubmitResult{}, fmt.Errorf("save listing: %w", err)
	}

	s.log.Info().
		Str("listing_id", listing.ID).
		Str("owner_id", listing.OwnerID).
		Str("decision", string(decision)).
		Int("images", len(urls)).
		Msg("listing stored")

	evType := queue.EventListingCreated
	if decision == moderation.DecisionFlagged {
		evType = queue.EventListingFlagged
	}
	publish(ctx, s.events, s.log, queue.Event{
		Type:       evType,
		ListingID:  listing.ID,
		OwnerID:    listing.OwnerID,
		Collection: string(collection),
	})

	return SubmitResult{Listing: listing, Decision: decision, Collection: collection}, nil
}

// upload stores every image under a fresh name and makes it public. On error
// the returned slice holds the references that were written, in no
// particular order, for cleanup.
func (s *ListingService) upload(ctx context.Context, collection repository.Collection, images []ingest.ImageResult) ([]storage.Reference, error) {
	refs := make([]storage.Reference, len(images))
	var (
		mu      sync.Mutex
		written []storage.Reference
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.opts.UploadWorkers > 0 {
		g.SetLimit(s.opts.UploadWorkers)
	}
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			key := objectKey(collection, img.Ext)
			ref, err := s.objects.Put(gctx, key, img.Data, storage.ContentTypeFor(img.Ext))
			if err != nil {
				return err
			}
			mu.Lock()
			written = append(written, ref)
			mu.Unlock()

			if err := s.objects.MakePublic(gctx, ref); err != nil {
				return err
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return written, fmt.Errorf("%w: %v", ErrStorageUpload, err)
	}
	return refs, nil
}

func objectKey(collection repository.Collection, ext string) string {
	prefix := "listings"
	if collection == repository.CollectionFlagged {
		prefix = "flagged"
	}
	return prefix + "/" + uuid.NewString() + ext
}

func (s *ListingService) cleanup(ctx context.Context, refs []storage.Reference) {
	ctx = context.WithoutCancel(ctx)
	for _, ref := range refs {
		if err := s.objects.Remove(ctx, ref); err != nil {
			s.log.Warn().Err(err).Str("key", ref.Key).Msg("remove orphaned upload failed")
		}
	}
}
