package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"swapshelf/internal/classifier"
	"swapshelf/internal/ingest"
	"swapshelf/internal/media/normalize"
	"swapshelf/internal/moderation"
	"swapshelf/internal/queue"
	"swapshelf/internal/repository"
)

type scriptedPipeline struct {
	risks []float64
	err   error
	calls atomic.Int32
}

func (p *scriptedPipeline) Process(_ context.Context, sub ingest.Submission) (ingest.Result, error) {
	p.calls.Add(1)
	if p.err != nil {
		return ingest.Result{}, p.err
	}
	images := make([]ingest.ImageResult, len(p.risks))
	for i, r := range p.risks {
		images[i] = ingest.ImageResult{
			Filename: sub.Files[i].Name,
			Data:     []byte{0xff, 0xd8, 0xff, byte(i)},
			MIME:     "image/jpeg",
			Ext:      ".jpg",
			Risk:     r,
		}
	}
	return ingest.Result{Images: images}, nil
}

type constClassifier struct {
	calls atomic.Int32
}

func (c *constClassifier) Classify(context.Context, image.Image) ([]classifier.Prediction, error) {
	c.calls.Add(1)
	return []classifier.Prediction{{Label: "Neutral", Probability: 1}}, nil
}

func submission(n int, fields ingest.Fields) ingest.Submission {
	files := make([]ingest.File, n)
	for i := range files {
		files[i] = ingest.BytesFile("photo"+string(rune('a'+i))+".jpg", "image/jpeg", []byte("stub"))
	}
	return ingest.Submission{Files: files, Fields: fields}
}

func newListingService(store repository.Store, p Pipeline, objects ObjectStore, events EventPublisher) *ListingService {
	return NewListingService(store, p, moderation.NewRouter(0.15), objects, events, ListingServiceOptions{
		UploadWorkers: 2,
		Retry:         RetryOptions{MaxAttempts: 3},
	}, zerolog.Nop())
}

func TestSubmitApprovedGoesToCatalog(t *testing.T) {
	store := repository.NewMemory()
	seedUser(t, store, "alice", 0)
	objects := newFakeObjects()
	events := &recordingEvents{}
	svc := newListingService(store, &scriptedPipeline{risks: []float64{0.01, 0.15}}, objects, events)

	res, err := svc.Submit(context.Background(), SubmitInput{
		OwnerID:    "alice",
		Submission: submission(2, ingest.Fields{"owner": "alice", "credits": int64(7), "title": "Lamp"}),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Decision != moderation.DecisionApproved || res.Collection != repository.CollectionListings {
		t.Fatalf("expected approved catalog listing, got %s in %s", res.Decision, res.Collection)
	}

	stored, err := store.GetListing(context.Background(), repository.CollectionListings, res.Listing.ID)
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	if stored.Credits != 7 || stored.Metadata["title"] != "Lamp" {
		t.Errorf("unexpected stored listing %+v", stored)
	}
	if len(stored.ImageURLs) != 2 {
		t.Fatalf("expected 2 image urls, got %v", stored.ImageURLs)
	}
	for _, u := range stored.ImageURLs {
		if !strings.HasPrefix(u, "https://cdn.test/test/listings/") || !strings.HasSuffix(u, ".jpg") {
			t.Errorf("unexpected url %s", u)
		}
	}

	keys := objects.keys()
	if !hasPrefix(keys, "listings/") || len(keys) != 2 {
		t.Errorf("expected two catalog objects, got %v", keys)
	}
	for _, k := range keys {
		if !objects.public[k] {
			t.Errorf("object %s not public", k)
		}
		if objects.objects[k] != "image/jpeg" {
			t.Errorf("object %s has content type %s", k, objects.objects[k])
		}
	}

	owner := mustUser(t, store, "alice")
	if len(owner.ListedItemIDs) != 1 || owner.ListedItemIDs[0] != res.Listing.ID {
		t.Errorf("expected listed back-reference, got %v", owner.ListedItemIDs)
	}
	if len(owner.FlaggedItemIDs) != 0 {
		t.Errorf("expected no flagged back-reference, got %v", owner.FlaggedItemIDs)
	}
	if types := events.types(); len(types) != 1 || types[0] != queue.EventListingCreated {
		t.Errorf("expected listing.created event, got %v", types)
	}
}

func TestSubmitFlaggedGoesToHoldQueue(t *testing.T) {
	store := repository.NewMemory()
	seedUser(t, store, "alice", 0)
	objects := newFakeObjects()
	events := &recordingEvents{}
	svc := newListingService(store, &scriptedPipeline{risks: []float64{0.01, 0.1501}}, objects, events)

	res, err := svc.Submit(context.Background(), SubmitInput{OwnerID: "alice", Submission: submission(2, nil)})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Decision != moderation.DecisionFlagged || res.Collection != repository.CollectionFlagged {
		t.Fatalf("expected flagged hold listing, got %s in %s", res.Decision, res.Collection)
	}
	if _, err := store.GetListing(context.Background(), repository.CollectionListings, res.Listing.ID); !errors.Is(err, repository.ErrListingNotFound) {
		t.Errorf("flagged listing leaked into catalog: %v", err)
	}
	if _, err := store.GetListing(context.Background(), repository.CollectionFlagged, res.Listing.ID); err != nil {
		t.Errorf("expected listing in hold queue: %v", err)
	}
	if !hasPrefix(objects.keys(), "flagged/") {
		t.Errorf("expected flagged object keys, got %v", objects.keys())
	}

	owner := mustUser(t, store, "alice")
	if len(owner.FlaggedItemIDs) != 1 || len(owner.ListedItemIDs) != 0 {
		t.Errorf("expected flagged back-reference only, got listed=%v flagged=%v", owner.ListedItemIDs, owner.FlaggedItemIDs)
	}
	if types := events.types(); len(types) != 1 || types[0] != queue.EventListingFlagged {
		t.Errorf("expected listing.flagged event, got %v", types)
	}
}

func TestSubmitUnknownOwnerBeforeAnyWork(t *testing.T) {
	store := repository.NewMemory()
	objects := newFakeObjects()
	pipeline := &scriptedPipeline{risks: []float64{0}}
	svc := newListingService(store, pipeline, objects, nil)

	_, err := svc.Submit(context.Background(), SubmitInput{OwnerID: "ghost", Submission: submission(1, nil)})
	if !errors.Is(err, ErrUnknownOwner) {
		t.Fatalf("expected ErrUnknownOwner, got %v", err)
	}
	if n := pipeline.calls.Load(); n != 0 {
		t.Errorf("expected no classification, got %d", n)
	}
	if n := len(objects.keys()); n != 0 {
		t.Errorf("expected no uploads, got %d", n)
	}
}

func TestSubmitUnsupportedMediaWritesNothing(t *testing.T) {
	store := repository.NewMemory()
	seedUser(t, store, "alice", 0)
	objects := newFakeObjects()
	cls := &constClassifier{}
	pipeline := ingest.NewPipeline(cls, normalize.New(normalize.Options{}), nil, ingest.Options{
		TempDir: t.TempDir(),
		Workers: 2,
	}, zerolog.Nop())
	svc := newListingService(store, pipeline, objects, nil)

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.White)
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, err := svc.Submit(context.Background(), SubmitInput{
		OwnerID: "alice",
		Submission: ingest.Submission{Files: []ingest.File{
			ingest.BytesFile("ok.jpg", "image/jpeg", buf.Bytes()),
			ingest.BytesFile("anim.gif", "image/gif", []byte("GIF89a")),
		}},
	})
	if !errors.Is(err, ingest.ErrUnsupportedMediaType) {
		t.Fatalf("expected ErrUnsupportedMediaType, got %v", err)
	}
	if n := cls.calls.Load(); n != 0 {
		t.Errorf("expected no classification, got %d", n)
	}
	if n := len(objects.keys()); n != 0 {
		t.Errorf("expected no uploads, got %d", n)
	}
	listings, _ := store.ListListings(context.Background(), repository.CollectionListings, 10, 0)
	flagged, _ := store.ListListings(context.Background(), repository.CollectionFlagged, 10, 0)
	if len(listings)+len(flagged) != 0 {
		t.Errorf("expected no listings, got %d", len(listings)+len(flagged))
	}
}

func TestSubmitUploadFailureCleansUp(t *testing.T) {
	store := repository.NewMemory()
	seedUser(t, store, "alice", 0)
	objects := newFakeObjects()
	objects.failPut = true
	svc := newListingService(store, &scriptedPipeline{risks: []float64{0, 0, 0}}, objects, nil)

	_, err := svc.Submit(context.Background(), SubmitInput{OwnerID: "alice", Submission: submission(3, nil)})
	if !errors.Is(err, ErrStorageUpload) {
		t.Fatalf("expected ErrStorageUpload, got %v", err)
	}
	if n := len(objects.keys()); n != 0 {
		t.Errorf("expected uploaded objects removed, %d left", n)
	}
	if owner := mustUser(t, store, "alice"); len(owner.ListedItemIDs) != 0 {
		t.Errorf("expected no back-reference, got %v", owner.ListedItemIDs)
	}
}

func TestSubmitPipelineFailurePropagates(t *testing.T) {
	store := repository.NewMemory()
	seedUser(t, store, "alice", 0)
	objects := newFakeObjects()
	svc := newListingService(store, &scriptedPipeline{err: ingest.ErrClassification}, objects, nil)

	_, err := svc.Submit(context.Background(), SubmitInput{OwnerID: "alice", Submission: submission(1, nil)})
	if !errors.Is(err, ingest.ErrClassification) {
		t.Fatalf("expected ErrClassification, got %v", err)
	}
	if n := len(objects.keys()); n != 0 {
		t.Errorf("expected no uploads, got %d", n)
	}
}
