package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"swapshelf/internal/models"
	"swapshelf/internal/queue"
	"swapshelf/internal/repository"
	"swapshelf/internal/storage"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string]string
	public  map[string]bool
	puts    int
	failPut bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string]string{}, public: map[string]bool{}}
}

func (f *fakeObjects) Put(_ context.Context, key string, _ []byte, contentType string) (storage.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failPut && f.puts > 1 {
		return storage.Reference{}, errors.New("bucket unavailable")
	}
	f.objects[key] = contentType
	return storage.Reference{Bucket: "test", Key: key}, nil
}

func (f *fakeObjects) MakePublic(_ context.Context, ref storage.Reference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.public[ref.Key] = true
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, ref storage.Reference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, ref.Key)
	delete(f.public, ref.Key)
	return nil
}

func (f *fakeObjects) PublicURL(ref storage.Reference) string {
	return "https://cdn.test/" + ref.Bucket + "/" + ref.Key
}

func (f *fakeObjects) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	return out
}

type recordingEvents struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recordingEvents) Publish(_ context.Context, ev queue.Event) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return "1-0", nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func seedUser(t *testing.T, store *repository.Memory, id string, credits int64) {
	t.Helper()
	if err := store.CreateUser(context.Background(), models.User{ID: id, Credits: credits}); err != nil {
		t.Fatalf("CreateUser %s: %v", id, err)
	}
}

func seedListing(t *testing.T, store *repository.Memory, id, owner string, credits int64) {
	t.Helper()
	err := store.RunInTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertListing(context.Background(), repository.CollectionListings, models.Listing{
			ID:      id,
			OwnerID: owner,
			Status:  models.ListingStatusActive,
			Credits: credits,
		})
	})
	if err != nil {
		t.Fatalf("seed listing %s: %v", id, err)
	}
}

func mustUser(t *testing.T, store *repository.Memory, id string) models.User {
	t.Helper()
	user, err := store.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("GetUser %s: %v", id, err)
	}
	return user
}

func hasPrefix(keys []string, prefix string) bool {
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			return false
		}
	}
	return len(keys) > 0
}
