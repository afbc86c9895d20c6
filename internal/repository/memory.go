package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"swapshelf/internal/models"
)

// Memory is an in-process Store with optimistic concurrency: transactions
// buffer their writes and validate, at commit, that every record they read
// still carries the version they observed.
type Memory struct {
	mu           sync.RWMutex
	users        map[string]models.User
	listings     map[Collection]map[string]models.Listing
	transactions []models.TransactionRecord
	now          func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]models.User),
		listings: map[Collection]map[string]models.Listing{
			CollectionListings: {},
			CollectionFlagged:  {},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) CreateUser(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return ErrDuplicate
	}
	now := m.now()
	user.Version = 1
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (m *Memory) GetListing(_ context.Context, collection Collection, id string) (models.Listing, error) {
	if _, err := collection.table(); err != nil {
		return models.Listing{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	listing, ok := m.listings[collection][id]
	if !ok {
		return models.Listing{}, ErrListingNotFound
	}
	return cloneListing(listing), nil
}

func (m *Memory) ListListings(_ context.Context, collection Collection, limit, offset int) ([]models.Listing, error) {
	if _, err := collection.table(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	all := make([]models.Listing, 0, len(m.listings[collection]))
	for _, listing := range m.listings[collection] {
		all = append(all, cloneListing(listing))
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return page(all, limit, offset), nil
}

func (m *Memory) ListTransactions(_ context.Context, userID string, limit, offset int) ([]models.TransactionRecord, error) {
	m.mu.RLock()
	var records []models.TransactionRecord
	for i := len(m.transactions) - 1; i >= 0; i-- {
		rec := m.transactions[i]
		if rec.GiverID == userID || rec.ReceiverID == userID {
			records = append(records, rec)
		}
	}
	m.mu.RUnlock()
	return page(records, limit, offset), nil
}

// Transactions returns every committed transaction record, oldest first.
func (m *Memory) Transactions() []models.TransactionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.transactions)
}

func (m *Memory) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memTx{
		m:        m,
		reads:    make(map[recordKey]int64),
		users:    make(map[string]models.User),
		listings: make(map[recordKey]pendingListing),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.commit(tx)
}

func (m *Memory) commit(tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, seen := range tx.reads {
		if m.versionOf(key) != seen {
			return fmt.Errorf("record %s changed: %w", key.id, ErrConflict)
		}
	}
	for _, user := range tx.users {
		current, ok := m.users[user.ID]
		if !ok || current.Version != user.Version {
			return fmt.Errorf("user %s changed: %w", user.ID, ErrConflict)
		}
	}
	for _, pending := range tx.listings {
		current, ok := m.listings[pending.collection][pending.listing.ID]
		if pending.insert && ok {
			return ErrDuplicate
		}
		if !pending.insert && (!ok || current.Version != pending.listing.Version) {
			return fmt.Errorf("listing %s changed: %w", pending.listing.ID, ErrConflict)
		}
	}
	for _, rec := range tx.transactions {
		for _, existing := range m.transactions {
			if existing.ItemID == rec.ItemID {
				return fmt.Errorf("item %s already transferred: %w", rec.ItemID, ErrConflict)
			}
		}
	}

	now := m.now()
	for _, user := range tx.users {
		user.Version++
		user.UpdatedAt = now
		m.users[user.ID] = user
	}
	for _, pending := range tx.listings {
		listing := pending.listing
		if pending.insert {
			listing.Version = 1
			listing.CreatedAt = now
		} else {
			listing.Version++
		}
		listing.UpdatedAt = now
		m.listings[pending.collection][listing.ID] = listing
	}
	for _, rec := range tx.transactions {
		rec.CreatedAt = now
		m.transactions = append(m.transactions, rec)
	}
	return nil
}

// versionOf must be called with mu held. Missing records report version 0.
func (m *Memory) versionOf(key recordKey) int64 {
	if key.collection == "" {
		return m.users[key.id].Version
	}
	return m.listings[key.collection][key.id].Version
}

type pendingListing struct {
	collection Collection
	listing    models.Listing
	insert     bool
}

type memTx struct {
	m            *Memory
	reads        map[recordKey]int64
	users        map[string]models.User
	listings     map[recordKey]pendingListing
	transactions []models.TransactionRecord
}

// recordKey identifies a user (empty collection) or a listing.
type recordKey struct {
	collection Collection
	id         string
}

func userKey(id string) recordKey { return recordKey{id: id} }

func listingKey(collection Collection, id string) recordKey {
	return recordKey{collection: collection, id: id}
}

func (t *memTx) GetUser(_ context.Context, id string) (models.User, error) {
	if user, ok := t.users[id]; ok {
		return cloneUser(user), nil
	}
	t.m.mu.RLock()
	user, ok := t.m.users[id]
	t.m.mu.RUnlock()

	t.reads[userKey(id)] = user.Version
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (t *memTx) GetListing(_ context.Context, collection Collection, id string) (models.Listing, error) {
	if _, err := collection.table(); err != nil {
		return models.Listing{}, err
	}
	key := listingKey(collection, id)
	if pending, ok := t.listings[key]; ok {
		return cloneListing(pending.listing), nil
	}
	t.m.mu.RLock()
	listing, ok := t.m.listings[collection][id]
	t.m.mu.RUnlock()

	t.reads[key] = listing.Version
	if !ok {
		return models.Listing{}, ErrListingNotFound
	}
	return cloneListing(listing), nil
}

func (t *memTx) InsertListing(_ context.Context, collection Collection, listing models.Listing) error {
	if _, err := collection.table(); err != nil {
		return err
	}
	key := listingKey(collection, listing.ID)
	if _, ok := t.listings[key]; ok {
		return ErrDuplicate
	}
	t.listings[key] = pendingListing{collection: collection, listing: cloneListing(listing), insert: true}
	return nil
}

func (t *memTx) UpdateUser(_ context.Context, user models.User) error {
	if pending, ok := t.users[user.ID]; ok && pending.Version != user.Version {
		return fmt.Errorf("update user %s: %w", user.ID, ErrConflict)
	}
	t.users[user.ID] = cloneUser(user)
	return nil
}

func (t *memTx) UpdateListing(_ context.Context, collection Collection, listing models.Listing) error {
	if _, err := collection.table(); err != nil {
		return err
	}
	key := listingKey(collection, listing.ID)
	if pending, ok := t.listings[key]; ok && pending.insert {
		pending.listing = cloneListing(listing)
		t.listings[key] = pending
		return nil
	}
	t.listings[key] = pendingListing{collection: collection, listing: cloneListing(listing)}
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, record models.TransactionRecord) error {
	t.transactions = append(t.transactions, record)
	return nil
}

func cloneUser(u models.User) models.User {
	u.ListedItemIDs = slices.Clone(u.ListedItemIDs)
	u.FlaggedItemIDs = slices.Clone(u.FlaggedItemIDs)
	return u
}

func cloneListing(l models.Listing) models.Listing {
	l.Metadata = maps.Clone(l.Metadata)
	l.ImageURLs = slices.Clone(l.ImageURLs)
	l.RiskScores = slices.Clone(l.RiskScores)
	return l
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
