package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapshelf/internal/models"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) CreateUser(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, display_name, role, credits, listed_item_ids, flagged_item_ids, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, 1, NOW(), NOW()
		)
	`
	_, err := p.pool.Exec(ctx, query,
		user.ID,
		user.DisplayName,
		user.Role,
		user.Credits,
		nonNilStrings(user.ListedItemIDs),
		nonNilStrings(user.FlaggedItemIDs),
	)
	if isPgCode(err, pgUniqueViolation) {
		return ErrDuplicate
	}
	return err
}

func (p *Postgres) GetUser(ctx context.Context, id string) (models.User, error) {
	return getUser(ctx, p.pool, id)
}

func (p *Postgres) GetListing(ctx context.Context, collection Collection, id string) (models.Listing, error) {
	return getListing(ctx, p.pool, collection, id)
}

func (p *Postgres) ListListings(ctx context.Context, collection Collection, limit, offset int) ([]models.Listing, error) {
	table, err := collection.table()
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + listingColumns + ` FROM ` + table + `
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := p.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

func (p *Postgres) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.TransactionRecord, error) {
	const query = `
		SELECT id, giver_id, receiver_id, item_id, credits, status, created_at
		FROM transactions
		WHERE giver_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := p.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var rec models.TransactionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.GiverID,
			&rec.ReceiverID,
			&rec.ItemID,
			&rec.Credits,
			&rec.Status,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunInTx executes fn inside a serializable transaction. Serialization
// failures, deadlocks and stale version checks are reported as ErrConflict.
func (p *Postgres) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(pgTx{q: tx}); err != nil {
		return translateConflict(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", translateConflict(err))
	}
	return nil
}

type pgTx struct {
	q queryer
}

func (t pgTx) GetUser(ctx context.Context, id string) (models.User, error) {
	return getUser(ctx, t.q, id)
}

func (t pgTx) GetListing(ctx context.Context, collection Collection, id string) (models.Listing, error) {
	return getListing(ctx, t.q, collection, id)
}

func (t pgTx) InsertListing(ctx context.Context, collection Collection, listing models.Listing) error {
	table, err := collection.table()
	if err != nil {
		return err
	}
	query := `
		INSERT INTO ` + table + ` (
			id, owner_id, metadata, image_urls, risk_scores, status, credits, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, 1, NOW(), NOW()
		)
	`
	metadata := listing.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	riskScores := listing.RiskScores
	if riskScores == nil {
		riskScores = []float64{}
	}
	_, err = t.q.Exec(ctx, query,
		listing.ID,
		listing.OwnerID,
		metadata,
		nonNilStrings(listing.ImageURLs),
		riskScores,
		listing.Status,
		listing.Credits,
	)
	if isPgCode(err, pgUniqueViolation) {
		return ErrDuplicate
	}
	return err
}

func (t pgTx) UpdateUser(ctx context.Context, user models.User) error {
	const query = `
		UPDATE users
		SET credits = $3,
		    listed_item_ids = $4,
		    flagged_item_ids = $5,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	cmd, err := t.q.Exec(ctx, query,
		user.ID,
		user.Version,
		user.Credits,
		nonNilStrings(user.ListedItemIDs),
		nonNilStrings(user.FlaggedItemIDs),
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update user %s: %w", user.ID, ErrConflict)
	}
	return nil
}

func (t pgTx) UpdateListing(ctx context.Context, collection Collection, listing models.Listing) error {
	table, err := collection.table()
	if err != nil {
		return err
	}
	query := `
		UPDATE ` + table + `
		SET status = $3,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	cmd, err := t.q.Exec(ctx, query, listing.ID, listing.Version, listing.Status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update listing %s: %w", listing.ID, ErrConflict)
	}
	return nil
}

func (t pgTx) InsertTransaction(ctx context.Context, record models.TransactionRecord) error {
	const query = `
		INSERT INTO transactions (
			id, giver_id, receiver_id, item_id, credits, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW()
		)
	`
	_, err := t.q.Exec(ctx, query,
		record.ID,
		record.GiverID,
		record.ReceiverID,
		record.ItemID,
		record.Credits,
		record.Status,
	)
	// transactions.item_id is unique: a concurrent transfer of the same item
	// committed first.
	if isPgCode(err, pgUniqueViolation) {
		return fmt.Errorf("insert transaction for %s: %w", record.ItemID, ErrConflict)
	}
	return err
}

const listingColumns = `id, owner_id, metadata, image_urls, risk_scores, status, credits, version, created_at, updated_at`

func getUser(ctx context.Context, q queryer, id string) (models.User, error) {
	const query = `
		SELECT id, display_name, role, credits, listed_item_ids, flagged_item_ids, version, created_at, updated_at
		FROM users WHERE id = $1
	`
	var user models.User
	if err := q.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Role,
		&user.Credits,
		&user.ListedItemIDs,
		&user.FlaggedItemIDs,
		&user.Version,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func getListing(ctx context.Context, q queryer, collection Collection, id string) (models.Listing, error) {
	table, err := collection.table()
	if err != nil {
		return models.Listing{}, err
	}
	query := `SELECT ` + listingColumns + ` FROM ` + table + ` WHERE id = $1`

	listing, err := scanListing(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Listing{}, ErrListingNotFound
		}
		return models.Listing{}, err
	}
	return listing, nil
}

func scanListing(row pgx.Row) (models.Listing, error) {
	var listing models.Listing
	err := row.Scan(
		&listing.ID,
		&listing.OwnerID,
		&listing.Metadata,
		&listing.ImageURLs,
		&listing.RiskScores,
		&listing.Status,
		&listing.Credits,
		&listing.Version,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	return listing, err
}

func translateConflict(err error) error {
	if isPgCode(err, pgSerializationFailure) || isPgCode(err, pgDeadlockDetected) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == code
}
