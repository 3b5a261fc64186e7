package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"card-vault/internal/core/domain"
	"card-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

const cardColumns = `id, version, number_enc, number_hash, expiry_month, expiry_year, status, balance::text, holder_id, created_at, updated_at`

// CardRepo implements ports.CardRepository on PostgreSQL. Every write is
// version-checked: the stored version must equal the version the caller
// loaded, and the row's version is incremented in the same statement.
type CardRepo struct {
	pool Pool
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(pool Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

// Create inserts a new card. A number-hash collision maps to
// ports.ErrDuplicateHash.
func (r *CardRepo) Create(ctx context.Context, c *domain.Card) error {
	query := `INSERT INTO cards (id, version, number_enc, number_hash, expiry_month, expiry_year, status, balance, holder_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Version, c.NumberEncrypted, c.NumberHash,
		c.Expiry.Month, c.Expiry.Year, c.Status,
		c.Balance.StringFixed(domain.BalanceScale), c.HolderID,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "number_hash") {
			return ports.ErrDuplicateHash
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// GetByID fetches a card by UUID. Returns nil, nil when absent.
func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE id = $1`, cardColumns)
	return scanCard(r.pool.QueryRow(ctx, query, id))
}

// GetManyByID loads a set of cards in one round trip, keyed by id. Ids
// with no matching row are absent from the map.
func (r *CardRepo) GetManyByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE id = ANY($1)`, cardColumns)

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get cards by ids: %w", err)
	}
	defer rows.Close()

	cards := make(map[uuid.UUID]*domain.Card, len(ids))
	for rows.Next() {
		c, err := scanCardRow(rows)
		if err != nil {
			return nil, err
		}
		cards[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get cards by ids: %w", err)
	}
	return cards, nil
}

// ExistsByHash reports whether any card carries the given number hash.
func (r *CardRepo) ExistsByHash(ctx context.Context, numberHash string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM cards WHERE number_hash = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, numberHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("check card hash: %w", err)
	}
	return exists, nil
}

// Save updates the card's mutable fields if and only if the stored version
// equals expectedVersion, bumping the version in the same statement. When
// zero rows match it distinguishes a missing card (nil, nil) from a stale
// version (ports.ErrVersionConflict).
func (r *CardRepo) Save(ctx context.Context, c *domain.Card, expectedVersion int64) (*domain.Card, error) {
	query := `UPDATE cards
		SET expiry_month = $1, expiry_year = $2, status = $3, balance = $4::numeric,
			version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6
		RETURNING version, updated_at`

	updated := *c
	err := r.pool.QueryRow(ctx, query,
		c.Expiry.Month, c.Expiry.Year, c.Status,
		c.Balance.StringFixed(domain.BalanceScale),
		c.ID, expectedVersion,
	).Scan(&updated.Version, &updated.UpdatedAt)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update card: %w", err)
	}

	exists, err := r.existsByID(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return nil, ports.ErrVersionConflict
}

// SaveAll applies every version-checked write inside one serializable
// transaction. Updates always run in ascending card id order, so two
// batches over the same cards acquire row locks in the same order no
// matter how the callers ordered them. Any stale version rolls back the
// whole batch and surfaces ports.ErrVersionConflict; serialization and
// deadlock failures map to the same error so callers treat every loss to
// a concurrent writer identically.
func (r *CardRepo) SaveAll(ctx context.Context, cards []ports.CardWithVersion) error {
	if len(cards) == 0 {
		return nil
	}

	batch := make([]ports.CardWithVersion, len(cards))
	copy(batch, cards)
	slices.SortFunc(batch, func(a, b ports.CardWithVersion) int {
		return bytes.Compare(a.Card.ID[:], b.Card.ID[:])
	})

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE cards
		SET status = $1, balance = $2::numeric, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4`

	for _, cv := range batch {
		tag, err := tx.Exec(ctx, query,
			cv.Card.Status, cv.Card.Balance.StringFixed(domain.BalanceScale),
			cv.Card.ID, cv.ExpectedVersion,
		)
		if err != nil {
			if isConcurrencyConflict(err) {
				return ports.ErrVersionConflict
			}
			return fmt.Errorf("update card %s: %w", cv.Card.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return ports.ErrVersionConflict
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isConcurrencyConflict(err) {
			return ports.ErrVersionConflict
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes the card if the version matches. Returns false when no
// card exists; a stale version returns true with ErrVersionConflict.
func (r *CardRepo) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) (bool, error) {
	query := `DELETE FROM cards WHERE id = $1 AND version = $2`

	tag, err := r.pool.Exec(ctx, query, id, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("delete card: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	exists, err := r.existsByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	return true, ports.ErrVersionConflict
}

// List fetches a filtered, paginated page of cards plus the total count.
func (r *CardRepo) List(ctx context.Context, params ports.CardListParams) ([]domain.Card, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.HolderID != nil {
		conditions = append(conditions, fmt.Sprintf("holder_id = $%d", argIdx))
		args = append(args, *params.HolderID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM cards %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cards: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM cards %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		cardColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCardRow(rows)
		if err != nil {
			return nil, 0, err
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list cards: %w", err)
	}
	return cards, total, nil
}

// ExpireDue transitions every card whose expiry lies strictly before the
// given month/year to EXPIRED, bumping each row's version.
func (r *CardRepo) ExpireDue(ctx context.Context, month, year int) (int64, error) {
	query := `UPDATE cards
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE status != $1 AND (expiry_year < $2 OR (expiry_year = $2 AND expiry_month < $3))`

	tag, err := r.pool.Exec(ctx, query, domain.CardStatusExpired, year, month)
	if err != nil {
		return 0, fmt.Errorf("expire due cards: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *CardRepo) existsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM cards WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check card exists: %w", err)
	}
	return exists, nil
}

// isConcurrencyConflict reports whether err is Postgres telling us another
// transaction won: a serialization failure or a detected deadlock. Both
// leave the database untouched and both are safe to retry.
func isConcurrencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

// scanCard is a helper to scan a single row into a Card.
func scanCard(row pgx.Row) (*domain.Card, error) {
	c, err := scanCardRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func scanCardRow(row pgx.Row) (*domain.Card, error) {
	c := &domain.Card{}
	var balance string
	err := row.Scan(
		&c.ID, &c.Version, &c.NumberEncrypted, &c.NumberHash,
		&c.Expiry.Month, &c.Expiry.Year, &c.Status, &balance,
		&c.HolderID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan card: %w", err)
	}
	c.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse card balance: %w", err)
	}
	return c, nil
}
