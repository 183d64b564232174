package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hackastrophe/internal/common"
	"hackastrophe/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type CartRepository interface {
	FindEntry(ctx context.Context, userID, challengeID string) (*model.CartEntry, error)
	CreateEntry(ctx context.Context, entry *model.CartEntry) error
	UpdateQuantity(ctx context.Context, userID, challengeID string, quantity int) error
	DeleteEntry(ctx context.Context, userID, challengeID string) error

	// ListEntries returns every staged row, including ones whose
	// challenge has been deactivated since being added; ListItems only
	// returns rows joined against currently-active challenges.
	ListEntries(ctx context.Context, userID string) ([]model.CartEntry, error)
	ListItems(ctx context.Context, userID string) ([]model.CartItem, error)

	Total(ctx context.Context, userID string) (float64, error)
	Count(ctx context.Context, userID string) (int, error)
	Clear(ctx context.Context, tx *sql.Tx, userID string) error
}

type pgCartRepository struct {
	db *sql.DB
}

func NewPgCartRepository(db *sql.DB) CartRepository {
	return &pgCartRepository{db: db}
}

func (r *pgCartRepository) FindEntry(ctx context.Context, userID, challengeID string) (*model.CartEntry, error) {
	query := `SELECT id, user_id, challenge_id, quantity, added_at FROM cart_entries
	          WHERE user_id = $1 AND challenge_id = $2`
	entry := &model.CartEntry{}
	err := r.db.QueryRowContext(ctx, query, userID, challengeID).Scan(
		&entry.ID, &entry.UserID, &entry.ChallengeID, &entry.Quantity, &entry.AddedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCartRepository.FindEntry: %w", err)
	}
	return entry, nil
}

func (r *pgCartRepository) CreateEntry(ctx context.Context, entry *model.CartEntry) error {
	query := `INSERT INTO cart_entries (id, user_id, challenge_id, quantity) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, entry.ID, entry.UserID, entry.ChallengeID, entry.Quantity)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // (user_id, challenge_id) unique
			return fmt.Errorf("entry already staged: %w", common.ErrAlreadyInCart)
		}
		return fmt.Errorf("pgCartRepository.CreateEntry: %w", err)
	}
	return nil
}

func (r *pgCartRepository) UpdateQuantity(ctx context.Context, userID, challengeID string, quantity int) error {
	query := `UPDATE cart_entries SET quantity = $1 WHERE user_id = $2 AND challenge_id = $3`
	res, err := r.db.ExecContext(ctx, query, quantity, userID, challengeID)
	if err != nil {
		return fmt.Errorf("pgCartRepository.UpdateQuantity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteEntry is idempotent: deleting an absent entry is not an error.
func (r *pgCartRepository) DeleteEntry(ctx context.Context, userID, challengeID string) error {
	query := `DELETE FROM cart_entries WHERE user_id = $1 AND challenge_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, challengeID); err != nil {
		return fmt.Errorf("pgCartRepository.DeleteEntry: %w", err)
	}
	return nil
}

func (r *pgCartRepository) ListEntries(ctx context.Context, userID string) ([]model.CartEntry, error) {
	query := `SELECT id, user_id, challenge_id, quantity, added_at FROM cart_entries
	          WHERE user_id = $1 ORDER BY added_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgCartRepository.ListEntries: %w", err)
	}
	defer rows.Close()

	var entries []model.CartEntry
	for rows.Next() {
		var e model.CartEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ChallengeID, &e.Quantity, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("pgCartRepository.ListEntries scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgCartRepository) ListItems(ctx context.Context, userID string) ([]model.CartItem, error) {
	query := `
        SELECT ce.id, ce.challenge_id, c.title, c.slug, c.category, c.difficulty,
               c.price, ce.quantity, u.username, ce.added_at
        FROM cart_entries ce
        JOIN challenges c ON ce.challenge_id = c.id
        JOIN users u ON c.author_id = u.id
        WHERE ce.user_id = $1 AND c.is_active = TRUE
        ORDER BY ce.added_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgCartRepository.ListItems: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(
			&it.EntryID, &it.ChallengeID, &it.Title, &it.Slug, &it.Category, &it.Difficulty,
			&it.Price, &it.Quantity, &it.AuthorName, &it.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("pgCartRepository.ListItems scan: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *pgCartRepository) Total(ctx context.Context, userID string) (float64, error) {
	query := `
        SELECT COALESCE(SUM(c.price * ce.quantity), 0)
        FROM cart_entries ce
        JOIN challenges c ON ce.challenge_id = c.id
        WHERE ce.user_id = $1 AND c.is_active = TRUE`

	var total float64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("pgCartRepository.Total: %w", err)
	}
	return total, nil
}

func (r *pgCartRepository) Count(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cart_entries WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgCartRepository.Count: %w", err)
	}
	return count, nil
}

func (r *pgCartRepository) Clear(ctx context.Context, tx *sql.Tx, userID string) error {
	query := `DELETE FROM cart_entries WHERE user_id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, userID)
	} else {
		_, err = r.db.ExecContext(ctx, query, userID)
	}
	if err != nil {
		return fmt.Errorf("pgCartRepository.Clear: %w", err)
	}
	return nil
}
