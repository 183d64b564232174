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

// OrderRepository persists invoices and purchase records. The write
// methods take a tx because they only ever run inside the checkout or
// solve transactions.
type OrderRepository interface {
	CreateInvoice(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error
	CreateInvoiceItem(ctx context.Context, tx *sql.Tx, item *model.InvoiceItem) error
	CreatePurchase(ctx context.Context, tx *sql.Tx, p *model.PurchasedChallenge) error

	HasPurchased(ctx context.Context, userID, challengeID string) (bool, error)
	FindPurchase(ctx context.Context, userID, challengeID string) (*model.PurchasedChallenge, error)
	MarkSolved(ctx context.Context, tx *sql.Tx, userID, challengeID string) (bool, error)
	ListPurchasedByUser(ctx context.Context, userID string) ([]model.PurchasedItem, error)

	FindInvoiceByID(ctx context.Context, id string) (*model.Invoice, error)
	ListInvoicesByUser(ctx context.Context, userID string) ([]model.Invoice, error)
	ListAllInvoices(ctx context.Context) ([]model.Invoice, error)
}

type pgOrderRepository struct {
	db *sql.DB
}

func NewPgOrderRepository(db *sql.DB) OrderRepository {
	return &pgOrderRepository{db: db}
}

func (r *pgOrderRepository) CreateInvoice(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error {
	query := `INSERT INTO invoices (id, user_id, amount, billing_address, billing_city, billing_zip, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at`
	err := tx.QueryRowContext(ctx, query, inv.ID, inv.UserID, inv.Amount,
		inv.BillingAddress, inv.BillingCity, inv.BillingZip, inv.Status).Scan(&inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgOrderRepository.CreateInvoice: %w", err)
	}
	return nil
}

func (r *pgOrderRepository) CreateInvoiceItem(ctx context.Context, tx *sql.Tx, item *model.InvoiceItem) error {
	query := `INSERT INTO invoice_items (id, invoice_id, challenge_id, challenge_title, price, quantity)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.ExecContext(ctx, query, item.ID, item.InvoiceID, item.ChallengeID,
		item.ChallengeTitle, item.Price, item.Quantity)
	if err != nil {
		return fmt.Errorf("pgOrderRepository.CreateInvoiceItem: %w", err)
	}
	return nil
}

func (r *pgOrderRepository) CreatePurchase(ctx context.Context, tx *sql.Tx, p *model.PurchasedChallenge) error {
	query := `INSERT INTO purchased_challenges (id, user_id, challenge_id) VALUES ($1, $2, $3)`
	_, err := tx.ExecContext(ctx, query, p.ID, p.UserID, p.ChallengeID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// (user_id, challenge_id) unique: a concurrent checkout won the race
			return fmt.Errorf("purchase record already exists: %w", common.ErrDuplicatePurchase)
		}
		return fmt.Errorf("pgOrderRepository.CreatePurchase: %w", err)
	}
	return nil
}

func (r *pgOrderRepository) HasPurchased(ctx context.Context, userID, challengeID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM purchased_challenges WHERE user_id = $1 AND challenge_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, userID, challengeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgOrderRepository.HasPurchased: %w", err)
	}
	return exists, nil
}

func (r *pgOrderRepository) FindPurchase(ctx context.Context, userID, challengeID string) (*model.PurchasedChallenge, error) {
	query := `SELECT id, user_id, challenge_id, purchased_at, is_solved, solved_at
	          FROM purchased_challenges WHERE user_id = $1 AND challenge_id = $2`
	p := &model.PurchasedChallenge{}
	err := r.db.QueryRowContext(ctx, query, userID, challengeID).Scan(
		&p.ID, &p.UserID, &p.ChallengeID, &p.PurchasedAt, &p.IsSolved, &p.SolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgOrderRepository.FindPurchase: %w", err)
	}
	return p, nil
}

// MarkSolved flips is_solved exactly once. Returns false when the row
// was already solved (a concurrent submission won), so the caller can
// skip the score and counter grants.
func (r *pgOrderRepository) MarkSolved(ctx context.Context, tx *sql.Tx, userID, challengeID string) (bool, error) {
	query := `UPDATE purchased_challenges SET is_solved = TRUE, solved_at = CURRENT_TIMESTAMP
	          WHERE user_id = $1 AND challenge_id = $2 AND is_solved = FALSE`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, userID, challengeID)
	} else {
		res, err = r.db.ExecContext(ctx, query, userID, challengeID)
	}
	if err != nil {
		return false, fmt.Errorf("pgOrderRepository.MarkSolved: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgOrderRepository.MarkSolved: %w", err)
	}
	return n == 1, nil
}

func (r *pgOrderRepository) ListPurchasedByUser(ctx context.Context, userID string) ([]model.PurchasedItem, error) {
	query := `
        SELECT c.id, c.title, c.slug, c.category, c.difficulty, c.points, c.access_url,
               pc.purchased_at, pc.is_solved, pc.solved_at
        FROM purchased_challenges pc
        JOIN challenges c ON pc.challenge_id = c.id
        WHERE pc.user_id = $1
        ORDER BY pc.purchased_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgOrderRepository.ListPurchasedByUser: %w", err)
	}
	defer rows.Close()

	var items []model.PurchasedItem
	for rows.Next() {
		var it model.PurchasedItem
		if err := rows.Scan(
			&it.ChallengeID, &it.Title, &it.Slug, &it.Category, &it.Difficulty, &it.Points,
			&it.AccessURL, &it.PurchasedAt, &it.IsSolved, &it.SolvedAt,
		); err != nil {
			return nil, fmt.Errorf("pgOrderRepository.ListPurchasedByUser scan: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *pgOrderRepository) FindInvoiceByID(ctx context.Context, id string) (*model.Invoice, error) {
	query := `
        SELECT i.id, i.user_id, i.amount, i.billing_address, i.billing_city, i.billing_zip,
               i.status, i.created_at, u.username
        FROM invoices i
        JOIN users u ON i.user_id = u.id
        WHERE i.id = $1`

	inv := &model.Invoice{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&inv.ID, &inv.UserID, &inv.Amount, &inv.BillingAddress, &inv.BillingCity,
		&inv.BillingZip, &inv.Status, &inv.CreatedAt, &inv.Username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgOrderRepository.FindInvoiceByID: %w", err)
	}

	itemsQuery := `SELECT id, invoice_id, challenge_id, challenge_title, price, quantity
	               FROM invoice_items WHERE invoice_id = $1`
	rows, err := r.db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("pgOrderRepository.FindInvoiceByID items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ChallengeID, &it.ChallengeTitle, &it.Price, &it.Quantity); err != nil {
			return nil, fmt.Errorf("pgOrderRepository.FindInvoiceByID items scan: %w", err)
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgOrderRepository.FindInvoiceByID items rows: %w", err)
	}
	return inv, nil
}

const invoiceListSelect = `
        SELECT i.id, i.user_id, i.amount, i.billing_address, i.billing_city, i.billing_zip,
               i.status, i.created_at, u.username, COUNT(ii.id) AS item_count
        FROM invoices i
        JOIN users u ON i.user_id = u.id
        LEFT JOIN invoice_items ii ON i.id = ii.invoice_id`

func (r *pgOrderRepository) ListInvoicesByUser(ctx context.Context, userID string) ([]model.Invoice, error) {
	query := invoiceListSelect + `
        WHERE i.user_id = $1
        GROUP BY i.id, u.username
        ORDER BY i.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgOrderRepository.ListInvoicesByUser: %w", err)
	}
	defer rows.Close()
	return scanInvoices(rows)
}

func (r *pgOrderRepository) ListAllInvoices(ctx context.Context) ([]model.Invoice, error) {
	query := invoiceListSelect + `
        GROUP BY i.id, u.username
        ORDER BY i.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgOrderRepository.ListAllInvoices: %w", err)
	}
	defer rows.Close()
	return scanInvoices(rows)
}

func scanInvoices(rows *sql.Rows) ([]model.Invoice, error) {
	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.UserID, &inv.Amount, &inv.BillingAddress, &inv.BillingCity,
			&inv.BillingZip, &inv.Status, &inv.CreatedAt, &inv.Username, &inv.ItemCount,
		); err != nil {
			return nil, fmt.Errorf("scanInvoices: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
