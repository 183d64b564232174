package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"hackastrophe/internal/common"
	"hackastrophe/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ChallengeRepository interface {
	Create(ctx context.Context, tx *sql.Tx, ch *model.Challenge) error
	CreateInstance(ctx context.Context, tx *sql.Tx, inst *model.ChallengeInstance) error
	Update(ctx context.Context, ch *model.Challenge) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Challenge, error)
	FindBySlug(ctx context.Context, slug string) (*model.Challenge, error)
	List(ctx context.Context, filter model.ChallengeFilter, limit, offset int) ([]model.Challenge, int, error)
	ListByAuthor(ctx context.Context, authorID string) ([]model.Challenge, error)
	IncrementSolvedCount(ctx context.Context, tx *sql.Tx, id string) error
}

type pgChallengeRepository struct {
	db *sql.DB
}

func NewPgChallengeRepository(db *sql.DB) ChallengeRepository {
	return &pgChallengeRepository{db: db}
}

func (r *pgChallengeRepository) Create(ctx context.Context, tx *sql.Tx, ch *model.Challenge) error {
	query := `INSERT INTO challenges (id, title, slug, description, category, difficulty, price, points, author_id, image_url, access_url, flag_hash, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, ch.ID, ch.Title, ch.Slug, ch.Description, ch.Category, ch.Difficulty, ch.Price, ch.Points, ch.AuthorID, ch.ImageURL, ch.AccessURL, ch.FlagHash, ch.IsActive)
	} else {
		_, err = r.db.ExecContext(ctx, query, ch.ID, ch.Title, ch.Slug, ch.Description, ch.Category, ch.Difficulty, ch.Price, ch.Points, ch.AuthorID, ch.ImageURL, ch.AccessURL, ch.FlagHash, ch.IsActive)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("challenge with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgChallengeRepository.Create: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) CreateInstance(ctx context.Context, tx *sql.Tx, inst *model.ChallengeInstance) error {
	query := `INSERT INTO challenge_instances (id, challenge_id, available_instances) VALUES ($1, $2, $3)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, inst.ID, inst.ChallengeID, inst.AvailableInstances)
	} else {
		_, err = r.db.ExecContext(ctx, query, inst.ID, inst.ChallengeID, inst.AvailableInstances)
	}
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.CreateInstance: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) Update(ctx context.Context, ch *model.Challenge) error {
	query := `UPDATE challenges SET
                title = $1, slug = $2, description = $3, category = $4, difficulty = $5,
                price = $6, points = $7, image_url = $8, access_url = $9, is_active = $10,
                updated_at = CURRENT_TIMESTAMP
              WHERE id = $11`
	_, err := r.db.ExecContext(ctx, query, ch.Title, ch.Slug, ch.Description, ch.Category, ch.Difficulty,
		ch.Price, ch.Points, ch.ImageURL, ch.AccessURL, ch.IsActive, ch.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("challenge with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgChallengeRepository.Update: %w", err)
	}
	return nil
}

// Delete removes the challenge row; cart entries, purchases, invoice
// item references, submissions and instances cascade at the schema
// level.
func (r *pgChallengeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

const challengeSelect = `
        SELECT c.id, c.title, c.slug, c.description, c.category, c.difficulty,
               c.price, c.points, c.author_id, c.image_url, c.access_url, c.flag_hash,
               c.solved_count, c.is_active, c.created_at, c.updated_at,
               u.username AS author_name,
               COUNT(DISTINCT pc.id) AS purchase_count,
               COUNT(DISTINCT s.id) AS total_submissions,
               COUNT(DISTINCT CASE WHEN s.is_valid THEN s.id END) AS valid_submissions
        FROM challenges c
        JOIN users u ON c.author_id = u.id
        LEFT JOIN purchased_challenges pc ON c.id = pc.challenge_id
        LEFT JOIN submissions s ON c.id = s.challenge_id`

const challengeGroupBy = ` GROUP BY c.id, u.username`

func (r *pgChallengeRepository) findOne(ctx context.Context, where string, arg interface{}) (*model.Challenge, error) {
	query := challengeSelect + where + challengeGroupBy

	ch := &model.Challenge{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&ch.ID, &ch.Title, &ch.Slug, &ch.Description, &ch.Category, &ch.Difficulty,
		&ch.Price, &ch.Points, &ch.AuthorID, &ch.ImageURL, &ch.AccessURL, &ch.FlagHash,
		&ch.SolvedCount, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt,
		&ch.AuthorName, &ch.PurchaseCount, &ch.TotalSubmissions, &ch.ValidSubmissions,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return ch, nil
}

func (r *pgChallengeRepository) FindByID(ctx context.Context, id string) (*model.Challenge, error) {
	ch, err := r.findOne(ctx, ` WHERE c.id = $1`, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgChallengeRepository.FindByID: %w", err)
	}
	return ch, nil
}

func (r *pgChallengeRepository) FindBySlug(ctx context.Context, slug string) (*model.Challenge, error) {
	ch, err := r.findOne(ctx, ` WHERE c.slug = $1`, slug)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgChallengeRepository.FindBySlug: %w", err)
	}
	return ch, nil
}

func (r *pgChallengeRepository) List(ctx context.Context, filter model.ChallengeFilter, limit, offset int) ([]model.Challenge, int, error) {
	where := ` WHERE c.is_active = TRUE`
	countWhere := ` WHERE is_active = TRUE`
	args := []interface{}{}

	addCond := func(cond, countCond string, val interface{}) {
		args = append(args, val)
		ph := "$" + strconv.Itoa(len(args))
		where += " AND " + cond + ph
		countWhere += " AND " + countCond + ph
	}

	if filter.Category != "" {
		addCond("c.category = ", "category = ", filter.Category)
	}
	if filter.Difficulty != "" {
		addCond("c.difficulty = ", "difficulty = ", filter.Difficulty)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		ph := "$" + strconv.Itoa(len(args))
		where += " AND (c.title ILIKE " + ph + " OR c.description ILIKE " + ph + ")"
		countWhere += " AND (title ILIKE " + ph + " OR description ILIKE " + ph + ")"
	}
	if filter.MinPrice != nil {
		addCond("c.price >= ", "price >= ", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		addCond("c.price <= ", "price <= ", *filter.MaxPrice)
	}

	countQuery := `SELECT COUNT(*) FROM challenges` + countWhere
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgChallengeRepository.List count: %w", err)
	}

	args = append(args, limit)
	limitPh := "$" + strconv.Itoa(len(args))
	args = append(args, offset)
	offsetPh := "$" + strconv.Itoa(len(args))

	query := challengeSelect + where + challengeGroupBy +
		` ORDER BY c.created_at DESC LIMIT ` + limitPh + ` OFFSET ` + offsetPh

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgChallengeRepository.List: %w", err)
	}
	defer rows.Close()

	challenges, err := scanChallenges(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("pgChallengeRepository.List scan: %w", err)
	}
	return challenges, total, nil
}

func (r *pgChallengeRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Challenge, error) {
	query := challengeSelect + ` WHERE c.author_id = $1` + challengeGroupBy + ` ORDER BY c.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.ListByAuthor: %w", err)
	}
	defer rows.Close()

	challenges, err := scanChallenges(rows)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.ListByAuthor scan: %w", err)
	}
	return challenges, nil
}

func scanChallenges(rows *sql.Rows) ([]model.Challenge, error) {
	var challenges []model.Challenge
	for rows.Next() {
		var ch model.Challenge
		if err := rows.Scan(
			&ch.ID, &ch.Title, &ch.Slug, &ch.Description, &ch.Category, &ch.Difficulty,
			&ch.Price, &ch.Points, &ch.AuthorID, &ch.ImageURL, &ch.AccessURL, &ch.FlagHash,
			&ch.SolvedCount, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt,
			&ch.AuthorName, &ch.PurchaseCount, &ch.TotalSubmissions, &ch.ValidSubmissions,
		); err != nil {
			return nil, err
		}
		ch.FlagHash = "" // never leaves the repository layer in listings
		challenges = append(challenges, ch)
	}
	return challenges, rows.Err()
}

func (r *pgChallengeRepository) IncrementSolvedCount(ctx context.Context, tx *sql.Tx, id string) error {
	query := `UPDATE challenges SET solved_count = solved_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.IncrementSolvedCount: %w", err)
	}
	return nil
}
