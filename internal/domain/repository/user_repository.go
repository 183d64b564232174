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

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id, hashedPassword string) error

	// Balance and score mutations are atomic at the store level so
	// concurrent requests cannot lose updates.
	CreditBalance(ctx context.Context, id string, amount float64) error
	DeductBalance(ctx context.Context, tx *sql.Tx, id string, amount float64) (bool, error)
	IncrementScore(ctx context.Context, tx *sql.Tx, id string, points int) error

	List(ctx context.Context, limit, offset int) ([]model.User, int, error)
	SetRole(ctx context.Context, id, role string) error
	SetActive(ctx context.Context, id string, active bool) error

	GetStats(ctx context.Context, id string) (*model.UserStats, error)
	TopByScore(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, hashed_password, role, balance, score, bio, skill_level, profile_picture, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role,
		&user.Balance, &user.Score, &user.Bio, &user.SkillLevel, &user.ProfilePicture,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role, balance, score, bio, skill_level, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.HashedPassword, user.Role,
		user.Balance, user.Score, user.Bio, user.SkillLevel, user.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgUserRepository.FindByUsername: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET email = $1, bio = $2, skill_level = $3, profile_picture = $4, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, user.Email, user.Bio, user.SkillLevel, user.ProfilePicture, user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("email already in use: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.UpdateProfile: %w", err)
	}
	return nil
}

func (r *pgUserRepository) UpdatePassword(ctx context.Context, id, hashedPassword string) error {
	query := `UPDATE users SET hashed_password = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, hashedPassword, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdatePassword: %w", err)
	}
	return nil
}

func (r *pgUserRepository) CreditBalance(ctx context.Context, id string, amount float64) error {
	query := `UPDATE users SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.CreditBalance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeductBalance atomically decrements the balance only when sufficient
// funds remain. Returns false when the conditional update touched no
// row, which means a concurrent operation drained the balance first.
func (r *pgUserRepository) DeductBalance(ctx context.Context, tx *sql.Tx, id string, amount float64) (bool, error) {
	query := `UPDATE users SET balance = balance - $1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2 AND balance >= $1`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, amount, id)
	} else {
		res, err = r.db.ExecContext(ctx, query, amount, id)
	}
	if err != nil {
		return false, fmt.Errorf("pgUserRepository.DeductBalance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgUserRepository.DeductBalance: %w", err)
	}
	return n == 1, nil
}

func (r *pgUserRepository) IncrementScore(ctx context.Context, tx *sql.Tx, id string, points int) error {
	query := `UPDATE users SET score = score + $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, points, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, points, id)
	}
	if err != nil {
		return fmt.Errorf("pgUserRepository.IncrementScore: %w", err)
	}
	return nil
}

func (r *pgUserRepository) List(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.Role,
			&u.Balance, &u.Score, &u.Bio, &u.SkillLevel, &u.ProfilePicture,
			&u.IsActive, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("pgUserRepository.List scan: %w", err)
		}
		u.HashedPassword = ""
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List rows: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List count: %w", err)
	}
	return users, total, nil
}

func (r *pgUserRepository) SetRole(ctx context.Context, id, role string) error {
	query := `UPDATE users SET role = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.SetRole: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.SetActive: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) GetStats(ctx context.Context, id string) (*model.UserStats, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM challenges WHERE author_id = $1),
            (SELECT COUNT(*) FROM purchased_challenges WHERE user_id = $1),
            (SELECT COUNT(*) FROM purchased_challenges WHERE user_id = $1 AND is_solved = TRUE),
            (SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE user_id = $1),
            (SELECT COUNT(*) FROM submissions WHERE user_id = $1)`

	stats := &model.UserStats{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&stats.ChallengesCreated, &stats.ChallengesPurchased, &stats.ChallengesSolved,
		&stats.TotalSpent, &stats.TotalSubmissions,
	)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.GetStats: %w", err)
	}
	return stats, nil
}

func (r *pgUserRepository) TopByScore(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	query := `SELECT id, username, score FROM users
	          WHERE is_active = TRUE
	          ORDER BY score DESC, username ASC
	          LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.TopByScore: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	rank := 0
	for rows.Next() {
		rank++
		e := model.LeaderboardEntry{Rank: rank}
		if err := rows.Scan(&e.UserID, &e.Username, &e.Score); err != nil {
			return nil, fmt.Errorf("pgUserRepository.TopByScore scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.TopByScore rows: %w", err)
	}
	return entries, nil
}
