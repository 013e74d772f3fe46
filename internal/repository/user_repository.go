package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blogkit/auth-gateway/internal/domain"
)

const userColumns = `id, username, email, password_hash, role, bio, avatar_url, banned, token_version, created_at, updated_at`

// UserStats summarizes accounts for the admin dashboard.
type UserStats struct {
	TotalUsers  int64
	BannedUsers int64
}

// UserRepository defines persistence access for credential records. The
// revocation operations (Ban, Unban, BumpVersion, SetRole, UpdatePassword)
// are each a single UPDATE statement so concurrent readers never observe a
// half-applied transition.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	UpdateProfile(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	Stats(ctx context.Context) (*UserStats, error)

	Ban(ctx context.Context, id string) error
	Unban(ctx context.Context, id string) error
	BumpVersion(ctx context.Context, id string) (int64, error)
	SetRole(ctx context.Context, id string, role domain.Role) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, password_hash, role, bio, avatar_url)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, banned, token_version, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Bio,
		user.AvatarURL,
	).Scan(&user.ID, &user.Banned, &user.TokenVersion, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET username=$1, bio=$2, avatar_url=$3, updated_at=NOW()
        WHERE id=$4`

	cmd, err := r.pool.Exec(ctx, query, user.Username, user.Bio, user.AvatarURL, user.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1)`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE LOWER(username)=LOWER($1)`
	return r.scanOne(r.pool.QueryRow(ctx, query, username))
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepository) Stats(ctx context.Context) (*UserStats, error) {
	const query = `SELECT COUNT(*), COUNT(*) FILTER (WHERE banned) FROM users`

	var stats UserStats
	if err := r.pool.QueryRow(ctx, query).Scan(&stats.TotalUsers, &stats.BannedUsers); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Ban sets the ban flag and bumps the token version in one statement. The
// bump guarantees pre-ban tokens stay dead even after a later unban.
func (r *userRepository) Ban(ctx context.Context, id string) error {
	const query = `
        UPDATE users SET banned=TRUE, token_version=token_version+1, updated_at=NOW()
        WHERE id=$1`
	return r.exec(ctx, query, id)
}

// Unban clears the ban flag only. The token version is untouched: unbanning
// never revives tokens issued before the ban.
func (r *userRepository) Unban(ctx context.Context, id string) error {
	const query = `
        UPDATE users SET banned=FALSE, updated_at=NOW()
        WHERE id=$1`
	return r.exec(ctx, query, id)
}

// BumpVersion invalidates every outstanding token without touching the ban
// flag, and reports the new version.
func (r *userRepository) BumpVersion(ctx context.Context, id string) (int64, error) {
	const query = `
        UPDATE users SET token_version=token_version+1, updated_at=NOW()
        WHERE id=$1
        RETURNING token_version`

	var version int64
	if err := r.pool.QueryRow(ctx, query, id).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// SetRole changes the role and bumps the version in the same statement, so
// tokens carrying the old role die with the change.
func (r *userRepository) SetRole(ctx context.Context, id string, role domain.Role) error {
	const query = `
        UPDATE users SET role=$1, token_version=token_version+1, updated_at=NOW()
        WHERE id=$2`
	return r.exec(ctx, query, role, id)
}

// UpdatePassword stores the new hash and bumps the version in the same
// statement: a password change invalidates every open session.
func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
        UPDATE users SET password_hash=$1, token_version=token_version+1, updated_at=NOW()
        WHERE id=$2`
	return r.exec(ctx, query, passwordHash, id)
}

func (r *userRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := scanUser(row, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Bio,
		&user.AvatarURL,
		&user.Banned,
		&user.TokenVersion,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
