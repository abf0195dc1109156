package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkforge/linkforge/internal/errx"
	"github.com/linkforge/linkforge/internal/idgen"
)

const userColumns = "id, email, password_hash, is_active, created_at, updated_at, deleted_at"

type repo struct {
	pool *pgxpool.Pool
	ids  idgen.Generator
}

// RepositoryConfig holds configuration for the repository.
type RepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewRepository creates a pgx-backed Repository implementation.
func NewRepository(pool *pgxpool.Pool, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	// Default: UUID v7 (good for DB locality).
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &repo{
		pool: pool,
		ids:  config.IDGenerator,
	}
}

func isEmailUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" &&
		pgErr.ConstraintName == "users_email_active_unique"
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isEmailUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
	return u, err
}

func (r *repo) Create(ctx context.Context, user User) (User, error) {
	const op = "identity.repo.Create"

	if user.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return User{}, errx.E(op, errx.Unavailable, err)
		}
		user.ID = id
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		user.ID, user.Email, user.PasswordHash,
	)

	created, err := scanUser(row)
	if err != nil {
		return User{}, mapRepoError(op, err)
	}
	return created, nil
}

func (r *repo) GetActiveByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.repo.GetActiveByEmail"

	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE email = $1 AND is_active AND deleted_at IS NULL`,
		email,
	)

	user, err := scanUser(row)
	if err != nil {
		return User{}, mapRepoError(op, err)
	}
	return user, nil
}

func (r *repo) GetActiveByID(ctx context.Context, id uuid.UUID) (User, error) {
	const op = "identity.repo.GetActiveByID"

	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE id = $1 AND is_active AND deleted_at IS NULL`,
		id,
	)

	user, err := scanUser(row)
	if err != nil {
		return User{}, mapRepoError(op, err)
	}
	return user, nil
}

func (r *repo) EmailTaken(ctx context.Context, email string) (bool, error) {
	const op = "identity.repo.EmailTaken"

	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL
		 )`,
		email,
	).Scan(&taken)
	if err != nil {
		return false, mapRepoError(op, err)
	}
	return taken, nil
}
