package shortener

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

const linkColumns = "id, code, destination_url, owner_id, click_count, created_at, updated_at, deleted_at"

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

func isCodeUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" &&
		pgErr.ConstraintName == "short_links_code_active_unique"
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isCodeUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func scanLink(row pgx.Row) (ShortLink, error) {
	var l ShortLink
	err := row.Scan(
		&l.ID,
		&l.Code,
		&l.DestinationURL,
		&l.OwnerID,
		&l.ClickCount,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.DeletedAt,
	)
	return l, err
}

func (r *repo) Create(ctx context.Context, link ShortLink) (ShortLink, error) {
	const op = "shortener.repo.Create"

	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return ShortLink{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO short_links (id, code, destination_url, owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+linkColumns,
		link.ID, link.Code, link.DestinationURL, link.OwnerID,
	)

	created, err := scanLink(row)
	if err != nil {
		return ShortLink{}, mapRepoError(op, err)
	}
	return created, nil
}

func (r *repo) GetByCode(ctx context.Context, code string) (ShortLink, error) {
	const op = "shortener.repo.GetByCode"

	row := r.pool.QueryRow(ctx,
		`SELECT `+linkColumns+`
		 FROM short_links
		 WHERE code = $1 AND deleted_at IS NULL`,
		code,
	)

	link, err := scanLink(row)
	if err != nil {
		return ShortLink{}, mapRepoError(op, err)
	}
	return link, nil
}

func (r *repo) GetByID(ctx context.Context, id uuid.UUID) (ShortLink, error) {
	const op = "shortener.repo.GetByID"

	row := r.pool.QueryRow(ctx,
		`SELECT `+linkColumns+`
		 FROM short_links
		 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)

	link, err := scanLink(row)
	if err != nil {
		return ShortLink{}, mapRepoError(op, err)
	}
	return link, nil
}

func (r *repo) RecordClick(ctx context.Context, id uuid.UUID) error {
	const op = "shortener.repo.RecordClick"

	eventID, err := r.ids.Generate()
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE short_links
		 SET click_count = click_count + 1, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return mapRepoError(op, err)
	}
	if tag.RowsAffected() == 0 {
		// Link vanished between lookup and update.
		return errx.Errorf(op, errx.NotFound, "link %s no longer exists", id)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO click_events (id, short_link_id) VALUES ($1, $2)`,
		eventID, id,
	); err != nil {
		return mapRepoError(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (r *repo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]ShortLink, error) {
	const op = "shortener.repo.ListByOwner"

	rows, err := r.pool.Query(ctx,
		`SELECT `+linkColumns+`
		 FROM short_links
		 WHERE owner_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, mapRepoError(op, err)
	}
	defer rows.Close()

	links := []ShortLink{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, mapRepoError(op, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapRepoError(op, err)
	}
	return links, nil
}

func (r *repo) UpdateDestination(ctx context.Context, id uuid.UUID, destinationURL string) (ShortLink, error) {
	const op = "shortener.repo.UpdateDestination"

	row := r.pool.QueryRow(ctx,
		`UPDATE short_links
		 SET destination_url = $2, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+linkColumns,
		id, destinationURL,
	)

	link, err := scanLink(row)
	if err != nil {
		return ShortLink{}, mapRepoError(op, err)
	}
	return link, nil
}

func (r *repo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	const op = "shortener.repo.SoftDelete"

	tag, err := r.pool.Exec(ctx,
		`UPDATE short_links
		 SET deleted_at = now(), updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return mapRepoError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.Errorf(op, errx.NotFound, "link %s not found", id)
	}
	return nil
}
