package shortener

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linkforge/linkforge/internal/errx"
)

func TestIsCodeUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "code unique violation",
			err: &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "short_links_code_active_unique",
			},
			want: true,
		},
		{
			name: "unique violation on another constraint",
			err: &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "users_email_active_unique",
			},
			want: false,
		},
		{
			name: "other pg error",
			err:  &pgconn.PgError{Code: "23503"},
			want: false,
		},
		{
			name: "wrapped unique violation",
			err: errors.Join(errors.New("insert failed"), &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "short_links_code_active_unique",
			}),
			want: true,
		},
		{
			name: "plain error",
			err:  errors.New("something broke"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCodeUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isCodeUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapRepoError(t *testing.T) {
	const op = "shortener.repo.test"

	tests := []struct {
		name string
		err  error
		want errx.Kind
	}{
		{
			name: "no rows maps to not found",
			err:  pgx.ErrNoRows,
			want: errx.NotFound,
		},
		{
			name: "code unique violation maps to conflict",
			err: &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "short_links_code_active_unique",
			},
			want: errx.Conflict,
		},
		{
			name: "anything else maps to unavailable",
			err:  errors.New("connection reset"),
			want: errx.Unavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapRepoError(op, tt.err)
			if errx.KindOf(got) != tt.want {
				t.Errorf("mapRepoError() kind = %v, want %v", errx.KindOf(got), tt.want)
			}
			if errx.OpOf(got) != op {
				t.Errorf("mapRepoError() op = %q, want %q", errx.OpOf(got), op)
			}
		})
	}
}
