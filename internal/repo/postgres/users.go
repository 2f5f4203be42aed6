package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/chronolog/internal/db"
	"github.com/geocoder89/chronolog/internal/domain/user"
	"github.com/geocoder89/chronolog/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, timezone string) (user.User, error) {
	var u user.User

	// emails are stored lower-cased; the unique index on LOWER(email)
	// backs this up against races
	email = strings.ToLower(email)

	err := r.observe("users.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, timezone)
			 VALUES ($1, $2, $3)
			 RETURNING id, email, password_hash, timezone, created_at, updated_at`,
			email, passwordHash, timezone,
		).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.Timezone,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == db.UsersEmailUniqueConstraint {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, email, password_hash, timezone, created_at, updated_at
			 FROM users
			 WHERE LOWER(email) = LOWER($1)`,
			email,
		).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.Timezone,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, email, password_hash, timezone, created_at, updated_at
			 FROM users
			 WHERE id = $1`,
			id,
		).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.Timezone,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}
