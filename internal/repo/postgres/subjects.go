package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/chronolog/internal/db"
	"github.com/geocoder89/chronolog/internal/domain/subject"
	"github.com/geocoder89/chronolog/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubjectsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSubjectsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SubjectsRepo {
	return &SubjectsRepo{pool: pool, prom: prom}
}

func (r *SubjectsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func isSubjectNameConflict(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == db.SubjectsUserNameUniqueConstraint
}

func (r *SubjectsRepo) ListByUser(ctx context.Context, userID string) ([]subject.Subject, error) {
	var out []subject.Subject

	err := r.observe("subjects.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, name, color, created_at, updated_at
			 FROM subjects
			 WHERE user_id = $1
			 ORDER BY LOWER(name) ASC`,
			userID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]subject.Subject, 0)

		for rows.Next() {
			var s subject.Subject

			if err := rows.Scan(&s.ID, &s.Name, &s.Color, &s.CreatedAt, &s.UpdatedAt); err != nil {
				return err
			}

			out = append(out, s)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *SubjectsRepo) Create(ctx context.Context, userID, name string, color *string) (subject.Subject, error) {
	var s subject.Subject

	err := r.observe("subjects.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO subjects (user_id, name, color)
			 VALUES ($1, $2, $3)
			 RETURNING id, name, color, created_at, updated_at`,
			userID, name, color,
		).Scan(&s.ID, &s.Name, &s.Color, &s.CreatedAt, &s.UpdatedAt)
	})

	if err != nil {
		if isSubjectNameConflict(err) {
			return subject.Subject{}, subject.ErrNameTaken
		}

		return subject.Subject{}, err
	}

	return s, nil
}

func (r *SubjectsRepo) GetByID(ctx context.Context, userID, id string) (subject.Subject, error) {
	var s subject.Subject

	err := r.observe("subjects.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, color, created_at, updated_at
			 FROM subjects
			 WHERE id = $1 AND user_id = $2`,
			id, userID,
		).Scan(&s.ID, &s.Name, &s.Color, &s.CreatedAt, &s.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return subject.Subject{}, subject.ErrNotFound
		}

		return subject.Subject{}, err
	}

	return s, nil
}

func (r *SubjectsRepo) Rename(ctx context.Context, userID, id, newName string) (subject.Subject, error) {
	var s subject.Subject

	err := r.observe("subjects.rename", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE subjects
			 SET name = $3, updated_at = NOW()
			 WHERE id = $1 AND user_id = $2
			 RETURNING id, name, color, created_at, updated_at`,
			id, userID, newName,
		).Scan(&s.ID, &s.Name, &s.Color, &s.CreatedAt, &s.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return subject.Subject{}, subject.ErrNotFound
		}

		if isSubjectNameConflict(err) {
			return subject.Subject{}, subject.ErrNameTaken
		}

		return subject.Subject{}, err
	}

	return s, nil
}

// EnsureByName finds a subject case-insensitively or creates it. Used by
// time-entry creation with subject_name. A concurrent create of the same
// name lands on the unique index; recover by re-reading.
func (r *SubjectsRepo) EnsureByName(ctx context.Context, userID, name string) (string, error) {
	var id string

	find := func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id FROM subjects WHERE user_id = $1 AND LOWER(name) = LOWER($2)`,
			userID, name,
		).Scan(&id)
	}

	err := r.observe("subjects.ensure_by_name.find", find)

	if err == nil {
		return id, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	err = r.observe("subjects.ensure_by_name.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO subjects (user_id, name) VALUES ($1, $2) RETURNING id`,
			userID, name,
		).Scan(&id)
	})

	if err == nil {
		return id, nil
	}

	if isSubjectNameConflict(err) {
		// lost the race; the row exists now
		if err := r.observe("subjects.ensure_by_name.refind", find); err != nil {
			return "", err
		}

		return id, nil
	}

	return "", err
}

// Join reassigns every time entry of the user from source to target and
// optionally deletes the source subject, all inside one transaction.
func (r *SubjectsRepo) Join(ctx context.Context, userID, sourceID, targetID string, deleteSource bool) (subject.JoinResult, error) {
	var result subject.JoinResult

	err := r.observe("subjects.join", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		tag, err := tx.Exec(ctx,
			`UPDATE time_entries
			 SET subject_id = $1, updated_at = NOW()
			 WHERE subject_id = $2 AND user_id = $3`,
			targetID, sourceID, userID,
		)

		if err != nil {
			return err
		}

		result.MovedCount = int(tag.RowsAffected())
		result.TargetSubjectID = targetID

		if deleteSource {
			_, err = tx.Exec(ctx,
				`DELETE FROM subjects WHERE id = $1 AND user_id = $2`,
				sourceID, userID,
			)

			if err != nil {
				return err
			}
		}

		return tx.Commit(ctx)
	})

	if err != nil {
		return subject.JoinResult{}, err
	}

	return result, nil
}
