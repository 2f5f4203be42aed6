package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/chronolog/internal/db"
	"github.com/geocoder89/chronolog/internal/domain/timeentry"
	"github.com/geocoder89/chronolog/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `te.id, te.subject_id, s.name AS subject_name, te.date::text,
	te.duration_minutes, te.notes, te.created_at, te.updated_at`

type TimeEntriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTimeEntriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *TimeEntriesRepo {
	return &TimeEntriesRepo{pool: pool, prom: prom}
}

func (r *TimeEntriesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanEntry(row pgx.Row, e *timeentry.TimeEntry) error {
	return row.Scan(
		&e.ID,
		&e.SubjectID,
		&e.SubjectName,
		&e.Date,
		&e.DurationMinutes,
		&e.Notes,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
}

func (r *TimeEntriesRepo) GetByID(ctx context.Context, userID, id string) (timeentry.TimeEntry, error) {
	var e timeentry.TimeEntry

	err := r.observe("time_entries.get_by_id", func() error {
		return scanEntry(r.pool.QueryRow(ctx,
			`SELECT `+entryColumns+`
			 FROM time_entries te
			 JOIN subjects s ON s.id = te.subject_id
			 WHERE te.id = $1 AND te.user_id = $2`,
			id, userID,
		), &e)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeentry.TimeEntry{}, timeentry.ErrNotFound
		}

		return timeentry.TimeEntry{}, err
	}

	return e, nil
}

// LatestOnDate returns the entry for (user, date), or ErrNotFound. The
// unique index keeps it to at most one row.
func (r *TimeEntriesRepo) LatestOnDate(ctx context.Context, userID, date string) (timeentry.TimeEntry, error) {
	var e timeentry.TimeEntry

	err := r.observe("time_entries.latest_on_date", func() error {
		return scanEntry(r.pool.QueryRow(ctx,
			`SELECT `+entryColumns+`
			 FROM time_entries te
			 JOIN subjects s ON s.id = te.subject_id
			 WHERE te.user_id = $1 AND te.date = $2::date
			 ORDER BY te.created_at DESC
			 LIMIT 1`,
			userID, date,
		), &e)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeentry.TimeEntry{}, timeentry.ErrNotFound
		}

		return timeentry.TimeEntry{}, err
	}

	return e, nil
}

// Insert attempts to create the day's entry. When the (user, date) unique
// index rejects it, the existing entry is fetched and returned inside a
// *timeentry.ConflictError so the caller can offer the overwrite path.
func (r *TimeEntriesRepo) Insert(ctx context.Context, userID, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error) {
	var id string

	err := r.observe("time_entries.insert", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO time_entries (user_id, subject_id, date, duration_minutes, notes)
			 VALUES ($1, $2, $3::date, $4, $5)
			 RETURNING id`,
			userID, subjectID, date, durationMinutes, notes,
		).Scan(&id)
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == db.TimeEntriesUserDateConstraint {
			latest, lookupErr := r.LatestOnDate(ctx, userID, date)

			if lookupErr != nil {
				return timeentry.TimeEntry{}, lookupErr
			}

			return timeentry.TimeEntry{}, &timeentry.ConflictError{Latest: latest}
		}

		return timeentry.TimeEntry{}, err
	}

	return r.GetByID(ctx, userID, id)
}

// OverwriteOnDate replaces the existing entry for the date in place,
// keeping its id and created_at. ErrNotFound when the date is free.
func (r *TimeEntriesRepo) OverwriteOnDate(ctx context.Context, userID, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error) {
	var id string

	err := r.observe("time_entries.overwrite_on_date", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE time_entries
			 SET subject_id = $3, duration_minutes = $4, notes = $5, updated_at = NOW()
			 WHERE user_id = $1 AND date = $2::date
			 RETURNING id`,
			userID, date, subjectID, durationMinutes, notes,
		).Scan(&id)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeentry.TimeEntry{}, timeentry.ErrNotFound
		}

		return timeentry.TimeEntry{}, err
	}

	return r.GetByID(ctx, userID, id)
}

func (r *TimeEntriesRepo) List(ctx context.Context, userID string, filter timeentry.ListFilter) ([]timeentry.TimeEntry, int, error) {
	conds := []string{"te.user_id = $1"}
	args := []interface{}{userID}

	argsPosition := 2

	if filter.Start != nil {
		conds = append(conds, fmt.Sprintf("te.date >= $%d::date", argsPosition))
		args = append(args, *filter.Start)
		argsPosition++
	}

	if filter.End != nil {
		conds = append(conds, fmt.Sprintf("te.date <= $%d::date", argsPosition))
		args = append(args, *filter.End)
		argsPosition++
	}

	if filter.SubjectID != nil {
		conds = append(conds, fmt.Sprintf("te.subject_id = $%d", argsPosition))
		args = append(args, *filter.SubjectID)
		argsPosition++
	}

	// stable ordering for pagination
	query := `SELECT ` + entryColumns + `,
		COUNT(*) OVER() AS total
	 FROM time_entries te
	 JOIN subjects s ON s.id = te.subject_id
	 WHERE ` + strings.Join(conds, " AND ") +
		fmt.Sprintf(" ORDER BY te.date ASC, te.created_at ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	var (
		out   []timeentry.TimeEntry
		total int
	)

	err := r.observe("time_entries.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]timeentry.TimeEntry, 0, filter.Limit)

		for rows.Next() {
			var e timeentry.TimeEntry
			var t int

			err = rows.Scan(
				&e.ID,
				&e.SubjectID,
				&e.SubjectName,
				&e.Date,
				&e.DurationMinutes,
				&e.Notes,
				&e.CreatedAt,
				&e.UpdatedAt,
				&t,
			)

			if err != nil {
				return err
			}

			total = t
			out = append(out, e)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	// A page past the end returns zero rows and loses the window total;
	// count separately so pagination metadata stays correct.
	if len(out) == 0 {
		countQuery := `SELECT COUNT(*) FROM time_entries te WHERE ` + strings.Join(conds, " AND ")

		err = r.observe("time_entries.count", func() error {
			return r.pool.QueryRow(ctx, countQuery, args[:len(args)-2]...).Scan(&total)
		})

		if err != nil {
			return nil, 0, err
		}
	}

	return out, total, nil
}

func (r *TimeEntriesRepo) Update(ctx context.Context, userID, id string, req timeentry.UpdateTimeEntryRequest) (timeentry.TimeEntry, error) {
	sets := []string{}
	args := []interface{}{id, userID}

	argsPosition := 3

	if req.SubjectID != nil {
		sets = append(sets, fmt.Sprintf("subject_id = $%d", argsPosition))
		args = append(args, *req.SubjectID)
		argsPosition++
	}

	if req.Date != nil {
		sets = append(sets, fmt.Sprintf("date = $%d::date", argsPosition))
		args = append(args, *req.Date)
		argsPosition++
	}

	if req.DurationMinutes != nil {
		sets = append(sets, fmt.Sprintf("duration_minutes = $%d", argsPosition))
		args = append(args, *req.DurationMinutes)
		argsPosition++
	}

	if req.Notes != nil {
		sets = append(sets, fmt.Sprintf("notes = $%d", argsPosition))
		args = append(args, *req.Notes)
		argsPosition++
	}

	if len(sets) == 0 {
		// nothing to change; report current state
		return r.GetByID(ctx, userID, id)
	}

	sets = append(sets, "updated_at = NOW()")

	var updatedID string

	err := r.observe("time_entries.update", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE time_entries SET `+strings.Join(sets, ", ")+`
			 WHERE id = $1 AND user_id = $2
			 RETURNING id`,
			args...,
		).Scan(&updatedID)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeentry.TimeEntry{}, timeentry.ErrNotFound
		}

		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == db.TimeEntriesUserDateConstraint {
			newDate := ""

			if req.Date != nil {
				newDate = *req.Date
			}

			latest, lookupErr := r.LatestOnDate(ctx, userID, newDate)

			if lookupErr != nil {
				return timeentry.TimeEntry{}, err
			}

			return timeentry.TimeEntry{}, &timeentry.ConflictError{Latest: latest}
		}

		return timeentry.TimeEntry{}, err
	}

	return r.GetByID(ctx, userID, updatedID)
}

func (r *TimeEntriesRepo) Delete(ctx context.Context, userID, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("time_entries.delete", func() error {
		var err error

		tag, err = r.pool.Exec(ctx,
			`DELETE FROM time_entries WHERE id = $1 AND user_id = $2`,
			id, userID,
		)

		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return timeentry.ErrNotFound
	}

	return nil
}
