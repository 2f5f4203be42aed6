package postgres

import (
	"context"

	"github.com/geocoder89/chronolog/internal/domain/report"
	"github.com/geocoder89/chronolog/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewReportsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ReportsRepo {
	return &ReportsRepo{pool: pool, prom: prom}
}

func (r *ReportsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ReportsRepo) Daily(ctx context.Context, userID string, rng report.Range) ([]report.DailyRow, error) {
	var out []report.DailyRow

	err := r.observe("reports.daily", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT te.date::text,
				s.id AS subject_id,
				s.name AS subject_name,
				SUM(te.duration_minutes)::int AS minutes
			 FROM time_entries te
			 JOIN subjects s ON s.id = te.subject_id
			 WHERE te.user_id = $1 AND te.date BETWEEN $2::date AND $3::date
			 GROUP BY te.date, s.id, s.name
			 ORDER BY te.date ASC, s.name ASC`,
			userID, rng.Start, rng.End,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = []report.DailyRow{}

		for rows.Next() {
			var row report.DailyRow

			if err = rows.Scan(&row.Date, &row.SubjectID, &row.SubjectName, &row.Minutes); err != nil {
				return err
			}

			out = append(out, row)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Weekly buckets entries by ISO week; date_trunc('week', ...) lands on
// the Monday of the entry's week.
func (r *ReportsRepo) Weekly(ctx context.Context, userID string, rng report.Range) ([]report.WeeklyRow, error) {
	var out []report.WeeklyRow

	err := r.observe("reports.weekly", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT to_char(date_trunc('week', te.date), 'YYYY-MM-DD') AS week_start,
				s.id AS subject_id,
				s.name AS subject_name,
				SUM(te.duration_minutes)::int AS minutes
			 FROM time_entries te
			 JOIN subjects s ON s.id = te.subject_id
			 WHERE te.user_id = $1 AND te.date BETWEEN $2::date AND $3::date
			 GROUP BY date_trunc('week', te.date), s.id, s.name
			 ORDER BY week_start ASC, s.name ASC`,
			userID, rng.Start, rng.End,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = []report.WeeklyRow{}

		for rows.Next() {
			var row report.WeeklyRow

			if err = rows.Scan(&row.WeekStart, &row.SubjectID, &row.SubjectName, &row.Minutes); err != nil {
				return err
			}

			out = append(out, row)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ReportsRepo) Monthly(ctx context.Context, userID string, rng report.Range) ([]report.MonthlyRow, error) {
	var out []report.MonthlyRow

	err := r.observe("reports.monthly", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT to_char(te.date, 'YYYY-MM') AS month,
				s.id AS subject_id,
				s.name AS subject_name,
				SUM(te.duration_minutes)::int AS minutes
			 FROM time_entries te
			 JOIN subjects s ON s.id = te.subject_id
			 WHERE te.user_id = $1 AND te.date BETWEEN $2::date AND $3::date
			 GROUP BY to_char(te.date, 'YYYY-MM'), s.id, s.name
			 ORDER BY month ASC, s.name ASC`,
			userID, rng.Start, rng.End,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = []report.MonthlyRow{}

		for rows.Next() {
			var row report.MonthlyRow

			if err = rows.Scan(&row.Month, &row.SubjectID, &row.SubjectName, &row.Minutes); err != nil {
				return err
			}

			out = append(out, row)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Leaderboard ranks the user's subjects by total minutes in the range.
// Subjects with no tracked time are left off the board entirely.
func (r *ReportsRepo) Leaderboard(ctx context.Context, userID string, rng report.Range, limit int) ([]report.LeaderboardRow, error) {
	var out []report.LeaderboardRow

	err := r.observe("reports.leaderboard", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT s.id AS subject_id,
				s.name AS subject_name,
				SUM(te.duration_minutes)::int AS minutes
			 FROM time_entries te
			 JOIN subjects s ON s.id = te.subject_id
			 WHERE te.user_id = $1 AND te.date BETWEEN $2::date AND $3::date
			 GROUP BY s.id, s.name
			 HAVING SUM(te.duration_minutes) > 0
			 ORDER BY minutes DESC, s.name ASC
			 LIMIT $4`,
			userID, rng.Start, rng.End, limit,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = []report.LeaderboardRow{}

		for rows.Next() {
			var row report.LeaderboardRow

			if err = rows.Scan(&row.SubjectID, &row.SubjectName, &row.Minutes); err != nil {
				return err
			}

			out = append(out, row)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}
