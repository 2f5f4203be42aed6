package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Constraint names the repos translate into CONFLICT responses.
const (
	UsersEmailUniqueConstraint       = "idx_users_email_unique"
	SubjectsUserNameUniqueConstraint = "idx_subjects_user_name_unique"
	TimeEntriesUserDateConstraint    = "idx_time_entries_user_date_unique"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	timezone VARCHAR(50) NOT NULL DEFAULT 'Europe/London',
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_unique ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS subjects (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name VARCHAR(60) NOT NULL,
	color VARCHAR(7),
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_subjects_user_name_unique ON subjects (user_id, LOWER(name));
CREATE INDEX IF NOT EXISTS idx_subjects_user_id ON subjects (user_id);

CREATE TABLE IF NOT EXISTS time_entries (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	subject_id UUID NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
	date DATE NOT NULL,
	duration_minutes INTEGER NOT NULL CHECK (duration_minutes >= 1 AND duration_minutes <= 1440),
	notes TEXT,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_time_entries_user_date_unique ON time_entries (user_id, date);
CREATE INDEX IF NOT EXISTS idx_time_entries_user_date ON time_entries (user_id, date);
CREATE INDEX IF NOT EXISTS idx_time_entries_user_subject_date ON time_entries (user_id, subject_id, date);
CREATE INDEX IF NOT EXISTS idx_time_entries_subject_id ON time_entries (subject_id);
`

// Setup applies the schema inside a single transaction so a failed
// startup never leaves a partially-created schema behind. The DDL is
// idempotent, so running it on every boot is safe.
func Setup(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
