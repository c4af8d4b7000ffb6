package db

// schema is applied in order by Migrate.
//
// Segments carry (thread_id, position) as a unique key, which backs the
// gapless per-thread ordering at the database level too. Participants live
// in their own table so that "add if absent" is a plain ON CONFLICT insert.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            uuid PRIMARY KEY,
		username      text NOT NULL,
		email         text,
		password_hash text NOT NULL DEFAULT '',
		avatar        text NOT NULL DEFAULT '',
		xp            integer NOT NULL DEFAULT 0 CHECK (xp >= 0),
		level         integer NOT NULL DEFAULT 1 CHECK (level >= 1),
		badges        jsonb NOT NULL DEFAULT '[]'::jsonb,
		created_at    timestamptz NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (lower(email)) WHERE email IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS threads (
		id          uuid PRIMARY KEY,
		title       text NOT NULL,
		description text NOT NULL DEFAULT '',
		genre_id    text NOT NULL,
		status      text NOT NULL CHECK (status IN ('ongoing', 'completed', 'paused')),
		created_by  uuid NOT NULL,
		trending    boolean NOT NULL DEFAULT false,
		created_at  timestamptz NOT NULL,
		updated_at  timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_threads_updated ON threads (updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS thread_participants (
		thread_id uuid NOT NULL REFERENCES threads (id),
		user_id   uuid NOT NULL,
		joined_at timestamptz NOT NULL,
		PRIMARY KEY (thread_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS segments (
		id         uuid PRIMARY KEY,
		thread_id  uuid NOT NULL REFERENCES threads (id),
		author_id  uuid NOT NULL,
		content    text NOT NULL,
		media_url  text NOT NULL DEFAULT '',
		media_type text NOT NULL DEFAULT '',
		likes      integer NOT NULL DEFAULT 0 CHECK (likes >= 0),
		position   integer NOT NULL CHECK (position >= 1),
		created_at timestamptz NOT NULL,
		UNIQUE (thread_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_segments_author ON segments (author_id)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         uuid PRIMARY KEY,
		segment_id uuid NOT NULL REFERENCES segments (id),
		author_id  uuid NOT NULL,
		content    text NOT NULL,
		likes      integer NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_segment ON comments (segment_id, created_at)`,
}
