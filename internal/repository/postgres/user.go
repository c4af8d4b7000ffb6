package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/repository"
)

const uniqueViolation = "23505"

const userColumns = `id, username, COALESCE(email, ''), password_hash, avatar, xp, level, badges, created_at`

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u      models.User
		badges []byte
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Avatar,
		&u.XP,
		&u.Level,
		&badges,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	u.Badges = []models.Badge{}
	if len(badges) > 0 {
		if err := json.Unmarshal(badges, &u.Badges); err != nil {
			return nil, fmt.Errorf("decode badges: %w", err)
		}
	}
	return &u, nil
}

func encodeBadges(badges []models.Badge) ([]byte, error) {
	if badges == nil {
		badges = []models.Badge{}
	}
	return json.Marshal(badges)
}

// nullableEmail stores "" as NULL so the unique index ignores it.
func nullableEmail(email string) *string {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	return &email
}

func (s *UserStore) Create(ctx context.Context, u models.User) (*models.User, error) {
	if strings.TrimSpace(u.Username) == "" {
		u.Username = "Anonyme"
	}
	if u.Level < 1 {
		u.Level = 1
	}
	if u.XP < 0 {
		u.XP = 0
	}
	badges, err := encodeBadges(u.Badges)
	if err != nil {
		return nil, fmt.Errorf("encode badges: %w", err)
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, avatar, xp, level, badges, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING ` + userColumns

	created, err := scanUser(s.pool.QueryRow(ctx, query,
		uuid.New(), u.Username, nullableEmail(u.Email), u.PasswordHash, u.Avatar, u.XP, u.Level, badges))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	u, err := scanUser(s.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// Update uses COALESCE so nil patch fields keep the stored value.
func (s *UserStore) Update(ctx context.Context, userID uuid.UUID, patch models.UserPatch) (*models.User, error) {
	var badges []byte
	if patch.Badges != nil {
		var err error
		if badges, err = encodeBadges(patch.Badges); err != nil {
			return nil, fmt.Errorf("encode badges: %w", err)
		}
	}

	query := `
		UPDATE users SET
			username = COALESCE($2, username),
			avatar   = COALESCE($3, avatar),
			xp       = COALESCE($4, xp),
			level    = COALESCE($5, level),
			badges   = COALESCE($6::jsonb, badges)
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, query, userID, patch.Username, patch.Avatar, patch.XP, patch.Level, badges))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}
