package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/storyverse/internal/catalog"
	"github.com/lalith-99/storyverse/internal/models"
)

const threadColumns = `id, title, description, genre_id, status, created_by, trending, created_at, updated_at`

type ThreadStore struct {
	pool *pgxpool.Pool
}

func NewThreadStore(pool *pgxpool.Pool) *ThreadStore {
	return &ThreadStore{pool: pool}
}

// genreFor resolves a stored genre id. Ids that left the catalog still
// come back with their id so filters keep working.
func genreFor(id string) models.Genre {
	if g, ok := catalog.GenreByID(id); ok {
		return g
	}
	return models.Genre{ID: id}
}

func scanThread(row pgx.Row) (*models.Thread, error) {
	var (
		t       models.Thread
		genreID string
		status  string
	)
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&genreID,
		&status,
		&t.CreatedBy,
		&t.Trending,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Genre = genreFor(genreID)
	t.Status = models.ThreadStatus(status)
	t.Participants = []uuid.UUID{}
	t.Segments = []models.Segment{}
	return &t, nil
}

func (s *ThreadStore) Create(ctx context.Context, t models.Thread) (*models.Thread, error) {
	if strings.TrimSpace(t.Title) == "" {
		t.Title = "Nouvelle Histoire"
	}
	if t.Genre.ID == "" {
		t.Genre = catalog.Default()
	}
	if t.Status == "" {
		t.Status = models.ThreadOngoing
	}

	var created *models.Thread
	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO threads (id, title, description, genre_id, status, created_by, trending, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			RETURNING ` + threadColumns

		var err error
		created, err = scanThread(tx.QueryRow(ctx, query,
			uuid.New(), t.Title, t.Description, t.Genre.ID, string(t.Status), t.CreatedBy, t.Trending))
		if err != nil {
			return fmt.Errorf("insert thread: %w", err)
		}

		for _, p := range t.Participants {
			if err := addParticipant(ctx, tx, created.ID, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, created.ID)
}

// addParticipant is a no-op when the user already participates.
func addParticipant(ctx context.Context, q querier, threadID, userID uuid.UUID) error {
	query := `
		INSERT INTO thread_participants (thread_id, user_id, joined_at)
		VALUES ($1, $2, clock_timestamp())
		ON CONFLICT (thread_id, user_id) DO NOTHING`

	if _, err := q.Exec(ctx, query, threadID, userID); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

func (s *ThreadStore) List(ctx context.Context, filter models.ThreadFilter) ([]models.Thread, error) {
	// Empty filter values match everything. created_at breaks ties so
	// equal updated_at values keep creation order.
	query := `
		SELECT ` + threadColumns + `
		FROM threads
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR genre_id = $2)
		ORDER BY updated_at DESC, created_at ASC`

	rows, err := s.pool.Query(ctx, query, string(filter.Status), filter.GenreID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	threads := make([]models.Thread, 0)
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}

	if err := hydrateThreads(ctx, s.pool, threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func (s *ThreadStore) GetByID(ctx context.Context, threadID uuid.UUID) (*models.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads WHERE id = $1`

	t, err := scanThread(s.pool.QueryRow(ctx, query, threadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}

	threads := []models.Thread{*t}
	if err := hydrateThreads(ctx, s.pool, threads); err != nil {
		return nil, err
	}
	return &threads[0], nil
}

func (s *ThreadStore) Update(ctx context.Context, threadID uuid.UUID, patch models.ThreadPatch) (*models.Thread, error) {
	var genreID, status *string
	if patch.Genre != nil {
		genreID = &patch.Genre.ID
	}
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}

	query := `
		UPDATE threads SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			genre_id    = COALESCE($4, genre_id),
			status      = COALESCE($5, status),
			trending    = COALESCE($6, trending),
			updated_at  = ` + bumpUpdatedAt + `
		WHERE id = $1
		RETURNING id`

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, query, threadID, patch.Title, patch.Description, genreID, status, patch.Trending).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update thread: %w", err)
	}
	return s.GetByID(ctx, id)
}

// SetStatus changes the status and hands back the old one.
//
// Why not a plain UPDATE ... RETURNING status?
//   - RETURNING only sees the new row, so the old status would need a
//     separate SELECT first.
//   - A SELECT without a lock lets two requests both read "ongoing" and
//     both think they completed the thread.
//
// So we lock the row with FOR UPDATE inside the transaction. A second
// caller blocks on the lock until the first commits, then reads the
// status the first one wrote.
func (s *ThreadStore) SetStatus(ctx context.Context, threadID uuid.UUID, status models.ThreadStatus) (*models.Thread, models.ThreadStatus, error) {
	var previous string
	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		// Step 1: lock the row and read the current status.
		err := tx.QueryRow(ctx, `SELECT status FROM threads WHERE id = $1 FOR UPDATE`, threadID).Scan(&previous)
		if err != nil {
			return err
		}

		// Step 2: write the new status while still holding the lock.
		query := `
			UPDATE threads SET
				status     = $2,
				updated_at = ` + bumpUpdatedAt + `
			WHERE id = $1`

		if _, err := tx.Exec(ctx, query, threadID, string(status)); err != nil {
			return fmt.Errorf("update thread status: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("set thread status: %w", err)
	}

	t, err := s.GetByID(ctx, threadID)
	if err != nil {
		return nil, "", err
	}
	return t, models.ThreadStatus(previous), nil
}

// hydrateThreads fills Participants and Segments for every thread with
// two batched queries instead of two per thread.
func hydrateThreads(ctx context.Context, q querier, threads []models.Thread) error {
	if len(threads) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(threads))
	for i, t := range threads {
		ids[i] = t.ID
	}

	participants, err := loadParticipants(ctx, q, ids)
	if err != nil {
		return err
	}
	segments, err := loadSegments(ctx, q, `WHERE thread_id = ANY($1) ORDER BY thread_id, position`, ids)
	if err != nil {
		return err
	}

	for i := range threads {
		if p, ok := participants[threads[i].ID]; ok {
			threads[i].Participants = p
		}
		for _, seg := range segments {
			if seg.ThreadID == threads[i].ID {
				threads[i].Segments = append(threads[i].Segments, seg)
			}
		}
	}
	return nil
}

func loadParticipants(ctx context.Context, q querier, threadIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	query := `
		SELECT thread_id, user_id
		FROM thread_participants
		WHERE thread_id = ANY($1)
		ORDER BY joined_at, user_id`

	rows, err := q.Query(ctx, query, threadIDs)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var threadID, userID uuid.UUID
		if err := rows.Scan(&threadID, &userID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out[threadID] = append(out[threadID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return out, nil
}
