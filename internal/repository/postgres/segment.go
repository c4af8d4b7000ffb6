package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/repository"
)

const segmentColumns = `id, thread_id, author_id, content, media_url, media_type, likes, position, created_at`

type SegmentStore struct {
	pool *pgxpool.Pool
}

func NewSegmentStore(pool *pgxpool.Pool) *SegmentStore {
	return &SegmentStore{pool: pool}
}

func scanSegment(row pgx.Row) (*models.Segment, error) {
	var (
		seg       models.Segment
		mediaType string
	)
	if err := row.Scan(
		&seg.ID,
		&seg.ThreadID,
		&seg.AuthorID,
		&seg.Content,
		&seg.MediaURL,
		&mediaType,
		&seg.Likes,
		&seg.Order,
		&seg.CreatedAt,
	); err != nil {
		return nil, err
	}
	seg.MediaType = models.MediaType(mediaType)
	seg.Comments = []models.Comment{}
	return &seg, nil
}

// Create locks the thread row for the whole transaction. Concurrent
// contributions to the same thread queue up behind the lock, so each one
// sees the previous position and the participant list stays complete.
func (s *SegmentStore) Create(ctx context.Context, seg models.Segment) (*models.Segment, error) {
	var created *models.Segment
	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		// Step 1: lock the thread row.
		//
		// Why FOR UPDATE and not just the UNIQUE (thread_id, position)?
		//   - Without the lock, two writers both read MAX(position) = 3 and
		//     both try 4. The unique index stops the second, but only with
		//     an error the caller would have to retry.
		//   - With the lock, the second writer waits here until the first
		//     commits, then reads 4 and writes 5.
		//   - A missing thread shows up as no row, so nothing below runs
		//     and nothing is written.
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM threads WHERE id = $1 FOR UPDATE`, seg.ThreadID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrThreadNotFound
			}
			return fmt.Errorf("lock thread: %w", err)
		}

		// Step 2: next position. Safe under the lock above.
		var position int
		err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM segments WHERE thread_id = $1`, seg.ThreadID).Scan(&position)
		if err != nil {
			return fmt.Errorf("next position: %w", err)
		}

		query := `
			INSERT INTO segments (id, thread_id, author_id, content, media_url, media_type, likes, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, 0, $7, now())
			RETURNING ` + segmentColumns

		created, err = scanSegment(tx.QueryRow(ctx, query,
			uuid.New(), seg.ThreadID, seg.AuthorID, seg.Content, seg.MediaURL, string(seg.MediaType), position))
		if err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}

		// Step 3: join the author and move the thread's updated_at, in the
		// same transaction so a reader never sees the segment without them.
		if err := addParticipant(ctx, tx, seg.ThreadID, seg.AuthorID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE threads SET updated_at = `+bumpUpdatedAt+` WHERE id = $1`, seg.ThreadID)
		if err != nil {
			return fmt.Errorf("touch thread: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *SegmentStore) GetByID(ctx context.Context, segmentID uuid.UUID) (*models.Segment, error) {
	segments, err := loadSegments(ctx, s.pool, `WHERE id = $1`, segmentID)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, nil
	}
	return &segments[0], nil
}

func (s *SegmentStore) ListByThread(ctx context.Context, threadID uuid.UUID) ([]models.Segment, error) {
	return loadSegments(ctx, s.pool, `WHERE thread_id = $1 ORDER BY position`, threadID)
}

func (s *SegmentStore) Update(ctx context.Context, segmentID uuid.UUID, patch models.SegmentPatch) (*models.Segment, error) {
	var mediaType *string
	if patch.MediaType != nil {
		v := string(*patch.MediaType)
		mediaType = &v
	}
	likes := patch.Likes
	if likes != nil && *likes < 0 {
		likes = nil
	}

	query := `
		UPDATE segments SET
			content    = COALESCE($2, content),
			media_url  = COALESCE($3, media_url),
			media_type = COALESCE($4, media_type),
			likes      = COALESCE($5, likes)
		WHERE id = $1
		RETURNING id`

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, query, segmentID, patch.Content, patch.MediaURL, mediaType, likes).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update segment: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *SegmentStore) IncrementLikes(ctx context.Context, segmentID uuid.UUID) (*models.Segment, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `UPDATE segments SET likes = likes + 1 WHERE id = $1 RETURNING id`, segmentID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("like segment: %w", err)
	}
	return s.GetByID(ctx, id)
}

// AddComment inserts only when the segment exists; otherwise no row comes
// back and the caller gets nil, nil.
func (s *SegmentStore) AddComment(ctx context.Context, segmentID uuid.UUID, c models.Comment) (*models.Comment, error) {
	query := `
		INSERT INTO comments (id, segment_id, author_id, content, likes, created_at)
		SELECT $1, $2, $3, $4, 0, now()
		WHERE EXISTS (SELECT 1 FROM segments WHERE id = $2)
		RETURNING id, segment_id, author_id, content, likes, created_at`

	var out models.Comment
	err := s.pool.QueryRow(ctx, query, uuid.New(), segmentID, c.AuthorID, c.Content).Scan(
		&out.ID,
		&out.SegmentID,
		&out.AuthorID,
		&out.Content,
		&out.Likes,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &out, nil
}

// loadSegments selects segments with the given WHERE/ORDER tail and
// attaches their comments.
func loadSegments(ctx context.Context, q querier, tail string, args ...any) ([]models.Segment, error) {
	rows, err := q.Query(ctx, `SELECT `+segmentColumns+` FROM segments `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	segments := make([]models.Segment, 0)
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, *seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}
	if len(segments) == 0 {
		return segments, nil
	}

	ids := make([]uuid.UUID, len(segments))
	for i, seg := range segments {
		ids[i] = seg.ID
	}
	comments, err := loadComments(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range segments {
		if c, ok := comments[segments[i].ID]; ok {
			segments[i].Comments = c
		}
	}
	return segments, nil
}

func loadComments(ctx context.Context, q querier, segmentIDs []uuid.UUID) (map[uuid.UUID][]models.Comment, error) {
	query := `
		SELECT id, segment_id, author_id, content, likes, created_at
		FROM comments
		WHERE segment_id = ANY($1)
		ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, segmentIDs)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]models.Comment)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.SegmentID, &c.AuthorID, &c.Content, &c.Likes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out[c.SegmentID] = append(out[c.SegmentID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}
