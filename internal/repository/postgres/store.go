package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/storyverse/internal/repository"
)

// querier is what both *pgxpool.Pool and pgx.Tx offer, so loaders can run
// inside or outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store bundles the per-entity stores over one pool.
type Store struct {
	users    *UserStore
	threads  *ThreadStore
	segments *SegmentStore
	stats    *StatsStore
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		users:    NewUserStore(pool),
		threads:  NewThreadStore(pool),
		segments: NewSegmentStore(pool),
		stats:    NewStatsStore(pool),
	}
}

var _ repository.ContentStore = (*Store)(nil)

func (s *Store) Users() repository.UserRepository       { return s.users }
func (s *Store) Threads() repository.ThreadRepository   { return s.threads }
func (s *Store) Segments() repository.SegmentRepository { return s.segments }
func (s *Store) Stats() repository.StatsRepository      { return s.stats }

// bumpUpdatedAt is the SQL expression every thread mutation uses, so that
// updated_at moves forward even when two writes land in the same clock tick.
//
// Why not just now()?
//   - now() is the transaction's start time. Two transactions that start in
//     the same microsecond write the same value, and a later write can
//     even carry an earlier timestamp than the row already has.
//   - Listing sorts by updated_at DESC, so a thread that was just touched
//     must sort ahead of where it was. GREATEST with the old value plus
//     one microsecond (timestamptz resolution) guarantees that.
const bumpUpdatedAt = `GREATEST(now(), updated_at + interval '1 microsecond')`

// inTx runs fn in a transaction, rolling back on error.
//
// Why a helper instead of Begin/Commit at each call site?
//   - Every early return inside fn must roll back. The deferred Rollback
//     covers all of them in one place.
//   - fn receives the pgx.Tx, so anything it calls (addParticipant,
//     loaders taking a querier) runs inside the same transaction and sees
//     its locks.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
