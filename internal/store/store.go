// Package store holds the team writes that span more than one statement or
// carry an invariant the database has to enforce: the one-way verified flag,
// a registration with its members, the team size cap, and the email log.
//
// Plain reads (ListTeams, GetTeamStats, ListRecipients) stay on db.Querier and
// are called by the handlers directly.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nyashahama/event-admin-backend/internal/db"
)

// Store runs team writes against Postgres.
type Store struct {
	pool *sql.DB
	q    *db.Queries
}

// New returns a Store. pool must be the connection q was built on, so
// transactional work sees the same database.
func New(pool *sql.DB, q *db.Queries) *Store {
	return &Store{pool: pool, q: q}
}

// withTx runs fn in a READ COMMITTED transaction and commits when it returns
// nil. Any error or panic rolls back.
//
// Nothing here needs SERIALIZABLE. CreateTeamWithMembers only inserts, and
// AddMember takes the team row with SELECT ... FOR UPDATE before counting, so
// concurrent adds to one team queue on that lock instead of failing with a
// serialization error the handler would have to retry.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, q db.Querier) error) error {
	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, s.q.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
