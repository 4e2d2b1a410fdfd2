/*
Package store implements the durable persistence layer over PostgreSQL.

It exposes typed query methods for every entity the server reasons about
(users, private chats, group rooms, messages, meetings) on a single Store
struct backed by a pgx connection pool. The real-time hub consumes a narrow
slice of this surface through its own interfaces; REST handlers use it directly.
*/
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the pgx connection pool with typed query methods.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by the given connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
