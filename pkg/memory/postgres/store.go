package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/reflections-ai/reflections/pkg/memory"
)

// Compile-time interface checks.
var (
	_ memory.ConversationLog = (*ConversationLogImpl)(nil)
	_ memory.SemanticIndex   = (*SemanticIndexImpl)(nil)
)

// Store is the PostgreSQL-backed memory store. It holds a single
// [pgxpool.Pool] and exposes the two memory layers:
//
//   - [Store.Conversations] returns a [ConversationLogImpl] implementing
//     [memory.ConversationLog]
//   - [Store.Index] returns a [SemanticIndexImpl] implementing
//     [memory.SemanticIndex]
//
// All operations are safe for concurrent use.
type Store struct {
	pool          *pgxpool.Pool
	conversations *ConversationLogImpl
	index         *SemanticIndexImpl
}

// NewStore creates a new Store, establishes a connection pool to the
// PostgreSQL database at dsn, registers pgvector types on every connection,
// and runs [Migrate] to ensure all required tables and extensions exist.
//
// embeddingDimensions must match the output dimension of the embedding model
// used to produce [memory.Item.Embedding] values.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that vector columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{
		pool:          pool,
		conversations: &ConversationLogImpl{pool: pool},
		index:         &SemanticIndexImpl{pool: pool},
	}, nil
}

// Conversations returns the conversation log implementation.
func (s *Store) Conversations() *ConversationLogImpl { return s.conversations }

// Index returns the semantic index implementation.
func (s *Store) Index() *SemanticIndexImpl { return s.index }

// Ping checks database connectivity. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
