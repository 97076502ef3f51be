// Package postgres provides the PostgreSQL-backed implementation of the
// voice memory layer: a conversation log (conversations + conversation_turns)
// and a pgvector semantic index (memory_items).
//
// Both layers share a single [pgxpool.Pool]. The pgvector extension must be
// available in the target database; [Migrate] installs it automatically via
// CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 768)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Conversations().AppendTurns(ctx, userID, avatarID, turns)
//	_ = store.Index().IndexItem(ctx, item)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT         PRIMARY KEY,
    user_id     TEXT         NOT NULL,
    avatar_id   TEXT         NOT NULL DEFAULT '',
    title       TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_avatar
    ON conversations (user_id, avatar_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS conversation_turns (
    id               TEXT         PRIMARY KEY,
    conversation_id  TEXT         NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
    role             TEXT         NOT NULL,
    content          TEXT         NOT NULL,
    seq              INTEGER      NOT NULL,
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_conversation_turns_seq
    ON conversation_turns (conversation_id, seq);
`

// ddlMemoryItems returns the semantic index DDL with the embedding dimension
// substituted. The vector dimension is baked into the column type at schema
// creation time.
func ddlMemoryItems(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS memory_items (
    id                 TEXT         PRIMARY KEY,
    user_id            TEXT         NOT NULL,
    avatar_id          TEXT         NOT NULL DEFAULT '',
    scope              TEXT         NOT NULL DEFAULT 'user',
    kind               TEXT         NOT NULL DEFAULT 'turn',
    content            TEXT         NOT NULL,
    embedding          vector(%d),
    source_session_id  TEXT         NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_memory_items_user
    ON memory_items (user_id, avatar_id);

CREATE INDEX IF NOT EXISTS idx_memory_items_embedding
    ON memory_items USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required database tables and extensions
// exist. It is idempotent and safe to call on every application start.
//
// embeddingDimensions must match the vector model configured for your
// deployment (e.g., 768 for nomic-embed-text, 1536 for OpenAI
// text-embedding-3-small). Changing this value after the first migration
// requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlConversations,
		ddlMemoryItems(embeddingDimensions),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
