package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/reflections-ai/reflections/pkg/memory"
)

// SemanticIndexImpl is the semantic memory layer backed by the memory_items
// table with a pgvector HNSW index for fast approximate nearest-neighbour
// search.
//
// Obtain one via [Store.Index] rather than constructing directly.
// All methods are safe for concurrent use.
type SemanticIndexImpl struct {
	pool *pgxpool.Pool
}

// IndexItem implements [memory.SemanticIndex]. It upserts a pre-embedded
// [memory.Item]; an item with the same ID is completely replaced. An empty ID
// is assigned a fresh UUID.
func (s *SemanticIndexImpl) IndexItem(ctx context.Context, item memory.Item) error {
	const q = `
		INSERT INTO memory_items
		    (id, user_id, avatar_id, scope, kind, content, embedding, source_session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
		    user_id           = EXCLUDED.user_id,
		    avatar_id         = EXCLUDED.avatar_id,
		    scope             = EXCLUDED.scope,
		    kind              = EXCLUDED.kind,
		    content           = EXCLUDED.content,
		    embedding         = EXCLUDED.embedding,
		    source_session_id = EXCLUDED.source_session_id,
		    created_at        = EXCLUDED.created_at`

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	vec := pgvector.NewVector(item.Embedding)
	_, err := s.pool.Exec(ctx, q,
		item.ID,
		item.UserID,
		item.AvatarID,
		item.Scope,
		item.Kind,
		item.Content,
		vec,
		item.SourceSessionID,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("semantic index: index item: %w", err)
	}
	return nil
}

// Search implements [memory.SemanticIndex]. It finds the topK items whose
// embeddings are closest (cosine distance) to the supplied query embedding,
// restricted by filter. With a non-empty AvatarID the filter matches that
// avatar's items as well as the user's unscoped ones.
//
// Results are ordered by ascending cosine distance (most similar first).
func (s *SemanticIndexImpl) Search(ctx context.Context, embedding []float32, topK int, filter memory.ItemFilter) ([]memory.ItemResult, error) {
	queryVec := pgvector.NewVector(embedding)

	args := []any{queryVec} // $1 = query vector
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var conditions []string
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = "+next(filter.UserID))
	}
	if filter.AvatarID != "" {
		conditions = append(conditions, fmt.Sprintf("(avatar_id = %s OR avatar_id = '')", next(filter.AvatarID)))
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = "+next(filter.Kind))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, "\n  AND ")
	}

	args = append(args, topK)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT id, user_id, avatar_id, scope, kind, content, embedding, source_session_id, created_at,
		       embedding <=> $1 AS distance
		FROM   memory_items
		%s
		ORDER  BY distance
		LIMIT  %s`, whereClause, limitArg)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic index: search: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.ItemResult, error) {
		var (
			ir  memory.ItemResult
			vec pgvector.Vector
		)
		if err := row.Scan(
			&ir.Item.ID,
			&ir.Item.UserID,
			&ir.Item.AvatarID,
			&ir.Item.Scope,
			&ir.Item.Kind,
			&ir.Item.Content,
			&vec,
			&ir.Item.SourceSessionID,
			&ir.Item.CreatedAt,
			&ir.Distance,
		); err != nil {
			return memory.ItemResult{}, err
		}
		ir.Item.Embedding = vec.Slice()
		return ir, nil
	})
	if err != nil {
		return nil, fmt.Errorf("semantic index: scan rows: %w", err)
	}
	if results == nil {
		results = []memory.ItemResult{}
	}
	return results, nil
}
