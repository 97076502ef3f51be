package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reflections-ai/reflections/pkg/memory"
)

// ConversationLogImpl persists conversation turns in the conversations and
// conversation_turns tables. Each (user, avatar) pairing has one active
// conversation: the most recently updated one.
//
// Obtain one via [Store.Conversations] rather than constructing directly.
// All methods are safe for concurrent use.
type ConversationLogImpl struct {
	pool *pgxpool.Pool
}

// AppendTurns implements [memory.ConversationLog]. The turns are written in a
// single transaction with ascending sequence numbers continuing from the
// conversation's current maximum.
func (c *ConversationLogImpl) AppendTurns(ctx context.Context, userID, avatarID string, turns []memory.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("conversation log: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	convID, err := activeConversation(ctx, tx, userID, avatarID)
	if err != nil {
		return err
	}

	var maxSeq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), -1) FROM conversation_turns WHERE conversation_id = $1`,
		convID,
	).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("conversation log: max seq: %w", err)
	}

	const insertTurn = `
		INSERT INTO conversation_turns (id, conversation_id, role, content, seq, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for i, turn := range turns {
		createdAt := turn.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err = tx.Exec(ctx, insertTurn,
			uuid.NewString(),
			convID,
			turn.Role,
			turn.Content,
			maxSeq+1+i,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("conversation log: insert turn: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, convID,
	); err != nil {
		return fmt.Errorf("conversation log: touch conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("conversation log: commit: %w", err)
	}
	return nil
}

// RecentTurns implements [memory.ConversationLog]. It reads the tail of the
// active conversation and returns it oldest first.
func (c *ConversationLogImpl) RecentTurns(ctx context.Context, userID, avatarID string, limit int) ([]memory.Turn, error) {
	if limit <= 0 {
		return []memory.Turn{}, nil
	}

	const q = `
		SELECT t.role, t.content, t.created_at
		FROM   conversation_turns t
		JOIN   conversations c ON c.id = t.conversation_id
		WHERE  c.user_id = $1 AND c.avatar_id = $2
		ORDER  BY t.seq DESC
		LIMIT  $3`

	rows, err := c.pool.Query(ctx, q, userID, avatarID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation log: recent turns: %w", err)
	}

	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Turn, error) {
		var t memory.Turn
		if err := row.Scan(&t.Role, &t.Content, &t.CreatedAt); err != nil {
			return memory.Turn{}, err
		}
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("conversation log: scan rows: %w", err)
	}

	// The query returns newest-first; flip to chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	if turns == nil {
		turns = []memory.Turn{}
	}
	return turns, nil
}

// activeConversation returns the most recently updated conversation for the
// pairing, creating one when none exists.
func activeConversation(ctx context.Context, tx pgx.Tx, userID, avatarID string) (string, error) {
	var convID string
	err := tx.QueryRow(ctx,
		`SELECT id FROM conversations
		 WHERE user_id = $1 AND avatar_id = $2
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		userID, avatarID,
	).Scan(&convID)
	if errors.Is(err, pgx.ErrNoRows) {
		convID = uuid.NewString()
		_, err = tx.Exec(ctx,
			`INSERT INTO conversations (id, user_id, avatar_id) VALUES ($1, $2, $3)`,
			convID, userID, avatarID,
		)
		if err != nil {
			return "", fmt.Errorf("conversation log: create conversation: %w", err)
		}
		return convID, nil
	}
	if err != nil {
		return "", fmt.Errorf("conversation log: find conversation: %w", err)
	}
	return convID, nil
}
