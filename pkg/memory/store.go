// Package memory defines the long-term memory layer for voice sessions: a
// per-user conversation log used to seed new sessions with recent context,
// and a semantic index of embedded memory items queried to enrich reply
// prompts.
//
// Implementations must be safe for concurrent use. Both layers are
// best-effort from the session's point of view — a failed write or search
// degrades recall quality but never fails a voice turn.
package memory

import "context"

// ConversationLog persists completed voice turns per (user, avatar) pairing
// and replays the most recent ones when a new session starts.
type ConversationLog interface {
	// AppendTurns appends turns to the active conversation for the pairing,
	// creating the conversation if none exists. Turns are assigned ascending
	// sequence numbers in the order given.
	AppendTurns(ctx context.Context, userID, avatarID string, turns []Turn) error

	// RecentTurns returns up to limit of the most recent turns for the
	// pairing, ordered oldest first (ready to seed an LLM history).
	RecentTurns(ctx context.Context, userID, avatarID string, limit int) ([]Turn, error)
}

// SemanticIndex stores embedded memory items and retrieves the nearest
// neighbours of a query embedding.
type SemanticIndex interface {
	// IndexItem upserts a pre-embedded item.
	IndexItem(ctx context.Context, item Item) error

	// Search returns the topK items closest (cosine distance) to embedding,
	// most similar first, restricted by filter.
	Search(ctx context.Context, embedding []float32, topK int, filter ItemFilter) ([]ItemResult, error)
}
