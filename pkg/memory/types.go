package memory

import "time"

// Scope values for memory items. Avatar-scoped items are private to one
// (user, avatar) pairing; user-scoped items apply across all of a user's
// avatars.
const (
	ScopeUser   = "user"
	ScopeAvatar = "avatar"
)

// Turn is a single conversation message persisted for replay.
type Turn struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the message text.
	Content string

	// CreatedAt is when the turn completed. Zero means "now" on insert.
	CreatedAt time.Time
}

// Item is an embedded long-term memory entry.
type Item struct {
	// ID is the item's unique identifier. Empty means a fresh UUID is
	// assigned on insert.
	ID string

	// UserID identifies the owning user.
	UserID string

	// AvatarID identifies the avatar for avatar-scoped items. Empty for
	// user-scoped items.
	AvatarID string

	// Scope is ScopeUser or ScopeAvatar.
	Scope string

	// Kind classifies the item (e.g., "turn", "fact", "summary").
	Kind string

	// Content is the remembered text.
	Content string

	// Embedding is the dense vector for Content. Its length must match the
	// dimension the store was migrated with.
	Embedding []float32

	// SourceSessionID records which voice session produced the item, when known.
	SourceSessionID string

	// CreatedAt is when the item was stored.
	CreatedAt time.Time
}

// ItemFilter restricts a semantic search.
type ItemFilter struct {
	// UserID limits results to one user. Usually set.
	UserID string

	// AvatarID, when non-empty, matches avatar-scoped items for that avatar
	// as well as the user's unscoped items.
	AvatarID string

	// Kind, when non-empty, limits results to one item kind.
	Kind string
}

// ItemResult is a search hit with its cosine distance to the query vector
// (smaller is more similar).
type ItemResult struct {
	Item     Item
	Distance float64
}
