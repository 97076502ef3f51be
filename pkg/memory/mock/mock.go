// Package mock provides in-memory test doubles for the memory package
// interfaces. Log implements memory.ConversationLog and Index implements
// memory.SemanticIndex; both are safe for concurrent use.
package mock

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/reflections-ai/reflections/pkg/memory"
)

// Log is an in-memory implementation of memory.ConversationLog keyed by
// (userID, avatarID).
type Log struct {
	mu    sync.Mutex
	turns map[[2]string][]memory.Turn

	// AppendErr, if non-nil, is returned by AppendTurns.
	AppendErr error

	// AppendFunc, if non-nil, handles AppendTurns entirely.
	AppendFunc func(ctx context.Context, userID, avatarID string, turns []memory.Turn) error

	// RecentErr, if non-nil, is returned by RecentTurns.
	RecentErr error
}

// NewLog returns an empty Log.
func NewLog() *Log {
	return &Log{turns: make(map[[2]string][]memory.Turn)}
}

// AppendTurns stores turns under the pairing.
func (l *Log) AppendTurns(ctx context.Context, userID, avatarID string, turns []memory.Turn) error {
	if l.AppendFunc != nil {
		return l.AppendFunc(ctx, userID, avatarID, turns)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.AppendErr != nil {
		return l.AppendErr
	}
	key := [2]string{userID, avatarID}
	l.turns[key] = append(l.turns[key], turns...)
	return nil
}

// RecentTurns returns up to limit of the latest stored turns, oldest first.
func (l *Log) RecentTurns(_ context.Context, userID, avatarID string, limit int) ([]memory.Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.RecentErr != nil {
		return nil, l.RecentErr
	}
	all := l.turns[[2]string{userID, avatarID}]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]memory.Turn, limit)
	copy(out, all[len(all)-limit:])
	return out, nil
}

// Turns returns a copy of every turn stored for the pairing. Thread-safe.
func (l *Log) Turns(userID, avatarID string) []memory.Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := l.turns[[2]string{userID, avatarID}]
	out := make([]memory.Turn, len(all))
	copy(out, all)
	return out
}

// Index is an in-memory implementation of memory.SemanticIndex using exact
// cosine distance.
type Index struct {
	mu    sync.Mutex
	items []memory.Item

	// IndexErr, if non-nil, is returned by IndexItem.
	IndexErr error

	// SearchErr, if non-nil, is returned by Search.
	SearchErr error
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{}
}

// IndexItem stores or replaces the item.
func (ix *Index) IndexItem(_ context.Context, item memory.Item) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.IndexErr != nil {
		return ix.IndexErr
	}
	for i, existing := range ix.items {
		if existing.ID != "" && existing.ID == item.ID {
			ix.items[i] = item
			return nil
		}
	}
	ix.items = append(ix.items, item)
	return nil
}

// Search returns the topK closest items by cosine distance.
func (ix *Index) Search(_ context.Context, embedding []float32, topK int, filter memory.ItemFilter) ([]memory.ItemResult, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.SearchErr != nil {
		return nil, ix.SearchErr
	}

	var results []memory.ItemResult
	for _, item := range ix.items {
		if filter.UserID != "" && item.UserID != filter.UserID {
			continue
		}
		if filter.AvatarID != "" && item.AvatarID != "" && item.AvatarID != filter.AvatarID {
			continue
		}
		if filter.Kind != "" && item.Kind != filter.Kind {
			continue
		}
		results = append(results, memory.ItemResult{
			Item:     item,
			Distance: cosineDistance(embedding, item.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []memory.ItemResult{}
	}
	return results, nil
}

// Items returns a copy of all stored items. Thread-safe.
func (ix *Index) Items() []memory.Item {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]memory.Item, len(ix.items))
	copy(out, ix.items)
	return out
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Compile-time interface assertions.
var (
	_ memory.ConversationLog = (*Log)(nil)
	_ memory.SemanticIndex   = (*Index)(nil)
)
