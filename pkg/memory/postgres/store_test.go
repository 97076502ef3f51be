package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reflections-ai/reflections/pkg/memory"
	"github.com/reflections-ai/reflections/pkg/memory/postgres"
)

const testEmbeddingDim = 4

// testDSN returns the test database DSN from the environment, or skips the
// test if REFLECTIONS_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("REFLECTIONS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("REFLECTIONS_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, `DROP TABLE IF EXISTS conversation_turns, conversations, memory_items CASCADE`)
	if err != nil {
		t.Fatalf("drop schema: %v", err)
	}

	store, err := postgres.NewStore(ctx, dsn, testEmbeddingDim)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestConversationLogRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	log := store.Conversations()

	turns := []memory.Turn{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}
	if err := log.AppendTurns(ctx, "u1", "a1", turns); err != nil {
		t.Fatalf("AppendTurns: %v", err)
	}
	if err := log.AppendTurns(ctx, "u1", "a1", []memory.Turn{
		{Role: "user", Content: "how are you"},
	}); err != nil {
		t.Fatalf("AppendTurns second batch: %v", err)
	}

	got, err := log.RecentTurns(ctx, "u1", "a1", 2)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentTurns length: got %d, want 2", len(got))
	}
	// Oldest first within the window.
	if got[0].Content != "hi there" || got[1].Content != "how are you" {
		t.Errorf("unexpected turns: %+v", got)
	}

	// A different pairing sees nothing.
	other, err := log.RecentTurns(ctx, "u1", "a2", 10)
	if err != nil {
		t.Fatalf("RecentTurns other avatar: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no turns for other avatar, got %d", len(other))
	}
}

func TestSemanticIndexSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ix := store.Index()

	items := []memory.Item{
		{UserID: "u1", AvatarID: "a1", Scope: memory.ScopeAvatar, Kind: "turn", Content: "likes tea", Embedding: []float32{1, 0, 0, 0}},
		{UserID: "u1", Scope: memory.ScopeUser, Kind: "fact", Content: "lives in Berlin", Embedding: []float32{0, 1, 0, 0}},
		{UserID: "u2", Scope: memory.ScopeUser, Kind: "fact", Content: "other user", Embedding: []float32{1, 0, 0, 0}},
	}
	for _, item := range items {
		if err := ix.IndexItem(ctx, item); err != nil {
			t.Fatalf("IndexItem: %v", err)
		}
	}

	results, err := ix.Search(ctx, []float32{1, 0, 0, 0}, 10, memory.ItemFilter{UserID: "u1", AvatarID: "a1"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results length: got %d, want 2", len(results))
	}
	if results[0].Item.Content != "likes tea" {
		t.Errorf("closest item: got %q, want %q", results[0].Item.Content, "likes tea")
	}
	if results[0].Distance >= results[1].Distance {
		t.Error("results should be ordered by ascending distance")
	}
}

func TestSemanticIndexUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ix := store.Index()

	item := memory.Item{
		ID: "fixed-id", UserID: "u1", Scope: memory.ScopeUser, Kind: "fact",
		Content: "v1", Embedding: []float32{1, 0, 0, 0},
	}
	if err := ix.IndexItem(ctx, item); err != nil {
		t.Fatalf("IndexItem: %v", err)
	}
	item.Content = "v2"
	if err := ix.IndexItem(ctx, item); err != nil {
		t.Fatalf("IndexItem upsert: %v", err)
	}

	results, err := ix.Search(ctx, []float32{1, 0, 0, 0}, 10, memory.ItemFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Item.Content != "v2" {
		t.Errorf("upsert not applied: %+v", results)
	}
}
