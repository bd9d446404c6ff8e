package ledger

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis ledger: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRecordVoteOnce(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	recorded, err := store.RecordVote(ctx, "u1", "s1-p1-w1-t1")
	if err != nil {
		t.Fatalf("RecordVote failed: %v", err)
	}
	if !recorded {
		t.Error("expected first vote to be recorded")
	}

	// Same pair again must be rejected without error.
	recorded, err = store.RecordVote(ctx, "u1", "s1-p1-w1-t1")
	if err != nil {
		t.Fatalf("RecordVote (duplicate) failed: %v", err)
	}
	if recorded {
		t.Error("expected duplicate vote to be rejected")
	}
}

func TestHasVoted(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	voted, err := store.HasVoted(ctx, "u1", "s1-p1-w1-t1")
	if err != nil {
		t.Fatalf("HasVoted failed: %v", err)
	}
	if voted {
		t.Error("expected no vote before recording")
	}

	if _, err := store.RecordVote(ctx, "u1", "s1-p1-w1-t1"); err != nil {
		t.Fatalf("RecordVote failed: %v", err)
	}

	voted, err = store.HasVoted(ctx, "u1", "s1-p1-w1-t1")
	if err != nil {
		t.Fatalf("HasVoted failed: %v", err)
	}
	if !voted {
		t.Error("expected vote after recording")
	}
}

func TestVotesForUnknownUserIsEmpty(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	votes, err := store.VotesForUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("VotesForUser failed: %v", err)
	}
	if len(votes) != 0 {
		t.Errorf("expected empty set, got %v", votes)
	}
}

func TestVotesAreIsolatedPerUser(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	if _, err := store.RecordVote(ctx, "u1", "key-a"); err != nil {
		t.Fatalf("RecordVote u1 failed: %v", err)
	}
	if _, err := store.RecordVote(ctx, "u1", "key-b"); err != nil {
		t.Fatalf("RecordVote u1 failed: %v", err)
	}
	if _, err := store.RecordVote(ctx, "u2", "key-a"); err != nil {
		t.Fatalf("RecordVote u2 failed: %v", err)
	}

	votes1, err := store.VotesForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("VotesForUser u1 failed: %v", err)
	}
	if len(votes1) != 2 || !votes1["key-a"] || !votes1["key-b"] {
		t.Errorf("unexpected votes for u1: %v", votes1)
	}

	votes2, err := store.VotesForUser(ctx, "u2")
	if err != nil {
		t.Fatalf("VotesForUser u2 failed: %v", err)
	}
	if len(votes2) != 1 || !votes2["key-a"] {
		t.Errorf("unexpected votes for u2: %v", votes2)
	}
}

func TestRemoveVote(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	if _, err := store.RecordVote(ctx, "u1", "key-a"); err != nil {
		t.Fatalf("RecordVote failed: %v", err)
	}
	if err := store.RemoveVote(ctx, "u1", "key-a"); err != nil {
		t.Fatalf("RemoveVote failed: %v", err)
	}

	voted, err := store.HasVoted(ctx, "u1", "key-a")
	if err != nil {
		t.Fatalf("HasVoted failed: %v", err)
	}
	if voted {
		t.Error("expected vote to be gone after removal")
	}

	// The pair can be recorded again after rollback.
	recorded, err := store.RecordVote(ctx, "u1", "key-a")
	if err != nil {
		t.Fatalf("RecordVote after removal failed: %v", err)
	}
	if !recorded {
		t.Error("expected re-record after removal to succeed")
	}
}

func TestRemoveNonExistentVote(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if err := store.RemoveVote(context.Background(), "u1", "missing"); err != nil {
		t.Errorf("RemoveVote for missing entry failed: %v", err)
	}
}
