// Package ledger provides the Redis-backed vote ledger. It records which
// vote keys each user has already cast; the Postgres store offers the same
// contract when Redis is not configured.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one Redis set of vote keys per user.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "votes:",
	}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "votes:",
	}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

// RecordVote adds the vote key to the user's set. SADD reports how many
// members were actually added, which makes the once-per-user check atomic:
// false means the key was already present and nothing changed.
func (s *RedisStore) RecordVote(ctx context.Context, userID, voteKey string) (bool, error) {
	added, err := s.client.SAdd(ctx, s.key(userID), voteKey).Result()
	if err != nil {
		return false, fmt.Errorf("record vote: %w", err)
	}
	return added > 0, nil
}

// HasVoted reports whether the user already cast this vote key.
func (s *RedisStore) HasVoted(ctx context.Context, userID, voteKey string) (bool, error) {
	member, err := s.client.SIsMember(ctx, s.key(userID), voteKey).Result()
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return member, nil
}

// VotesForUser returns the user's vote keys; unknown users get an empty set.
func (s *RedisStore) VotesForUser(ctx context.Context, userID string) (map[string]bool, error) {
	members, err := s.client.SMembers(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	votes := make(map[string]bool, len(members))
	for _, member := range members {
		votes[member] = true
	}
	return votes, nil
}

// RemoveVote deletes one entry, the rollback path when a document write fails
// after the ledger accepted the vote.
func (s *RedisStore) RemoveVote(ctx context.Context, userID, voteKey string) error {
	if err := s.client.SRem(ctx, s.key(userID), voteKey).Err(); err != nil {
		return fmt.Errorf("remove vote: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
