package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-engine/internal/domain"
)

// ResultStore writes final results to Redis:
//
//	HSET quiz:result:{host}:{session} status winners endedAt
//	ZADD quiz:result:{host}:{session}:scores {score} {identity}
type ResultStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewResultStore keeps results for retention; zero keeps them forever.
func NewResultStore(client redis.UniversalClient, retention time.Duration) *ResultStore {
	return &ResultStore{client: client, retention: retention}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.Result) error {
	winners, err := json.Marshal(result.Winners)
	if err != nil {
		return fmt.Errorf("marshal winners: %w", err)
	}

	key := s.resultKey(result.Key())
	scoresKey := key + ":scores"
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, scoresKey)
		pipe.HSet(ctx, key,
			"status", string(result.Status),
			"winners", string(winners),
			"endedAt", result.EndedAt.UTC().Format(time.RFC3339Nano),
		)
		if len(result.FinalScores) > 0 {
			members := make([]redis.Z, 0, len(result.FinalScores))
			for _, e := range result.FinalScores {
				members = append(members, redis.Z{Score: float64(e.Score), Member: e.Identity})
			}
			pipe.ZAdd(ctx, scoresKey, members...)
		}
		if s.retention > 0 {
			pipe.Expire(ctx, key, s.retention)
			pipe.Expire(ctx, scoresKey, s.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save result %s: %w", result.Key(), err)
	}
	return nil
}

func (s *ResultStore) resultKey(key domain.SessionKey) string {
	return "quiz:result:" + key.HostID + ":" + key.SessionID
}
