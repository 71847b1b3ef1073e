package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-engine/internal/domain"
)

// ResultStore persists final session results. Saving is idempotent per
// session so a retried persist overwrites the earlier attempt.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.Result) error {
	winners, err := json.Marshal(result.Winners)
	if err != nil {
		return fmt.Errorf("marshal winners: %w", err)
	}
	scores, err := json.Marshal(result.FinalScores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	const stmt = `
INSERT INTO session_results (host_id, session_id, status, winners, final_scores, ended_at)
VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
ON CONFLICT (host_id, session_id) DO UPDATE
SET status = EXCLUDED.status,
    winners = EXCLUDED.winners,
    final_scores = EXCLUDED.final_scores,
    ended_at = EXCLUDED.ended_at;`

	_, err = s.pool.Exec(ctx, stmt,
		result.HostID, result.SessionID, string(result.Status), string(winners), string(scores), result.EndedAt)
	if err != nil {
		return fmt.Errorf("postgres: save result %s: %w", result.Key(), err)
	}
	return nil
}

// LoadResult reads a stored result back.
func (s *ResultStore) LoadResult(ctx context.Context, key domain.SessionKey) (domain.Result, error) {
	var (
		res     = domain.Result{HostID: key.HostID, SessionID: key.SessionID}
		status  string
		winners []byte
		scores  []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT status, winners, final_scores, ended_at FROM session_results WHERE host_id=$1 AND session_id=$2`,
		key.HostID, key.SessionID).Scan(&status, &winners, &scores, &res.EndedAt)
	if err != nil {
		return domain.Result{}, fmt.Errorf("postgres: load result %s: %w", key, err)
	}
	res.Status = domain.Status(status)
	if err := json.Unmarshal(winners, &res.Winners); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal winners: %w", err)
	}
	if err := json.Unmarshal(scores, &res.FinalScores); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal scores: %w", err)
	}
	return res, nil
}
