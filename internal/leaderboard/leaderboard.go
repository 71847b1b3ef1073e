// Package leaderboard keeps participant scores in rank order.
//
// Ranking is by score descending, then identity ascending, so every snapshot
// is a total order. Updates move a single entry inside a B-tree instead of
// re-sorting the board.
package leaderboard

import (
	"github.com/google/btree"

	"quiz-engine/internal/domain"
)

const degree = 32

type entry struct {
	identity string
	score    int
}

func ranksBefore(a, b entry) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.identity < b.identity
}

// Leaderboard is an order-maintaining score index.
//
// It is not safe for concurrent mutation. Concurrent readers are fine as long
// as no writer runs, which the owning Session guarantees with its RWMutex.
type Leaderboard struct {
	scores map[string]int
	index  *btree.BTreeG[entry]
}

func New() *Leaderboard {
	return &Leaderboard{
		scores: make(map[string]int),
		index:  btree.NewG[entry](degree, ranksBefore),
	}
}

// Upsert inserts identity with score, or moves it to its new rank if present.
func (l *Leaderboard) Upsert(identity string, score int) {
	if old, ok := l.scores[identity]; ok {
		if old == score {
			return
		}
		l.index.Delete(entry{identity: identity, score: old})
	}
	l.scores[identity] = score
	l.index.ReplaceOrInsert(entry{identity: identity, score: score})
}

// Score returns the current score of identity.
func (l *Leaderboard) Score(identity string) (int, bool) {
	score, ok := l.scores[identity]
	return score, ok
}

// Len returns the number of ranked identities.
func (l *Leaderboard) Len() int {
	return len(l.scores)
}

// TopK returns up to n entries in rank order.
func (l *Leaderboard) TopK(n int) []domain.ScoreEntry {
	if n > l.index.Len() {
		n = l.index.Len()
	}
	if n <= 0 {
		return []domain.ScoreEntry{}
	}
	out := make([]domain.ScoreEntry, 0, n)
	l.index.Ascend(func(e entry) bool {
		out = append(out, domain.ScoreEntry{Identity: e.identity, Score: e.score})
		return len(out) < n
	})
	return out
}

// AllRanked returns every entry in rank order.
func (l *Leaderboard) AllRanked() []domain.ScoreEntry {
	return l.TopK(l.index.Len())
}

// MaxScore returns the highest score; ok is false when the board is empty.
func (l *Leaderboard) MaxScore() (score int, ok bool) {
	top, ok := l.index.Min()
	if !ok {
		return 0, false
	}
	return top.score, true
}

// Leaders returns every identity holding the highest score, ascending.
func (l *Leaderboard) Leaders() []string {
	best, ok := l.MaxScore()
	if !ok {
		return []string{}
	}
	var leaders []string
	l.index.Ascend(func(e entry) bool {
		if e.score != best {
			return false
		}
		leaders = append(leaders, e.identity)
		return true
	})
	return leaders
}
