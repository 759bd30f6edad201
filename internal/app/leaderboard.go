package app

import (
	"sort"
	"sync"

	"quizforge/internal/domain"
)

// DefaultLeaderboardSize caps the board at the top five results.
const DefaultLeaderboardSize = 5

// Leaderboard is the bounded, process-lifetime scoreboard of completed
// quizzes. Entries are kept sorted descending by score; ties keep insertion
// order. There is no removal; inserts past capacity silently drop the
// lowest entry.
type Leaderboard struct {
	mu      sync.RWMutex
	cap     int
	entries []domain.LeaderboardEntry
}

func NewLeaderboard(size int) *Leaderboard {
	if size <= 0 {
		size = DefaultLeaderboardSize
	}
	return &Leaderboard{cap: size}
}

// Insert records a completed result. Insert never fails; a result that does
// not make the cut is dropped by truncation.
func (l *Leaderboard) Insert(entry domain.LeaderboardEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].Score > l.entries[j].Score
	})
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
}

// Snapshot returns a copy of the current standings, best first.
func (l *Leaderboard) Snapshot() []domain.LeaderboardEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.LeaderboardEntry(nil), l.entries...)
}

// Reset clears the board; tests use it between scenarios.
func (l *Leaderboard) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
