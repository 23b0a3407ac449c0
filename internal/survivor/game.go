package survivor

import (
	"time"

	"github.com/google/uuid"
)

type GameStatus string

const (
	GameActive   GameStatus = "active"
	GameFinished GameStatus = "finished"
)

// DefaultRoundsTotal matches the classic ten-round season format.
const DefaultRoundsTotal = 10

type Game struct {
	ID           uuid.UUID  `db:"id"`
	Title        string     `db:"title"`
	RoundsTotal  int        `db:"rounds_total"`
	CurrentRound int        `db:"current_round"`
	Status       GameStatus `db:"status"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (g *Game) Finished() bool {
	return g.Status == GameFinished
}

// RoundResult marks a round as resolved. At most one row per (game, round)
// ever exists, which is what makes re-processing detectable.
type RoundResult struct {
	GameID          uuid.UUID `db:"game_id"`
	Round           int       `db:"round"`
	EliminatedCount int       `db:"eliminated_count"`
	ProcessedAt     time.Time `db:"processed_at"`
}
