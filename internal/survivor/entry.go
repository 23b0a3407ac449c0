package survivor

import (
	"time"

	"github.com/google/uuid"
)

type EntryStatus string

const (
	EntryActive EntryStatus = "active"
	EntryOut    EntryStatus = "out"
)

// Entry is one paid slot in a game. A user may hold several entries in
// the same game; each one picks and survives on its own. Status only
// ever moves active -> out.
type Entry struct {
	ID        uuid.UUID   `db:"id"`
	GameID    uuid.UUID   `db:"game_id"`
	UserID    uuid.UUID   `db:"user_id"`
	Status    EntryStatus `db:"status"`
	CreatedAt time.Time   `db:"created_at"`
}

// EntryWithGame is the read projection shown in entry lists.
type EntryWithGame struct {
	Entry
	GameTitle    string     `db:"game_title"`
	CurrentRound int        `db:"current_round"`
	RoundsTotal  int        `db:"rounds_total"`
	GameStatus   GameStatus `db:"game_status"`
}
