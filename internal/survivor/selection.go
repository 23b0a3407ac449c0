package survivor

import (
	"time"

	"github.com/google/uuid"
)

// Selection is an entry's pick of two distinct teams for one round.
// The pair is unordered; team1/team2 is storage order only.
type Selection struct {
	ID        uuid.UUID `db:"id"`
	EntryID   uuid.UUID `db:"entry_id"`
	Round     int       `db:"round"`
	Team1ID   uuid.UUID `db:"team1_id"`
	Team2ID   uuid.UUID `db:"team2_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *Selection) SamePair(a, b uuid.UUID) bool {
	return (s.Team1ID == a && s.Team2ID == b) || (s.Team1ID == b && s.Team2ID == a)
}

func (s *Selection) Uses(teamID uuid.UUID) bool {
	return s.Team1ID == teamID || s.Team2ID == teamID
}
