package survivor

import "github.com/google/uuid"

// Team is immutable once created and unique by name. Games reference
// teams through their pool membership rows.
type Team struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
}
