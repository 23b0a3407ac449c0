package survivor

import "github.com/google/uuid"

// Fixture is a scheduled pairing shown on the pick page. Goals are nil
// until results for the round come in.
type Fixture struct {
	ID         uuid.UUID `db:"id"`
	GameID     uuid.UUID `db:"game_id"`
	Round      int       `db:"round"`
	HomeTeamID uuid.UUID `db:"home_team_id"`
	AwayTeamID uuid.UUID `db:"away_team_id"`
	HomeGoals  *int      `db:"home_goals"`
	AwayGoals  *int      `db:"away_goals"`
}

// FixtureView joins team names in for display.
type FixtureView struct {
	Fixture
	HomeName string `db:"home_name"`
	AwayName string `db:"away_name"`
}
