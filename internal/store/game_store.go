package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vbondar/survivor-pool/internal/survivor"
)

type GameStore struct {
	db *sqlx.DB
}

func NewGameStore(db *sqlx.DB) *GameStore {
	return &GameStore{db: db}
}

func (s *GameStore) CreateGame(ctx context.Context, tx *sqlx.Tx, game *survivor.Game) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO games (id, title, rounds_total, current_round, status)
        VALUES (:id, :title, :rounds_total, :current_round, :status)`, game)
	return err
}

func (s *GameStore) GetGame(ctx context.Context, id uuid.UUID) (*survivor.Game, error) {
	var game survivor.Game
	err := s.db.GetContext(ctx, &game, "SELECT * FROM games WHERE id = ?", id)
	return &game, err
}

func (s *GameStore) GetGameTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*survivor.Game, error) {
	var game survivor.Game
	err := tx.GetContext(ctx, &game, "SELECT * FROM games WHERE id = ?", id)
	return &game, err
}

// UpdateGameTx persists the lifecycle fields. Nothing else on a game is
// mutable after creation.
func (s *GameStore) UpdateGameTx(ctx context.Context, tx *sqlx.Tx, game *survivor.Game) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE games SET current_round = :current_round, status = :status
        WHERE id = :id`, game)
	return err
}

func (s *GameStore) GetTeamByNameTx(ctx context.Context, tx *sqlx.Tx, name string) (*survivor.Team, error) {
	var team survivor.Team
	err := tx.GetContext(ctx, &team, "SELECT * FROM teams WHERE name = ?", name)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *GameStore) CreateTeamTx(ctx context.Context, tx *sqlx.Tx, team *survivor.Team) error {
	_, err := tx.NamedExecContext(ctx, "INSERT INTO teams (id, name) VALUES (:id, :name)", team)
	return err
}

func (s *GameStore) AddPoolTeamTx(ctx context.Context, tx *sqlx.Tx, gameID, teamID uuid.UUID, position int) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO game_teams (game_id, team_id, position)
        VALUES (?, ?, ?)`, gameID, teamID, position)
	return err
}

func (s *GameStore) PoolSizeTx(ctx context.Context, tx *sqlx.Tx, gameID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM game_teams WHERE game_id = ?", gameID)
	return count, err
}

const poolTeamsQuery = `
	SELECT t.id, t.name FROM teams t
	JOIN game_teams gt ON gt.team_id = t.id
	WHERE gt.game_id = ?
	ORDER BY gt.position ASC
`

func (s *GameStore) PoolTeams(ctx context.Context, gameID uuid.UUID) ([]survivor.Team, error) {
	var teams []survivor.Team
	err := s.db.SelectContext(ctx, &teams, poolTeamsQuery, gameID)
	return teams, err
}

func (s *GameStore) PoolTeamsTx(ctx context.Context, tx *sqlx.Tx, gameID uuid.UUID) ([]survivor.Team, error) {
	var teams []survivor.Team
	err := tx.SelectContext(ctx, &teams, poolTeamsQuery, gameID)
	return teams, err
}

func (s *GameStore) CreateEntryTx(ctx context.Context, tx *sqlx.Tx, entry *survivor.Entry) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO entries (id, game_id, user_id, status)
        VALUES (:id, :game_id, :user_id, :status)`, entry)
	return err
}

func (s *GameStore) GetEntry(ctx context.Context, id uuid.UUID) (*survivor.Entry, error) {
	var entry survivor.Entry
	err := s.db.GetContext(ctx, &entry, "SELECT * FROM entries WHERE id = ?", id)
	return &entry, err
}

func (s *GameStore) GetEntryTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*survivor.Entry, error) {
	var entry survivor.Entry
	err := tx.GetContext(ctx, &entry, "SELECT * FROM entries WHERE id = ?", id)
	return &entry, err
}

func (s *GameStore) ActiveEntriesTx(ctx context.Context, tx *sqlx.Tx, gameID uuid.UUID) ([]survivor.Entry, error) {
	var entries []survivor.Entry
	err := tx.SelectContext(ctx, &entries,
		"SELECT * FROM entries WHERE game_id = ? AND status = ? ORDER BY created_at ASC", gameID, survivor.EntryActive)
	return entries, err
}

// EliminateEntriesTx flips the given entries to out in one statement so
// a round's eliminations land atomically with the round result row.
func (s *GameStore) EliminateEntriesTx(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("UPDATE entries SET status = ? WHERE id IN (?)", survivor.EntryOut, ids)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
	return err
}

const entriesForUserQuery = `
	SELECT e.*, g.title AS game_title, g.current_round, g.rounds_total, g.status AS game_status
	FROM entries e
	JOIN games g ON g.id = e.game_id
	WHERE e.user_id = ?
	ORDER BY e.created_at DESC
`

func (s *GameStore) EntriesForUser(ctx context.Context, userID uuid.UUID) ([]survivor.EntryWithGame, error) {
	var entries []survivor.EntryWithGame
	err := s.db.SelectContext(ctx, &entries, entriesForUserQuery, userID)
	return entries, err
}

func (s *GameStore) EntryCounts(ctx context.Context, gameID uuid.UUID) (active int, out int, err error) {
	rows := []struct {
		Status survivor.EntryStatus `db:"status"`
		Count  int                  `db:"count"`
	}{}
	err = s.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS count FROM entries WHERE game_id = ? GROUP BY status", gameID)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch r.Status {
		case survivor.EntryActive:
			active = r.Count
		case survivor.EntryOut:
			out = r.Count
		}
	}
	return active, out, nil
}

// UpsertSelectionTx replaces a pending pick for the same round in place.
// The UNIQUE(entry_id, round) constraint is what makes this an upsert
// rather than a second selection.
func (s *GameStore) UpsertSelectionTx(ctx context.Context, tx *sqlx.Tx, sel *survivor.Selection) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO selections (id, entry_id, round, team1_id, team2_id)
        VALUES (:id, :entry_id, :round, :team1_id, :team2_id)
        ON CONFLICT (entry_id, round) DO UPDATE SET team1_id = :team1_id, team2_id = :team2_id`, sel)
	return err
}

const selectionsByEntryQuery = "SELECT * FROM selections WHERE entry_id = ? ORDER BY round ASC"

func (s *GameStore) SelectionsByEntry(ctx context.Context, entryID uuid.UUID) ([]survivor.Selection, error) {
	var sels []survivor.Selection
	err := s.db.SelectContext(ctx, &sels, selectionsByEntryQuery, entryID)
	return sels, err
}

func (s *GameStore) SelectionsByEntryTx(ctx context.Context, tx *sqlx.Tx, entryID uuid.UUID) ([]survivor.Selection, error) {
	var sels []survivor.Selection
	err := tx.SelectContext(ctx, &sels, selectionsByEntryQuery, entryID)
	return sels, err
}

func (s *GameStore) SelectionsForRoundTx(ctx context.Context, tx *sqlx.Tx, gameID uuid.UUID, round int) ([]survivor.Selection, error) {
	var sels []survivor.Selection
	err := tx.SelectContext(ctx, &sels, `
		SELECT s.* FROM selections s
		JOIN entries e ON e.id = s.entry_id
		WHERE e.game_id = ? AND s.round = ?`, gameID, round)
	return sels, err
}

func (s *GameStore) CreateFixturesTx(ctx context.Context, tx *sqlx.Tx, fixtures []survivor.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO fixtures (id, game_id, round, home_team_id, away_team_id)
        VALUES (:id, :game_id, :round, :home_team_id, :away_team_id)`, fixtures)
	return err
}

func (s *GameStore) RoundFixtures(ctx context.Context, gameID uuid.UUID, round int) ([]survivor.FixtureView, error) {
	var fixtures []survivor.FixtureView
	err := s.db.SelectContext(ctx, &fixtures, `
		SELECT f.*, ht.name AS home_name, at.name AS away_name
		FROM fixtures f
		JOIN teams ht ON ht.id = f.home_team_id
		JOIN teams at ON at.id = f.away_team_id
		WHERE f.game_id = ? AND f.round = ?
		ORDER BY f.id`, gameID, round)
	return fixtures, err
}

func (s *GameStore) RoundFixturesTx(ctx context.Context, tx *sqlx.Tx, gameID uuid.UUID, round int) ([]survivor.Fixture, error) {
	var fixtures []survivor.Fixture
	err := tx.SelectContext(ctx, &fixtures,
		"SELECT * FROM fixtures WHERE game_id = ? AND round = ?", gameID, round)
	return fixtures, err
}

func (s *GameStore) SetFixtureGoalsTx(ctx context.Context, tx *sqlx.Tx, fixture *survivor.Fixture) error {
	_, err := tx.NamedExecContext(ctx,
		"UPDATE fixtures SET home_goals = :home_goals, away_goals = :away_goals WHERE id = :id", fixture)
	return err
}

func (s *GameStore) CreateRoundResultTx(ctx context.Context, tx *sqlx.Tx, result *survivor.RoundResult) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO round_results (game_id, round, eliminated_count)
        VALUES (:game_id, :round, :eliminated_count)`, result)
	return err
}

func (s *GameStore) RoundResolvedTx(ctx context.Context, tx *sqlx.Tx, gameID uuid.UUID, round int) (bool, error) {
	var result survivor.RoundResult
	err := tx.GetContext(ctx, &result,
		"SELECT * FROM round_results WHERE game_id = ? AND round = ?", gameID, round)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GameStore) GetRoundResult(ctx context.Context, gameID uuid.UUID, round int) (*survivor.RoundResult, error) {
	var result survivor.RoundResult
	err := s.db.GetContext(ctx, &result,
		"SELECT * FROM round_results WHERE game_id = ? AND round = ?", gameID, round)
	return &result, err
}
