package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vbondar/survivor-pool/internal/store"
	"github.com/vbondar/survivor-pool/internal/survivor"
)

type GameService struct {
	db    *sqlx.DB
	store *store.GameStore
}

func NewGameService(db *sqlx.DB, store *store.GameStore) *GameService {
	return &GameService{db: db, store: store}
}

type GameSummary struct {
	Game          *survivor.Game
	PoolSize      int
	ActiveEntries int
	OutEntries    int
}

func (s *GameService) CreateGame(ctx context.Context, title string, roundsTotal int) (*survivor.Game, error) {
	if roundsTotal <= 0 {
		roundsTotal = survivor.DefaultRoundsTotal
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	game := &survivor.Game{
		ID:           uuid.New(),
		Title:        title,
		RoundsTotal:  roundsTotal,
		CurrentRound: 1,
		Status:       survivor.GameActive,
	}

	if err := s.store.CreateGame(ctx, tx, game); err != nil {
		return nil, err
	}

	return game, tx.Commit()
}

// AddTeams creates any teams that don't exist yet (unique by name) and
// attaches them to the game's pool. Names already in the pool are
// skipped without error.
func (s *GameService) AddTeams(ctx context.Context, gameID uuid.UUID, names []string) ([]survivor.Team, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.store.GetGameTx(ctx, tx, gameID); err != nil {
		return nil, err
	}

	position, err := s.store.PoolSizeTx(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}

	var teams []survivor.Team
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		team, err := s.store.GetTeamByNameTx(ctx, tx, name)
		if err == sql.ErrNoRows {
			team = &survivor.Team{ID: uuid.New(), Name: name}
			if err := s.store.CreateTeamTx(ctx, tx, team); err != nil {
				return nil, fmt.Errorf("failed to create team %q: %w", name, err)
			}
		} else if err != nil {
			return nil, err
		}

		if err := s.store.AddPoolTeamTx(ctx, tx, gameID, team.ID, position); err != nil {
			return nil, err
		}
		position++
		teams = append(teams, *team)
	}

	return teams, tx.Commit()
}

func (s *GameService) AddEntry(ctx context.Context, gameID, userID uuid.UUID) (*survivor.Entry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	game, err := s.store.GetGameTx(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Finished() {
		return nil, survivor.ErrGameFinished
	}

	entry := &survivor.Entry{
		ID:     uuid.New(),
		GameID: gameID,
		UserID: userID,
		Status: survivor.EntryActive,
	}

	if err := s.store.CreateEntryTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	return entry, tx.Commit()
}

func (s *GameService) EntriesForUser(ctx context.Context, userID uuid.UUID) ([]survivor.EntryWithGame, error) {
	return s.store.EntriesForUser(ctx, userID)
}

func (s *GameService) Summary(ctx context.Context, gameID uuid.UUID) (*GameSummary, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	pool, err := s.store.PoolTeams(ctx, gameID)
	if err != nil {
		return nil, err
	}

	active, out, err := s.store.EntryCounts(ctx, gameID)
	if err != nil {
		return nil, err
	}

	return &GameSummary{
		Game:          game,
		PoolSize:      len(pool),
		ActiveEntries: active,
		OutEntries:    out,
	}, nil
}

var fixtureSeparators = []string{" — ", " - ", "–", "-"}

// AddFixtures records the round's pairings from "Home - Away" lines.
// Lines naming teams outside the game's pool are skipped.
func (s *GameService) AddFixtures(ctx context.Context, gameID uuid.UUID, round int, lines []string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := s.store.GetGameTx(ctx, tx, gameID); err != nil {
		return 0, err
	}

	pool, err := s.store.PoolTeamsTx(ctx, tx, gameID)
	if err != nil {
		return 0, err
	}
	byName := make(map[string]uuid.UUID, len(pool))
	for _, t := range pool {
		byName[t.Name] = t.ID
	}

	var fixtures []survivor.Fixture
	for _, line := range lines {
		line = strings.TrimSpace(line)
		for _, sep := range fixtureSeparators {
			before, after, found := strings.Cut(line, sep)
			if !found {
				continue
			}
			homeID, homeOK := byName[strings.TrimSpace(before)]
			awayID, awayOK := byName[strings.TrimSpace(after)]
			if homeOK && awayOK {
				fixtures = append(fixtures, survivor.Fixture{
					ID:         uuid.New(),
					GameID:     gameID,
					Round:      round,
					HomeTeamID: homeID,
					AwayTeamID: awayID,
				})
			}
			break
		}
	}

	if err := s.store.CreateFixturesTx(ctx, tx, fixtures); err != nil {
		return 0, err
	}

	return len(fixtures), tx.Commit()
}

func (s *GameService) RoundFixtures(ctx context.Context, gameID uuid.UUID, round int) ([]survivor.FixtureView, error) {
	return s.store.RoundFixtures(ctx, gameID, round)
}
