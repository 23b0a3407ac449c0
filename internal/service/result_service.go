package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vbondar/survivor-pool/internal/store"
	"github.com/vbondar/survivor-pool/internal/survivor"
	"github.com/vbondar/survivor-pool/internal/utils"
)

type ResultService struct {
	db    *sqlx.DB
	store *store.GameStore
	locks *GameLocks
}

func NewResultService(db *sqlx.DB, store *store.GameStore, locks *GameLocks) *ResultService {
	return &ResultService{db: db, store: store, locks: locks}
}

// RoundOutcome reports what one round resolution did, for the caller to
// relay to users.
type RoundOutcome struct {
	Round      int
	GameStatus survivor.GameStatus
	Eliminated []uuid.UUID
	Survived   []uuid.UUID
}

// SubmitResults resolves the game's current round from per-team goal
// counts keyed by team name. An entry survives iff both of its picked
// teams scored; a team missing from scores counts as 0, and an active
// entry with no pick for the round is eliminated. The whole round is
// applied in one transaction, then the game advances or finishes.
// A round can only ever be resolved once.
func (s *ResultService) SubmitResults(ctx context.Context, gameID uuid.UUID, round int, scores map[string]int) (*RoundOutcome, error) {
	unlock := s.locks.Lock(gameID)
	defer unlock()

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
	if game.CurrentRound < 1 || game.CurrentRound > game.RoundsTotal {
		return nil, fmt.Errorf("game %s has current round %d outside [1, %d]", game.ID, game.CurrentRound, game.RoundsTotal)
	}
	if round != game.CurrentRound {
		resolved, err := s.store.RoundResolvedTx(ctx, tx, gameID, round)
		if err != nil {
			return nil, err
		}
		if resolved {
			return nil, survivor.ErrRoundAlreadyResolved
		}
		return nil, survivor.ErrRoundMismatch
	}

	pool, err := s.store.PoolTeamsTx(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uuid.UUID, len(pool))
	for _, t := range pool {
		byName[t.Name] = t.ID
	}

	goals := make(map[uuid.UUID]int, len(scores))
	for name, g := range scores {
		id, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", survivor.ErrUnknownTeam, name)
		}
		goals[id] = g
	}

	entries, err := s.store.ActiveEntriesTx(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}

	selections, err := s.store.SelectionsForRoundTx(ctx, tx, gameID, round)
	if err != nil {
		return nil, err
	}
	selByEntry := make(map[uuid.UUID]*survivor.Selection, len(selections))
	for i := range selections {
		selByEntry[selections[i].EntryID] = &selections[i]
	}

	eliminated := make([]uuid.UUID, 0, len(entries))
	survived := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		sel, ok := selByEntry[entry.ID]
		if !ok {
			// No pick for the round means nothing to survive on.
			eliminated = append(eliminated, entry.ID)
			continue
		}
		if goals[sel.Team1ID] > 0 && goals[sel.Team2ID] > 0 {
			survived = append(survived, entry.ID)
		} else {
			eliminated = append(eliminated, entry.ID)
		}
	}

	if err := s.store.EliminateEntriesTx(ctx, tx, eliminated); err != nil {
		return nil, fmt.Errorf("failed to eliminate entries: %w", err)
	}

	result := &survivor.RoundResult{
		GameID:          gameID,
		Round:           round,
		EliminatedCount: len(eliminated),
	}
	if err := s.store.CreateRoundResultTx(ctx, tx, result); err != nil {
		return nil, fmt.Errorf("failed to record round result: %w", err)
	}

	if err := s.recordFixtureGoals(ctx, tx, gameID, round, goals); err != nil {
		return nil, err
	}

	// A game runs all configured rounds even when no active entries remain.
	if round >= game.RoundsTotal {
		game.Status = survivor.GameFinished
	} else {
		game.CurrentRound = round + 1
	}
	if err := s.store.UpdateGameTx(ctx, tx, game); err != nil {
		return nil, fmt.Errorf("failed to advance game: %w", err)
	}

	outcome := &RoundOutcome{
		Round:      round,
		GameStatus: game.Status,
		Eliminated: eliminated,
		Survived:   survived,
	}
	return outcome, tx.Commit()
}

// RoundResult re-reads a resolved round's record. Re-reading is always
// safe; only re-processing is rejected.
func (s *ResultService) RoundResult(ctx context.Context, gameID uuid.UUID, round int) (*survivor.RoundResult, error) {
	return s.store.GetRoundResult(ctx, gameID, round)
}

// recordFixtureGoals writes submitted goals onto the round's fixtures
// for later display. Only teams that actually appear in the submission
// get goals recorded; fixtures of unsubmitted teams stay unresolved.
func (s *ResultService) recordFixtureGoals(ctx context.Context, tx *sqlx.Tx, gameID uuid.UUID, round int, goals map[uuid.UUID]int) error {
	fixtures, err := s.store.RoundFixturesTx(ctx, tx, gameID, round)
	if err != nil {
		return err
	}

	for i := range fixtures {
		fixture := &fixtures[i]
		changed := false
		if g, ok := goals[fixture.HomeTeamID]; ok {
			fixture.HomeGoals = utils.Ptr(g)
			changed = true
		}
		if g, ok := goals[fixture.AwayTeamID]; ok {
			fixture.AwayGoals = utils.Ptr(g)
			changed = true
		}
		if changed {
			if err := s.store.SetFixtureGoalsTx(ctx, tx, fixture); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseScores reads the admin shorthand "Arsenal:1, Chelsea:0, ManCity:2"
// into a name -> goals map. Malformed pairs are skipped.
func ParseScores(results string) map[string]int {
	scores := make(map[string]int)
	for _, pair := range strings.Split(results, ",") {
		name, goalsStr, found := strings.Cut(pair, ":")
		if !found {
			continue
		}
		goals, err := strconv.Atoi(strings.TrimSpace(goalsStr))
		if err != nil {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		scores[name] = goals
	}
	return scores
}
