package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vbondar/survivor-pool/internal/store"
	"github.com/vbondar/survivor-pool/internal/survivor"
)

type PickService struct {
	db    *sqlx.DB
	store *store.GameStore
	locks *GameLocks
}

func NewPickService(db *sqlx.DB, store *store.GameStore, locks *GameLocks) *PickService {
	return &PickService{db: db, store: store, locks: locks}
}

// AvailableTeams returns the game's pool minus every team the entry has
// picked in any round. "Already used" is cumulative across the entry's
// whole history, resolved rounds or not.
func (s *PickService) AvailableTeams(ctx context.Context, entryID uuid.UUID) ([]survivor.Team, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	game, err := s.store.GetGame(ctx, entry.GameID)
	if err != nil {
		return nil, err
	}
	if game.Finished() {
		return nil, survivor.ErrGameFinished
	}
	if entry.Status != survivor.EntryActive {
		return nil, survivor.ErrEntryEliminated
	}

	pool, err := s.store.PoolTeams(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	selections, err := s.store.SelectionsByEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	used := make(map[uuid.UUID]bool, 2*len(selections))
	for _, sel := range selections {
		used[sel.Team1ID] = true
		used[sel.Team2ID] = true
	}

	available := make([]survivor.Team, 0, len(pool))
	for _, team := range pool {
		if !used[team.ID] {
			available = append(available, team)
		}
	}
	return available, nil
}

// SubmitPick validates and stores the entry's pick for the round.
// Checks run in a fixed order so callers get a stable rejection for a
// given state. Resubmitting the identical pair is a no-op success;
// replacing a pending pair for the current round is allowed only with
// two entirely fresh teams, the pair being replaced included.
func (s *PickService) SubmitPick(ctx context.Context, entryID uuid.UUID, round int, teamA, teamB uuid.UUID) (*survivor.Selection, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(entry.GameID)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err = s.store.GetEntryTx(ctx, tx, entryID)
	if err != nil {
		return nil, err
	}
	game, err := s.store.GetGameTx(ctx, tx, entry.GameID)
	if err != nil {
		return nil, err
	}

	if game.Finished() {
		return nil, survivor.ErrGameFinished
	}
	if entry.Status != survivor.EntryActive {
		return nil, survivor.ErrEntryEliminated
	}
	if round != game.CurrentRound {
		// A resolved round gets its own rejection; rounds never become
		// current again once resolved, so this check only fires here.
		resolved, err := s.store.RoundResolvedTx(ctx, tx, game.ID, round)
		if err != nil {
			return nil, err
		}
		if resolved {
			return nil, survivor.ErrRoundAlreadyResolved
		}
		return nil, survivor.ErrRoundMismatch
	}
	if teamA == teamB {
		return nil, survivor.ErrDuplicateTeamInPick
	}

	pool, err := s.store.PoolTeamsTx(ctx, tx, game.ID)
	if err != nil {
		return nil, err
	}
	inPool := make(map[uuid.UUID]bool, len(pool))
	for _, t := range pool {
		inPool[t.ID] = true
	}
	if !inPool[teamA] || !inPool[teamB] {
		return nil, survivor.ErrUnknownTeam
	}

	selections, err := s.store.SelectionsByEntryTx(ctx, tx, entryID)
	if err != nil {
		return nil, err
	}

	var current *survivor.Selection
	for i := range selections {
		if selections[i].Round == round {
			current = &selections[i]
		}
	}
	if current != nil && current.SamePair(teamA, teamB) {
		return current, nil
	}

	// The pending pick being replaced counts as used too: only the
	// identical pair resubmission above gets a pass.
	for i := range selections {
		if selections[i].Uses(teamA) || selections[i].Uses(teamB) {
			return nil, survivor.ErrTeamAlreadyUsed
		}
	}

	sel := &survivor.Selection{
		ID:      uuid.New(),
		EntryID: entryID,
		Round:   round,
		Team1ID: teamA,
		Team2ID: teamB,
	}
	if current != nil {
		sel.ID = current.ID
	}

	if err := s.store.UpsertSelectionTx(ctx, tx, sel); err != nil {
		return nil, err
	}

	return sel, tx.Commit()
}
