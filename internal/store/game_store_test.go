package store

import (
	"context"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbondar/survivor-pool/internal/survivor"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// Every pooled connection would get its own empty in-memory DB.
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

func createTestUser(t *testing.T, db *sqlx.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	db.MustExec("INSERT INTO users (id, username) VALUES (?, ?)", id, "tester")
	return id
}

func createTestGame(t *testing.T, db *sqlx.DB, store *GameStore, roundsTotal int) *survivor.Game {
	t.Helper()
	game := &survivor.Game{
		ID:           uuid.New(),
		Title:        "Test Game",
		RoundsTotal:  roundsTotal,
		CurrentRound: 1,
		Status:       survivor.GameActive,
	}

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateGame(context.Background(), tx, game))
	require.NoError(t, tx.Commit())
	return game
}

func addTestTeams(t *testing.T, db *sqlx.DB, store *GameStore, gameID uuid.UUID, names ...string) []survivor.Team {
	t.Helper()
	ctx := context.Background()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	teams := make([]survivor.Team, 0, len(names))
	for i, name := range names {
		team := survivor.Team{ID: uuid.New(), Name: name}
		require.NoError(t, store.CreateTeamTx(ctx, tx, &team))
		require.NoError(t, store.AddPoolTeamTx(ctx, tx, gameID, team.ID, i))
		teams = append(teams, team)
	}
	require.NoError(t, tx.Commit())
	return teams
}

func createTestEntry(t *testing.T, db *sqlx.DB, store *GameStore, gameID, userID uuid.UUID) *survivor.Entry {
	t.Helper()
	entry := &survivor.Entry{
		ID:     uuid.New(),
		GameID: gameID,
		UserID: userID,
		Status: survivor.EntryActive,
	}

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateEntryTx(context.Background(), tx, entry))
	require.NoError(t, tx.Commit())
	return entry
}

func TestCreateGameAndPool(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewGameStore(db)
	game := createTestGame(t, db, store, 10)
	addTestTeams(t, db, store, game.ID, "Arsenal", "Chelsea", "ManCity")

	fetched, err := store.GetGame(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.ID, fetched.ID)
	assert.Equal(t, "Test Game", fetched.Title)
	assert.Equal(t, 10, fetched.RoundsTotal)
	assert.Equal(t, 1, fetched.CurrentRound)
	assert.Equal(t, survivor.GameActive, fetched.Status)

	pool, err := store.PoolTeams(context.Background(), game.ID)
	require.NoError(t, err)
	require.Len(t, pool, 3)
	assert.Equal(t, "Arsenal", pool[0].Name)
	assert.Equal(t, "Chelsea", pool[1].Name)
	assert.Equal(t, "ManCity", pool[2].Name)
}

func TestUpsertSelectionReplacesPendingPick(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewGameStore(db)
	ctx := context.Background()

	game := createTestGame(t, db, store, 10)
	teams := addTestTeams(t, db, store, game.ID, "A", "B", "C", "D")
	userID := createTestUser(t, db)
	entry := createTestEntry(t, db, store, game.ID, userID)

	first := &survivor.Selection{
		ID: uuid.New(), EntryID: entry.ID, Round: 1,
		Team1ID: teams[0].ID, Team2ID: teams[1].ID,
	}
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.UpsertSelectionTx(ctx, tx, first))
	require.NoError(t, tx.Commit())

	replacement := &survivor.Selection{
		ID: uuid.New(), EntryID: entry.ID, Round: 1,
		Team1ID: teams[2].ID, Team2ID: teams[3].ID,
	}
	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.UpsertSelectionTx(ctx, tx, replacement))
	require.NoError(t, tx.Commit())

	sels, err := store.SelectionsByEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, sels, 1, "upsert must not create a second selection for the round")
	assert.Equal(t, first.ID, sels[0].ID, "the stored row keeps its original id")
	assert.Equal(t, teams[2].ID, sels[0].Team1ID)
	assert.Equal(t, teams[3].ID, sels[0].Team2ID)
}

func TestEliminateEntriesAndCounts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewGameStore(db)
	ctx := context.Background()

	game := createTestGame(t, db, store, 10)
	userID := createTestUser(t, db)

	e1 := createTestEntry(t, db, store, game.ID, userID)
	e2 := createTestEntry(t, db, store, game.ID, userID)
	e3 := createTestEntry(t, db, store, game.ID, userID)

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.EliminateEntriesTx(ctx, tx, []uuid.UUID{e1.ID, e2.ID}))
	require.NoError(t, tx.Commit())

	active, out, err := store.EntryCounts(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
	assert.Equal(t, 2, out)

	fetched, err := store.GetEntry(ctx, e3.ID)
	require.NoError(t, err)
	assert.Equal(t, survivor.EntryActive, fetched.Status)
}

func TestEntriesForUserProjection(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewGameStore(db)
	ctx := context.Background()

	game := createTestGame(t, db, store, 10)
	userID := createTestUser(t, db)
	otherID := createTestUser(t, db)

	entry := createTestEntry(t, db, store, game.ID, userID)
	createTestEntry(t, db, store, game.ID, otherID)

	entries, err := store.EntriesForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, "Test Game", entries[0].GameTitle)
	assert.Equal(t, 1, entries[0].CurrentRound)
	assert.Equal(t, 10, entries[0].RoundsTotal)
	assert.Equal(t, survivor.GameActive, entries[0].GameStatus)
}

func TestRoundResultOncePerRound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewGameStore(db)
	ctx := context.Background()

	game := createTestGame(t, db, store, 10)

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	resolved, err := store.RoundResolvedTx(ctx, tx, game.ID, 1)
	require.NoError(t, err)
	assert.False(t, resolved)

	require.NoError(t, store.CreateRoundResultTx(ctx, tx, &survivor.RoundResult{GameID: game.ID, Round: 1, EliminatedCount: 2}))
	require.NoError(t, tx.Commit())

	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	resolved, err = store.RoundResolvedTx(ctx, tx, game.ID, 1)
	require.NoError(t, err)
	assert.True(t, resolved)

	err = store.CreateRoundResultTx(ctx, tx, &survivor.RoundResult{GameID: game.ID, Round: 1})
	assert.Error(t, err, "a round can only be recorded as resolved once")
}
