package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/vbondar/survivor-pool/internal/store"
	"github.com/vbondar/survivor-pool/internal/survivor"
	users "github.com/vbondar/survivor-pool/internal/user"
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

type testEnv struct {
	db      *sqlx.DB
	store   *store.GameStore
	games   *GameService
	picks   *PickService
	results *ResultService
	users   *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	gameStore := store.NewGameStore(db)
	locks := NewGameLocks()

	return &testEnv{
		db:      db,
		store:   gameStore,
		games:   NewGameService(db, gameStore),
		picks:   NewPickService(db, gameStore, locks),
		results: NewResultService(db, gameStore, locks),
		users:   NewUserService(db, store.NewUserStore(db), AdminConfig{}),
	}
}

func toStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func mustParse(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

var nextTgID atomic.Int64

func (e *testEnv) createUser(t *testing.T) *users.User {
	t.Helper()
	user, err := e.users.FindOrCreateTelegramUser(context.Background(), nextTgID.Add(1), "tester")
	require.NoError(t, err)
	return user
}

// createGame sets up a game with a pool and one active entry, the shape
// almost every scenario starts from.
func (e *testEnv) createGame(t *testing.T, roundsTotal int, teamNames ...string) (*survivor.Game, map[string]uuid.UUID, *survivor.Entry) {
	t.Helper()
	ctx := context.Background()

	game, err := e.games.CreateGame(ctx, "Premier League Survivor", roundsTotal)
	require.NoError(t, err)

	teams, err := e.games.AddTeams(ctx, game.ID, teamNames)
	require.NoError(t, err)
	require.Len(t, teams, len(teamNames))

	byName := make(map[string]uuid.UUID, len(teams))
	for _, team := range teams {
		byName[team.Name] = team.ID
	}

	user := e.createUser(t)
	entry, err := e.games.AddEntry(ctx, game.ID, user.ID)
	require.NoError(t, err)

	return game, byName, entry
}
