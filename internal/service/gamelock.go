package service

import (
	"sync"

	"github.com/google/uuid"
)

// GameLocks serializes pick submission and result processing per game.
// Different games never contend with each other.
type GameLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewGameLocks() *GameLocks {
	return &GameLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the game's mutex and returns its unlock func. Callers
// must release on every exit path, including failures.
func (l *GameLocks) Lock(gameID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[gameID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[gameID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
