package survivor

import "errors"

// Rejection errors returned to callers. Each one refuses a single call
// without touching stored state; the front-end owns the user-facing
// phrasing.
var (
	ErrEntryEliminated      = errors.New("entry is already out")
	ErrRoundMismatch        = errors.New("round is not the game's current round")
	ErrDuplicateTeamInPick  = errors.New("pick must name two different teams")
	ErrUnknownTeam          = errors.New("team is not in the game's pool")
	ErrTeamAlreadyUsed      = errors.New("team was already used by this entry")
	ErrRoundAlreadyResolved = errors.New("round results were already processed")
	ErrGameFinished         = errors.New("game is finished")
)
