package httputil

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vbondar/survivor-pool/internal/survivor"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	http.Error(w, msg, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	http.Error(w, msg, http.StatusNotFound)
}

// DomainError maps engine rejections onto statuses: conflicts with
// already-settled state get 409, other caller mistakes 400, missing
// records 404, anything unexpected 500.
func DomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, survivor.ErrRoundAlreadyResolved), errors.Is(err, survivor.ErrGameFinished):
		slog.Warn("rejected request", "error", err)
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, survivor.ErrEntryEliminated),
		errors.Is(err, survivor.ErrRoundMismatch),
		errors.Is(err, survivor.ErrDuplicateTeamInPick),
		errors.Is(err, survivor.ErrUnknownTeam),
		errors.Is(err, survivor.ErrTeamAlreadyUsed):
		slog.Warn("rejected request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, sql.ErrNoRows):
		NotFound(w, "not found", err)
	default:
		InternalServerError(w, "request failed", err)
	}
}
