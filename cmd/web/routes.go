package main

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
	"github.com/vbondar/survivor-pool/internal/db"
	"github.com/vbondar/survivor-pool/internal/httputil"
	"github.com/vbondar/survivor-pool/internal/middleware"
	"github.com/vbondar/survivor-pool/internal/service"
	"github.com/vbondar/survivor-pool/internal/store"
	"github.com/vbondar/survivor-pool/internal/survivor"
	"github.com/vbondar/survivor-pool/internal/telegram"
)

type entryItem struct {
	EntryID      uuid.UUID            `json:"entry_id"`
	GameID       uuid.UUID            `json:"game_id"`
	GameTitle    string               `json:"game_title"`
	CurrentRound int                  `json:"current_round"`
	RoundsTotal  int                  `json:"rounds_total"`
	Status       survivor.EntryStatus `json:"status"`
	GameStatus   survivor.GameStatus  `json:"game_status"`
}

type teamItem struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type fixtureItem struct {
	ID        uuid.UUID `json:"id"`
	Home      string    `json:"home"`
	Away      string    `json:"away"`
	HomeGoals *int      `json:"home_goals"`
	AwayGoals *int      `json:"away_goals"`
}

func newRouter(sessionManager *scs.SessionManager) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)

	locks := service.NewGameLocks()
	botToken := os.Getenv("BOT_TOKEN")
	adminTgID, _ := strconv.ParseInt(os.Getenv("ADMIN_TG_ID"), 10, 64)
	admins := service.AdminConfig{TgID: adminTgID, Email: os.Getenv("ADMIN_EMAIL")}

	dbConn := db.GetDB()
	userStore := store.NewUserStore(dbConn)
	userService := service.NewUserService(dbConn, userStore, admins)

	// Mini App pages are static; all dynamic data goes over the JSON API.
	fileServer := http.FileServer(http.Dir("./webapp"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	r.Get("/app", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./webapp/app.html")
	})
	r.Get("/select_teams", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./webapp/select_teams.html")
	})
	r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./webapp/login.html")
	})

	// Mini App API: every call carries Telegram initData.
	r.Group(func(r chi.Router) {
		r.Use(telegram.RequireUser(botToken, userService))

		r.Get("/api/me", func(w http.ResponseWriter, r *http.Request) {
			user := middleware.GetAuthenticatedUser(r.Context())
			gameService := service.NewGameService(dbConn, store.NewGameStore(dbConn))

			entries, err := gameService.EntriesForUser(r.Context(), user.ID)
			if err != nil {
				httputil.InternalServerError(w, "Failed to list entries", err)
				return
			}

			items := make([]entryItem, 0, len(entries))
			for _, e := range entries {
				items = append(items, entryItem{
					EntryID:      e.ID,
					GameID:       e.GameID,
					GameTitle:    e.GameTitle,
					CurrentRound: e.CurrentRound,
					RoundsTotal:  e.RoundsTotal,
					Status:       e.Status,
					GameStatus:   e.GameStatus,
				})
			}
			httputil.JSON(w, http.StatusOK, map[string]any{
				"user_id":  user.ID,
				"username": user.Username,
				"is_admin": user.IsAdmin,
				"entries":  items,
			})
		})

		r.Get("/api/teams/available", func(w http.ResponseWriter, r *http.Request) {
			entryID, err := uuid.Parse(r.URL.Query().Get("entry_id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid entry ID", err)
				return
			}

			gameStore := store.NewGameStore(dbConn)
			if !ownsEntry(w, r, gameStore, entryID) {
				return
			}

			pickService := service.NewPickService(dbConn, gameStore, locks)
			teams, err := pickService.AvailableTeams(r.Context(), entryID)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}

			items := make([]teamItem, 0, len(teams))
			for _, t := range teams {
				items = append(items, teamItem{ID: t.ID, Name: t.Name})
			}
			httputil.JSON(w, http.StatusOK, items)
		})

		r.Get("/api/entries/{id}/round", func(w http.ResponseWriter, r *http.Request) {
			entryID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid entry ID", err)
				return
			}

			gameStore := store.NewGameStore(dbConn)
			if !ownsEntry(w, r, gameStore, entryID) {
				return
			}

			entry, err := gameStore.GetEntry(r.Context(), entryID)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}
			game, err := gameStore.GetGame(r.Context(), entry.GameID)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}

			httputil.JSON(w, http.StatusOK, map[string]any{
				"entry_id":      entryID,
				"game_id":       game.ID,
				"current_round": game.CurrentRound,
				"rounds_total":  game.RoundsTotal,
				"game_status":   game.Status,
			})
		})

		r.Get("/api/entries/{id}/fixtures", func(w http.ResponseWriter, r *http.Request) {
			entryID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid entry ID", err)
				return
			}

			gameStore := store.NewGameStore(dbConn)
			if !ownsEntry(w, r, gameStore, entryID) {
				return
			}

			entry, err := gameStore.GetEntry(r.Context(), entryID)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}
			game, err := gameStore.GetGame(r.Context(), entry.GameID)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}

			gameService := service.NewGameService(dbConn, gameStore)
			fixtures, err := gameService.RoundFixtures(r.Context(), game.ID, game.CurrentRound)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}

			httputil.JSON(w, http.StatusOK, map[string]any{
				"round":    game.CurrentRound,
				"fixtures": fixtureItems(fixtures),
			})
		})

		r.Post("/api/selection", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				EntryID uuid.UUID `json:"entry_id"`
				Round   int       `json:"round"`
				Team1ID uuid.UUID `json:"team1_id"`
				Team2ID uuid.UUID `json:"team2_id"`
			}
			if err := httputil.DecodeJSON(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			gameStore := store.NewGameStore(dbConn)
			if !ownsEntry(w, r, gameStore, body.EntryID) {
				return
			}

			pickService := service.NewPickService(dbConn, gameStore, locks)
			sel, err := pickService.SubmitPick(r.Context(), body.EntryID, body.Round, body.Team1ID, body.Team2ID)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}

			httputil.JSON(w, http.StatusOK, map[string]any{
				"selection_id": sel.ID,
				"round":        sel.Round,
				"team1_id":     sel.Team1ID,
				"team2_id":     sel.Team2ID,
			})
		})
	})

	// Dashboard API: session-authenticated admins only.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(sessionManager, userStore))

		r.Post("/api/games", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Title       string `json:"title"`
				RoundsTotal int    `json:"rounds_total"`
			}
			if err := httputil.DecodeJSON(r, &body); err != nil || body.Title == "" {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			gameService := service.NewGameService(dbConn, store.NewGameStore(dbConn))
			game, err := gameService.CreateGame(r.Context(), body.Title, body.RoundsTotal)
			if err != nil {
				httputil.InternalServerError(w, "Failed to create game", err)
				return
			}
			httputil.JSON(w, http.StatusCreated, game)
		})

		r.Get("/api/games/{id}", func(w http.ResponseWriter, r *http.Request) {
			gameID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid game ID", err)
				return
			}

			gameService := service.NewGameService(dbConn, store.NewGameStore(dbConn))
			summary, err := gameService.Summary(r.Context(), gameID)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]any{
				"game":           summary.Game,
				"pool_size":      summary.PoolSize,
				"active_entries": summary.ActiveEntries,
				"out_entries":    summary.OutEntries,
			})
		})

		r.Post("/api/games/{id}/teams", func(w http.ResponseWriter, r *http.Request) {
			gameID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid game ID", err)
				return
			}
			var body struct {
				Names []string `json:"names"`
			}
			if err := httputil.DecodeJSON(r, &body); err != nil || len(body.Names) == 0 {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			gameService := service.NewGameService(dbConn, store.NewGameStore(dbConn))
			teams, err := gameService.AddTeams(r.Context(), gameID, body.Names)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}

			items := make([]teamItem, 0, len(teams))
			for _, t := range teams {
				items = append(items, teamItem{ID: t.ID, Name: t.Name})
			}
			httputil.JSON(w, http.StatusCreated, items)
		})

		r.Post("/api/games/{id}/fixtures", func(w http.ResponseWriter, r *http.Request) {
			gameID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid game ID", err)
				return
			}
			var body struct {
				Round    int      `json:"round"`
				Fixtures []string `json:"fixtures"`
			}
			if err := httputil.DecodeJSON(r, &body); err != nil || body.Round < 1 {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			gameService := service.NewGameService(dbConn, store.NewGameStore(dbConn))
			added, err := gameService.AddFixtures(r.Context(), gameID, body.Round, body.Fixtures)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, map[string]int{"added": added})
		})

		r.Get("/api/games/{id}/fixtures", func(w http.ResponseWriter, r *http.Request) {
			gameID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid game ID", err)
				return
			}
			round, err := strconv.Atoi(r.URL.Query().Get("round"))
			if err != nil || round < 1 {
				httputil.BadRequest(w, "Invalid round", err)
				return
			}

			gameService := service.NewGameService(dbConn, store.NewGameStore(dbConn))
			fixtures, err := gameService.RoundFixtures(r.Context(), gameID, round)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, fixtureItems(fixtures))
		})

		r.Post("/api/games/{id}/results", func(w http.ResponseWriter, r *http.Request) {
			gameID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid game ID", err)
				return
			}
			var body struct {
				Round   int            `json:"round"`
				Scores  map[string]int `json:"scores"`
				Results string         `json:"results"`
			}
			if err := httputil.DecodeJSON(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			scores := body.Scores
			if len(scores) == 0 {
				scores = service.ParseScores(body.Results)
			}
			if len(scores) == 0 {
				httputil.BadRequest(w, "No team:score pairs provided", nil)
				return
			}

			resultService := service.NewResultService(dbConn, store.NewGameStore(dbConn), locks)
			outcome, err := resultService.SubmitResults(r.Context(), gameID, body.Round, scores)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]any{
				"round":       outcome.Round,
				"game_status": outcome.GameStatus,
				"eliminated":  outcome.Eliminated,
				"survived":    outcome.Survived,
			})
		})

		r.Get("/api/games/{id}/results", func(w http.ResponseWriter, r *http.Request) {
			gameID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid game ID", err)
				return
			}
			round, err := strconv.Atoi(r.URL.Query().Get("round"))
			if err != nil || round < 1 {
				httputil.BadRequest(w, "Invalid round", err)
				return
			}

			resultService := service.NewResultService(dbConn, store.NewGameStore(dbConn), locks)
			result, err := resultService.RoundResult(r.Context(), gameID, round)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]any{
				"round":            result.Round,
				"eliminated_count": result.EliminatedCount,
				"processed_at":     result.ProcessedAt,
			})
		})

		r.Post("/api/entries", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				GameID   uuid.UUID `json:"game_id"`
				TgID     int64     `json:"tg_id"`
				Username string    `json:"username"`
			}
			if err := httputil.DecodeJSON(r, &body); err != nil || body.TgID == 0 {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			user, err := userService.FindOrCreateTelegramUser(r.Context(), body.TgID, body.Username)
			if err != nil {
				httputil.InternalServerError(w, "Failed to resolve user", err)
				return
			}

			gameService := service.NewGameService(dbConn, store.NewGameStore(dbConn))
			entry, err := gameService.AddEntry(r.Context(), body.GameID, user.ID)
			if err != nil {
				httputil.DomainError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, entry)
		})
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := userService.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create user", err)
			return
		}

		sessionManager.Put(r.Context(), "userID", user.ID.String())

		http.Redirect(w, r, "/app", http.StatusFound)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		sessionManager.Destroy(r.Context())
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	return r
}

// ownsEntry rejects calls against someone else's entry. Missing entries
// read as not found either way.
func ownsEntry(w http.ResponseWriter, r *http.Request, gameStore *store.GameStore, entryID uuid.UUID) bool {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}

	entry, err := gameStore.GetEntry(r.Context(), entryID)
	if err != nil {
		httputil.DomainError(w, err)
		return false
	}
	if entry.UserID != userID {
		httputil.NotFound(w, "Entry not found", nil)
		return false
	}
	return true
}

func fixtureItems(fixtures []survivor.FixtureView) []fixtureItem {
	items := make([]fixtureItem, 0, len(fixtures))
	for _, f := range fixtures {
		items = append(items, fixtureItem{
			ID:        f.ID,
			Home:      f.HomeName,
			Away:      f.AwayName,
			HomeGoals: f.HomeGoals,
			AwayGoals: f.AwayGoals,
		})
	}
	return items
}
