package http

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"
)

const (
	defaultWaitTimeout = 60 * time.Second
	maxImportBytes     = 2 << 20
)

// API is the JSON surface over the owner-scoped stores and quiz services.
type API struct {
	workspaces  *app.Workspaces
	attempts    *app.AttemptService
	generation  *app.GenerationService
	auth        *Authenticator
	log         *logger.Logger
	waitTimeout time.Duration

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewAPI(workspaces *app.Workspaces, attempts *app.AttemptService, generation *app.GenerationService, auth *Authenticator, waitTimeout time.Duration, log *logger.Logger) *API {
	if log == nil {
		log = logger.Nop()
	}
	if waitTimeout <= 0 {
		waitTimeout = defaultWaitTimeout
	}
	return &API{
		workspaces:  workspaces,
		attempts:    attempts,
		generation:  generation,
		auth:        auth,
		log:         log,
		waitTimeout: waitTimeout,
		rnd:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Handler returns every route wrapped in the identity middleware.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.Register(mux)
	return a.auth.Middleware(mux)
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/notes", a.listNotes)
	mux.HandleFunc("POST /api/notes", a.addNote)
	mux.HandleFunc("DELETE /api/notes", a.clearNotes)
	mux.HandleFunc("POST /api/notes/import", a.importNote)
	mux.HandleFunc("GET /api/notes/export", a.exportNotes)
	mux.HandleFunc("POST /api/notes/demo-quiz", a.demoQuiz)
	mux.HandleFunc("GET /api/notes/{id}", a.getNote)
	mux.HandleFunc("GET /api/notes/{id}/download", a.downloadNote)
	mux.HandleFunc("PUT /api/notes/{id}", a.updateNote)
	mux.HandleFunc("DELETE /api/notes/{id}", a.deleteNote)

	mux.HandleFunc("POST /api/quiz/generate", a.startGeneration)
	mux.HandleFunc("GET /api/quiz/generate/{id}", a.waitGeneration)
	mux.HandleFunc("GET /api/quiz/current", a.currentQuiz)

	mux.HandleFunc("POST /api/attempts", a.startAttempt)
	mux.HandleFunc("GET /api/attempts/{id}", a.attemptState)
	mux.HandleFunc("DELETE /api/attempts/{id}", a.endAttempt)
	mux.HandleFunc("POST /api/attempts/{id}/select", a.selectOption)
	mux.HandleFunc("POST /api/attempts/{id}/confirm", a.confirmAttempt)
	mux.HandleFunc("POST /api/attempts/{id}/retake", a.retakeAttempt)
	mux.HandleFunc("POST /api/attempts/{id}/save", a.saveAttempt)
	mux.HandleFunc("GET /ws", NewWSHandler(a.attempts, a.log).ServeWS)

	mux.HandleFunc("GET /api/leaderboard", a.leaderboard)
	mux.HandleFunc("POST /api/leaderboard", a.addScore)
	mux.HandleFunc("DELETE /api/leaderboard", a.clearLeaderboard)
	mux.HandleFunc("GET /api/leaderboard/summary", a.summary)
	mux.HandleFunc("GET /api/leaderboard/settings", a.settings)
	mux.HandleFunc("PUT /api/leaderboard/settings", a.saveSettings)

	mux.HandleFunc("GET /api/profile", a.auth.RequireVerified(a.profile))
	mux.HandleFunc("PUT /api/profile", a.auth.RequireVerified(a.saveProfile))
	mux.HandleFunc("DELETE /api/profile", a.auth.RequireVerified(a.resetProfile))
	mux.HandleFunc("POST /api/profile/sync", a.auth.RequireVerified(a.syncProfile))
	mux.HandleFunc("POST /api/profile/badges", a.auth.RequireVerified(a.awardBadge))
	mux.HandleFunc("GET /api/profile/stats", a.auth.RequireVerified(a.profileStats))
}

func (a *API) workspace(r *http.Request) *app.Workspace {
	return a.workspaces.For(OwnerFrom(r.Context()))
}

// notes

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (a *API) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := a.workspace(r).Notes.List(r.Context())
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (a *API) addNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	note, err := a.workspace(r).Notes.Add(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// importNote stages an uploaded text file (multipart field "file").
func (a *API) importNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, a.log, errBadRequest)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, a.log, errBadRequest)
		return
	}
	note, err := a.workspace(r).Notes.Import(r.Context(), header.Filename, string(content))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (a *API) exportNotes(w http.ResponseWriter, r *http.Request) {
	raw, err := a.workspace(r).Notes.ExportJSON(r.Context())
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="notes-export.json"`)
	w.Write(raw)
}

func (a *API) clearNotes(w http.ResponseWriter, r *http.Request) {
	if err := a.workspace(r).Notes.Clear(r.Context()); err != nil {
		writeError(w, a.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getNote(w http.ResponseWriter, r *http.Request) {
	note, err := a.workspace(r).Notes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (a *API) downloadNote(w http.ResponseWriter, r *http.Request) {
	note, err := a.workspace(r).Notes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+app.DownloadName(note)+`"`)
	w.Write([]byte(note.Content))
}

func (a *API) updateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	note, err := a.workspace(r).Notes.Update(r.Context(), r.PathValue("id"), req.Title, req.Content)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (a *API) deleteNote(w http.ResponseWriter, r *http.Request) {
	if err := a.workspace(r).Notes.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, a.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) demoQuiz(w http.ResponseWriter, r *http.Request) {
	notes, err := a.workspace(r).Notes.List(r.Context())
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	a.rndMu.Lock()
	questions, err := app.DemoQuiz(notes, a.rnd)
	a.rndMu.Unlock()
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

// generation

func (a *API) startGeneration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	requestID, err := a.generation.Start(r.Context(), OwnerFrom(r.Context()), strings.TrimSpace(req.Query))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"requestId": requestID})
}

// waitGeneration holds the request open until the result is published.
func (a *API) waitGeneration(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.waitTimeout)
	defer cancel()
	quiz, err := a.generation.Wait(ctx, OwnerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (a *API) currentQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, ok, err := a.generation.Current(r.Context(), OwnerFrom(r.Context()))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	if !ok {
		writeError(w, a.log, domain.ErrNoGeneratedQuiz)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// attempts

func (a *API) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	state, err := a.attempts.Start(r.Context(), OwnerFrom(r.Context()), req.Source)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (a *API) attemptState(w http.ResponseWriter, r *http.Request) {
	state, err := a.attempts.State(r.Context(), OwnerFrom(r.Context()), r.PathValue("id"))
	a.writeState(w, state, err)
}

func (a *API) endAttempt(w http.ResponseWriter, r *http.Request) {
	a.attempts.End(r.Context(), OwnerFrom(r.Context()), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) selectOption(w http.ResponseWriter, r *http.Request) {
	var req selectPayload
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	if req.Option == nil {
		writeError(w, a.log, errBadRequest)
		return
	}
	state, err := a.attempts.Select(r.Context(), OwnerFrom(r.Context()), r.PathValue("id"), *req.Option)
	a.writeState(w, state, err)
}

func (a *API) confirmAttempt(w http.ResponseWriter, r *http.Request) {
	state, err := a.attempts.Confirm(r.Context(), OwnerFrom(r.Context()), r.PathValue("id"))
	a.writeState(w, state, err)
}

func (a *API) retakeAttempt(w http.ResponseWriter, r *http.Request) {
	state, err := a.attempts.Retake(r.Context(), OwnerFrom(r.Context()), r.PathValue("id"))
	a.writeState(w, state, err)
}

func (a *API) saveAttempt(w http.ResponseWriter, r *http.Request) {
	var req savePayload
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	entries, err := a.attempts.Save(r.Context(), OwnerFrom(r.Context()), r.PathValue("id"), req.Name, IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) writeState(w http.ResponseWriter, state domain.SessionState, err error) {
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// leaderboard

// leaderboard reads the requested scope, or the saved view preference when none is given.
func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb := a.workspace(r).Leaderboard
	scope := domain.Scope(r.URL.Query().Get("scope"))
	if scope == "" {
		settings, err := lb.Settings(r.Context())
		if err != nil {
			writeError(w, a.log, err)
			return
		}
		scope = settings.Scope
	}
	entries, err := lb.Leaderboard(r.Context(), scope)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scope": scope, "entries": entries})
}

func (a *API) addScore(w http.ResponseWriter, r *http.Request) {
	var in domain.ScoreInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, a.log, err)
		return
	}
	entries, err := a.workspace(r).Leaderboard.AddScore(r.Context(), in, IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, entries)
}

func (a *API) clearLeaderboard(w http.ResponseWriter, r *http.Request) {
	if err := a.workspace(r).Leaderboard.ClearLocal(r.Context()); err != nil {
		writeError(w, a.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.workspace(r).Leaderboard.SummarizePlayer(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) settings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.workspace(r).Leaderboard.Settings(r.Context())
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.LeaderboardSettings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	settings, err := a.workspace(r).Leaderboard.SaveSettings(r.Context(), req)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// profile

func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	p, err := a.workspace(r).Profile.Get(r.Context(), IdentityFrom(r.Context()))
	a.writeProfile(w, p, err)
}

func (a *API) saveProfile(w http.ResponseWriter, r *http.Request) {
	var upd domain.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, a.log, err)
		return
	}
	p, err := a.workspace(r).Profile.Save(r.Context(), upd, IdentityFrom(r.Context()))
	a.writeProfile(w, p, err)
}

func (a *API) resetProfile(w http.ResponseWriter, r *http.Request) {
	if err := a.workspace(r).Profile.Reset(r.Context()); err != nil {
		writeError(w, a.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) syncProfile(w http.ResponseWriter, r *http.Request) {
	p, err := a.workspace(r).Profile.EnsureFromIdentity(r.Context(), IdentityFrom(r.Context()))
	a.writeProfile(w, p, err)
}

func (a *API) awardBadge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Badge string `json:"badge"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	if strings.TrimSpace(req.Badge) == "" {
		writeError(w, a.log, errBadRequest)
		return
	}
	p, err := a.workspace(r).Profile.AwardBadge(r.Context(), req.Badge, IdentityFrom(r.Context()))
	a.writeProfile(w, p, err)
}

// profileStats summarizes the local entries that belong to the caller's profile.
func (a *API) profileStats(w http.ResponseWriter, r *http.Request) {
	ws := a.workspace(r)
	p, err := ws.Profile.Get(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	entries, err := ws.Leaderboard.Local(r.Context())
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	mine := app.PersonalEntries(p, entries)
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":   app.ComputeStats(mine),
		"entries": mine,
	})
}

func (a *API) writeProfile(w http.ResponseWriter, p domain.Profile, err error) {
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
