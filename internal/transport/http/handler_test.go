package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/infra/memory"
)

const testSecret = "test-secret"

type payloadGenerator []byte

func (g payloadGenerator) Generate(context.Context, string, []domain.Note) ([]byte, error) {
	return g, nil
}

func newTestServer(t *testing.T, requireVerified bool) *httptest.Server {
	t.Helper()
	docs := memory.NewDocumentStore(0)
	ws := app.NewWorkspaces(docs, 0, nil)
	cache := app.NewQuizCache(docs, memory.NewDocumentStore(time.Minute), nil)
	attempts := app.NewAttemptService(memory.NewSessionStore(), cache, ws, nil)
	gen := payloadGenerator(`{"questions":[{"question":"2+2?","options":["3","4"],"answer":1}],"difficulty":"Easy"}`)
	generation := app.NewGenerationService(gen, ws, cache, nil)
	auth := NewAuthenticator(testSecret, "", requireVerified, nil)

	server := httptest.NewServer(NewAPI(ws, attempts, generation, auth, 2*time.Second, nil).Handler())
	t.Cleanup(server.Close)
	return server
}

type client struct {
	t       *testing.T
	base    string
	headers map[string]string
}

func (c client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

func (c client) expect(method, path string, body any, status int, dst any) {
	c.t.Helper()
	resp, raw := c.do(method, path, body)
	if resp.StatusCode != status {
		c.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, resp.StatusCode, raw)
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			c.t.Fatalf("decode %s: %v", raw, err)
		}
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, false)
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNotesEndpoints(t *testing.T) {
	server := newTestServer(t, false)
	c := client{t: t, base: server.URL, headers: map[string]string{"X-Client-ID": "tab-1"}}

	var note domain.Note
	c.expect(http.MethodPost, "/api/notes", noteRequest{Title: "Cells", Content: "Cells are small."}, http.StatusCreated, &note)
	c.expect(http.MethodPost, "/api/notes", noteRequest{Content: "   "}, http.StatusBadRequest, nil)

	var notes []domain.Note
	c.expect(http.MethodGet, "/api/notes", nil, http.StatusOK, &notes)
	if len(notes) != 1 || notes[0].ID != note.ID {
		t.Fatalf("unexpected notes %+v", notes)
	}

	var updated domain.Note
	c.expect(http.MethodPut, "/api/notes/"+note.ID, noteRequest{Content: "Cells are very small."}, http.StatusOK, &updated)
	if updated.Title != "Cells" || updated.WordCount != 4 {
		t.Fatalf("unexpected update %+v", updated)
	}

	resp, body := c.do(http.MethodGet, "/api/notes/"+note.ID+"/download", nil)
	if resp.StatusCode != http.StatusOK || string(body) != "Cells are very small." {
		t.Fatalf("unexpected download %d %q", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Cells.txt") {
		t.Fatalf("unexpected disposition %q", cd)
	}

	resp, body = c.do(http.MethodGet, "/api/notes/export", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), note.ID) {
		t.Fatalf("unexpected export %d %s", resp.StatusCode, body)
	}

	other := client{t: t, base: server.URL, headers: map[string]string{"X-Client-ID": "tab-2"}}
	other.expect(http.MethodGet, "/api/notes/"+note.ID, nil, http.StatusNotFound, nil)

	c.expect(http.MethodDelete, "/api/notes/"+note.ID, nil, http.StatusNoContent, nil)
	c.expect(http.MethodDelete, "/api/notes/"+note.ID, nil, http.StatusNotFound, nil)
}

func TestImportNote(t *testing.T) {
	server := newTestServer(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "lecture.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("Enzymes speed up chemical reactions in the body."))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/notes/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	defer resp.Body.Close()
	var note domain.Note
	if err := json.NewDecoder(resp.Body).Decode(&note); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusCreated || note.Title != "lecture.txt" || note.WordCount != 8 {
		t.Fatalf("unexpected import %d %+v", resp.StatusCode, note)
	}
}

func TestDemoQuizEndpoint(t *testing.T) {
	server := newTestServer(t, false)
	c := client{t: t, base: server.URL}

	c.expect(http.MethodPost, "/api/notes/demo-quiz", nil, http.StatusBadRequest, nil)
	c.expect(http.MethodPost, "/api/notes", noteRequest{Content: "Mitochondria produce most of the energy a cell needs."}, http.StatusCreated, nil)

	var out struct {
		Questions []domain.Question `json:"questions"`
	}
	c.expect(http.MethodPost, "/api/notes/demo-quiz", nil, http.StatusOK, &out)
	if len(out.Questions) != 1 || len(out.Questions[0].Options) != 4 {
		t.Fatalf("unexpected demo quiz %+v", out)
	}
}

func TestGenerateThenAttempt(t *testing.T) {
	server := newTestServer(t, false)
	c := client{t: t, base: server.URL, headers: map[string]string{"X-Client-ID": "tab-1"}}

	c.expect(http.MethodPost, "/api/quiz/generate", map[string]string{"query": "math"}, http.StatusBadRequest, nil)
	c.expect(http.MethodGet, "/api/quiz/current", nil, http.StatusNotFound, nil)
	c.expect(http.MethodPost, "/api/notes", noteRequest{Content: "Two plus two equals four."}, http.StatusCreated, nil)

	var started struct {
		RequestID string `json:"requestId"`
	}
	c.expect(http.MethodPost, "/api/quiz/generate", map[string]string{"query": "math"}, http.StatusAccepted, &started)

	var quiz domain.GeneratedQuiz
	c.expect(http.MethodGet, "/api/quiz/generate/"+started.RequestID, nil, http.StatusOK, &quiz)
	if quiz.RequestID != started.RequestID || len(quiz.Questions) != 1 || quiz.Meta.Difficulty != "Easy" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}

	var state domain.SessionState
	c.expect(http.MethodPost, "/api/attempts", map[string]string{"source": "generated"}, http.StatusCreated, &state)
	if state.Total != 1 || state.Prompt != "2+2?" {
		t.Fatalf("unexpected attempt %+v", state)
	}
	base := "/api/attempts/" + state.ID
	c.expect(http.MethodPost, base+"/confirm", nil, http.StatusConflict, nil)
	c.expect(http.MethodPost, base+"/select", map[string]int{"option": 9}, http.StatusBadRequest, nil)
	c.expect(http.MethodPost, base+"/select", map[string]int{"option": 1}, http.StatusOK, &state)
	c.expect(http.MethodPost, base+"/confirm", nil, http.StatusOK, &state)
	if !state.Finished || state.Score != 1 {
		t.Fatalf("expected finished attempt, got %+v", state)
	}

	var entries []domain.LeaderboardEntry
	c.expect(http.MethodPost, base+"/save", savePayload{Name: "Ada"}, http.StatusOK, &entries)
	if len(entries) != 1 || entries[0].Name != "Ada" || entries[0].Difficulty != "Easy" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	c.expect(http.MethodPost, base+"/save", savePayload{Name: "Ada"}, http.StatusConflict, nil)

	var board struct {
		Scope   domain.Scope              `json:"scope"`
		Entries []domain.LeaderboardEntry `json:"entries"`
	}
	c.expect(http.MethodGet, "/api/leaderboard", nil, http.StatusOK, &board)
	if board.Scope != domain.ScopeLocal || len(board.Entries) != 1 {
		t.Fatalf("unexpected board %+v", board)
	}

	c.expect(http.MethodDelete, base, nil, http.StatusNoContent, nil)
	c.expect(http.MethodGet, base, nil, http.StatusNotFound, nil)
}

func TestLeaderboardEndpoints(t *testing.T) {
	server := newTestServer(t, false)
	c := client{t: t, base: server.URL}

	var entries []domain.LeaderboardEntry
	c.expect(http.MethodPost, "/api/leaderboard", map[string]any{"name": "Bo", "score": 7, "total": 10, "difficulty": "Hard"}, http.StatusCreated, &entries)
	if len(entries) != 1 || entries[0].Score != 7 {
		t.Fatalf("unexpected entries %+v", entries)
	}

	var summary domain.PlayerSummary
	c.expect(http.MethodGet, "/api/leaderboard/summary?name=Bo", nil, http.StatusOK, &summary)
	if summary.TotalGames != 1 || summary.AverageScore != 70 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	var settings domain.LeaderboardSettings
	c.expect(http.MethodPut, "/api/leaderboard/settings", map[string]string{"scope": "global"}, http.StatusOK, &settings)
	c.expect(http.MethodPut, "/api/leaderboard/settings", map[string]string{"scope": "weekly"}, http.StatusBadRequest, nil)

	var board struct {
		Scope   domain.Scope              `json:"scope"`
		Entries []domain.LeaderboardEntry `json:"entries"`
	}
	c.expect(http.MethodGet, "/api/leaderboard", nil, http.StatusOK, &board)
	if board.Scope != domain.ScopeGlobal || len(board.Entries) != 5 {
		t.Fatalf("expected saved global view, got %+v", board)
	}
	c.expect(http.MethodGet, "/api/leaderboard?scope=bogus", nil, http.StatusBadRequest, nil)

	c.expect(http.MethodDelete, "/api/leaderboard", nil, http.StatusNoContent, nil)
	c.expect(http.MethodGet, "/api/leaderboard?scope=local", nil, http.StatusOK, &board)
	if len(board.Entries) != 0 {
		t.Fatalf("expected cleared local board, got %+v", board.Entries)
	}

	var profile domain.Profile
	c.expect(http.MethodGet, "/api/profile", nil, http.StatusOK, &profile)
	if profile.XP != 84 {
		t.Fatalf("expected score to feed the profile, got %+v", profile)
	}
}

func TestProfileRequiresVerifiedEmail(t *testing.T) {
	server := newTestServer(t, true)

	guest := client{t: t, base: server.URL}
	guest.expect(http.MethodGet, "/api/profile", nil, http.StatusUnauthorized, nil)

	unverified := signedClient(t, server.URL, domain.Identity{Email: "kim@example.com"})
	unverified.expect(http.MethodGet, "/api/profile", nil, http.StatusForbidden, nil)

	forged := client{t: t, base: server.URL, headers: map[string]string{"Authorization": "Bearer not.a.token"}}
	forged.expect(http.MethodGet, "/api/leaderboard", nil, http.StatusUnauthorized, nil)

	verified := signedClient(t, server.URL, domain.Identity{GivenName: "kim", Email: "Kim@Example.com", EmailVerified: true})
	var profile domain.Profile
	verified.expect(http.MethodPost, "/api/profile/sync", nil, http.StatusOK, &profile)
	if profile.DisplayName != "Kim" || profile.Email != "Kim@Example.com" {
		t.Fatalf("unexpected synced profile %+v", profile)
	}

	bio := "Loves biology"
	verified.expect(http.MethodPut, "/api/profile", domain.ProfileUpdate{Bio: &bio}, http.StatusOK, &profile)
	if profile.Bio != bio {
		t.Fatalf("expected bio saved, got %+v", profile)
	}
	tooBig := "data:image/png;base64," + strings.Repeat("A", 400*1024)
	verified.expect(http.MethodPut, "/api/profile", domain.ProfileUpdate{AvatarDataURL: &tooBig}, http.StatusRequestEntityTooLarge, nil)

	verified.expect(http.MethodPost, "/api/profile/badges", map[string]string{"badge": "Night Owl"}, http.StatusOK, &profile)
	if !profile.HasBadge("Night Owl") {
		t.Fatalf("expected badge, got %v", profile.Badges)
	}

	verified.expect(http.MethodPost, "/api/leaderboard", map[string]any{"score": 3, "total": 4}, http.StatusCreated, nil)
	var stats struct {
		Stats   domain.ProfileStats       `json:"stats"`
		Entries []domain.LeaderboardEntry `json:"entries"`
	}
	verified.expect(http.MethodGet, "/api/profile/stats", nil, http.StatusOK, &stats)
	if stats.Stats.TotalQuizzes != 1 || stats.Stats.AverageScore != 75 || stats.Entries[0].Name != "Kim" {
		t.Fatalf("unexpected stats %+v", stats)
	}

	verified.expect(http.MethodDelete, "/api/profile", nil, http.StatusNoContent, nil)
}

func signedClient(t *testing.T, base string, id domain.Identity) client {
	t.Helper()
	token, err := SignIdentity(testSecret, "", id, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return client{t: t, base: base, headers: map[string]string{"Authorization": "Bearer " + token}}
}
