package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/snake-duel/internal/multiplayer"
	"github.com/vovakirdan/snake-duel/internal/realtime"
	"github.com/vovakirdan/snake-duel/internal/storage"
)

type fixture struct {
	router *gin.Engine
	scores *storage.BestEffort
	lobby  *multiplayer.Lobby
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard)

	store, err := storage.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	scores := storage.NewBestEffort(store, logger)
	lobby := multiplayer.NewLobby(realtime.NewMemoryStore(), realtime.NewMemoryLocker(),
		multiplayer.WithLobbyLogger(logger))
	return fixture{router: NewRouter(scores, lobby, logger), scores: scores, lobby: lobby}
}

func (f fixture) do(t *testing.T, method, target string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (%s)", target, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	var body map[string]string
	if code := f.do(t, http.MethodGet, "/healthz", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestScores(t *testing.T) {
	f := newFixture(t)
	f.scores.SaveScore(storage.HighScoreEntry{PlayerName: "ann", Score: 40, Difficulty: "easy"})
	f.scores.SaveScore(storage.HighScoreEntry{PlayerName: "bob", Score: 90, Difficulty: "hard"})
	f.scores.SaveScore(storage.HighScoreEntry{PlayerName: "cid", Score: 60, Difficulty: "easy"})

	var body struct {
		Scores []scoreView `json:"scores"`
	}

	tests := []struct {
		name   string
		target string
		want   []int
	}{
		{"all", "/scores", []int{90, 60, 40}},
		{"by difficulty", "/scores?difficulty=easy", []int{60, 40}},
		{"limited", "/scores?limit=1", []int{90}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body.Scores = nil
			if code := f.do(t, http.MethodGet, tc.target, &body); code != http.StatusOK {
				t.Fatalf("status = %d", code)
			}
			if len(body.Scores) != len(tc.want) {
				t.Fatalf("got %d scores, expected %d", len(body.Scores), len(tc.want))
			}
			for i, s := range body.Scores {
				if s.Score != tc.want[i] {
					t.Errorf("score[%d] = %d, expected %d", i, s.Score, tc.want[i])
				}
			}
		})
	}

	if code := f.do(t, http.MethodGet, "/scores?limit=abc", nil); code != http.StatusBadRequest {
		t.Errorf("Bad limit status = %d, expected 400", code)
	}

	if code := f.do(t, http.MethodDelete, "/scores", nil); code != http.StatusOK {
		t.Fatalf("DELETE status = %d", code)
	}
	body.Scores = nil
	f.do(t, http.MethodGet, "/scores", &body)
	if len(body.Scores) != 0 {
		t.Errorf("Expected empty leaderboard after DELETE, got %v", body.Scores)
	}
}

func TestScoresWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard)
	lobby := multiplayer.NewLobby(realtime.NewMemoryStore(), realtime.NewMemoryLocker())
	f := fixture{router: NewRouter(storage.NewBestEffort(nil, logger), lobby, logger)}

	var body struct {
		Scores []scoreView `json:"scores"`
	}
	if code := f.do(t, http.MethodGet, "/scores", &body); code != http.StatusOK {
		t.Errorf("GET status = %d, expected best-effort 200", code)
	}
	if code := f.do(t, http.MethodDelete, "/scores", nil); code != http.StatusServiceUnavailable {
		t.Errorf("DELETE status = %d, expected 503", code)
	}
}

func TestMatches(t *testing.T) {
	f := newFixture(t)
	f.scores.RecordMatch(multiplayer.MatchResult{
		Code:       "ABC123",
		Role:       multiplayer.RoleHost,
		LocalName:  "Ann",
		RemoteName: "Bob",
		LocalScore: 15,
		Verdict:    multiplayer.VerdictWin,
	})

	var body struct {
		Matches []matchView `json:"matches"`
	}
	if code := f.do(t, http.MethodGet, "/matches", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Matches) != 1 || body.Matches[0].Code != "ABC123" || body.Matches[0].Verdict != "win" {
		t.Errorf("matches = %+v", body.Matches)
	}
}

func TestGetRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.lobby.CreateRoom(ctx, multiplayer.NewIdentity("Ann", ""), "hard")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	defer room.Leave(ctx)

	var sess multiplayer.MatchSession
	if code := f.do(t, http.MethodGet, "/rooms/"+room.Code(), &sess); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if sess.Code != room.Code() || sess.Host.Name != "Ann" || sess.Status != multiplayer.StatusWaiting || sess.Difficulty != "hard" {
		t.Errorf("room = %+v", sess)
	}
	if sess.Guest != nil {
		t.Error("Guest should be empty")
	}

	tests := []struct {
		name string
		code string
		want int
	}{
		{"invalid code", "ab!", http.StatusBadRequest},
		{"unknown room", "ZZZZZZ", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code := f.do(t, http.MethodGet, "/rooms/"+tc.code, nil); code != tc.want {
				t.Errorf("status = %d, expected %d", code, tc.want)
			}
		})
	}
}
