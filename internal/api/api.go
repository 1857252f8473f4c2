// Package api serves the leaderboard and room inspection over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/snake-duel/internal/multiplayer"
	"github.com/vovakirdan/snake-duel/internal/storage"
)

// RoomReader looks up rooms; *multiplayer.Lobby implements it.
type RoomReader interface {
	Peek(ctx context.Context, code string) (multiplayer.MatchSession, error)
}

// NewRouter builds the HTTP handler. scores may wrap a nil store.
func NewRouter(scores *storage.BestEffort, rooms RoomReader, logger *log.Logger) *gin.Engine {
	if logger == nil {
		logger = log.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", Health())
	router.GET("/scores", TopScores(scores))
	router.DELETE("/scores", ClearScores(scores))
	router.GET("/matches", RecentMatches(scores))
	router.GET("/rooms/:code", GetRoom(rooms))
	return router
}

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// Health reports liveness.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

type scoreView struct {
	PlayerName string    `json:"playerName"`
	Score      int       `json:"score"`
	Difficulty string    `json:"difficulty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TopScores returns the leaderboard, optionally filtered by difficulty.
func TopScores(scores *storage.BestEffort) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := queryInt(c, "limit")
		if !ok {
			return
		}
		entries := scores.GetTopScores(c.Query("difficulty"), limit)

		out := make([]scoreView, 0, len(entries))
		for _, e := range entries {
			out = append(out, scoreView{
				PlayerName: e.PlayerName,
				Score:      e.Score,
				Difficulty: e.Difficulty,
				CreatedAt:  e.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"scores": out})
	}
}

// ClearScores empties the leaderboard.
func ClearScores(scores *storage.BestEffort) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !scores.ClearScores() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Leaderboard is unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": true})
	}
}

type matchView struct {
	Code        string    `json:"code"`
	Role        string    `json:"role"`
	Difficulty  string    `json:"difficulty"`
	LocalName   string    `json:"localName"`
	RemoteName  string    `json:"remoteName"`
	LocalScore  int       `json:"localScore"`
	RemoteScore int       `json:"remoteScore"`
	Verdict     string    `json:"verdict"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RecentMatches returns recorded duels, newest first.
func RecentMatches(scores *storage.BestEffort) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := queryInt(c, "limit")
		if !ok {
			return
		}
		matches := scores.RecentMatches(limit)

		out := make([]matchView, 0, len(matches))
		for _, m := range matches {
			out = append(out, matchView{
				Code:        m.Code,
				Role:        m.Role,
				Difficulty:  m.Difficulty,
				LocalName:   m.LocalName,
				RemoteName:  m.RemoteName,
				LocalScore:  m.LocalScore,
				RemoteScore: m.RemoteScore,
				Verdict:     m.Verdict,
				Reason:      m.Reason,
				CreatedAt:   m.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"matches": out})
	}
}

// GetRoom returns the decoded room record.
func GetRoom(rooms RoomReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := rooms.Peek(c.Request.Context(), c.Param("code"))
		switch {
		case errors.Is(err, multiplayer.ErrInvalidCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": multiplayer.UserMessage(err)})
			return
		case errors.Is(err, multiplayer.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": multiplayer.UserMessage(err)})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read room"})
			return
		}

		c.JSON(http.StatusOK, sess)
	}
}

// queryInt parses an optional integer query parameter, answering 400 when
// it is malformed.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return n, true
}
