// Package multiplayer implements the two-player duel: room lobby over a
// shared realtime store, score and termination replication, and the
// order-independent outcome resolution each client runs locally.
package multiplayer

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/snake-duel/internal/realtime"
)

// Role is the side a client plays in a room.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Opponent returns the other role.
func (r Role) Opponent() Role {
	if r == RoleHost {
		return RoleGuest
	}
	return RoleHost
}

// Status is the room lifecycle state. Only the host writes it.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusReady    Status = "ready"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Started reports whether play has begun (ready or later).
func (s Status) Started() bool {
	return s == StatusReady || s == StatusPlaying || s == StatusFinished
}

// Identity describes a player.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// NewIdentity creates an identity with a fresh random ID.
func NewIdentity(name, avatar string) Identity {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Player"
	}
	return Identity{ID: uuid.NewString(), Name: name, Avatar: avatar}
}

// PlayerSlot is the per-player part of a room. Only its owner writes it.
type PlayerSlot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar,omitempty"`
	Score      int    `json:"score"`
	Ready      bool   `json:"ready"`
	Terminated bool   `json:"terminated"`
}

// State returns the fields the outcome resolver needs.
func (p PlayerSlot) State() SlotState {
	return SlotState{Score: p.Score, Terminated: p.Terminated}
}

// MatchSession is the decoded room record.
type MatchSession struct {
	Code       string      `json:"code"`
	Host       PlayerSlot  `json:"host"`
	Guest      *PlayerSlot `json:"guest,omitempty"`
	Status     Status      `json:"status"`
	Difficulty string      `json:"difficulty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Slot returns the slot for role, or nil when it is empty.
func (s MatchSession) Slot(role Role) *PlayerSlot {
	if role == RoleHost {
		return &s.Host
	}
	return s.Guest
}

// Full reports whether the guest slot is taken.
func (s MatchSession) Full() bool {
	return s.Guest != nil
}

// BothReady reports whether both players are present and ready.
func (s MatchSession) BothReady() bool {
	return s.Guest != nil && s.Host.Ready && s.Guest.Ready
}

// Record field names.
const (
	fieldStatus     = "status"
	fieldDifficulty = "difficulty"
	fieldCreatedAt  = "createdAt"
	fieldID         = "id"
	fieldName       = "name"
	fieldAvatar     = "avatar"
	fieldScore      = "score"
	fieldReady      = "ready"
	fieldTerminated = "terminated"
)

const roomsRoot = "rooms"

func roomPath(code string) string {
	return realtime.Join(roomsRoot, code)
}

func slotPath(code string, role Role) string {
	return realtime.Join(roomsRoot, code, string(role))
}

func fieldPath(code string, role Role, field string) string {
	return realtime.Join(roomsRoot, code, string(role), field)
}

// slotRecord is the initial content of a freshly claimed slot.
func slotRecord(id Identity) realtime.Record {
	return realtime.Record{
		fieldID:         id.ID,
		fieldName:       id.Name,
		fieldAvatar:     id.Avatar,
		fieldScore:      "0",
		fieldReady:      "false",
		fieldTerminated: "false",
	}
}

// DecodeSession builds a MatchSession from a room record. It tolerates
// partially written records; ok is false when no host is visible, which
// means the room does not exist (or is being torn down).
func DecodeSession(code string, rec realtime.Record) (MatchSession, bool) {
	if rec == nil {
		return MatchSession{}, false
	}
	host, ok := decodeSlot(rec.Sub(string(RoleHost)))
	if !ok {
		return MatchSession{}, false
	}

	sess := MatchSession{
		Code:       code,
		Host:       host,
		Status:     Status(rec[fieldStatus]),
		Difficulty: rec[fieldDifficulty],
	}
	if sess.Status == "" {
		sess.Status = StatusWaiting
	}
	if ts, err := time.Parse(time.RFC3339Nano, rec[fieldCreatedAt]); err == nil {
		sess.CreatedAt = ts
	}
	if guest, ok := decodeSlot(rec.Sub(string(RoleGuest))); ok {
		sess.Guest = &guest
	}
	return sess, true
}

func decodeSlot(rec realtime.Record) (PlayerSlot, bool) {
	id := rec[fieldID]
	if id == "" {
		return PlayerSlot{}, false
	}
	score, _ := strconv.Atoi(rec[fieldScore])
	return PlayerSlot{
		ID:         id,
		Name:       rec[fieldName],
		Avatar:     rec[fieldAvatar],
		Score:      score,
		Ready:      rec[fieldReady] == "true",
		Terminated: rec[fieldTerminated] == "true",
	}, true
}
