package multiplayer

import (
	"errors"

	"github.com/vovakirdan/snake-duel/internal/snake"
)

var (
	// ErrRoomNotFound means no room exists under the code.
	ErrRoomNotFound = errors.New("multiplayer: room not found")
	// ErrRoomFull means the guest slot is taken.
	ErrRoomFull = errors.New("multiplayer: room is full")
	// ErrInvalidCode means the code is malformed; no lookup was made.
	ErrInvalidCode = errors.New("multiplayer: invalid room code")
	// ErrOwnRoom means the joiner is the host.
	ErrOwnRoom = errors.New("multiplayer: cannot join your own room")
	// ErrRoomClosed means the room disappeared, typically because the host
	// left.
	ErrRoomClosed = errors.New("multiplayer: room closed")
	// ErrNoFreeCode means code generation kept colliding with live rooms.
	ErrNoFreeCode = errors.New("multiplayer: no free room code")
)

// UserMessage turns an error into a short message for the player.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found. Check the code and try again."
	case errors.Is(err, ErrRoomFull):
		return "Room is full."
	case errors.Is(err, ErrInvalidCode):
		return "Room codes are 6 letters or digits."
	case errors.Is(err, ErrOwnRoom):
		return "Cannot join your own room."
	case errors.Is(err, ErrRoomClosed):
		return "The host closed the room."
	case errors.Is(err, ErrNoFreeCode):
		return "Could not create a room, please retry."
	case errors.Is(err, snake.ErrFoodPlacementExhausted):
		return "The board is full."
	default:
		return "Connection problem, please retry."
	}
}
