package multiplayer

// Event is emitted by a Room or a Duel.
type Event interface {
	duelEvent()
}

// SessionUpdatedEvent carries the latest decoded room record.
type SessionUpdatedEvent struct {
	Session MatchSession
}

func (SessionUpdatedEvent) duelEvent() {}

// MatchStartEvent is emitted once per client when play begins.
type MatchStartEvent struct {
	Code       string
	Role       Role
	Difficulty string
	Opponent   PlayerSlot
}

func (MatchStartEvent) duelEvent() {}

// OpponentLeftEvent is emitted to the host when the guest leaves mid-match.
type OpponentLeftEvent struct {
	Code string
}

func (OpponentLeftEvent) duelEvent() {}

// RoomClosedEvent is emitted once when the room record disappears.
type RoomClosedEvent struct {
	Code string
}

func (RoomClosedEvent) duelEvent() {}

// VerdictEvent is emitted once when the outcome is final.
type VerdictEvent struct {
	Verdict     Verdict
	LocalScore  int
	RemoteScore int
	Reason      MatchEndReason
}

func (VerdictEvent) duelEvent() {}

// ErrorEvent reports a failure that ended the duel.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) duelEvent() {}

// MatchEndReason describes why a match ended.
type MatchEndReason int

const (
	MatchEndReasonCompleted    MatchEndReason = iota // Both players terminated
	MatchEndReasonOpponentLeft                       // Guest left mid-match
	MatchEndReasonHostLeft                           // Room closed by the host
)

func (r MatchEndReason) String() string {
	switch r {
	case MatchEndReasonCompleted:
		return "Match completed"
	case MatchEndReasonOpponentLeft:
		return "Opponent left"
	case MatchEndReasonHostLeft:
		return "Host left"
	default:
		return "Unknown"
	}
}
