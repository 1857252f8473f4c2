package multiplayer

import "sync"

// Verdict is the match outcome from one player's point of view.
type Verdict int

const (
	VerdictPending Verdict = iota
	VerdictWin
	VerdictLose
	VerdictTie
)

func (v Verdict) String() string {
	switch v {
	case VerdictPending:
		return "pending"
	case VerdictWin:
		return "win"
	case VerdictLose:
		return "lose"
	case VerdictTie:
		return "tie"
	}
	return "unknown"
}

// Final reports whether the verdict is decided.
func (v Verdict) Final() bool {
	return v != VerdictPending
}

// Invert returns the verdict from the opponent's point of view.
func (v Verdict) Invert() Verdict {
	switch v {
	case VerdictWin:
		return VerdictLose
	case VerdictLose:
		return VerdictWin
	}
	return v
}

// SlotState is one player's replicated progress.
type SlotState struct {
	Score      int
	Terminated bool
}

// Resolve decides the outcome for the local player. It is pending until both
// players have terminated; dying first does not matter, only the scores do.
func Resolve(localScore int, localTerminated bool, remoteScore int, remoteTerminated bool) Verdict {
	if !localTerminated || !remoteTerminated {
		return VerdictPending
	}
	switch {
	case localScore > remoteScore:
		return VerdictWin
	case localScore < remoteScore:
		return VerdictLose
	default:
		return VerdictTie
	}
}

// Resolver latches the first final verdict, so repeated or late updates
// cannot change an announced result.
type Resolver struct {
	mu      sync.Mutex
	verdict Verdict
	local   SlotState
	remote  SlotState
}

// Observe resolves local against remote unless a verdict is already latched.
func (r *Resolver) Observe(local, remote SlotState) Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.verdict.Final() {
		return r.verdict
	}
	r.verdict = Resolve(local.Score, local.Terminated, remote.Score, remote.Terminated)
	if r.verdict.Final() {
		r.local, r.remote = local, remote
	}
	return r.verdict
}

// Forfeit latches a win when the opponent abandoned the match.
func (r *Resolver) Forfeit(local, remote SlotState) Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.verdict.Final() {
		r.verdict = VerdictWin
		r.local, r.remote = local, remote
	}
	return r.verdict
}

// Final returns the latched verdict and whether there is one.
func (r *Resolver) Final() (Verdict, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verdict, r.verdict.Final()
}

// Scores returns the local and remote states the verdict was decided on.
func (r *Resolver) Scores() (local, remote SlotState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.local, r.remote
}
