package pvp

import "time"

// Invite is a pending challenge from Challenger to Target on Channel.
type Invite struct {
	Challenger string
	Target     string
	Channel    string
	CreatedAt  time.Time
}

// UndoRequest asks Target to take back Requester's last move.
type UndoRequest struct {
	Requester string
	Target    string
	Channel   string
	CreatedAt time.Time
}

// UndoState is the outcome of evaluating a pending undo request.
type UndoState int

const (
	// UndoAbsent: no request from that requester is pending.
	UndoAbsent UndoState = iota
	// UndoGranted: the request was fresh and has been consumed.
	UndoGranted
	// UndoExpired: the request was older than the undo window and has been dropped.
	UndoExpired
)

func (s UndoState) String() string {
	switch s {
	case UndoGranted:
		return "granted"
	case UndoExpired:
		return "expired"
	default:
		return "absent"
	}
}

// key addresses one handshake slot: target -> channel -> from.
type key struct {
	target  string
	channel string
	from    string
}
