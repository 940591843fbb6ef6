package auction

import "github.com/vieilles-charrues/mintauction/internal/models"

// State is the lifecycle position of an auction record.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateExpired
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// StateOf reports the state of record at unix time now. A nil record is uninitialized.
func StateOf(record *models.AuctionRecord, now int64) State {
	switch {
	case record == nil:
		return StateUninitialized
	case record.Claimed:
		return StateClosed
	case now >= record.EndTime:
		return StateExpired
	default:
		return StateActive
	}
}
