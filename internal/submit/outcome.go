package submit

import (
	"strconv"
	"sync/atomic"
)

// Kind classifies a status message.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Status is the one message shown to the user after an action.
type Status struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Status messages.
const (
	MsgAdded   = "Note added successfully!"
	MsgCleared = "Form cleared"
)

// Outcome converts the result of Submit into a status.
func Outcome(res *Result, err error) Status {
	if err != nil {
		return Status{Kind: KindError, Message: "Error: " + err.Error()}
	}
	if res == nil {
		return Status{Kind: KindError, Message: "Error: no result"}
	}
	return Status{Kind: KindSuccess, Message: MsgAdded}
}

// Cleared is the status shown after the form is reset.
func Cleared() Status {
	return Status{Kind: KindInfo, Message: MsgCleared}
}

// Ticket identifies one submission attempt.
type Ticket uint64

func (t Ticket) String() string { return strconv.FormatUint(uint64(t), 10) }

// Tickets hands out submission tickets. Only the most recent ticket is
// current; results carrying an older ticket are stale and must be ignored.
type Tickets struct {
	gen atomic.Uint64
}

// Next issues a new ticket, making every earlier one stale.
func (t *Tickets) Next() Ticket {
	return Ticket(t.gen.Add(1))
}

// Invalidate makes every issued ticket stale.
func (t *Tickets) Invalidate() {
	t.gen.Add(1)
}

// Current reports whether tk is still the latest ticket.
func (t *Tickets) Current(tk Ticket) bool {
	return uint64(tk) == t.gen.Load()
}
