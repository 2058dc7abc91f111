package lifecycle

import "strings"

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

// DisplayOnly reports whether a ticket in this status is rendered without
// any lifecycle action.
func (s Status) DisplayOnly() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress:
		return false
	default:
		return true
	}
}

// NormalizeStatus maps the backend's free-text status onto the closed
// client enum. Every input yields a status: unknown values, including
// "completed" and "closed", land on the display-only completed path.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending
	case "accepted":
		return StatusAccepted
	case "in_progress":
		return StatusInProgress
	case "rejected":
		return StatusRejected
	default:
		return StatusCompleted
	}
}

// rank orders statuses along the lifecycle; terminal statuses share the
// highest rank.
func rank(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusAccepted:
		return 1
	case StatusInProgress:
		return 2
	default:
		return 3
	}
}

type TicketType string

const (
	TypeRepair       TicketType = "Repair"
	TypeInstallation TicketType = "Installation"
)

func NormalizeType(raw string) TicketType {
	if strings.EqualFold(strings.TrimSpace(raw), "repair") {
		return TypeRepair
	}
	return TypeInstallation
}

type Action string

const (
	ActionAccept     Action = "accept"
	ActionReject     Action = "reject"
	ActionStartWork  Action = "start_work"
	ActionReschedule Action = "reschedule"
	ActionComplete   Action = "complete"
)

// Transition is one row of the lifecycle table. Exit rows leave the
// ticket screen on success instead of re-rendering it.
type Transition struct {
	From   Status
	Action Action
	To     Status
	Exit   bool
}

var transitions = []Transition{
	{From: StatusPending, Action: ActionAccept, To: StatusAccepted},
	{From: StatusPending, Action: ActionReject, To: StatusRejected, Exit: true},
	{From: StatusAccepted, Action: ActionStartWork, To: StatusInProgress},
	{From: StatusAccepted, Action: ActionReschedule, To: StatusAccepted, Exit: true},
	{From: StatusInProgress, Action: ActionComplete, To: StatusCompleted, Exit: true},
}

func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

func lookup(from Status, action Action) (Transition, bool) {
	for _, t := range transitions {
		if t.From == from && t.Action == action {
			return t, true
		}
	}
	return Transition{}, false
}

// Actions returns the actions offered for a status, in display order.
func Actions(status Status) []Action {
	var actions []Action
	for _, t := range transitions {
		if t.From == status {
			actions = append(actions, t.Action)
		}
	}
	return actions
}

func Allowed(status Status, action Action) bool {
	_, ok := lookup(status, action)
	return ok
}
