package lifecycle

import (
	"reflect"
	"testing"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"pending", StatusPending},
		{"accepted", StatusAccepted},
		{"in_progress", StatusInProgress},
		{" In_Progress ", StatusInProgress},
		{"ACCEPTED", StatusAccepted},
		{"rejected", StatusRejected},
		{"completed", StatusCompleted},
		{"closed", StatusCompleted},
		{"open", StatusCompleted},
		{"", StatusCompleted},
	}

	for _, tt := range cases {
		if got := NormalizeStatus(tt.raw); got != tt.want {
			t.Fatalf("NormalizeStatus(%q)=%q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeType(t *testing.T) {
	cases := []struct {
		raw  string
		want TicketType
	}{
		{"repair", TypeRepair},
		{"REPAIR", TypeRepair},
		{"Repair ", TypeRepair},
		{"installation", TypeInstallation},
		{"relocation", TypeInstallation},
		{"", TypeInstallation},
	}

	for _, tt := range cases {
		if got := NormalizeType(tt.raw); got != tt.want {
			t.Fatalf("NormalizeType(%q)=%q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestActionsMatchTransitionTable(t *testing.T) {
	cases := []struct {
		status Status
		want   []Action
	}{
		{StatusPending, []Action{ActionAccept, ActionReject}},
		{StatusAccepted, []Action{ActionStartWork, ActionReschedule}},
		{StatusInProgress, []Action{ActionComplete}},
		{StatusCompleted, nil},
		{StatusRejected, nil},
	}

	for _, tt := range cases {
		if got := Actions(tt.status); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("Actions(%q)=%v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAllowed(t *testing.T) {
	all := []Action{ActionAccept, ActionReject, ActionStartWork, ActionReschedule, ActionComplete}
	for _, status := range []Status{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusRejected} {
		offered := map[Action]bool{}
		for _, a := range Actions(status) {
			offered[a] = true
		}
		for _, action := range all {
			if got := Allowed(status, action); got != offered[action] {
				t.Fatalf("Allowed(%q, %q)=%v, want %v", status, action, got, offered[action])
			}
		}
	}
}

func TestTransitionsOnlyMoveForward(t *testing.T) {
	for _, tr := range Transitions() {
		if rank(tr.To) < rank(tr.From) {
			t.Fatalf("transition %s from %s goes back to %s", tr.Action, tr.From, tr.To)
		}
	}
}
