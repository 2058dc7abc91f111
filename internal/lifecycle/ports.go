package lifecycle

import (
	"context"
	"errors"
)

var (
	ErrLoadFailed       = errors.New("ticket failed to load")
	ErrNotLoaded        = errors.New("ticket not loaded")
	ErrActionNotAllowed = errors.New("action not allowed in current status")
	ErrBusy             = errors.New("another action is in flight")
	ErrSessionClosed    = errors.New("ticket screen closed")
	ErrSessionExpired   = errors.New("session expired")
	ErrTransitionFailed = errors.New("transition failed")
	ErrRemarksRequired  = errors.New("remarks are required")
	ErrReasonRequired   = errors.New("reason is required")
	ErrDateRequired     = errors.New("date is required")
	ErrDateInPast       = errors.New("date is in the past")
	ErrPermissionDenied = errors.New("permission denied")
)

// Backend issues the network calls behind each transition. A nil error
// means the backend confirmed the move.
type Backend interface {
	FetchTicket(ctx context.Context, id string) (*RemoteTicket, error)
	Accept(ctx context.Context, id string) error
	StartWork(ctx context.Context, id string) error
	Reject(ctx context.Context, id string, record RejectionRecord) error
	Reschedule(ctx context.Context, id string, record RescheduleRecord) error
	Complete(ctx context.Context, id string, submission CompletionSubmission) error
}

// Geolocator reports a denied permission as (false, nil).
type Geolocator interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (Position, error)
}

// ImagePicker returns ok=false when the user cancels. A denied media
// permission is reported as ErrPermissionDenied.
type ImagePicker interface {
	Pick(ctx context.Context, label string) (path string, ok bool, err error)
}

type Navigator interface {
	Back()
	ReplaceWithTicketList()
}

type Notifier interface {
	Notify(title, message string)
}
