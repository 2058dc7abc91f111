package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fieldtech/internal/auth"
)

type Deps struct {
	Auth       *auth.Session
	Backend    Backend
	Loader     *Loader
	Navigator  Navigator
	Notifier   Notifier
	Geolocator Geolocator
	Picker     ImagePicker
	Log        zerolog.Logger
	Now        func() time.Time
	NewKey     func() string
}

// Controller owns one ticket screen: its snapshot, its local status and
// the single in-flight transition. It is never shared between screens.
type Controller struct {
	id   string
	deps Deps

	inFlight atomic.Bool

	mu         sync.Mutex
	snapshot   *Snapshot
	completion *CompletionRecord
	composer   *Composer
	closed     bool
}

func NewController(id string, deps Deps) (*Controller, error) {
	if id == "" {
		return nil, errors.New("ticket id is required")
	}
	if deps.Auth == nil {
		return nil, auth.ErrNoToken
	}
	if deps.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if deps.Loader == nil {
		deps.Loader = NewLoader(deps.Backend, "", deps.Log)
	}
	if deps.Navigator == nil {
		deps.Navigator = noopNavigator{}
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewKey == nil {
		deps.NewKey = func() string { return uuid.NewString() }
	}
	deps.Log = deps.Log.With().
		Str("ticket_id", id).
		Str("technician_id", deps.Auth.TechnicianID()).
		Logger()

	return &Controller{id: id, deps: deps}, nil
}

func (c *Controller) ID() string { return c.id }

// Load fetches the ticket and replaces the local snapshot. It is also the
// manual refresh; a failed load keeps the previous snapshot.
func (c *Controller) Load(ctx context.Context) error {
	if c.Closed() {
		return ErrSessionClosed
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.inFlight.Store(false)

	snapshot, err := c.deps.Loader.Load(ctx, c.id)
	if err != nil {
		c.deps.Notifier.Notify("Error", "Unable to load ticket")
		return err
	}

	c.mu.Lock()
	if c.snapshot != nil && rank(snapshot.Ticket.Status) < rank(c.snapshot.Ticket.Status) {
		c.deps.Log.Warn().
			Str("local_status", string(c.snapshot.Ticket.Status)).
			Str("server_status", snapshot.Ticket.ServerStatus).
			Msg("refresh would move status backwards, keeping local status")
		snapshot.Ticket.Status = c.snapshot.Ticket.Status
	}
	c.snapshot = snapshot
	if snapshot.Completion != nil {
		record := *snapshot.Completion
		c.completion = &record
	}
	c.mu.Unlock()

	return nil
}

func (c *Controller) Refresh(ctx context.Context) error {
	return c.Load(ctx)
}

func (c *Controller) Snapshot() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return Snapshot{}, false
	}
	return *c.snapshot, true
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return ""
	}
	return c.snapshot.Ticket.Status
}

// Actions returns the action set offered to the user: exactly the table
// row of the current status, or nothing once the screen is closed.
func (c *Controller) Actions() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.snapshot == nil {
		return nil
	}
	return Actions(c.snapshot.Ticket.Status)
}

// Busy reports an in-flight request; the caller disables the triggering
// control while it is true.
func (c *Controller) Busy() bool { return c.inFlight.Load() }

func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) Completion() (CompletionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completion == nil {
		return CompletionRecord{}, false
	}
	return *c.completion, true
}

func (c *Controller) Accept(ctx context.Context) error {
	return c.run(ctx, ActionAccept, func(ctx context.Context) error {
		return c.deps.Backend.Accept(ctx, c.id)
	}, nil)
}

func (c *Controller) StartWork(ctx context.Context) error {
	return c.run(ctx, ActionStartWork, func(ctx context.Context) error {
		return c.deps.Backend.StartWork(ctx, c.id)
	}, nil)
}

// RejectFlow opens the reject sub-flow. Only a pending ticket offers it.
func (c *Controller) RejectFlow() (*RejectFlow, error) {
	if err := c.check(ActionReject); err != nil {
		return nil, err
	}
	return newRejectFlow(func(ctx context.Context, record RejectionRecord) error {
		return c.run(ctx, ActionReject, func(ctx context.Context) error {
			return c.deps.Backend.Reject(ctx, c.id, record)
		}, nil)
	}), nil
}

// RescheduleFlow opens the reschedule sub-flow. Only an accepted ticket
// offers it.
func (c *Controller) RescheduleFlow() (*RescheduleFlow, error) {
	if err := c.check(ActionReschedule); err != nil {
		return nil, err
	}
	return newRescheduleFlow(c.deps.Now, func(ctx context.Context, record RescheduleRecord) error {
		return c.run(ctx, ActionReschedule, func(ctx context.Context) error {
			return c.deps.Backend.Reschedule(ctx, c.id, record)
		}, nil)
	}), nil
}

// Composer returns the completion form of an in-progress ticket. The same
// draft is returned until it is submitted, so a failed submission can be
// retried without re-entering anything.
func (c *Controller) Composer() (*Composer, error) {
	if err := c.check(ActionComplete); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.composer == nil {
		c.composer = newComposer(c.deps.NewKey(), c.deps.Geolocator, c.deps.Picker, c.deps.Notifier,
			func(ctx context.Context, submission CompletionSubmission) error {
				return c.run(ctx, ActionComplete, func(ctx context.Context) error {
					return c.deps.Backend.Complete(ctx, c.id, submission)
				}, func() {
					record := submission.CompletionRecord
					c.completion = &record
				})
			})
	}
	return c.composer, nil
}

func (c *Controller) check(action Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionClosed
	}
	if c.snapshot == nil {
		return ErrNotLoaded
	}
	if !Allowed(c.snapshot.Ticket.Status, action) {
		c.deps.Log.Warn().
			Str("action", string(action)).
			Str("status", string(c.snapshot.Ticket.Status)).
			Msg("action rejected out of state")
		return fmt.Errorf("%w: %s from %s", ErrActionNotAllowed, action, c.snapshot.Ticket.Status)
	}
	return nil
}

// run performs one guarded transition. The local status moves only after
// call returns nil; onSuccess runs under the state lock before the move.
func (c *Controller) run(ctx context.Context, action Action, call func(context.Context) error, onSuccess func()) error {
	if err := c.check(action); err != nil {
		return err
	}
	if c.deps.Auth.Expired(c.deps.Now()) {
		c.deps.Notifier.Notify("Session expired", "Please log in again")
		return ErrSessionExpired
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.inFlight.Store(false)

	// The status may not change while the request is in flight; check
	// again now that the guard is held.
	if err := c.check(action); err != nil {
		return err
	}

	log := c.deps.Log.With().Str("action", string(action)).Logger()
	log.Debug().Msg("transition started")

	if err := call(ctx); err != nil {
		log.Error().Err(err).Msg("transition failed")
		c.deps.Notifier.Notify("Error", failureMessages[action])
		return fmt.Errorf("%w: %s: %w", ErrTransitionFailed, action, err)
	}

	c.mu.Lock()
	t, _ := lookup(c.snapshot.Ticket.Status, action)
	if onSuccess != nil {
		onSuccess()
	}
	c.snapshot.Ticket.Status = t.To
	if t.Exit {
		c.closed = true
		c.composer = nil
	}
	c.mu.Unlock()

	log.Info().Str("status", string(t.To)).Msg("transition confirmed")
	msg := successMessages[action]
	c.deps.Notifier.Notify(msg[0], msg[1])

	if t.Exit {
		c.deps.Navigator.ReplaceWithTicketList()
	}
	return nil
}

var successMessages = map[Action][2]string{
	ActionAccept:     {"Success", "Ticket accepted"},
	ActionStartWork:  {"Started", "Work started"},
	ActionReject:     {"Rejected", "Ticket has been rejected"},
	ActionReschedule: {"Rescheduled", "Ticket rescheduled successfully"},
	ActionComplete:   {"Success!", "Ticket completed successfully"},
}

var failureMessages = map[Action]string{
	ActionAccept:     "Failed to accept ticket",
	ActionStartWork:  "Failed to start work",
	ActionReject:     "Failed to reject ticket",
	ActionReschedule: "Failed to reschedule ticket",
	ActionComplete:   "An error occurred while submitting the ticket.",
}

type noopNavigator struct{}

func (noopNavigator) Back()                  {}
func (noopNavigator) ReplaceWithTicketList() {}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string) {}
