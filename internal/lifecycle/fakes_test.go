package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fieldtech/internal/auth"
)

type fakeBackend struct {
	mu sync.Mutex

	fetchFn      func(ctx context.Context, id string) (*RemoteTicket, error)
	acceptFn     func(ctx context.Context, id string) error
	startFn      func(ctx context.Context, id string) error
	rejectFn     func(ctx context.Context, id string, record RejectionRecord) error
	rescheduleFn func(ctx context.Context, id string, record RescheduleRecord) error
	completeFn   func(ctx context.Context, id string, submission CompletionSubmission) error

	calls []string
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeBackend) FetchTicket(ctx context.Context, id string) (*RemoteTicket, error) {
	f.record("fetch")
	if f.fetchFn == nil {
		return &RemoteTicket{ID: Opt(id), Status: "pending"}, nil
	}
	return f.fetchFn(ctx, id)
}

func (f *fakeBackend) Accept(ctx context.Context, id string) error {
	f.record("accept")
	if f.acceptFn == nil {
		return nil
	}
	return f.acceptFn(ctx, id)
}

func (f *fakeBackend) StartWork(ctx context.Context, id string) error {
	f.record("start_work")
	if f.startFn == nil {
		return nil
	}
	return f.startFn(ctx, id)
}

func (f *fakeBackend) Reject(ctx context.Context, id string, record RejectionRecord) error {
	f.record("reject")
	if f.rejectFn == nil {
		return nil
	}
	return f.rejectFn(ctx, id, record)
}

func (f *fakeBackend) Reschedule(ctx context.Context, id string, record RescheduleRecord) error {
	f.record("reschedule")
	if f.rescheduleFn == nil {
		return nil
	}
	return f.rescheduleFn(ctx, id, record)
}

func (f *fakeBackend) Complete(ctx context.Context, id string, submission CompletionSubmission) error {
	f.record("complete")
	if f.completeFn == nil {
		return nil
	}
	return f.completeFn(ctx, id, submission)
}

type fakeNavigator struct {
	back       int
	ticketList int
}

func (n *fakeNavigator) Back()                  { n.back++ }
func (n *fakeNavigator) ReplaceWithTicketList() { n.ticketList++ }

type fakeNotifier struct {
	titles []string
}

func (n *fakeNotifier) Notify(title, message string) { n.titles = append(n.titles, title) }

type fakeGeolocator struct {
	granted bool
	pos     Position
	err     error
}

func (g fakeGeolocator) RequestPermission(ctx context.Context) (bool, error) {
	return g.granted, nil
}

func (g fakeGeolocator) CurrentPosition(ctx context.Context) (Position, error) {
	return g.pos, g.err
}

type fakePicker struct {
	paths map[string]string
	err   error
}

func (p fakePicker) Pick(ctx context.Context, label string) (string, bool, error) {
	if p.err != nil {
		return "", false, p.err
	}
	path, ok := p.paths[label]
	return path, ok, nil
}

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type harness struct {
	backend  *fakeBackend
	nav      *fakeNavigator
	notifier *fakeNotifier
	ctrl     *Controller
}

func newHarness(t *testing.T, status string, configure func(*fakeBackend, *Deps)) *harness {
	t.Helper()

	backend := &fakeBackend{
		fetchFn: func(ctx context.Context, id string) (*RemoteTicket, error) {
			return &RemoteTicket{
				ID:           Opt(id),
				TicketNumber: Opt("T-1001"),
				Status:       status,
				Type:         "repair",
				Subject:      "Internet connection dropping intermittently.",
			}, nil
		},
	}
	session, err := auth.NewSession("opaque-token")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	h := &harness{backend: backend, nav: &fakeNavigator{}, notifier: &fakeNotifier{}}
	deps := Deps{
		Auth:      session,
		Backend:   backend,
		Navigator: h.nav,
		Notifier:  h.notifier,
		Log:       zerolog.Nop(),
		Now:       func() time.Time { return testNow },
		NewKey:    func() string { return "draft-key-1" },
	}
	if configure != nil {
		configure(backend, &deps)
	}

	ctrl, err := NewController("42", deps)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	h.ctrl = ctrl
	return h
}

func countCalls(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}
