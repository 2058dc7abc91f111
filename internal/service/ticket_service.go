package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"fieldtech/internal/idempotency"
	"fieldtech/internal/lifecycle"
	"fieldtech/internal/model"
	"fieldtech/internal/repository"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
)

const photoFolder = "tickets"

// PhotoStore keeps completion pictures and returns their storage-relative
// paths.
type PhotoStore interface {
	SaveImage(ctx context.Context, folder string, data []byte) (string, error)
	Remove(rel string) error
}

type TicketService struct {
	ticketRepo *repository.TicketRepository
	eventRepo  *repository.EventRepository
	idem       idempotency.Store
	photos     PhotoStore
	log        zerolog.Logger
	now        func() time.Time
}

func NewTicketService(
	ticketRepo *repository.TicketRepository,
	eventRepo *repository.EventRepository,
	idem idempotency.Store,
	photos PhotoStore,
	log zerolog.Logger,
) *TicketService {
	return &TicketService{
		ticketRepo: ticketRepo,
		eventRepo:  eventRepo,
		idem:       idem,
		photos:     photos,
		log:        log,
		now:        time.Now,
	}
}

func (s *TicketService) Get(ctx context.Context, principal model.Principal, id string) (*model.Ticket, error) {
	if !principal.IsTechnician() {
		return nil, ErrPermissionDenied
	}

	ticketID, err := strconv.ParseUint(id, 10, 64)
	if err != nil || ticketID == 0 {
		return nil, ErrInvalidInput
	}

	ticket, err := s.ticketRepo.GetByID(ctx, uint(ticketID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if ticket.TechnicianID != principal.TechnicianID {
		return nil, ErrPermissionDenied
	}

	return ticket, nil
}

// Home lists the tickets assigned to the technician, newest first.
func (s *TicketService) Home(ctx context.Context, principal model.Principal) ([]model.Ticket, error) {
	if !principal.IsTechnician() {
		return nil, ErrPermissionDenied
	}
	technicianID := principal.TechnicianID
	return s.ticketRepo.List(ctx, repository.TicketListFilter{TechnicianID: &technicianID})
}

func (s *TicketService) History(ctx context.Context, principal model.Principal, id string) ([]model.TicketEvent, error) {
	ticket, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.ListByTicket(ctx, ticket.ID)
}

// Accept moves a pending ticket to accepted. Repeating it on an accepted
// ticket is a no-op.
func (s *TicketService) Accept(ctx context.Context, principal model.Principal, id string) (*model.Ticket, error) {
	return s.transition(ctx, principal, id, lifecycle.ActionAccept, "", func(t *model.Ticket, now time.Time) error {
		t.AcceptedAt = &now
		return nil
	})
}

func (s *TicketService) StartWork(ctx context.Context, principal model.Principal, id string) (*model.Ticket, error) {
	return s.transition(ctx, principal, id, lifecycle.ActionStartWork, "", func(t *model.Ticket, now time.Time) error {
		t.StartedAt = &now
		return nil
	})
}

func (s *TicketService) Reject(ctx context.Context, principal model.Principal, id, reason string) (*model.Ticket, error) {
	reason = strings.TrimSpace(reason)
	if err := lifecycle.ValidateReason(reason); err != nil {
		return nil, ErrInvalidInput
	}

	return s.transition(ctx, principal, id, lifecycle.ActionReject, reason, func(t *model.Ticket, now time.Time) error {
		t.RejectReason = reason
		return nil
	})
}

type RescheduleInput struct {
	Date   string
	Reason string
}

func (s *TicketService) Reschedule(ctx context.Context, principal model.Principal, id string, input RescheduleInput) (*model.Ticket, error) {
	reason := strings.TrimSpace(input.Reason)
	if err := lifecycle.ValidateReason(reason); err != nil {
		return nil, ErrInvalidInput
	}

	now := s.now()
	date, err := time.ParseInLocation("2006-01-02", input.Date, now.Location())
	if err != nil {
		return nil, ErrInvalidInput
	}
	if err := lifecycle.ValidateRescheduleDate(date, now); err != nil {
		return nil, ErrInvalidInput
	}

	note := fmt.Sprintf("%s: %s", input.Date, reason)
	return s.transition(ctx, principal, id, lifecycle.ActionReschedule, note, func(t *model.Ticket, now time.Time) error {
		t.ScheduledFor = &date
		return nil
	})
}

type CompleteInput struct {
	Remarks        string
	Location       string
	PictureCause   []byte
	PictureReading []byte
	IdempotencyKey string
}

// Complete records the completion of an in-progress ticket. A request
// repeating the idempotency key of an earlier successful completion
// returns the ticket without applying anything again.
func (s *TicketService) Complete(ctx context.Context, principal model.Principal, id string, input CompleteInput) (ticket *model.Ticket, err error) {
	remarks := strings.TrimSpace(input.Remarks)
	if remarks == "" {
		return nil, ErrInvalidInput
	}

	if input.IdempotencyKey != "" {
		key := fmt.Sprintf("completion:%s:%s:%s", principal.TechnicianID, id, input.IdempotencyKey)
		state, beginErr := s.idem.Begin(ctx, key)
		if errors.Is(beginErr, idempotency.ErrInFlight) {
			return nil, ErrConflict
		}
		if beginErr != nil {
			return nil, beginErr
		}
		if state == idempotency.Done {
			s.log.Info().Str("ticket_id", id).Msg("completion replayed")
			return s.Get(ctx, principal, id)
		}

		defer func() {
			if err != nil {
				if abortErr := s.idem.Abort(context.WithoutCancel(ctx), key); abortErr != nil {
					s.log.Warn().Err(abortErr).Msg("failed to release idempotency key")
				}
				return
			}
			if finishErr := s.idem.Finish(context.WithoutCancel(ctx), key); finishErr != nil {
				s.log.Warn().Err(finishErr).Msg("failed to record idempotency key")
			}
		}()
	}

	var saved []string
	defer func() {
		if err == nil {
			return
		}
		for _, rel := range saved {
			if removeErr := s.photos.Remove(rel); removeErr != nil {
				s.log.Warn().Err(removeErr).Str("path", rel).Msg("failed to remove orphaned photo")
			}
		}
	}()

	savePhoto := func(data []byte) (string, error) {
		if len(data) == 0 {
			return "", nil
		}
		rel, err := s.photos.SaveImage(ctx, photoFolder, data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		saved = append(saved, rel)
		return rel, nil
	}

	return s.transition(ctx, principal, id, lifecycle.ActionComplete, "", func(t *model.Ticket, now time.Time) error {
		cause, err := savePhoto(input.PictureCause)
		if err != nil {
			return err
		}
		reading, err := savePhoto(input.PictureReading)
		if err != nil {
			return err
		}
		t.Remarks = remarks
		t.Location = strings.TrimSpace(input.Location)
		t.Picture = cause
		t.PictureReading = reading
		t.CompletedAt = &now
		return nil
	})
}

// transition applies action to the ticket following the same table the
// technician client enforces. mutate runs only for an allowed move.
func (s *TicketService) transition(
	ctx context.Context,
	principal model.Principal,
	id string,
	action lifecycle.Action,
	note string,
	mutate func(t *model.Ticket, now time.Time) error,
) (*model.Ticket, error) {
	ticket, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	from := ticket.Status
	next, ok := nextStatus(from, action)
	if !ok {
		if repeatable(action) && from == targetOf(action) {
			return ticket, nil
		}
		return nil, ErrConflict
	}

	now := s.now()
	if err := mutate(ticket, now); err != nil {
		return nil, err
	}
	ticket.Status = next

	event := &model.TicketEvent{
		TechnicianID: principal.TechnicianID,
		Action:       string(action),
		FromStatus:   from,
		ToStatus:     next,
		Note:         note,
	}
	if err := s.ticketRepo.Transition(ctx, ticket, event); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, ErrConflict
		}
		return nil, err
	}

	s.log.Info().
		Uint("ticket_id", ticket.ID).
		Str("technician_id", principal.TechnicianID).
		Str("action", string(action)).
		Str("from", string(from)).
		Str("to", string(next)).
		Msg("ticket transition")

	return ticket, nil
}

func nextStatus(from model.TicketStatus, action lifecycle.Action) (model.TicketStatus, bool) {
	for _, t := range lifecycle.Transitions() {
		if string(t.From) == string(from) && t.Action == action {
			return model.TicketStatus(t.To), true
		}
	}
	return "", false
}

// repeatable reports the GET transitions a client may safely resend.
func repeatable(action lifecycle.Action) bool {
	return action == lifecycle.ActionAccept || action == lifecycle.ActionStartWork
}

func targetOf(action lifecycle.Action) model.TicketStatus {
	for _, t := range lifecycle.Transitions() {
		if t.Action == action {
			return model.TicketStatus(t.To)
		}
	}
	return ""
}
