package lifecycle

import (
	"context"
	"strings"
	"time"
)

type FlowState string

const (
	FlowCollecting FlowState = "collecting"
	FlowSubmitted  FlowState = "submitted"
)

func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	return nil
}

// ValidateRescheduleDate accepts today or any later calendar day, compared
// in the location of date.
func ValidateRescheduleDate(date, today time.Time) error {
	if date.IsZero() {
		return ErrDateRequired
	}
	dy, dm, dd := date.Date()
	ty, tm, td := today.In(date.Location()).Date()
	day := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	floor := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	if day.Before(floor) {
		return ErrDateInPast
	}
	return nil
}

// RejectFlow collects a rejection reason and submits it once. Its only
// link to the ticket screen is the outcome function it was opened with.
type RejectFlow struct {
	reason  string
	state   FlowState
	outcome func(context.Context, RejectionRecord) error
}

func newRejectFlow(outcome func(context.Context, RejectionRecord) error) *RejectFlow {
	return &RejectFlow{state: FlowCollecting, outcome: outcome}
}

func (f *RejectFlow) State() FlowState { return f.state }

func (f *RejectFlow) Reason() string { return f.reason }

func (f *RejectFlow) SetReason(reason string) {
	if f.state != FlowCollecting {
		return
	}
	f.reason = reason
}

func (f *RejectFlow) CanSubmit() bool {
	return f.state == FlowCollecting && ValidateReason(f.reason) == nil
}

// Submit sends the trimmed reason. On failure the flow stays collecting
// with the reason kept for another attempt.
func (f *RejectFlow) Submit(ctx context.Context) error {
	if f.state != FlowCollecting {
		return ErrSessionClosed
	}
	if err := ValidateReason(f.reason); err != nil {
		return err
	}
	if err := f.outcome(ctx, RejectionRecord{Reason: strings.TrimSpace(f.reason)}); err != nil {
		return err
	}
	f.state = FlowSubmitted
	f.reason = ""
	return nil
}

// RescheduleFlow collects a target date and reason. The date starts at
// today, matching the picker's initial value.
type RescheduleFlow struct {
	date    time.Time
	reason  string
	state   FlowState
	now     func() time.Time
	outcome func(context.Context, RescheduleRecord) error
}

func newRescheduleFlow(now func() time.Time, outcome func(context.Context, RescheduleRecord) error) *RescheduleFlow {
	return &RescheduleFlow{
		date:    now(),
		state:   FlowCollecting,
		now:     now,
		outcome: outcome,
	}
}

func (f *RescheduleFlow) State() FlowState { return f.state }

func (f *RescheduleFlow) Date() time.Time { return f.date }

func (f *RescheduleFlow) Reason() string { return f.reason }

func (f *RescheduleFlow) SetDate(date time.Time) {
	if f.state != FlowCollecting {
		return
	}
	f.date = date
}

func (f *RescheduleFlow) SetReason(reason string) {
	if f.state != FlowCollecting {
		return
	}
	f.reason = reason
}

func (f *RescheduleFlow) Validate() error {
	if err := ValidateRescheduleDate(f.date, f.now()); err != nil {
		return err
	}
	return ValidateReason(f.reason)
}

func (f *RescheduleFlow) CanSubmit() bool {
	return f.state == FlowCollecting && f.Validate() == nil
}

func (f *RescheduleFlow) Submit(ctx context.Context) error {
	if f.state != FlowCollecting {
		return ErrSessionClosed
	}
	if err := f.Validate(); err != nil {
		return err
	}
	record := RescheduleRecord{Date: f.date, Reason: strings.TrimSpace(f.reason)}
	if err := f.outcome(ctx, record); err != nil {
		return err
	}
	f.state = FlowSubmitted
	f.reason = ""
	return nil
}
