package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoaderNormalizesPartialTicket(t *testing.T) {
	backend := &fakeBackend{
		fetchFn: func(ctx context.Context, id string) (*RemoteTicket, error) {
			var remote RemoteTicket
			raw := `{"id": 42, "subscription_id": 1000, "status": "Accepted", "type": "REPAIR", "subject": "No signal"}`
			if err := json.Unmarshal([]byte(raw), &remote); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			return &remote, nil
		},
	}

	snapshot, err := NewLoader(backend, "https://isp.example.com/storage/", zerolog.Nop()).Load(context.Background(), "42")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := snapshot.Ticket
	if got.ID != "42" || got.AccountNumber != "1000" {
		t.Fatalf("ids = %q/%q", got.ID, got.AccountNumber)
	}
	if got.TicketNumber != "N/A" || got.AccountName != "Unknown" || got.InstallationAddress != "N/A" || got.MobileNumber != "N/A" {
		t.Fatalf("fallbacks not applied: %+v", got)
	}
	if got.Status != StatusAccepted || got.Type != TypeRepair {
		t.Fatalf("status/type = %q/%q", got.Status, got.Type)
	}
	if snapshot.DisplayOnly() || snapshot.Completion != nil {
		t.Fatal("accepted ticket must be interactive without completion record")
	}
}

func TestLoaderNestedFields(t *testing.T) {
	backend := &fakeBackend{
		fetchFn: func(ctx context.Context, id string) (*RemoteTicket, error) {
			var remote RemoteTicket
			raw := `{
				"id": "7",
				"ticket_number": "123123114124",
				"client": {"name": "John Smith", "mobile_number": null},
				"subscription": {"installation_address": "Guiwanon, Tubigon, Bohol"},
				"status": "pending",
				"type": "installation",
				"created_at": "2025-01-14"
			}`
			if err := json.Unmarshal([]byte(raw), &remote); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			return &remote, nil
		},
	}

	snapshot, err := NewLoader(backend, "", zerolog.Nop()).Load(context.Background(), "7")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := snapshot.Ticket
	if got.AccountName != "John Smith" || got.MobileNumber != "N/A" {
		t.Fatalf("client fields = %q/%q", got.AccountName, got.MobileNumber)
	}
	if got.InstallationAddress != "Guiwanon, Tubigon, Bohol" || got.Date != "2025-01-14" {
		t.Fatalf("address/date = %q/%q", got.InstallationAddress, got.Date)
	}
	if got.Type != TypeInstallation || got.Status != StatusPending {
		t.Fatalf("type/status = %q/%q", got.Type, got.Status)
	}
}

func TestLoaderCompletedTicketIsDisplayOnly(t *testing.T) {
	backend := &fakeBackend{
		fetchFn: func(ctx context.Context, id string) (*RemoteTicket, error) {
			return &RemoteTicket{
				ID:             Opt(id),
				Status:         "completed",
				Remarks:        "Replaced fiber patch cord",
				Location:       "9.950000, 124.100000",
				Picture:        "tickets/cause.jpg",
				PictureReading: "",
			}, nil
		},
	}

	snapshot, err := NewLoader(backend, "https://isp.example.com/storage/", zerolog.Nop()).Load(context.Background(), "9")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snapshot.DisplayOnly() || snapshot.Ticket.Status != StatusCompleted {
		t.Fatalf("status = %q, want display-only completed", snapshot.Ticket.Status)
	}
	if snapshot.Completion == nil {
		t.Fatal("expected completion record")
	}
	ref, ok := snapshot.Completion.PictureCause.Ref()
	if !ok || ref != "https://isp.example.com/storage/tickets/cause.jpg" || !snapshot.Completion.PictureCause.Remote() {
		t.Fatalf("picture cause = %q/%v", ref, ok)
	}
	if snapshot.Completion.PictureReading.Present() {
		t.Fatal("reading picture must be absent")
	}
	if snapshot.Completion.Remarks != "Replaced fiber patch cord" {
		t.Fatalf("remarks = %q", snapshot.Completion.Remarks)
	}
}

func TestLoaderCompletedWithoutRemarks(t *testing.T) {
	backend := &fakeBackend{
		fetchFn: func(ctx context.Context, id string) (*RemoteTicket, error) {
			return &RemoteTicket{ID: Opt(id), Status: "closed"}, nil
		},
	}

	snapshot, err := NewLoader(backend, "", zerolog.Nop()).Load(context.Background(), "9")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snapshot.Completion == nil || snapshot.Completion.Remarks != "No remarks provided" {
		t.Fatalf("completion = %+v", snapshot.Completion)
	}
}

func TestLoaderRejectedTicketHasNoCompletion(t *testing.T) {
	backend := &fakeBackend{
		fetchFn: func(ctx context.Context, id string) (*RemoteTicket, error) {
			return &RemoteTicket{ID: Opt(id), Status: "rejected"}, nil
		},
	}

	snapshot, err := NewLoader(backend, "", zerolog.Nop()).Load(context.Background(), "9")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snapshot.DisplayOnly() || snapshot.Completion != nil {
		t.Fatalf("rejected snapshot = %+v", snapshot)
	}
}

func TestLoaderFailure(t *testing.T) {
	boom := errors.New("connection refused")
	backend := &fakeBackend{
		fetchFn: func(ctx context.Context, id string) (*RemoteTicket, error) {
			return nil, boom
		},
	}

	_, err := NewLoader(backend, "", zerolog.Nop()).Load(context.Background(), "1")
	if !errors.Is(err, ErrLoadFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrLoadFailed wrapping cause, got %v", err)
	}
	if n := countCalls(backend.Calls(), "fetch"); n != 1 {
		t.Fatalf("fetch calls = %d, want exactly one (no retry)", n)
	}
}

func TestOptStringDecoding(t *testing.T) {
	var payload struct {
		A OptString `json:"a"`
		B OptString `json:"b"`
		C OptString `json:"c"`
		D OptString `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a": "x", "b": 12, "c": null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !payload.A.Valid || payload.A.Value != "x" {
		t.Fatalf("a = %+v", payload.A)
	}
	if !payload.B.Valid || payload.B.Value != "12" {
		t.Fatalf("b = %+v", payload.B)
	}
	if payload.C.Valid || payload.D.Valid {
		t.Fatal("null and absent must be unset")
	}
}
