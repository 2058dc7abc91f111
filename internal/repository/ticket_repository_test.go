package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"fieldtech/internal/db"
	"fieldtech/internal/model"
	"fieldtech/internal/repository"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := db.SeedDemo(context.Background(), database, "tech-1"); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	return database
}

func TestTransitionAppliesOnceFromExpectedStatus(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewTicketRepository(database)
	ctx := context.Background()

	ticket, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if ticket.Client == nil || ticket.Subscription == nil {
		t.Fatal("client and subscription must be preloaded")
	}

	ticket.Status = model.TicketStatusAccepted
	event := &model.TicketEvent{
		TechnicianID: "tech-1",
		Action:       "accept",
		FromStatus:   model.TicketStatusPending,
		ToStatus:     model.TicketStatusAccepted,
	}
	if err := repo.Transition(ctx, ticket, event); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	// A second writer still holding the pending snapshot loses.
	stale := &model.TicketEvent{
		TechnicianID: "tech-1",
		Action:       "reject",
		FromStatus:   model.TicketStatusPending,
		ToStatus:     model.TicketStatusRejected,
	}
	ticket.Status = model.TicketStatusRejected
	if err := repo.Transition(ctx, ticket, stale); !errors.Is(err, repository.ErrStaleStatus) {
		t.Fatalf("stale Transition: %v", err)
	}

	stored, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != model.TicketStatusAccepted {
		t.Fatalf("status = %s", stored.Status)
	}

	events, err := repository.NewEventRepository(database).ListByTicket(ctx, 1)
	if err != nil {
		t.Fatalf("ListByTicket: %v", err)
	}
	if len(events) != 1 || events[0].Action != "accept" {
		t.Fatalf("events = %+v", events)
	}
}

func TestListFiltersByTechnicianAndStatus(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewTicketRepository(database)
	ctx := context.Background()

	tech := "tech-1"
	all, err := repo.List(ctx, repository.TicketListFilter{TechnicianID: &tech})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("tickets = %d", len(all))
	}

	pending := model.TicketStatusPending
	filtered, err := repo.List(ctx, repository.TicketListFilter{TechnicianID: &tech, Status: &pending})
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("pending tickets = %d", len(filtered))
	}

	other := "tech-9"
	none, err := repo.List(ctx, repository.TicketListFilter{TechnicianID: &other})
	if err != nil {
		t.Fatalf("List other: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("other technician tickets = %d", len(none))
	}
}

func TestSeedDemoRunsOnce(t *testing.T) {
	database := openTestDB(t)

	inserted, err := db.SeedDemo(context.Background(), database, "tech-1")
	if err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	if inserted {
		t.Fatal("second seed must not insert")
	}
}
