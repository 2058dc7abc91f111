package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"fieldtech/internal/model"
	"fieldtech/internal/repository"
)

type demoTicket struct {
	client  string
	mobile  string
	address string
	kind    model.TicketType
	subject string
	status  model.TicketStatus
}

var demoTickets = []demoTicket{
	{"John Smith", "09171234567", "Guiwanon, Tubigon, Bohol", model.TicketTypeRepair, "Internet connection dropping intermittently.", model.TicketStatusPending},
	{"Maria Santos", "09181112222", "Poblacion, Calape, Bohol", model.TicketTypeInstallation, "New fiber installation for 50 Mbps plan.", model.TicketStatusPending},
	{"Jose Reyes", "", "Ubujan, Tagbilaran City, Bohol", model.TicketTypeRepair, "No LOS light on modem after storm.", model.TicketStatusAccepted},
	{"Ana Cruz", "09273334444", "Dampas, Tagbilaran City, Bohol", model.TicketTypeRepair, "Slow speed in the evening.", model.TicketStatusInProgress},
}

// SeedDemo fills an empty database with a few tickets assigned to
// technicianID. It reports whether anything was inserted.
func SeedDemo(ctx context.Context, database *gorm.DB, technicianID string) (bool, error) {
	tickets := repository.NewTicketRepository(database)
	clients := repository.NewClientRepository(database)

	n, err := tickets.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count tickets: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	for i, demo := range demoTickets {
		client := &model.Client{Name: demo.client}
		if demo.mobile != "" {
			mobile := demo.mobile
			client.MobileNumber = &mobile
		}
		sub := &model.Subscription{InstallationAddress: demo.address, Plan: "Fiber 50"}
		if err := clients.CreateWithSubscription(ctx, client, sub); err != nil {
			return false, fmt.Errorf("seed client: %w", err)
		}

		ticket := &model.Ticket{
			TicketNumber:   fmt.Sprintf("1231231141%02d", i+1),
			SubscriptionID: sub.ID,
			ClientID:       client.ID,
			TechnicianID:   technicianID,
			Type:           demo.kind,
			Subject:        demo.subject,
			Status:         demo.status,
		}
		if err := tickets.Create(ctx, ticket); err != nil {
			return false, fmt.Errorf("seed ticket: %w", err)
		}
	}
	return true, nil
}
