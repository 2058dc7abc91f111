package repository

import (
	"context"

	"gorm.io/gorm"

	"fieldtech/internal/model"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) ListByTicket(ctx context.Context, ticketID uint) ([]model.TicketEvent, error) {
	var events []model.TicketEvent
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("id ASC").
		Find(&events).Error
	return events, err
}
