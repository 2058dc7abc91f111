package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"fieldtech/internal/model"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *TicketRepository) GetByID(ctx context.Context, id uint) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Subscription").
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// Transition saves the ticket and appends its audit event in one
// transaction. The update only applies while the row still holds
// event.FromStatus; otherwise ErrStaleStatus is returned.
func (r *TicketRepository) Transition(ctx context.Context, ticket *model.Ticket, event *model.TicketEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Ticket{}).
			Where("id = ? AND status = ?", ticket.ID, event.FromStatus).
			Select("Status", "Remarks", "Location", "Picture", "PictureReading",
				"ScheduledFor", "RejectReason", "AcceptedAt", "StartedAt", "CompletedAt", "UpdatedAt").
			Updates(ticket)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleStatus
		}
		event.TicketID = ticket.ID
		return tx.Create(event).Error
	})
}

var ErrStaleStatus = errors.New("ticket status changed concurrently")

type TicketListFilter struct {
	TechnicianID *string
	Status       *model.TicketStatus
}

func (r *TicketRepository) List(ctx context.Context, filter TicketListFilter) ([]model.Ticket, error) {
	var tickets []model.Ticket
	query := r.db.WithContext(ctx).Model(&model.Ticket{}).
		Preload("Client").
		Preload("Subscription")

	if filter.TechnicianID != nil {
		query = query.Where("technician_id = ?", *filter.TechnicianID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Order("created_at DESC").Order("id DESC").Find(&tickets).Error; err != nil {
		return nil, err
	}

	return tickets, nil
}

func (r *TicketRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Ticket{}).Count(&n).Error
	return n, err
}
