package model

import "time"

// TicketEvent is the audit trail of confirmed ticket transitions.
type TicketEvent struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	TicketID     uint         `gorm:"not null;index" json:"ticket_id"`
	TechnicianID string       `gorm:"type:varchar(64);not null" json:"technician_id"`
	Action       string       `gorm:"type:varchar(20);not null" json:"action"`
	FromStatus   TicketStatus `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus     TicketStatus `gorm:"type:varchar(20);not null" json:"to_status"`
	Note         string       `gorm:"type:text" json:"note"`
	CreatedAt    time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}

func (TicketEvent) TableName() string {
	return "ticket_events"
}
