package model

import (
	"time"
)

type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusAccepted   TicketStatus = "accepted"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
	TicketStatusRejected   TicketStatus = "rejected"
)

type TicketType string

const (
	TicketTypeRepair       TicketType = "repair"
	TicketTypeInstallation TicketType = "installation"
)

type Ticket struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	TicketNumber   string        `gorm:"type:varchar(32);not null;uniqueIndex" json:"ticket_number"`
	SubscriptionID uint          `gorm:"not null;index" json:"subscription_id"`
	Subscription   *Subscription `json:"subscription,omitempty"`
	ClientID       uint          `gorm:"not null;index" json:"client_id"`
	Client         *Client       `json:"client,omitempty"`
	TechnicianID   string        `gorm:"type:varchar(64);not null;index" json:"technician_id"`
	Type           TicketType    `gorm:"type:varchar(20);not null;default:repair" json:"type"`
	Subject        string        `gorm:"type:text" json:"subject"`
	Status         TicketStatus  `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Remarks        string        `gorm:"type:text" json:"remarks"`
	Location       string        `gorm:"type:text" json:"location"`
	Picture        string        `gorm:"type:text" json:"picture"`
	PictureReading string        `gorm:"type:text" json:"picture_reading"`
	ScheduledFor   *time.Time    `json:"scheduled_for"`
	RejectReason   string        `gorm:"type:text" json:"reject_reason"`
	AcceptedAt     *time.Time    `json:"accepted_at"`
	StartedAt      *time.Time    `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}
