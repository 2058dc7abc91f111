package model

import "time"

// Client is the ISP subscriber a ticket is raised for.
type Client struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	MobileNumber *string   `gorm:"type:varchar(32)" json:"mobile_number"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Client) TableName() string {
	return "clients"
}

type Subscription struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	ClientID            uint      `gorm:"not null;index" json:"client_id"`
	InstallationAddress string    `gorm:"type:text" json:"installation_address"`
	Plan                string    `gorm:"type:varchar(64)" json:"plan"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
