package models

import "time"

type NannyStatus string

const (
	NannyActive   NannyStatus = "active"
	NannyInactive NannyStatus = "inactive"
)

// Nanny is synced from the roster service and is read-only here except for
// assignment linkage. Rate is the customer-facing hourly price; the hourly
// rate the nanny is paid is a single configured constant.
type Nanny struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Name      string      `gorm:"size:128;not null" json:"name"`
	Rate      float64     `gorm:"not null" json:"rate"`
	Status    NannyStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	Blackouts []NannyBlackout `gorm:"foreignKey:NannyID" json:"blackouts,omitempty"`
}

func (n *Nanny) Active() bool {
	return n.Status == NannyActive
}

// NannyBlackout marks one calendar day the nanny is unavailable, whole-day.
type NannyBlackout struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	NannyID uint      `gorm:"index;not null" json:"nanny_id"`
	Date    time.Time `gorm:"not null" json:"date"`
}
