package models

import (
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

type Actor string

const (
	ActorParent Actor = "parent"
	ActorAdmin  Actor = "admin"
	ActorNanny  Actor = "nanny"
)

type Booking struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ReferenceCode string         `gorm:"size:64;uniqueIndex" json:"reference_code"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy     *Actor         `gorm:"type:varchar(20)" json:"deleted_by,omitempty"`

	// StartTime/EndTime are human labels ("19h30", "7:15"). A multi-day
	// booking repeats the same daily window on every spanned day.
	Date      time.Time  `gorm:"not null;index" json:"date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	StartTime string     `gorm:"size:16" json:"start_time"`
	EndTime   string     `gorm:"size:16" json:"end_time"`

	NannyID   *uint  `gorm:"index" json:"nanny_id,omitempty"`
	NannyName string `gorm:"size:128" json:"nanny_name,omitempty"`

	ChildrenCount int     `gorm:"default:1" json:"children_count"`
	TotalPrice    float64 `gorm:"not null" json:"total_price"`
	Plan          string  `gorm:"size:32" json:"plan,omitempty"`

	ClockIn  *time.Time `json:"clock_in,omitempty"`
	ClockOut *time.Time `json:"clock_out,omitempty"`

	Status    BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedBy Actor         `gorm:"type:varchar(20);not null" json:"created_by"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        *Actor     `gorm:"type:varchar(20)" json:"cancelled_by,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`

	CollectedAt   *time.Time `json:"collected_at,omitempty"`
	CollectedBy   *Actor     `gorm:"type:varchar(20)" json:"collected_by,omitempty"`
	PaymentMethod *string    `gorm:"size:32" json:"payment_method,omitempty"`

	Nanny *Nanny `gorm:"foreignKey:NannyID" json:"nanny,omitempty"`
}

// Performed reports whether the shift was actually worked: both clock
// timestamps present, so pay resolves via the actual path.
func (b *Booking) Performed() bool {
	return b.ClockIn != nil && b.ClockOut != nil
}

// ShiftActive reports an in-progress shift (clocked in, not yet out).
func (b *Booking) ShiftActive() bool {
	return b.ClockIn != nil && b.ClockOut == nil
}

// Assigned reports whether a nanny is linked to the booking.
func (b *Booking) Assigned() bool {
	return b.NannyID != nil && *b.NannyID != 0
}
