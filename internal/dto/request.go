package dto

type CreateBookingRequest struct {
	Date          string `json:"date" validate:"required"`
	EndDate       string `json:"end_date,omitempty"`
	StartTime     string `json:"start_time" validate:"required"`
	EndTime       string `json:"end_time" validate:"required"`
	NannyID       *uint  `json:"nanny_id,omitempty"`
	ChildrenCount int    `json:"children_count"`
	Plan          string `json:"plan,omitempty"`
	CreatedBy     string `json:"created_by" validate:"required"`
}

type CancelBookingRequest struct {
	CancelledBy string `json:"cancelled_by" validate:"required"`
	Reason      string `json:"reason,omitempty"`
}

type ReassignRequest struct {
	NannyID uint `json:"nanny_id" validate:"required"`
}

type ExtendRequest struct {
	EndTime string `json:"end_time" validate:"required"`
}

type UpdateScheduleRequest struct {
	Date       *string  `json:"date,omitempty"`
	EndDate    *string  `json:"end_date,omitempty"`
	StartTime  *string  `json:"start_time,omitempty"`
	EndTime    *string  `json:"end_time,omitempty"`
	TotalPrice *float64 `json:"total_price,omitempty"`
}

type DeleteBookingRequest struct {
	DeletedBy string `json:"deleted_by" validate:"required"`
}

type MultiDateRequest struct {
	Dates         []string `json:"dates" validate:"required"`
	StartTime     string   `json:"start_time" validate:"required"`
	EndTime       string   `json:"end_time" validate:"required"`
	NannyID       *uint    `json:"nanny_id,omitempty"`
	ChildrenCount int      `json:"children_count"`
	Plan          string   `json:"plan,omitempty"`
	CreatedBy     string   `json:"created_by" validate:"required"`
}

type RecurringRequest struct {
	StartDate     string `json:"start_date" validate:"required"`
	Cadence       string `json:"cadence" validate:"required"`
	Repeat        int    `json:"repeat"`
	StartTime     string `json:"start_time" validate:"required"`
	EndTime       string `json:"end_time" validate:"required"`
	NannyID       *uint  `json:"nanny_id,omitempty"`
	ChildrenCount int    `json:"children_count"`
	Plan          string `json:"plan,omitempty"`
	CreatedBy     string `json:"created_by" validate:"required"`
}
