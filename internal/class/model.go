package class

import "time"

// ClassType is a catalog entry. Scheduled classes copy its defaults but can
// override them.
type ClassType struct {
	ID                     int       `db:"id" json:"id"`
	Name                   string    `db:"name" json:"name"`
	Description            string    `db:"description" json:"description"`
	DefaultDurationMinutes int       `db:"default_duration_minutes" json:"default_duration_minutes"`
	DefaultCapacity        int       `db:"default_capacity" json:"default_capacity"`
	IsActive               bool      `db:"is_active" json:"is_active"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
}

type GymClass struct {
	ID                 int       `db:"id" json:"id"`
	ClassTypeID        int       `db:"class_type_id" json:"class_type_id"`
	InstructorID       *int      `db:"instructor_id" json:"instructor_id,omitempty"`
	Title              string    `db:"title" json:"title"`
	StartTime          time.Time `db:"start_time" json:"start_time"`
	EndTime            time.Time `db:"end_time" json:"end_time"`
	Capacity           int       `db:"capacity" json:"capacity"`
	Location           string    `db:"location" json:"location"`
	IsCancelled        bool      `db:"is_cancelled" json:"is_cancelled"`
	CancellationReason string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	ConfirmedCount     int       `db:"confirmed_count" json:"-"`
	WaitlistCount      int       `db:"waitlist_count" json:"-"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableSpots never goes negative in a healthy store. The reservation
// engine treats a negative raw value as an invariant breach before this
// clamp is applied.
func (c *GymClass) AvailableSpots() int {
	spots := c.Capacity - c.ConfirmedCount
	if spots < 0 {
		return 0
	}
	return spots
}

func (c *GymClass) IsFull() bool {
	return c.ConfirmedCount >= c.Capacity
}

// Response adds the derived occupancy fields the list and detail endpoints
// expose.
type Response struct {
	GymClass
	ConfirmedCount int  `json:"confirmed_count"`
	AvailableSpots int  `json:"available_spots"`
	IsFull         bool `json:"is_full"`
	WaitlistCount  int  `json:"waitlist_count"`
}

func (c *GymClass) ToResponse() Response {
	return Response{
		GymClass:       *c,
		ConfirmedCount: c.ConfirmedCount,
		AvailableSpots: c.AvailableSpots(),
		IsFull:         c.IsFull(),
		WaitlistCount:  c.WaitlistCount,
	}
}

type CreateTypeRequest struct {
	Name                   string `json:"name" binding:"required"`
	Description            string `json:"description"`
	DefaultDurationMinutes int    `json:"default_duration_minutes" binding:"required,gt=0"`
	DefaultCapacity        int    `json:"default_capacity" binding:"required,gt=0"`
}

type ScheduleRequest struct {
	ClassTypeID  int       `json:"class_type_id" binding:"required"`
	InstructorID *int      `json:"instructor_id"`
	Title        string    `json:"title"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time"`
	Capacity     int       `json:"capacity"`
	Location     string    `json:"location"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListFilter narrows the class listing. Zero value means upcoming,
// not cancelled.
type ListFilter struct {
	From             *time.Time
	To               *time.Time
	IncludeCancelled bool
	IncludePast      bool
}

// Attendee is the slice of a confirmed reservation needed to notify its
// holder.
type Attendee struct {
	Email string `db:"email"`
	Name  string `db:"name"`
}
