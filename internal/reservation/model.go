package reservation

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusWaitlist  Status = "waitlist"
	StatusCancelled Status = "cancelled"
	StatusAttended  Status = "attended"
	StatusNoShow    Status = "no_show"
)

// Reservation is one member's claim on one class. WaitlistPosition is non-nil
// exactly while status is waitlist; positions per class stay contiguous
// 1..N.
type Reservation struct {
	ID               int        `db:"id" json:"id"`
	GymClassID       int        `db:"gym_class_id" json:"gym_class_id"`
	MemberID         int        `db:"member_id" json:"member_id"`
	Status           Status     `db:"status" json:"status"`
	WaitlistPosition *int       `db:"waitlist_position" json:"waitlist_position,omitempty"`
	ReservedAt       time.Time  `db:"reserved_at" json:"reserved_at"`
	CancelledAt      *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	AttendedAt       *time.Time `db:"attended_at" json:"attended_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

func (r *Reservation) IsTerminal() bool {
	return r.Status == StatusCancelled || r.Status == StatusAttended || r.Status == StatusNoShow
}

// WithClass is the member-facing listing row.
type WithClass struct {
	Reservation
	ClassTitle     string    `db:"class_title" json:"class_title"`
	ClassStartTime time.Time `db:"class_start_time" json:"class_start_time"`
	ClassEndTime   time.Time `db:"class_end_time" json:"class_end_time"`
	ClassLocation  string    `db:"class_location" json:"class_location"`
	ClassCancelled bool      `db:"class_cancelled" json:"class_cancelled"`
}

// WithMember is the staff-facing per-class roster row.
type WithMember struct {
	Reservation
	MemberName  string `db:"member_name" json:"member_name"`
	MemberEmail string `db:"member_email" json:"member_email"`
}

// CancelOutcome reports what a cancellation did. Promoted is nil unless a
// waitlisted reservation took the freed confirmed spot; the contact fields
// belong to the promoted member.
type CancelOutcome struct {
	Cancelled     *Reservation `json:"cancelled"`
	Promoted      *Reservation `json:"promoted,omitempty"`
	PromotedEmail string       `json:"-"`
	PromotedName  string       `json:"-"`
}

// StatsByDay aggregates reservation activity for the analytics endpoint.
type StatsByDay struct {
	Bucket    time.Time `db:"bucket" json:"bucket"`
	Confirmed int       `db:"confirmed" json:"confirmed"`
	Waitlist  int       `db:"waitlist" json:"waitlist"`
	Cancelled int       `db:"cancelled" json:"cancelled"`
	Attended  int       `db:"attended" json:"attended"`
	NoShow    int       `db:"no_show" json:"no_show"`
}

// StatsByClass aggregates per class over a window.
type StatsByClass struct {
	GymClassID int    `db:"gym_class_id" json:"gym_class_id"`
	ClassTitle string `db:"class_title" json:"class_title"`
	Confirmed  int    `db:"confirmed" json:"confirmed"`
	Waitlist   int    `db:"waitlist" json:"waitlist"`
	Cancelled  int    `db:"cancelled" json:"cancelled"`
	Attended   int    `db:"attended" json:"attended"`
	NoShow     int    `db:"no_show" json:"no_show"`
}

// InvariantError marks a broken storage invariant (negative spots, waitlist
// position gaps). It is a server fault, never a business rejection.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Detail
}

func invariantf(format string, args ...interface{}) error {
	return &InvariantError{Detail: fmt.Sprintf(format, args...)}
}
