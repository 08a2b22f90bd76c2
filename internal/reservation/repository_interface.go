package reservation

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id int) (*Reservation, error)
	HasActive(ctx context.Context, classID, memberID int) (bool, error)
	CountConfirmedInWindow(ctx context.Context, memberID int, from, to time.Time) (int, error)

	// Reserve and Cancel run their capacity and waitlist bookkeeping inside
	// a single transaction with the class row locked.
	Reserve(ctx context.Context, classID, memberID int, now time.Time) (*Reservation, error)
	Cancel(ctx context.Context, reservationID int, now time.Time) (*CancelOutcome, error)

	MarkAttendance(ctx context.Context, reservationID int, status Status, now time.Time) (*Reservation, error)

	ListByMember(ctx context.Context, memberID int) ([]WithClass, error)
	ListByClass(ctx context.Context, classID int) ([]WithMember, error)

	StatsByDay(ctx context.Context, from, to time.Time) ([]StatsByDay, error)
	StatsByClass(ctx context.Context, from, to time.Time) ([]StatsByClass, error)
}
