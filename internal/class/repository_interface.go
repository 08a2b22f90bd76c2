package class

import (
	"context"
	"time"
)

type Repository interface {
	CreateType(ctx context.Context, ct *ClassType) (*ClassType, error)
	GetTypeByID(ctx context.Context, id int) (*ClassType, error)
	ListTypes(ctx context.Context, onlyActive bool) ([]ClassType, error)
	RetireType(ctx context.Context, id int) error

	Create(ctx context.Context, c *GymClass) (*GymClass, error)
	GetByID(ctx context.Context, id int) (*GymClass, error)
	List(ctx context.Context, filter ListFilter, now time.Time) ([]GymClass, error)
	Cancel(ctx context.Context, id int, reason string) (*GymClass, error)
	ListConfirmedAttendees(ctx context.Context, classID int) ([]Attendee, error)
}
