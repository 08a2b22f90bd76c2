package membership

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, m *Membership) (*Membership, error)
	GetByID(ctx context.Context, id int) (*Membership, error)
	// GetCurrentByMember returns the member's active or frozen membership, if any.
	GetCurrentByMember(ctx context.Context, memberID int) (*Membership, error)
	ListByMember(ctx context.Context, memberID int) ([]Membership, error)
	Update(ctx context.Context, m *Membership) (*Membership, error)
	// ExpireDue flips every active membership whose end_date lies before the
	// given date to expired and returns how many rows changed.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	// ListExpiringSoon returns active memberships whose end_date falls in
	// [from, to], with member contact details.
	ListExpiringSoon(ctx context.Context, from, to time.Time) ([]ExpiringMembership, error)

	CreateFreezeRecord(ctx context.Context, membershipID int, startDate time.Time, reason string) error
	CloseFreezeRecord(ctx context.Context, membershipID int, endDate time.Time) error
	ListFreezeRecords(ctx context.Context, membershipID int) ([]FreezeRecord, error)
}
