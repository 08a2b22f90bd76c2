package membership

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusFrozen    Status = "frozen"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Membership is one subscription instance. Plan price and duration are
// copied at assignment time so later plan edits never retroactively alter
// existing subscriptions.
type Membership struct {
	ID             int        `db:"id" json:"id"`
	MemberID       int        `db:"member_id" json:"member_id"`
	PlanID         int        `db:"plan_id" json:"plan_id"`
	PriceCents     int64      `db:"price_cents" json:"price_cents"`
	DurationDays   int        `db:"duration_days" json:"duration_days"`
	StartDate      time.Time  `db:"start_date" json:"start_date"`
	EndDate        time.Time  `db:"end_date" json:"end_date"`
	Status         Status     `db:"status" json:"status"`
	FrozenAt       *time.Time `db:"frozen_at" json:"frozen_at,omitempty"`
	FreezeReason   string     `db:"freeze_reason" json:"freeze_reason,omitempty"`
	FrozenDaysUsed int        `db:"frozen_days_used" json:"frozen_days_used"`
	Notes          string     `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// FreezeRecord is one row of freeze history. EndDate stays nil while the
// freeze is open.
type FreezeRecord struct {
	ID           int        `db:"id" json:"id"`
	MembershipID int        `db:"membership_id" json:"membership_id"`
	StartDate    time.Time  `db:"start_date" json:"start_date"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
	Reason       string     `db:"reason" json:"reason"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// DaysRemaining is derived, never stored: whole days until end_date,
// clamped at zero. Only active and frozen memberships have days remaining.
func (m *Membership) DaysRemaining(now time.Time) int {
	if m.Status != StatusActive && m.Status != StatusFrozen {
		return 0
	}
	days := daysBetween(dateOnly(now), dateOnly(m.EndDate))
	if days < 0 {
		return 0
	}
	return days
}

func (m *Membership) IsExpiringSoon(now time.Time) bool {
	d := m.DaysRemaining(now)
	return d > 0 && d <= 7
}

// Lapse applies the active -> expired transition in memory when the end date
// has passed. Reports whether the status changed; callers persist the update.
func (m *Membership) Lapse(now time.Time) bool {
	if m.Status != StatusActive || !dateOnly(now).After(dateOnly(m.EndDate)) {
		return false
	}
	m.Status = StatusExpired
	return true
}

// Response carries the stored membership plus the derived presentation
// fields so every caller sees the same computation.
type Response struct {
	Membership
	DaysRemaining  int  `json:"days_remaining"`
	IsExpiringSoon bool `json:"is_expiring_soon"`
}

func (m *Membership) ToResponse(now time.Time) Response {
	return Response{
		Membership:     *m,
		DaysRemaining:  m.DaysRemaining(now),
		IsExpiringSoon: m.IsExpiringSoon(now),
	}
}

// ExpiringMembership pairs a membership nearing its end date with the
// member's contact details for the reminder sweep.
type ExpiringMembership struct {
	MembershipID int       `db:"membership_id"`
	MemberID     int       `db:"member_id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	EndDate      time.Time `db:"end_date"`
}

type AssignRequest struct {
	PlanID    int    `json:"plan_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	Notes     string `json:"notes"`
}

type FreezeRequest struct {
	Reason string `json:"reason" binding:"required"`
	Days   int    `json:"days" binding:"required,gt=0"`
}

type RenewRequest struct {
	DurationMonths int    `json:"duration_months" binding:"required"`
	PaymentMethod  string `json:"payment_method" binding:"required"`
}

type RenewResponse struct {
	Membership    Response `json:"membership"`
	PriceCents    int64    `json:"price_cents"`
	PaymentMethod string   `json:"payment_method"`
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
