package membership

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrMembershipNotFound = errors.New("membership not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const membershipColumns = `id, member_id, plan_id, price_cents, duration_days, start_date, end_date,
	status, frozen_at, freeze_reason, frozen_days_used, notes, created_at, updated_at`

func (r *repository) Create(ctx context.Context, m *Membership) (*Membership, error) {
	query := `
		INSERT INTO memberships
			(member_id, plan_id, price_cents, duration_days, start_date, end_date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + membershipColumns

	var created Membership
	err := r.db.GetContext(ctx, &created, query,
		m.MemberID, m.PlanID, m.PriceCents, m.DurationDays, m.StartDate, m.EndDate, m.Status, m.Notes)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1`

	var m Membership
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	return &m, nil
}

func (r *repository) GetCurrentByMember(ctx context.Context, memberID int) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE member_id = $1 AND status IN ('active', 'frozen')
		ORDER BY end_date DESC
		LIMIT 1
	`

	var m Membership
	if err := r.db.GetContext(ctx, &m, query, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	return &m, nil
}

func (r *repository) ListByMember(ctx context.Context, memberID int) ([]Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE member_id = $1
		ORDER BY start_date DESC
	`

	var memberships []Membership
	if err := r.db.SelectContext(ctx, &memberships, query, memberID); err != nil {
		return nil, err
	}

	return memberships, nil
}

func (r *repository) Update(ctx context.Context, m *Membership) (*Membership, error) {
	query := `
		UPDATE memberships
		SET price_cents = $2, end_date = $3, status = $4, frozen_at = $5,
		    freeze_reason = $6, frozen_days_used = $7, notes = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + membershipColumns

	var updated Membership
	err := r.db.GetContext(ctx, &updated, query,
		m.ID, m.PriceCents, m.EndDate, m.Status, m.FrozenAt,
		m.FreezeReason, m.FrozenDaysUsed, m.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	return &updated, nil
}

func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE memberships
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND end_date < $1
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *repository) ListExpiringSoon(ctx context.Context, from, to time.Time) ([]ExpiringMembership, error) {
	query := `
		SELECT m.id AS membership_id, m.member_id, u.email, u.name, m.end_date
		FROM memberships m
		JOIN users u ON u.id = m.member_id
		WHERE m.status = 'active' AND m.end_date BETWEEN $1 AND $2
		ORDER BY m.end_date
	`

	var expiring []ExpiringMembership
	if err := r.db.SelectContext(ctx, &expiring, query, from, to); err != nil {
		return nil, err
	}

	return expiring, nil
}

func (r *repository) CreateFreezeRecord(ctx context.Context, membershipID int, startDate time.Time, reason string) error {
	query := `
		INSERT INTO membership_freezes (membership_id, start_date, reason)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.ExecContext(ctx, query, membershipID, startDate, reason)
	return err
}

func (r *repository) CloseFreezeRecord(ctx context.Context, membershipID int, endDate time.Time) error {
	query := `
		UPDATE membership_freezes
		SET end_date = $2
		WHERE membership_id = $1 AND end_date IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, membershipID, endDate)
	return err
}

func (r *repository) ListFreezeRecords(ctx context.Context, membershipID int) ([]FreezeRecord, error) {
	query := `
		SELECT id, membership_id, start_date, end_date, reason, created_at
		FROM membership_freezes
		WHERE membership_id = $1
		ORDER BY start_date DESC
	`

	var records []FreezeRecord
	if err := r.db.SelectContext(ctx, &records, query, membershipID); err != nil {
		return nil, err
	}

	return records, nil
}
