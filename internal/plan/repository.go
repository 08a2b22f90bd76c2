package plan

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrPlanNotFound = errors.New("membership plan not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const planColumns = `id, name, description, price_cents, duration_days, max_classes_per_month,
	includes_trainer, can_freeze, max_freeze_days, is_active, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *MembershipPlan) (*MembershipPlan, error) {
	query := `
		INSERT INTO membership_plans
			(name, description, price_cents, duration_days, max_classes_per_month,
			 includes_trainer, can_freeze, max_freeze_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + planColumns

	var created MembershipPlan
	err := r.db.GetContext(ctx, &created, query,
		p.Name, p.Description, p.PriceCents, p.DurationDays, p.MaxClassesPerMonth,
		p.IncludesTrainer, p.CanFreeze, p.MaxFreezeDays)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*MembershipPlan, error) {
	query := `SELECT ` + planColumns + ` FROM membership_plans WHERE id = $1`

	var p MembershipPlan
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, ErrPlanNotFound
	}

	return &p, nil
}

func (r *repository) Update(ctx context.Context, p *MembershipPlan) (*MembershipPlan, error) {
	query := `
		UPDATE membership_plans
		SET name = $2, description = $3, price_cents = $4, duration_days = $5,
		    max_classes_per_month = $6, includes_trainer = $7, can_freeze = $8,
		    max_freeze_days = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + planColumns

	var updated MembershipPlan
	err := r.db.GetContext(ctx, &updated, query,
		p.ID, p.Name, p.Description, p.PriceCents, p.DurationDays, p.MaxClassesPerMonth,
		p.IncludesTrainer, p.CanFreeze, p.MaxFreezeDays)
	if err != nil {
		return nil, ErrPlanNotFound
	}

	return &updated, nil
}

func (r *repository) Retire(ctx context.Context, id int) error {
	query := `UPDATE membership_plans SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrPlanNotFound
	}

	return nil
}

func (r *repository) List(ctx context.Context, onlyActive bool) ([]MembershipPlan, error) {
	query := `SELECT ` + planColumns + ` FROM membership_plans`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY price_cents ASC`

	var plans []MembershipPlan
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, err
	}

	return plans, nil
}
