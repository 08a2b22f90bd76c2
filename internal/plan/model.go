package plan

import "time"

// MembershipPlan is a catalog entry. Prices are minor currency units.
// Plans referenced by memberships are never deleted, only retired.
type MembershipPlan struct {
	ID                 int       `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Description        string    `db:"description" json:"description"`
	PriceCents         int64     `db:"price_cents" json:"price_cents"`
	DurationDays       int       `db:"duration_days" json:"duration_days"`
	MaxClassesPerMonth *int      `db:"max_classes_per_month" json:"max_classes_per_month,omitempty"`
	IncludesTrainer    bool      `db:"includes_trainer" json:"includes_trainer"`
	CanFreeze          bool      `db:"can_freeze" json:"can_freeze"`
	MaxFreezeDays      int       `db:"max_freeze_days" json:"max_freeze_days"`
	IsActive           bool      `db:"is_active" json:"is_active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

type CreatePlanRequest struct {
	Name               string `json:"name" binding:"required,max=100"`
	Description        string `json:"description"`
	PriceCents         int64  `json:"price_cents" binding:"required,gte=0"`
	DurationDays       int    `json:"duration_days" binding:"required,gt=0"`
	MaxClassesPerMonth *int   `json:"max_classes_per_month" binding:"omitempty,gt=0"`
	IncludesTrainer    bool   `json:"includes_trainer"`
	CanFreeze          *bool  `json:"can_freeze"`
	MaxFreezeDays      *int   `json:"max_freeze_days" binding:"omitempty,gte=0"`
}

type UpdatePlanRequest struct {
	Name               *string `json:"name" binding:"omitempty,max=100"`
	Description        *string `json:"description"`
	PriceCents         *int64  `json:"price_cents" binding:"omitempty,gte=0"`
	DurationDays       *int    `json:"duration_days" binding:"omitempty,gt=0"`
	MaxClassesPerMonth *int    `json:"max_classes_per_month" binding:"omitempty,gt=0"`
	IncludesTrainer    *bool   `json:"includes_trainer"`
	CanFreeze          *bool   `json:"can_freeze"`
	MaxFreezeDays      *int    `json:"max_freeze_days" binding:"omitempty,gte=0"`
}
