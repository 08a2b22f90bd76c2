package plan

import (
	"context"
)

const defaultMaxFreezeDays = 15

type Service interface {
	Create(ctx context.Context, req CreatePlanRequest) (*MembershipPlan, error)
	GetByID(ctx context.Context, id int) (*MembershipPlan, error)
	Update(ctx context.Context, id int, req UpdatePlanRequest) (*MembershipPlan, error)
	Retire(ctx context.Context, id int) error
	List(ctx context.Context, onlyActive bool) ([]MembershipPlan, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreatePlanRequest) (*MembershipPlan, error) {
	p := &MembershipPlan{
		Name:               req.Name,
		Description:        req.Description,
		PriceCents:         req.PriceCents,
		DurationDays:       req.DurationDays,
		MaxClassesPerMonth: req.MaxClassesPerMonth,
		IncludesTrainer:    req.IncludesTrainer,
		CanFreeze:          true,
		MaxFreezeDays:      defaultMaxFreezeDays,
	}
	if req.CanFreeze != nil {
		p.CanFreeze = *req.CanFreeze
	}
	if req.MaxFreezeDays != nil {
		p.MaxFreezeDays = *req.MaxFreezeDays
	}

	return s.repo.Create(ctx, p)
}

func (s *service) GetByID(ctx context.Context, id int) (*MembershipPlan, error) {
	return s.repo.GetByID(ctx, id)
}

// Update edits the catalog entry only. Existing memberships keep the terms
// snapshotted at assignment time and are not affected.
func (s *service) Update(ctx context.Context, id int, req UpdatePlanRequest) (*MembershipPlan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.PriceCents != nil {
		p.PriceCents = *req.PriceCents
	}
	if req.DurationDays != nil {
		p.DurationDays = *req.DurationDays
	}
	if req.MaxClassesPerMonth != nil {
		p.MaxClassesPerMonth = req.MaxClassesPerMonth
	}
	if req.IncludesTrainer != nil {
		p.IncludesTrainer = *req.IncludesTrainer
	}
	if req.CanFreeze != nil {
		p.CanFreeze = *req.CanFreeze
	}
	if req.MaxFreezeDays != nil {
		p.MaxFreezeDays = *req.MaxFreezeDays
	}

	return s.repo.Update(ctx, p)
}

func (s *service) Retire(ctx context.Context, id int) error {
	return s.repo.Retire(ctx, id)
}

func (s *service) List(ctx context.Context, onlyActive bool) ([]MembershipPlan, error) {
	return s.repo.List(ctx, onlyActive)
}
