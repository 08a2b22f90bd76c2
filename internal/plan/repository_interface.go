package plan

import "context"

type Repository interface {
	Create(ctx context.Context, p *MembershipPlan) (*MembershipPlan, error)
	GetByID(ctx context.Context, id int) (*MembershipPlan, error)
	Update(ctx context.Context, p *MembershipPlan) (*MembershipPlan, error)
	Retire(ctx context.Context, id int) error
	List(ctx context.Context, onlyActive bool) ([]MembershipPlan, error)
}
