package membership

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"gymcore/internal/keylock"
	"gymcore/internal/logger"
	"gymcore/internal/metrics"
	"gymcore/internal/plan"
)

var (
	ErrActiveMembershipExists      = errors.New("member already has an active membership")
	ErrPlanRetired                 = errors.New("membership plan is retired")
	ErrPlanNotFreezable            = errors.New("membership plan does not allow freezing")
	ErrFreezeLimitExceeded         = errors.New("freeze limit exceeded")
	ErrFreezeReasonRequired        = errors.New("freeze reason is required")
	ErrMembershipNotActive         = errors.New("membership is not active")
	ErrMembershipNotFrozen         = errors.New("membership is not frozen")
	ErrMembershipCancelled         = errors.New("membership is cancelled")
	ErrInvalidDuration             = errors.New("renewal duration must be 1, 3, 6 or 12 months")
	ErrNoActiveOrExpiredMembership = errors.New("membership must be active or expired to renew")
	ErrNotOwner                    = errors.New("can only manage own membership")
	ErrInvalidStartDate            = errors.New("invalid start date")
)

// renewalDiscountPercent is a fixed pricing policy, not derived from plans.
var renewalDiscountPercent = map[int]int64{
	1:  0,
	3:  5,
	6:  10,
	12: 15,
}

const renewalMonthDays = 30

const expiryReminderWindowDays = 7

// Notifier queues member-facing notices. Implemented by the notify package.
// A nil Notifier disables reminders.
type Notifier interface {
	SendExpiryReminder(ctx context.Context, email, name string, endDate time.Time, daysLeft int) error
}

type Service interface {
	Assign(ctx context.Context, memberID int, req AssignRequest, now time.Time) (*Response, error)
	GetByID(ctx context.Context, membershipID, actingMemberID int, staff bool, now time.Time) (*Response, error)
	GetCurrentByMember(ctx context.Context, memberID int, now time.Time) (*Response, error)
	ListByMember(ctx context.Context, memberID int, now time.Time) ([]Response, error)
	Freeze(ctx context.Context, membershipID, actingMemberID int, staff bool, req FreezeRequest, now time.Time) (*Response, error)
	Unfreeze(ctx context.Context, membershipID, actingMemberID int, staff bool, now time.Time) (*Response, error)
	Renew(ctx context.Context, membershipID, actingMemberID int, staff bool, req RenewRequest, now time.Time) (*RenewResponse, error)
	Cancel(ctx context.Context, membershipID int, now time.Time) (*Response, error)
	ListFreezes(ctx context.Context, membershipID int) ([]FreezeRecord, error)
	RunExpirySweep(ctx context.Context, interval time.Duration)
}

type service struct {
	repo     Repository
	planRepo plan.Repository
	notifier Notifier
	locks    *keylock.Locker

	remindedMu sync.Mutex
	remindedOn map[int]time.Time
}

func NewService(repo Repository, planRepo plan.Repository, notifier Notifier) Service {
	return &service{
		repo:       repo,
		planRepo:   planRepo,
		notifier:   notifier,
		locks:      keylock.New(),
		remindedOn: make(map[int]time.Time),
	}
}

// RenewalPrice computes the renewal charge from the membership's snapshotted
// plan price: price * months, minus the tier discount.
func RenewalPrice(priceCents int64, months int) (int64, error) {
	discount, ok := renewalDiscountPercent[months]
	if !ok {
		return 0, ErrInvalidDuration
	}
	return priceCents * int64(months) * (100 - discount) / 100, nil
}

func (s *service) Assign(ctx context.Context, memberID int, req AssignRequest, now time.Time) (*Response, error) {
	p, err := s.planRepo.GetByID(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrPlanRetired
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, ErrInvalidStartDate
	}

	// A frozen membership is still an ongoing subscription, so it blocks a
	// new assignment just like an active one.
	existing, err := s.repo.GetCurrentByMember(ctx, memberID)
	if err == nil && existing != nil {
		if !s.applyExpiry(ctx, existing, now) {
			return nil, ErrActiveMembershipExists
		}
	} else if err != nil && !errors.Is(err, ErrMembershipNotFound) {
		return nil, err
	}

	m := &Membership{
		MemberID:     memberID,
		PlanID:       p.ID,
		PriceCents:   p.PriceCents,
		DurationDays: p.DurationDays,
		StartDate:    startDate,
		EndDate:      startDate.AddDate(0, 0, p.DurationDays),
		Status:       StatusActive,
		Notes:        req.Notes,
	}

	created, err := s.repo.Create(ctx, m)
	if err != nil {
		return nil, err
	}

	metrics.RecordMembershipAssigned()
	logger.Infof("Membership %d assigned to member %d (plan %d, ends %s)",
		created.ID, memberID, p.ID, created.EndDate.Format("2006-01-02"))

	resp := created.ToResponse(now)
	return &resp, nil
}

func (s *service) GetByID(ctx context.Context, membershipID, actingMemberID int, staff bool, now time.Time) (*Response, error) {
	m, err := s.getChecked(ctx, membershipID, actingMemberID, staff, now)
	if err != nil {
		return nil, err
	}

	resp := m.ToResponse(now)
	return &resp, nil
}

func (s *service) GetCurrentByMember(ctx context.Context, memberID int, now time.Time) (*Response, error) {
	m, err := s.repo.GetCurrentByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	s.applyExpiry(ctx, m, now)

	resp := m.ToResponse(now)
	return &resp, nil
}

func (s *service) ListByMember(ctx context.Context, memberID int, now time.Time) ([]Response, error) {
	memberships, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	responses := make([]Response, 0, len(memberships))
	for i := range memberships {
		s.applyExpiry(ctx, &memberships[i], now)
		responses = append(responses, memberships[i].ToResponse(now))
	}

	return responses, nil
}

func (s *service) Freeze(ctx context.Context, membershipID, actingMemberID int, staff bool, req FreezeRequest, now time.Time) (*Response, error) {
	if req.Reason == "" {
		return nil, ErrFreezeReasonRequired
	}

	s.locks.Lock(membershipID)
	defer s.locks.Unlock(membershipID)

	m, err := s.getChecked(ctx, membershipID, actingMemberID, staff, now)
	if err != nil {
		return nil, err
	}

	if m.Status != StatusActive {
		return nil, ErrMembershipNotActive
	}

	p, err := s.planRepo.GetByID(ctx, m.PlanID)
	if err != nil {
		return nil, err
	}
	if !p.CanFreeze {
		return nil, ErrPlanNotFreezable
	}
	if m.FrozenDaysUsed+req.Days > p.MaxFreezeDays {
		return nil, ErrFreezeLimitExceeded
	}

	frozenAt := dateOnly(now)
	m.Status = StatusFrozen
	m.FrozenAt = &frozenAt
	m.FreezeReason = req.Reason

	updated, err := s.repo.Update(ctx, m)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateFreezeRecord(ctx, membershipID, frozenAt, req.Reason); err != nil {
		logger.Errorf("Failed to record freeze for membership %d: %v", membershipID, err)
	}

	metrics.RecordFreeze("freeze")

	resp := updated.ToResponse(now)
	return &resp, nil
}

func (s *service) Unfreeze(ctx context.Context, membershipID, actingMemberID int, staff bool, now time.Time) (*Response, error) {
	s.locks.Lock(membershipID)
	defer s.locks.Unlock(membershipID)

	m, err := s.getChecked(ctx, membershipID, actingMemberID, staff, now)
	if err != nil {
		return nil, err
	}

	if m.Status != StatusFrozen || m.FrozenAt == nil {
		return nil, ErrMembershipNotFrozen
	}

	// The paused duration pushes the expiry forward day for day.
	frozenDays := daysBetween(dateOnly(*m.FrozenAt), dateOnly(now))
	if frozenDays < 0 {
		frozenDays = 0
	}

	m.EndDate = m.EndDate.AddDate(0, 0, frozenDays)
	m.FrozenDaysUsed += frozenDays
	m.Status = StatusActive
	m.FrozenAt = nil
	m.FreezeReason = ""

	updated, err := s.repo.Update(ctx, m)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CloseFreezeRecord(ctx, membershipID, dateOnly(now)); err != nil {
		logger.Errorf("Failed to close freeze record for membership %d: %v", membershipID, err)
	}

	metrics.RecordFreeze("unfreeze")
	logger.Infof("Membership %d unfrozen after %d days, new end date %s",
		membershipID, frozenDays, updated.EndDate.Format("2006-01-02"))

	resp := updated.ToResponse(now)
	return &resp, nil
}

func (s *service) Renew(ctx context.Context, membershipID, actingMemberID int, staff bool, req RenewRequest, now time.Time) (*RenewResponse, error) {
	s.locks.Lock(membershipID)
	defer s.locks.Unlock(membershipID)

	m, err := s.getChecked(ctx, membershipID, actingMemberID, staff, now)
	if err != nil {
		return nil, err
	}

	if m.Status != StatusActive && m.Status != StatusExpired {
		return nil, ErrNoActiveOrExpiredMembership
	}

	price, err := RenewalPrice(m.PriceCents, req.DurationMonths)
	if err != nil {
		return nil, err
	}

	// Renewal extends from the stored end date, even when it is already in
	// the past. Never extend from "today".
	m.EndDate = m.EndDate.AddDate(0, 0, req.DurationMonths*renewalMonthDays)
	m.Status = StatusActive

	updated, err := s.repo.Update(ctx, m)
	if err != nil {
		return nil, err
	}

	metrics.RecordRenewal(strconv.Itoa(req.DurationMonths))
	logger.Infof("Membership %d renewed for %d months (%d cents, %s), new end date %s",
		membershipID, req.DurationMonths, price, req.PaymentMethod,
		updated.EndDate.Format("2006-01-02"))

	return &RenewResponse{
		Membership:    updated.ToResponse(now),
		PriceCents:    price,
		PaymentMethod: req.PaymentMethod,
	}, nil
}

func (s *service) Cancel(ctx context.Context, membershipID int, now time.Time) (*Response, error) {
	s.locks.Lock(membershipID)
	defer s.locks.Unlock(membershipID)

	m, err := s.repo.GetByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}

	if m.Status == StatusCancelled {
		return nil, ErrMembershipCancelled
	}

	if m.Status == StatusFrozen {
		if err := s.repo.CloseFreezeRecord(ctx, membershipID, dateOnly(now)); err != nil {
			logger.Errorf("Failed to close freeze record for membership %d: %v", membershipID, err)
		}
	}

	m.Status = StatusCancelled
	m.FrozenAt = nil

	updated, err := s.repo.Update(ctx, m)
	if err != nil {
		return nil, err
	}

	resp := updated.ToResponse(now)
	return &resp, nil
}

func (s *service) ListFreezes(ctx context.Context, membershipID int) ([]FreezeRecord, error) {
	return s.repo.ListFreezeRecords(ctx, membershipID)
}

// RunExpirySweep periodically expires lapsed memberships and queues expiry
// reminders. Expiry is also applied lazily on reads, so the sweep only keeps
// the stored state from drifting too far for direct SQL consumers.
func (s *service) RunExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.repo.ExpireDue(ctx, dateOnly(time.Now()))
			if err != nil {
				logger.Errorf("Expiry sweep failed: %v", err)
				continue
			}
			if count > 0 {
				for i := int64(0); i < count; i++ {
					metrics.RecordExpired()
				}
				logger.Infof("Expiry sweep transitioned %d memberships", count)
			}

			s.sendExpiryReminders(ctx, time.Now())
		}
	}
}

// sendExpiryReminders queues a notice for every active membership ending
// within the reminder window, at most once per membership per day.
func (s *service) sendExpiryReminders(ctx context.Context, now time.Time) {
	if s.notifier == nil {
		return
	}

	today := dateOnly(now)
	expiring, err := s.repo.ListExpiringSoon(ctx, today, today.AddDate(0, 0, expiryReminderWindowDays))
	if err != nil {
		logger.Errorf("Failed to list expiring memberships: %v", err)
		return
	}

	for _, e := range expiring {
		if s.remindedToday(e.MembershipID, today) {
			continue
		}

		daysLeft := daysBetween(today, dateOnly(e.EndDate))
		if err := s.notifier.SendExpiryReminder(ctx, e.Email, e.Name, e.EndDate, daysLeft); err != nil {
			logger.Errorf("Failed to queue expiry reminder to %s: %v", e.Email, err)
			continue
		}
		s.markReminded(e.MembershipID, today)
	}
}

func (s *service) remindedToday(membershipID int, today time.Time) bool {
	s.remindedMu.Lock()
	defer s.remindedMu.Unlock()
	return s.remindedOn[membershipID].Equal(today)
}

func (s *service) markReminded(membershipID int, today time.Time) {
	s.remindedMu.Lock()
	defer s.remindedMu.Unlock()
	for id, day := range s.remindedOn {
		if day.Before(today) {
			delete(s.remindedOn, id)
		}
	}
	s.remindedOn[membershipID] = today
}

// getChecked loads a membership, enforces ownership and applies the lazy
// expiry transition.
func (s *service) getChecked(ctx context.Context, membershipID, actingMemberID int, staff bool, now time.Time) (*Membership, error) {
	m, err := s.repo.GetByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}

	if !staff && m.MemberID != actingMemberID {
		return nil, ErrNotOwner
	}

	s.applyExpiry(ctx, m, now)
	return m, nil
}

// applyExpiry performs the lazy active -> expired transition. Idempotent;
// reports whether the membership expired.
func (s *service) applyExpiry(ctx context.Context, m *Membership, now time.Time) bool {
	if !m.Lapse(now) {
		return false
	}

	if updated, err := s.repo.Update(ctx, m); err != nil {
		logger.Errorf("Failed to persist expiry of membership %d: %v", m.ID, err)
	} else {
		*m = *updated
	}
	metrics.RecordExpired()
	return true
}
