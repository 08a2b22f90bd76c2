package reservation

import (
	"context"
	"errors"
	"time"

	"gymcore/internal/class"
	"gymcore/internal/keylock"
	"gymcore/internal/logger"
	"gymcore/internal/membership"
	"gymcore/internal/metrics"
	"gymcore/internal/plan"
	"gymcore/internal/user"
)

var (
	ErrMembershipInactive = errors.New("member has no active membership")
	ErrQuotaExceeded      = errors.New("monthly class quota exceeded")
	ErrClassCancelled     = errors.New("class is cancelled")
	ErrClassInPast        = errors.New("class has already started")
	ErrClassNotStarted    = errors.New("class has not started yet")
	ErrNotOwner           = errors.New("can only cancel own reservation")
)

// Notifier queues member-facing notices. Implemented by the notify package.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, email, name, classTitle string, startTime time.Time) error
	SendWaitlistPromotion(ctx context.Context, email, name, classTitle string, startTime time.Time) error
}

type Service interface {
	Create(ctx context.Context, memberID, classID int, staffOverride bool, now time.Time) (*Reservation, error)
	Cancel(ctx context.Context, reservationID, actingMemberID int, staffOverride bool, now time.Time) (*CancelOutcome, error)
	MarkAttended(ctx context.Context, reservationID int, now time.Time) (*Reservation, error)
	MarkNoShow(ctx context.Context, reservationID int, now time.Time) (*Reservation, error)
	ListMine(ctx context.Context, memberID int) ([]WithClass, error)
	ListByClass(ctx context.Context, classID int) ([]WithMember, error)
	StatsByDay(ctx context.Context, from, to time.Time) ([]StatsByDay, error)
	StatsByClass(ctx context.Context, from, to time.Time) ([]StatsByClass, error)
}

type service struct {
	repo           Repository
	classRepo      class.Repository
	membershipRepo membership.Repository
	planRepo       plan.Repository
	userRepo       user.Repository
	notifier       Notifier
	locks          *keylock.Locker
}

func NewService(repo Repository, classRepo class.Repository, membershipRepo membership.Repository,
	planRepo plan.Repository, userRepo user.Repository, notifier Notifier) Service {
	return &service{
		repo:           repo,
		classRepo:      classRepo,
		membershipRepo: membershipRepo,
		planRepo:       planRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		locks:          keylock.New(),
	}
}

func (s *service) Create(ctx context.Context, memberID, classID int, staffOverride bool, now time.Time) (*Reservation, error) {
	c, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if c.IsCancelled {
		return nil, ErrClassCancelled
	}
	if !c.StartTime.After(now) {
		return nil, ErrClassInPast
	}

	hasActive, err := s.repo.HasActive(ctx, classID, memberID)
	if err != nil {
		return nil, err
	}
	if hasActive {
		return nil, ErrAlreadyReserved
	}

	if !staffOverride {
		if err := s.checkEligibility(ctx, memberID, now); err != nil {
			return nil, err
		}
	}

	s.locks.Lock(classID)
	defer s.locks.Unlock(classID)

	res, err := s.repo.Reserve(ctx, classID, memberID, now)
	if err != nil {
		return nil, err
	}

	metrics.RecordReservation(string(res.Status))
	if res.Status == StatusConfirmed {
		logger.Infof("Reservation %d confirmed for member %d in class %d", res.ID, memberID, classID)
		s.notifyBooking(ctx, memberID, c)
	} else {
		logger.Infof("Member %d waitlisted for class %d at position %d",
			memberID, classID, *res.WaitlistPosition)
	}

	return res, nil
}

// checkEligibility enforces the membership gate: an active, unexpired
// membership with quota headroom. The lapse check runs first so a stale
// "active" row never passes.
func (s *service) checkEligibility(ctx context.Context, memberID int, now time.Time) error {
	m, err := s.membershipRepo.GetCurrentByMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, membership.ErrMembershipNotFound) {
			return ErrMembershipInactive
		}
		return err
	}

	if m.Lapse(now) {
		if _, err := s.membershipRepo.Update(ctx, m); err != nil {
			logger.Errorf("Failed to persist expiry of membership %d: %v", m.ID, err)
		}
		return ErrMembershipInactive
	}
	if m.Status != membership.StatusActive {
		return ErrMembershipInactive
	}

	p, err := s.planRepo.GetByID(ctx, m.PlanID)
	if err != nil {
		return err
	}
	if p.MaxClassesPerMonth == nil {
		return nil
	}

	monthStart := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	count, err := s.repo.CountConfirmedInWindow(ctx, memberID, monthStart, monthEnd)
	if err != nil {
		return err
	}
	if count >= *p.MaxClassesPerMonth {
		return ErrQuotaExceeded
	}

	return nil
}

func (s *service) Cancel(ctx context.Context, reservationID, actingMemberID int, staffOverride bool, now time.Time) (*CancelOutcome, error) {
	res, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if !staffOverride && res.MemberID != actingMemberID {
		return nil, ErrNotOwner
	}
	if res.Status != StatusConfirmed && res.Status != StatusWaitlist {
		return nil, ErrNotCancellable
	}

	s.locks.Lock(res.GymClassID)
	defer s.locks.Unlock(res.GymClassID)

	outcome, err := s.repo.Cancel(ctx, reservationID, now)
	if err != nil {
		return nil, err
	}

	metrics.RecordCancellation()
	logger.Infof("Reservation %d cancelled (was %s)", reservationID, res.Status)

	if outcome.Promoted != nil {
		metrics.RecordPromotion()
		logger.Infof("Reservation %d promoted from waitlist in class %d",
			outcome.Promoted.ID, res.GymClassID)
		s.notifyPromotion(ctx, outcome, res.GymClassID)
	}

	return outcome, nil
}

func (s *service) MarkAttended(ctx context.Context, reservationID int, now time.Time) (*Reservation, error) {
	return s.markAttendance(ctx, reservationID, StatusAttended, now)
}

func (s *service) MarkNoShow(ctx context.Context, reservationID int, now time.Time) (*Reservation, error) {
	return s.markAttendance(ctx, reservationID, StatusNoShow, now)
}

func (s *service) markAttendance(ctx context.Context, reservationID int, status Status, now time.Time) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status != StatusConfirmed {
		return nil, ErrNotConfirmed
	}

	c, err := s.classRepo.GetByID(ctx, res.GymClassID)
	if err != nil {
		return nil, err
	}
	if now.Before(c.StartTime) {
		return nil, ErrClassNotStarted
	}

	return s.repo.MarkAttendance(ctx, reservationID, status, now)
}

func (s *service) ListMine(ctx context.Context, memberID int) ([]WithClass, error) {
	return s.repo.ListByMember(ctx, memberID)
}

func (s *service) ListByClass(ctx context.Context, classID int) ([]WithMember, error) {
	return s.repo.ListByClass(ctx, classID)
}

func (s *service) StatsByDay(ctx context.Context, from, to time.Time) ([]StatsByDay, error) {
	return s.repo.StatsByDay(ctx, from, to)
}

func (s *service) StatsByClass(ctx context.Context, from, to time.Time) ([]StatsByClass, error) {
	return s.repo.StatsByClass(ctx, from, to)
}

func (s *service) notifyBooking(ctx context.Context, memberID int, c *class.GymClass) {
	u, err := s.userRepo.FindByID(ctx, memberID)
	if err != nil {
		logger.Errorf("Failed to load member %d for booking notice: %v", memberID, err)
		return
	}

	if err := s.notifier.SendBookingConfirmation(ctx, u.Email, u.Name, c.Title, c.StartTime); err != nil {
		logger.Errorf("Failed to queue booking confirmation to %s: %v", u.Email, err)
	}
}

func (s *service) notifyPromotion(ctx context.Context, outcome *CancelOutcome, classID int) {
	c, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		logger.Errorf("Failed to load class %d for promotion notice: %v", classID, err)
		return
	}

	if err := s.notifier.SendWaitlistPromotion(ctx, outcome.PromotedEmail, outcome.PromotedName, c.Title, c.StartTime); err != nil {
		logger.Errorf("Failed to queue promotion notice to %s: %v", outcome.PromotedEmail, err)
	}
}
