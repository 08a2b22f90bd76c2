package reservation

import (
	"context"
	"os"
	"testing"
	"time"

	"gymcore/internal/class"
	"gymcore/internal/logger"
	"gymcore/internal/membership"
	"gymcore/internal/plan"
	"gymcore/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockReservationRepo struct{ mock.Mock }

func (m *MockReservationRepo) GetByID(ctx context.Context, id int) (*Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockReservationRepo) HasActive(ctx context.Context, classID, memberID int) (bool, error) {
	args := m.Called(ctx, classID, memberID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationRepo) CountConfirmedInWindow(ctx context.Context, memberID int, from, to time.Time) (int, error) {
	args := m.Called(ctx, memberID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepo) Reserve(ctx context.Context, classID, memberID int, now time.Time) (*Reservation, error) {
	args := m.Called(ctx, classID, memberID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockReservationRepo) Cancel(ctx context.Context, reservationID int, now time.Time) (*CancelOutcome, error) {
	args := m.Called(ctx, reservationID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CancelOutcome), args.Error(1)
}

func (m *MockReservationRepo) MarkAttendance(ctx context.Context, reservationID int, status Status, now time.Time) (*Reservation, error) {
	args := m.Called(ctx, reservationID, status, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockReservationRepo) ListByMember(ctx context.Context, memberID int) ([]WithClass, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]WithClass), args.Error(1)
}

func (m *MockReservationRepo) ListByClass(ctx context.Context, classID int) ([]WithMember, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]WithMember), args.Error(1)
}

func (m *MockReservationRepo) StatsByDay(ctx context.Context, from, to time.Time) ([]StatsByDay, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]StatsByDay), args.Error(1)
}

func (m *MockReservationRepo) StatsByClass(ctx context.Context, from, to time.Time) ([]StatsByClass, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]StatsByClass), args.Error(1)
}

type MockClassRepo struct{ mock.Mock }

func (m *MockClassRepo) CreateType(ctx context.Context, ct *class.ClassType) (*class.ClassType, error) {
	args := m.Called(ctx, ct)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*class.ClassType), args.Error(1)
}

func (m *MockClassRepo) GetTypeByID(ctx context.Context, id int) (*class.ClassType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*class.ClassType), args.Error(1)
}

func (m *MockClassRepo) ListTypes(ctx context.Context, onlyActive bool) ([]class.ClassType, error) {
	args := m.Called(ctx, onlyActive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]class.ClassType), args.Error(1)
}

func (m *MockClassRepo) RetireType(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockClassRepo) Create(ctx context.Context, c *class.GymClass) (*class.GymClass, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*class.GymClass), args.Error(1)
}

func (m *MockClassRepo) GetByID(ctx context.Context, id int) (*class.GymClass, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*class.GymClass), args.Error(1)
}

func (m *MockClassRepo) List(ctx context.Context, filter class.ListFilter, now time.Time) ([]class.GymClass, error) {
	args := m.Called(ctx, filter, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]class.GymClass), args.Error(1)
}

func (m *MockClassRepo) Cancel(ctx context.Context, id int, reason string) (*class.GymClass, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*class.GymClass), args.Error(1)
}

func (m *MockClassRepo) ListConfirmedAttendees(ctx context.Context, classID int) ([]class.Attendee, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]class.Attendee), args.Error(1)
}

type MockMembershipRepo struct{ mock.Mock }

func (m *MockMembershipRepo) Create(ctx context.Context, ms *membership.Membership) (*membership.Membership, error) {
	args := m.Called(ctx, ms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*membership.Membership), args.Error(1)
}

func (m *MockMembershipRepo) GetByID(ctx context.Context, id int) (*membership.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*membership.Membership), args.Error(1)
}

func (m *MockMembershipRepo) GetCurrentByMember(ctx context.Context, memberID int) (*membership.Membership, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*membership.Membership), args.Error(1)
}

func (m *MockMembershipRepo) ListByMember(ctx context.Context, memberID int) ([]membership.Membership, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]membership.Membership), args.Error(1)
}

func (m *MockMembershipRepo) Update(ctx context.Context, ms *membership.Membership) (*membership.Membership, error) {
	args := m.Called(ctx, ms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*membership.Membership), args.Error(1)
}

func (m *MockMembershipRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMembershipRepo) ListExpiringSoon(ctx context.Context, from, to time.Time) ([]membership.ExpiringMembership, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]membership.ExpiringMembership), args.Error(1)
}

func (m *MockMembershipRepo) CreateFreezeRecord(ctx context.Context, membershipID int, startDate time.Time, reason string) error {
	return m.Called(ctx, membershipID, startDate, reason).Error(0)
}

func (m *MockMembershipRepo) CloseFreezeRecord(ctx context.Context, membershipID int, endDate time.Time) error {
	return m.Called(ctx, membershipID, endDate).Error(0)
}

func (m *MockMembershipRepo) ListFreezeRecords(ctx context.Context, membershipID int) ([]membership.FreezeRecord, error) {
	args := m.Called(ctx, membershipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]membership.FreezeRecord), args.Error(1)
}

type MockPlanRepo struct{ mock.Mock }

func (m *MockPlanRepo) Create(ctx context.Context, p *plan.MembershipPlan) (*plan.MembershipPlan, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.MembershipPlan), args.Error(1)
}

func (m *MockPlanRepo) GetByID(ctx context.Context, id int) (*plan.MembershipPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.MembershipPlan), args.Error(1)
}

func (m *MockPlanRepo) Update(ctx context.Context, p *plan.MembershipPlan) (*plan.MembershipPlan, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.MembershipPlan), args.Error(1)
}

func (m *MockPlanRepo) Retire(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPlanRepo) List(ctx context.Context, onlyActive bool) ([]plan.MembershipPlan, error) {
	args := m.Called(ctx, onlyActive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]plan.MembershipPlan), args.Error(1)
}

type MockUserRepo struct{ mock.Mock }

func (m *MockUserRepo) Create(ctx context.Context, name, email, passwordHash, role, phone string) (*user.User, error) {
	args := m.Called(ctx, name, email, passwordHash, role, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) SendBookingConfirmation(ctx context.Context, email, name, classTitle string, startTime time.Time) error {
	return m.Called(ctx, email, name, classTitle, startTime).Error(0)
}

func (m *MockNotifier) SendWaitlistPromotion(ctx context.Context, email, name, classTitle string, startTime time.Time) error {
	return m.Called(ctx, email, name, classTitle, startTime).Error(0)
}

type fixture struct {
	repo           *MockReservationRepo
	classRepo      *MockClassRepo
	membershipRepo *MockMembershipRepo
	planRepo       *MockPlanRepo
	userRepo       *MockUserRepo
	notifier       *MockNotifier
	svc            Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:           new(MockReservationRepo),
		classRepo:      new(MockClassRepo),
		membershipRepo: new(MockMembershipRepo),
		planRepo:       new(MockPlanRepo),
		userRepo:       new(MockUserRepo),
		notifier:       new(MockNotifier),
	}
	f.svc = NewService(f.repo, f.classRepo, f.membershipRepo, f.planRepo, f.userRepo, f.notifier)
	return f
}

var testNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func upcomingClass() *class.GymClass {
	return &class.GymClass{
		ID:        7,
		Title:     "Yoga",
		StartTime: testNow.Add(24 * time.Hour),
		EndTime:   testNow.Add(25 * time.Hour),
		Capacity:  20,
	}
}

func activeMembership() *membership.Membership {
	return &membership.Membership{
		ID: 5, MemberID: 10, PlanID: 1,
		Status:  membership.StatusActive,
		EndDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func unlimitedPlan() *plan.MembershipPlan {
	return &plan.MembershipPlan{ID: 1, Name: "Unlimited", IsActive: true}
}

func intPtr(n int) *int { return &n }

func TestCreateConfirmedWhenSpots(t *testing.T) {
	f := newFixture()

	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)
	f.repo.On("HasActive", mock.Anything, 7, 10).Return(false, nil)
	f.membershipRepo.On("GetCurrentByMember", mock.Anything, 10).Return(activeMembership(), nil)
	f.planRepo.On("GetByID", mock.Anything, 1).Return(unlimitedPlan(), nil)
	f.repo.On("Reserve", mock.Anything, 7, 10, testNow).Return(&Reservation{
		ID: 1, GymClassID: 7, MemberID: 10, Status: StatusConfirmed, ReservedAt: testNow,
	}, nil)
	f.userRepo.On("FindByID", mock.Anything, 10).Return(&user.User{
		ID: 10, Email: "ana@example.com", Name: "Ana",
	}, nil)
	f.notifier.On("SendBookingConfirmation", mock.Anything, "ana@example.com", "Ana", "Yoga", mock.Anything).Return(nil)

	res, err := f.svc.Create(context.Background(), 10, 7, false, testNow)

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res.Status)
	assert.Nil(t, res.WaitlistPosition)
	f.notifier.AssertExpectations(t)
}

func TestCreateWaitlistsWhenFull(t *testing.T) {
	f := newFixture()

	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)
	f.repo.On("HasActive", mock.Anything, 7, 10).Return(false, nil)
	f.membershipRepo.On("GetCurrentByMember", mock.Anything, 10).Return(activeMembership(), nil)
	f.planRepo.On("GetByID", mock.Anything, 1).Return(unlimitedPlan(), nil)
	f.repo.On("Reserve", mock.Anything, 7, 10, testNow).Return(&Reservation{
		ID: 2, GymClassID: 7, MemberID: 10, Status: StatusWaitlist,
		WaitlistPosition: intPtr(3), ReservedAt: testNow,
	}, nil)

	res, err := f.svc.Create(context.Background(), 10, 7, false, testNow)

	require.NoError(t, err)
	assert.Equal(t, StatusWaitlist, res.Status)
	assert.Equal(t, 3, *res.WaitlistPosition)
	// No confirmation email for a waitlist spot.
	f.notifier.AssertNotCalled(t, "SendBookingConfirmation",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRejectsCancelledClass(t *testing.T) {
	f := newFixture()

	cancelled := upcomingClass()
	cancelled.IsCancelled = true
	f.classRepo.On("GetByID", mock.Anything, 7).Return(cancelled, nil)

	_, err := f.svc.Create(context.Background(), 10, 7, false, testNow)
	assert.ErrorIs(t, err, ErrClassCancelled)
}

func TestCreateRejectsStartedClass(t *testing.T) {
	f := newFixture()

	started := upcomingClass()
	started.StartTime = testNow.Add(-time.Minute)
	f.classRepo.On("GetByID", mock.Anything, 7).Return(started, nil)

	_, err := f.svc.Create(context.Background(), 10, 7, false, testNow)
	assert.ErrorIs(t, err, ErrClassInPast)
}

func TestCreateRejectsDuplicate(t *testing.T) {
	f := newFixture()

	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)
	f.repo.On("HasActive", mock.Anything, 7, 10).Return(true, nil)

	_, err := f.svc.Create(context.Background(), 10, 7, false, testNow)
	assert.ErrorIs(t, err, ErrAlreadyReserved)
}

func TestCreateRejectsWithoutMembership(t *testing.T) {
	f := newFixture()

	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)
	f.repo.On("HasActive", mock.Anything, 7, 10).Return(false, nil)
	f.membershipRepo.On("GetCurrentByMember", mock.Anything, 10).
		Return(nil, membership.ErrMembershipNotFound)

	_, err := f.svc.Create(context.Background(), 10, 7, false, testNow)
	assert.ErrorIs(t, err, ErrMembershipInactive)
}

func TestCreateRejectsFrozenMembership(t *testing.T) {
	f := newFixture()

	frozen := activeMembership()
	frozen.Status = membership.StatusFrozen
	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)
	f.repo.On("HasActive", mock.Anything, 7, 10).Return(false, nil)
	f.membershipRepo.On("GetCurrentByMember", mock.Anything, 10).Return(frozen, nil)

	_, err := f.svc.Create(context.Background(), 10, 7, false, testNow)
	assert.ErrorIs(t, err, ErrMembershipInactive)
}

func TestCreateExpiresLapsedMembershipFirst(t *testing.T) {
	f := newFixture()

	// Stored as active but past its end date. The lapse must be persisted
	// and the booking rejected.
	lapsed := activeMembership()
	lapsed.EndDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)
	f.repo.On("HasActive", mock.Anything, 7, 10).Return(false, nil)
	f.membershipRepo.On("GetCurrentByMember", mock.Anything, 10).Return(lapsed, nil)
	f.membershipRepo.On("Update", mock.Anything, mock.MatchedBy(func(m *membership.Membership) bool {
		return m.Status == membership.StatusExpired
	})).Return(lapsed, nil)

	_, err := f.svc.Create(context.Background(), 10, 7, false, testNow)

	assert.ErrorIs(t, err, ErrMembershipInactive)
	f.membershipRepo.AssertExpectations(t)
}

func TestCreateEnforcesMonthlyQuota(t *testing.T) {
	f := newFixture()

	limited := unlimitedPlan()
	limited.MaxClassesPerMonth = intPtr(8)

	monthStart := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)
	f.repo.On("HasActive", mock.Anything, 7, 10).Return(false, nil)
	f.membershipRepo.On("GetCurrentByMember", mock.Anything, 10).Return(activeMembership(), nil)
	f.planRepo.On("GetByID", mock.Anything, 1).Return(limited, nil)
	f.repo.On("CountConfirmedInWindow", mock.Anything, 10, monthStart, monthEnd).Return(8, nil)

	_, err := f.svc.Create(context.Background(), 10, 7, false, testNow)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestCreateQuotaHeadroomAllows(t *testing.T) {
	f := newFixture()

	limited := unlimitedPlan()
	limited.MaxClassesPerMonth = intPtr(8)

	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)
	f.repo.On("HasActive", mock.Anything, 7, 10).Return(false, nil)
	f.membershipRepo.On("GetCurrentByMember", mock.Anything, 10).Return(activeMembership(), nil)
	f.planRepo.On("GetByID", mock.Anything, 1).Return(limited, nil)
	f.repo.On("CountConfirmedInWindow", mock.Anything, 10, mock.Anything, mock.Anything).Return(7, nil)
	f.repo.On("Reserve", mock.Anything, 7, 10, testNow).Return(&Reservation{
		ID: 1, GymClassID: 7, MemberID: 10, Status: StatusConfirmed,
	}, nil)
	f.userRepo.On("FindByID", mock.Anything, 10).Return(&user.User{
		ID: 10, Email: "ana@example.com", Name: "Ana",
	}, nil)
	f.notifier.On("SendBookingConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Create(context.Background(), 10, 7, false, testNow)
	require.NoError(t, err)
}

func TestStaffOverrideBypassesEligibility(t *testing.T) {
	f := newFixture()

	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)
	f.repo.On("HasActive", mock.Anything, 7, 10).Return(false, nil)
	f.repo.On("Reserve", mock.Anything, 7, 10, testNow).Return(&Reservation{
		ID: 1, GymClassID: 7, MemberID: 10, Status: StatusConfirmed,
	}, nil)
	f.userRepo.On("FindByID", mock.Anything, 10).Return(&user.User{
		ID: 10, Email: "ana@example.com", Name: "Ana",
	}, nil)
	f.notifier.On("SendBookingConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Create(context.Background(), 10, 7, true, testNow)

	require.NoError(t, err)
	f.membershipRepo.AssertNotCalled(t, "GetCurrentByMember", mock.Anything, mock.Anything)
}

func TestCancelOwnershipEnforced(t *testing.T) {
	f := newFixture()

	f.repo.On("GetByID", mock.Anything, 1).Return(&Reservation{
		ID: 1, GymClassID: 7, MemberID: 10, Status: StatusConfirmed,
	}, nil)

	_, err := f.svc.Cancel(context.Background(), 1, 99, false, testNow)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestCancelRejectsTerminalStates(t *testing.T) {
	f := newFixture()

	for _, status := range []Status{StatusCancelled, StatusAttended, StatusNoShow} {
		f.repo.On("GetByID", mock.Anything, 1).Return(&Reservation{
			ID: 1, GymClassID: 7, MemberID: 10, Status: status,
		}, nil).Once()

		_, err := f.svc.Cancel(context.Background(), 1, 10, false, testNow)
		assert.ErrorIs(t, err, ErrNotCancellable, "status %s", status)
	}
}

func TestCancelNotifiesPromotedMember(t *testing.T) {
	f := newFixture()

	f.repo.On("GetByID", mock.Anything, 1).Return(&Reservation{
		ID: 1, GymClassID: 7, MemberID: 10, Status: StatusConfirmed,
	}, nil)
	f.repo.On("Cancel", mock.Anything, 1, testNow).Return(&CancelOutcome{
		Cancelled: &Reservation{ID: 1, GymClassID: 7, MemberID: 10, Status: StatusCancelled},
		Promoted:  &Reservation{ID: 3, GymClassID: 7, MemberID: 12, Status: StatusConfirmed},
		PromotedEmail: "carla@example.com",
		PromotedName:  "Carla",
	}, nil)
	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)
	f.notifier.On("SendWaitlistPromotion", mock.Anything, "carla@example.com", "Carla", "Yoga", mock.Anything).Return(nil)

	outcome, err := f.svc.Cancel(context.Background(), 1, 10, false, testNow)

	require.NoError(t, err)
	require.NotNil(t, outcome.Promoted)
	assert.Equal(t, 12, outcome.Promoted.MemberID)
	f.notifier.AssertExpectations(t)
}

func TestCancelWaitlistNoPromotion(t *testing.T) {
	f := newFixture()

	f.repo.On("GetByID", mock.Anything, 1).Return(&Reservation{
		ID: 1, GymClassID: 7, MemberID: 10, Status: StatusWaitlist, WaitlistPosition: intPtr(2),
	}, nil)
	f.repo.On("Cancel", mock.Anything, 1, testNow).Return(&CancelOutcome{
		Cancelled: &Reservation{ID: 1, GymClassID: 7, MemberID: 10, Status: StatusCancelled},
	}, nil)

	outcome, err := f.svc.Cancel(context.Background(), 1, 10, false, testNow)

	require.NoError(t, err)
	assert.Nil(t, outcome.Promoted)
	f.notifier.AssertNotCalled(t, "SendWaitlistPromotion",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkAttendedBeforeStartRejected(t *testing.T) {
	f := newFixture()

	f.repo.On("GetByID", mock.Anything, 1).Return(&Reservation{
		ID: 1, GymClassID: 7, MemberID: 10, Status: StatusConfirmed,
	}, nil)
	f.classRepo.On("GetByID", mock.Anything, 7).Return(upcomingClass(), nil)

	_, err := f.svc.MarkAttended(context.Background(), 1, testNow)
	assert.ErrorIs(t, err, ErrClassNotStarted)
}

func TestMarkAttendedAfterStart(t *testing.T) {
	f := newFixture()

	started := upcomingClass()
	started.StartTime = testNow.Add(-time.Hour)

	f.repo.On("GetByID", mock.Anything, 1).Return(&Reservation{
		ID: 1, GymClassID: 7, MemberID: 10, Status: StatusConfirmed,
	}, nil)
	f.classRepo.On("GetByID", mock.Anything, 7).Return(started, nil)
	f.repo.On("MarkAttendance", mock.Anything, 1, StatusAttended, testNow).Return(&Reservation{
		ID: 1, GymClassID: 7, MemberID: 10, Status: StatusAttended, AttendedAt: &testNow,
	}, nil)

	res, err := f.svc.MarkAttended(context.Background(), 1, testNow)

	require.NoError(t, err)
	assert.Equal(t, StatusAttended, res.Status)
}

func TestMarkNoShowRequiresConfirmed(t *testing.T) {
	f := newFixture()

	f.repo.On("GetByID", mock.Anything, 1).Return(&Reservation{
		ID: 1, GymClassID: 7, MemberID: 10, Status: StatusWaitlist, WaitlistPosition: intPtr(1),
	}, nil)

	_, err := f.svc.MarkNoShow(context.Background(), 1, testNow)
	assert.ErrorIs(t, err, ErrNotConfirmed)
}
