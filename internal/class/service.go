package class

import (
	"context"
	"errors"
	"time"

	"gymcore/internal/logger"
)

var (
	ErrClassAlreadyCancelled = errors.New("class is already cancelled")
	ErrClassTypeRetired      = errors.New("class type is retired")
	ErrInvalidTimeRange      = errors.New("class must end after it starts")
	ErrStartInPast           = errors.New("class must start in the future")
)

// Notifier queues a cancellation notice for one attendee. Implemented by the
// notify package.
type Notifier interface {
	SendClassCancellation(ctx context.Context, email, name, classTitle, reason string, startTime time.Time) error
}

type Service interface {
	CreateType(ctx context.Context, req CreateTypeRequest) (*ClassType, error)
	ListTypes(ctx context.Context, onlyActive bool) ([]ClassType, error)
	RetireType(ctx context.Context, id int) error

	Schedule(ctx context.Context, req ScheduleRequest, now time.Time) (*Response, error)
	Get(ctx context.Context, id int) (*Response, error)
	List(ctx context.Context, filter ListFilter, now time.Time) ([]Response, error)
	Cancel(ctx context.Context, id int, reason string) (*Response, error)
}

type service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) Service {
	return &service{repo: repo, notifier: notifier}
}

func (s *service) CreateType(ctx context.Context, req CreateTypeRequest) (*ClassType, error) {
	return s.repo.CreateType(ctx, &ClassType{
		Name:                   req.Name,
		Description:            req.Description,
		DefaultDurationMinutes: req.DefaultDurationMinutes,
		DefaultCapacity:        req.DefaultCapacity,
	})
}

func (s *service) ListTypes(ctx context.Context, onlyActive bool) ([]ClassType, error) {
	return s.repo.ListTypes(ctx, onlyActive)
}

func (s *service) RetireType(ctx context.Context, id int) error {
	return s.repo.RetireType(ctx, id)
}

func (s *service) Schedule(ctx context.Context, req ScheduleRequest, now time.Time) (*Response, error) {
	ct, err := s.repo.GetTypeByID(ctx, req.ClassTypeID)
	if err != nil {
		return nil, err
	}
	if !ct.IsActive {
		return nil, ErrClassTypeRetired
	}

	c := &GymClass{
		ClassTypeID:  ct.ID,
		InstructorID: req.InstructorID,
		Title:        req.Title,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Capacity:     req.Capacity,
		Location:     req.Location,
	}
	if c.Title == "" {
		c.Title = ct.Name
	}
	if c.Capacity == 0 {
		c.Capacity = ct.DefaultCapacity
	}
	if c.EndTime.IsZero() {
		c.EndTime = c.StartTime.Add(time.Duration(ct.DefaultDurationMinutes) * time.Minute)
	}

	if !c.StartTime.After(now) {
		return nil, ErrStartInPast
	}
	if !c.EndTime.After(c.StartTime) {
		return nil, ErrInvalidTimeRange
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}

	logger.Infof("Class %d (%s) scheduled at %s, capacity %d",
		created.ID, created.Title, created.StartTime.Format(time.RFC3339), created.Capacity)

	resp := created.ToResponse()
	return &resp, nil
}

func (s *service) Get(ctx context.Context, id int) (*Response, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := c.ToResponse()
	return &resp, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, now time.Time) ([]Response, error) {
	classes, err := s.repo.List(ctx, filter, now)
	if err != nil {
		return nil, err
	}

	responses := make([]Response, 0, len(classes))
	for i := range classes {
		responses = append(responses, classes[i].ToResponse())
	}

	return responses, nil
}

func (s *service) Cancel(ctx context.Context, id int, reason string) (*Response, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsCancelled {
		return nil, ErrClassAlreadyCancelled
	}

	// Snapshot the confirmed attendees before existing reservations start
	// moving to cancelled.
	attendees, err := s.repo.ListConfirmedAttendees(ctx, id)
	if err != nil {
		logger.Errorf("Failed to list attendees of class %d: %v", id, err)
		attendees = nil
	}

	cancelled, err := s.repo.Cancel(ctx, id, reason)
	if err != nil {
		return nil, err
	}

	for _, a := range attendees {
		if err := s.notifier.SendClassCancellation(ctx, a.Email, a.Name, cancelled.Title, reason, cancelled.StartTime); err != nil {
			logger.Errorf("Failed to queue cancellation notice to %s: %v", a.Email, err)
		}
	}

	logger.Infof("Class %d (%s) cancelled: %s, %d attendees notified",
		id, cancelled.Title, reason, len(attendees))

	resp := cancelled.ToResponse()
	return &resp, nil
}
