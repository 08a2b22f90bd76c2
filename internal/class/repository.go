package class

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrClassNotFound     = errors.New("class not found")
	ErrClassTypeNotFound = errors.New("class type not found")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const classColumns = `c.id, c.class_type_id, c.instructor_id, c.title, c.start_time, c.end_time,
	c.capacity, c.confirmed_count, c.location, c.is_cancelled, c.cancellation_reason,
	c.created_at, c.updated_at`

// waitlistCountExpr is appended to class selects so occupancy comes back in
// one round trip.
const waitlistCountExpr = `(SELECT COUNT(*) FROM reservations r
	WHERE r.gym_class_id = c.id AND r.status = 'waitlist') AS waitlist_count`

func (r *repository) CreateType(ctx context.Context, ct *ClassType) (*ClassType, error) {
	query := `
		INSERT INTO class_types (name, description, default_duration_minutes, default_capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, default_duration_minutes, default_capacity, is_active, created_at
	`

	var created ClassType
	err := r.db.GetContext(ctx, &created, query,
		ct.Name, ct.Description, ct.DefaultDurationMinutes, ct.DefaultCapacity)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetTypeByID(ctx context.Context, id int) (*ClassType, error) {
	query := `
		SELECT id, name, description, default_duration_minutes, default_capacity, is_active, created_at
		FROM class_types WHERE id = $1
	`

	var ct ClassType
	if err := r.db.GetContext(ctx, &ct, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassTypeNotFound
		}
		return nil, err
	}

	return &ct, nil
}

func (r *repository) ListTypes(ctx context.Context, onlyActive bool) ([]ClassType, error) {
	query := `
		SELECT id, name, description, default_duration_minutes, default_capacity, is_active, created_at
		FROM class_types
	`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	var types []ClassType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, err
	}

	return types, nil
}

func (r *repository) RetireType(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE class_types SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrClassTypeNotFound
	}

	return nil
}

func (r *repository) Create(ctx context.Context, c *GymClass) (*GymClass, error) {
	query := `
		INSERT INTO gym_classes
			(class_type_id, instructor_id, title, start_time, end_time, capacity, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, class_type_id, instructor_id, title, start_time, end_time,
			capacity, confirmed_count, location, is_cancelled, cancellation_reason,
			created_at, updated_at
	`

	var created GymClass
	err := r.db.GetContext(ctx, &created, query,
		c.ClassTypeID, c.InstructorID, c.Title, c.StartTime, c.EndTime, c.Capacity, c.Location)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*GymClass, error) {
	query := `SELECT ` + classColumns + `, ` + waitlistCountExpr + `
		FROM gym_classes c WHERE c.id = $1`

	var c GymClass
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	return &c, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, now time.Time) ([]GymClass, error) {
	query := `SELECT ` + classColumns + `, ` + waitlistCountExpr + `
		FROM gym_classes c WHERE 1=1`
	args := []interface{}{}

	if !filter.IncludeCancelled {
		query += ` AND c.is_cancelled = FALSE`
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += ` AND c.start_time >= $` + strconv.Itoa(len(args))
	} else if !filter.IncludePast {
		args = append(args, now)
		query += ` AND c.start_time >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += ` AND c.start_time < $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY c.start_time`

	var classes []GymClass
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, err
	}

	return classes, nil
}

func (r *repository) Cancel(ctx context.Context, id int, reason string) (*GymClass, error) {
	query := `
		UPDATE gym_classes c
		SET is_cancelled = TRUE, cancellation_reason = $2, updated_at = NOW()
		WHERE c.id = $1
		RETURNING ` + classColumns

	var c GymClass
	if err := r.db.GetContext(ctx, &c, query, id, reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	return &c, nil
}

func (r *repository) ListConfirmedAttendees(ctx context.Context, classID int) ([]Attendee, error) {
	query := `
		SELECT u.email, u.name
		FROM reservations r
		JOIN users u ON u.id = r.member_id
		WHERE r.gym_class_id = $1 AND r.status = 'confirmed'
		ORDER BY u.name
	`

	var attendees []Attendee
	if err := r.db.SelectContext(ctx, &attendees, query, classID); err != nil {
		return nil, err
	}

	return attendees, nil
}
