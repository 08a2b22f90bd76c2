package reservation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gymcore/internal/class"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadyReserved     = errors.New("member already has a reservation for this class")
	ErrNotCancellable      = errors.New("reservation is not confirmed or waitlisted")
	ErrNotConfirmed        = errors.New("reservation is not confirmed")
)

const uniqueViolation = "23505"

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const reservationColumns = `id, gym_class_id, member_id, status, waitlist_position,
	reserved_at, cancelled_at, attended_at, created_at, updated_at`

// lockedClass is the slice of the class row the booking transactions work on.
type lockedClass struct {
	ID             int  `db:"id"`
	Capacity       int  `db:"capacity"`
	ConfirmedCount int  `db:"confirmed_count"`
	IsCancelled    bool `db:"is_cancelled"`
}

func (r *repository) GetByID(ctx context.Context, id int) (*Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	var res Reservation
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	return &res, nil
}

func (r *repository) HasActive(ctx context.Context, classID, memberID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE gym_class_id = $1 AND member_id = $2 AND status IN ('confirmed', 'waitlist')
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, classID, memberID); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *repository) CountConfirmedInWindow(ctx context.Context, memberID int, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM reservations
		WHERE member_id = $1 AND status IN ('confirmed', 'attended', 'no_show')
		  AND reserved_at >= $2 AND reserved_at < $3
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, memberID, from, to); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repository) Reserve(ctx context.Context, classID, memberID int, now time.Time) (*Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var c lockedClass
	err = tx.QueryRowxContext(ctx,
		`SELECT id, capacity, confirmed_count, is_cancelled
		 FROM gym_classes
		 WHERE id = $1
		 FOR UPDATE`,
		classID,
	).StructScan(&c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, class.ErrClassNotFound
		}
		return nil, err
	}

	// The service-level check runs before the transaction opens, so the class
	// may have been cancelled since. Recheck under the row lock.
	if c.IsCancelled {
		return nil, ErrClassCancelled
	}

	if c.ConfirmedCount < 0 || c.ConfirmedCount > c.Capacity {
		return nil, invariantf("class %d confirmed_count %d outside [0, %d]",
			classID, c.ConfirmedCount, c.Capacity)
	}

	var res Reservation
	if c.ConfirmedCount < c.Capacity {
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO reservations (gym_class_id, member_id, status, reserved_at)
			 VALUES ($1, $2, 'confirmed', $3)
			 RETURNING `+reservationColumns,
			classID, memberID, now,
		).StructScan(&res)
		if err != nil {
			return nil, mapUniqueViolation(err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE gym_classes SET confirmed_count = confirmed_count + 1, updated_at = NOW()
			 WHERE id = $1`,
			classID)
		if err != nil {
			return nil, err
		}
	} else {
		var position int
		err = tx.QueryRowxContext(ctx,
			`SELECT COALESCE(MAX(waitlist_position), 0) + 1
			 FROM reservations
			 WHERE gym_class_id = $1 AND status = 'waitlist'`,
			classID,
		).Scan(&position)
		if err != nil {
			return nil, err
		}

		err = tx.QueryRowxContext(ctx,
			`INSERT INTO reservations (gym_class_id, member_id, status, waitlist_position, reserved_at)
			 VALUES ($1, $2, 'waitlist', $3, $4)
			 RETURNING `+reservationColumns,
			classID, memberID, position, now,
		).StructScan(&res)
		if err != nil {
			return nil, mapUniqueViolation(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &res, nil
}

func (r *repository) Cancel(ctx context.Context, reservationID int, now time.Time) (*CancelOutcome, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var res Reservation
	err = tx.QueryRowxContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`,
		reservationID,
	).StructScan(&res)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	if res.Status != StatusConfirmed && res.Status != StatusWaitlist {
		return nil, ErrNotCancellable
	}

	// Row lock order is reservation, then class, then waitlist head. The
	// per-class lock in the service serializes cancels for a class within a
	// single process; running multiple instances would need every transaction
	// on these rows to take them in this same order.
	var c lockedClass
	err = tx.QueryRowxContext(ctx,
		`SELECT id, capacity, confirmed_count, is_cancelled
		 FROM gym_classes
		 WHERE id = $1
		 FOR UPDATE`,
		res.GymClassID,
	).StructScan(&c)
	if err != nil {
		return nil, err
	}

	var cancelled Reservation
	err = tx.QueryRowxContext(ctx,
		`UPDATE reservations
		 SET status = 'cancelled', waitlist_position = NULL, cancelled_at = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+reservationColumns,
		reservationID, now,
	).StructScan(&cancelled)
	if err != nil {
		return nil, err
	}

	outcome := &CancelOutcome{Cancelled: &cancelled}

	if res.Status == StatusConfirmed {
		if c.ConfirmedCount < 1 {
			return nil, invariantf("class %d confirmed_count %d with a confirmed reservation",
				c.ID, c.ConfirmedCount)
		}

		promoted, err := r.promoteNext(ctx, tx, res.GymClassID)
		if err != nil {
			return nil, err
		}

		if promoted != nil {
			// One confirmed out, one in: the count is unchanged.
			outcome.Promoted = promoted
			if err := tx.QueryRowxContext(ctx,
				`SELECT email, name FROM users WHERE id = $1`,
				promoted.MemberID,
			).Scan(&outcome.PromotedEmail, &outcome.PromotedName); err != nil {
				return nil, err
			}
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE gym_classes SET confirmed_count = confirmed_count - 1, updated_at = NOW()
				 WHERE id = $1`,
				res.GymClassID)
			if err != nil {
				return nil, err
			}
		}
	} else {
		if res.WaitlistPosition == nil {
			return nil, invariantf("waitlisted reservation %d has no position", res.ID)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE reservations
			 SET waitlist_position = waitlist_position - 1, updated_at = NOW()
			 WHERE gym_class_id = $1 AND status = 'waitlist' AND waitlist_position > $2`,
			res.GymClassID, *res.WaitlistPosition)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return outcome, nil
}

// promoteNext moves the head of the waitlist to confirmed and shifts the rest
// up. Returns nil when the waitlist is empty.
func (r *repository) promoteNext(ctx context.Context, tx *sqlx.Tx, classID int) (*Reservation, error) {
	var head Reservation
	err := tx.QueryRowxContext(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE gym_class_id = $1 AND status = 'waitlist'
		 ORDER BY waitlist_position
		 LIMIT 1
		 FOR UPDATE`,
		classID,
	).StructScan(&head)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if head.WaitlistPosition == nil || *head.WaitlistPosition != 1 {
		return nil, invariantf("class %d waitlist head is not at position 1", classID)
	}

	var promoted Reservation
	err = tx.QueryRowxContext(ctx,
		`UPDATE reservations
		 SET status = 'confirmed', waitlist_position = NULL, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+reservationColumns,
		head.ID,
	).StructScan(&promoted)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE reservations
		 SET waitlist_position = waitlist_position - 1, updated_at = NOW()
		 WHERE gym_class_id = $1 AND status = 'waitlist'`,
		classID)
	if err != nil {
		return nil, err
	}

	return &promoted, nil
}

func (r *repository) MarkAttendance(ctx context.Context, reservationID int, status Status, now time.Time) (*Reservation, error) {
	query := `
		UPDATE reservations
		SET status = $2, attended_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING ` + reservationColumns

	var res Reservation
	if err := r.db.GetContext(ctx, &res, query, reservationID, status, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotConfirmed
		}
		return nil, err
	}

	return &res, nil
}

func (r *repository) ListByMember(ctx context.Context, memberID int) ([]WithClass, error) {
	query := `
		SELECT
			r.id, r.gym_class_id, r.member_id, r.status, r.waitlist_position,
			r.reserved_at, r.cancelled_at, r.attended_at, r.created_at, r.updated_at,
			c.title AS class_title,
			c.start_time AS class_start_time,
			c.end_time AS class_end_time,
			c.location AS class_location,
			c.is_cancelled AS class_cancelled
		FROM reservations r
		JOIN gym_classes c ON r.gym_class_id = c.id
		WHERE r.member_id = $1
		ORDER BY c.start_time DESC, r.created_at DESC
	`

	var reservations []WithClass
	if err := r.db.SelectContext(ctx, &reservations, query, memberID); err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *repository) ListByClass(ctx context.Context, classID int) ([]WithMember, error) {
	query := `
		SELECT
			r.id, r.gym_class_id, r.member_id, r.status, r.waitlist_position,
			r.reserved_at, r.cancelled_at, r.attended_at, r.created_at, r.updated_at,
			u.name AS member_name,
			u.email AS member_email
		FROM reservations r
		JOIN users u ON r.member_id = u.id
		WHERE r.gym_class_id = $1
		ORDER BY r.status, r.waitlist_position NULLS FIRST, r.reserved_at
	`

	var reservations []WithMember
	if err := r.db.SelectContext(ctx, &reservations, query, classID); err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *repository) StatsByDay(ctx context.Context, from, to time.Time) ([]StatsByDay, error) {
	query := `
		SELECT
			DATE(reserved_at) AS bucket,
			COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
			COUNT(*) FILTER (WHERE status = 'waitlist')  AS waitlist,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'attended')  AS attended,
			COUNT(*) FILTER (WHERE status = 'no_show')   AS no_show
		FROM reservations
		WHERE reserved_at BETWEEN $1 AND $2
		GROUP BY DATE(reserved_at)
		ORDER BY bucket
	`

	var stats []StatsByDay
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *repository) StatsByClass(ctx context.Context, from, to time.Time) ([]StatsByClass, error) {
	query := `
		SELECT
			c.id AS gym_class_id,
			c.title AS class_title,
			COUNT(r.*) FILTER (WHERE r.status = 'confirmed') AS confirmed,
			COUNT(r.*) FILTER (WHERE r.status = 'waitlist')  AS waitlist,
			COUNT(r.*) FILTER (WHERE r.status = 'cancelled') AS cancelled,
			COUNT(r.*) FILTER (WHERE r.status = 'attended')  AS attended,
			COUNT(r.*) FILTER (WHERE r.status = 'no_show')   AS no_show
		FROM gym_classes c
		LEFT JOIN reservations r ON r.gym_class_id = c.id
		WHERE c.start_time BETWEEN $1 AND $2
		GROUP BY c.id, c.title
		ORDER BY c.id
	`

	var stats []StatsByClass
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}

	return stats, nil
}

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrAlreadyReserved
	}
	return err
}
