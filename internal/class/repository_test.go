package class

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	return repo, mock, func() { sqlxDB.Close() }
}

func classRows(start time.Time, confirmed, waitlist int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "class_type_id", "instructor_id", "title", "start_time", "end_time",
		"capacity", "confirmed_count", "location", "is_cancelled", "cancellation_reason",
		"created_at", "updated_at", "waitlist_count",
	}).AddRow(7, 1, nil, "Yoga", start, start.Add(time.Hour),
		20, confirmed, "Room A", false, "", now, now, waitlist)
}

func TestGetClassByID(t *testing.T) {
	repo, mock, closer := setupMock(t)
	defer closer()

	start := time.Date(2025, 5, 3, 18, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM gym_classes c WHERE c.id = $1")).
		WithArgs(7).
		WillReturnRows(classRows(start, 18, 2))

	c, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 18, c.ConfirmedCount)
	require.Equal(t, 2, c.WaitlistCount)
	require.Equal(t, 2, c.AvailableSpots())
}

func TestGetClassNotFound(t *testing.T) {
	repo, mock, closer := setupMock(t)
	defer closer()

	mock.ExpectQuery(regexp.QuoteMeta("FROM gym_classes c WHERE c.id = $1")).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestListUpcomingExcludesCancelled(t *testing.T) {
	repo, mock, closer := setupMock(t)
	defer closer()

	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("AND c.is_cancelled = FALSE AND c.start_time >= $1")).
		WithArgs(now).
		WillReturnRows(classRows(now.Add(24*time.Hour), 0, 0))

	classes, err := repo.List(context.Background(), ListFilter{}, now)
	require.NoError(t, err)
	require.Len(t, classes, 1)
}

func TestListWithDateRange(t *testing.T) {
	repo, mock, closer := setupMock(t)
	defer closer()

	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	mock.ExpectQuery(regexp.QuoteMeta("AND c.start_time >= $1 AND c.start_time < $2")).
		WithArgs(from, to).
		WillReturnRows(classRows(from.Add(24*time.Hour), 5, 0))

	classes, err := repo.List(context.Background(), ListFilter{From: &from, To: &to}, time.Now())
	require.NoError(t, err)
	require.Len(t, classes, 1)
}

func TestCancelClass(t *testing.T) {
	repo, mock, closer := setupMock(t)
	defer closer()

	start := time.Date(2025, 5, 3, 18, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "class_type_id", "instructor_id", "title", "start_time", "end_time",
		"capacity", "confirmed_count", "location", "is_cancelled", "cancellation_reason",
		"created_at", "updated_at",
	}).AddRow(7, 1, nil, "Yoga", start, start.Add(time.Hour),
		20, 18, "Room A", true, "flooded", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SET is_cancelled = TRUE, cancellation_reason = $2")).
		WithArgs(7, "flooded").
		WillReturnRows(rows)

	c, err := repo.Cancel(context.Background(), 7, "flooded")
	require.NoError(t, err)
	require.True(t, c.IsCancelled)
	require.Equal(t, "flooded", c.CancellationReason)
}

func TestListConfirmedAttendees(t *testing.T) {
	repo, mock, closer := setupMock(t)
	defer closer()

	rows := sqlmock.NewRows([]string{"email", "name"}).
		AddRow("a@example.com", "Ana").
		AddRow("b@example.com", "Boris")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.gym_class_id = $1 AND r.status = 'confirmed'")).
		WithArgs(7).
		WillReturnRows(rows)

	attendees, err := repo.ListConfirmedAttendees(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, attendees, 2)
	require.Equal(t, "Ana", attendees[0].Name)
}

func TestCreateClassType(t *testing.T) {
	repo, mock, closer := setupMock(t)
	defer closer()

	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "default_duration_minutes", "default_capacity", "is_active", "created_at",
	}).AddRow(1, "Yoga", "", 60, 20, true, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO class_types")).
		WithArgs("Yoga", "", 60, 20).
		WillReturnRows(rows)

	ct, err := repo.CreateType(context.Background(), &ClassType{
		Name: "Yoga", DefaultDurationMinutes: 60, DefaultCapacity: 20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, ct.ID)
	require.True(t, ct.IsActive)
}

func TestRetireClassTypeNotFound(t *testing.T) {
	repo, mock, closer := setupMock(t)
	defer closer()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_types SET is_active = FALSE")).
		WithArgs(404).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RetireType(context.Background(), 404)
	require.ErrorIs(t, err, ErrClassTypeNotFound)
}
