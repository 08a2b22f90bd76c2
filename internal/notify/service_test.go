package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymcore/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

func newTestService(rdb *redis.Client) *Service {
	return &Service{
		redis:    rdb,
		from:     "noreply@gymcore.io",
		fromName: "GymCore Team",
		smtpHost: "smtp.test.com",
		smtpPort: "587",
		smtpUser: "test@example.com",
		smtpPass: "password",
	}
}

func TestSendBookingConfirmation(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(queueKey, `.*`).SetVal(1)

	svc := newTestService(db)

	when := time.Now().Add(24 * time.Hour)
	err := svc.SendBookingConfirmation(ctx, "user@example.com", "Ana", "Yoga", when)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendWaitlistPromotion(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(queueKey, `.*`).SetVal(1)

	svc := newTestService(db)

	when := time.Now().Add(24 * time.Hour)
	err := svc.SendWaitlistPromotion(ctx, "user@example.com", "Carla", "Pilates", when)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendClassCancellation(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(queueKey, `.*`).SetVal(1)

	svc := newTestService(db)

	when := time.Now().Add(24 * time.Hour)
	err := svc.SendClassCancellation(ctx, "user@example.com", "Ana", "Yoga", "instructor sick", when)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendExpiryReminder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(queueKey, `.*`).SetVal(1)

	svc := newTestService(db)

	err := svc.SendExpiryReminder(ctx, "user@example.com", "Ana", time.Now().AddDate(0, 0, 5), 5)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobCarriesType(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	var captured []byte
	mock.CustomMatch(func(expected, actual []interface{}) error {
		if len(actual) > 0 {
			switch v := actual[len(actual)-1].(type) {
			case []byte:
				captured = v
			case string:
				captured = []byte(v)
			}
		}
		return nil
	}).ExpectLPush(queueKey, `.*`).SetVal(1)

	svc := newTestService(db)

	when := time.Now().Add(24 * time.Hour)
	require.NoError(t, svc.SendWaitlistPromotion(ctx, "user@example.com", "Carla", "Pilates", when))

	var job Job
	require.NoError(t, json.Unmarshal(captured, &job))
	assert.Equal(t, TypeWaitlistPromotion, job.Type)
	assert.Equal(t, "user@example.com", job.To)
	assert.NotZero(t, job.Created)
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectLLen(queueKey).SetVal(4)

	svc := newTestService(db)
	assert.Equal(t, int64(4), svc.QueueLength(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
