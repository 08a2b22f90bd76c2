package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"gymcore/internal/logger"
	"gymcore/internal/metrics"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

const (
	TypeBookingConfirmed  = "booking_confirmed"
	TypeWaitlistPromotion = "waitlist_promotion"
	TypeClassCancelled    = "class_cancelled"
	TypeExpiryReminder    = "expiry_reminder"
)

type Job struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) enqueue(ctx context.Context, job Job) error {
	job.Created = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue %s notice to %s: %v", job.Type, job.To, err)
		metrics.RecordNotification(job.Type, "queue_error")
		return err
	}

	logger.Infof("Notification queued: %s to %s", job.Type, job.To)
	metrics.RecordNotification(job.Type, "queued")
	return nil
}

// Start drains the queue until the context is cancelled. Run it in its own
// goroutine from main.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send %s notice to %s: %v", job.Type, job.To, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying notice to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			s.saveFailed(job, err)
			metrics.RecordNotification(job.Type, "failed")
		}
		return
	}

	metrics.RecordNotification(job.Type, "sent")
	logger.Infof("Notification sent to %s: %s", job.To, job.Subject)
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, sendErr error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": sendErr.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Notification to %s moved to failed queue after %d attempts", job.To, job.Tries)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) SendBookingConfirmation(ctx context.Context, email, name, classTitle string, startTime time.Time) error {
	body := fmt.Sprintf(`Hi %s,

Your spot is confirmed!

Class: %s
Time: %s

See you at the gym!

- GymCore Team`, name, classTitle, startTime.Format("Jan 2, 2006 at 3:04 PM"))

	return s.enqueue(ctx, Job{
		Type:    TypeBookingConfirmed,
		To:      email,
		Name:    name,
		Subject: "Reservation Confirmed - " + classTitle,
		Body:    body,
	})
}

func (s *Service) SendWaitlistPromotion(ctx context.Context, email, name, classTitle string, startTime time.Time) error {
	body := fmt.Sprintf(`Hi %s,

A spot opened up and you are off the waitlist!

Class: %s
Time: %s

See you there!

- GymCore Team`, name, classTitle, startTime.Format("Jan 2, 2006 at 3:04 PM"))

	return s.enqueue(ctx, Job{
		Type:    TypeWaitlistPromotion,
		To:      email,
		Name:    name,
		Subject: "You're In! - " + classTitle,
		Body:    body,
	})
}

func (s *Service) SendClassCancellation(ctx context.Context, email, name, classTitle, reason string, startTime time.Time) error {
	body := fmt.Sprintf(`Hi %s,

We're sorry, your class has been cancelled.

Class: %s
Time: %s
Reason: %s

Your spot is released; please book another class.

- GymCore Team`, name, classTitle, startTime.Format("Jan 2, 2006 at 3:04 PM"), reason)

	return s.enqueue(ctx, Job{
		Type:    TypeClassCancelled,
		To:      email,
		Name:    name,
		Subject: "Class Cancelled - " + classTitle,
		Body:    body,
	})
}

func (s *Service) SendExpiryReminder(ctx context.Context, email, name string, endDate time.Time, daysLeft int) error {
	body := fmt.Sprintf(`Hi %s,

Your membership expires on %s (%d days left).

Renew now to keep your booking privileges.

- GymCore Team`, name, endDate.Format("Jan 2, 2006"), daysLeft)

	return s.enqueue(ctx, Job{
		Type:    TypeExpiryReminder,
		To:      email,
		Name:    name,
		Subject: "Membership Expiring Soon",
		Body:    body,
	})
}
