package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymcore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymcore_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymcore_reservations_total",
			Help: "Total number of reservations created, by resulting status",
		},
		[]string{"status"},
	)

	ReservationCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymcore_reservation_cancellations_total",
			Help: "Total number of reservation cancellations",
		},
	)

	WaitlistPromotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymcore_waitlist_promotions_total",
			Help: "Total number of waitlist entries promoted to confirmed",
		},
	)

	MembershipsAssignedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymcore_memberships_assigned_total",
			Help: "Total number of memberships assigned",
		},
	)

	MembershipRenewalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymcore_membership_renewals_total",
			Help: "Total number of membership renewals, by duration in months",
		},
		[]string{"months"},
	)

	MembershipFreezesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymcore_membership_freezes_total",
			Help: "Total number of membership freeze and unfreeze operations",
		},
		[]string{"op"},
	)

	MembershipsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymcore_memberships_expired_total",
			Help: "Total number of memberships transitioned to expired",
		},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymcore_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymcore_notifications_sent_total",
			Help: "Total number of notifications sent",
		},
		[]string{"type", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordReservation(status string) {
	ReservationsTotal.WithLabelValues(status).Inc()
}

func RecordCancellation() {
	ReservationCancellationsTotal.Inc()
}

func RecordPromotion() {
	WaitlistPromotionsTotal.Inc()
}

func RecordMembershipAssigned() {
	MembershipsAssignedTotal.Inc()
}

func RecordRenewal(months string) {
	MembershipRenewalsTotal.WithLabelValues(months).Inc()
}

func RecordFreeze(op string) {
	MembershipFreezesTotal.WithLabelValues(op).Inc()
}

func RecordExpired() {
	MembershipsExpiredTotal.Inc()
}

func RecordNotification(notifType, status string) {
	NotificationsSentTotal.WithLabelValues(notifType, status).Inc()
}
