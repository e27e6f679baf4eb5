package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for gate decisions, reminder dispatch and anomaly scans
var (
	validationsAcceptedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_validations_accepted_total",
			Help: "Inspection submissions accepted by the validation gate",
		},
	)

	validationsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_validations_rejected_total",
			Help: "Inspection submissions rejected by the validation gate, by reason",
		},
		[]string{"reason"},
	)

	remindersSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_reminders_sent_total",
			Help: "Reminders sent, by lead-time bucket",
		},
		[]string{"bucket"},
	)

	remindersFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_reminders_failed_total",
			Help: "Reminder sends that failed and were left for retry",
		},
	)

	anomaliesDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_anomalies_detected_total",
			Help: "Anomalies flagged by batch scans, by type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(validationsAcceptedTotal)
	prometheus.MustRegister(validationsRejectedTotal)
	prometheus.MustRegister(remindersSentTotal)
	prometheus.MustRegister(remindersFailedTotal)
	prometheus.MustRegister(anomaliesDetectedTotal)
}

func ValidationAccepted() {
	validationsAcceptedTotal.Inc()
}

func ValidationRejected(reason string) {
	validationsRejectedTotal.WithLabelValues(reason).Inc()
}

func ReminderSent(bucket string) {
	remindersSentTotal.WithLabelValues(bucket).Inc()
}

func ReminderFailed() {
	remindersFailedTotal.Inc()
}

func AnomalyDetected(kind string) {
	anomaliesDetectedTotal.WithLabelValues(kind).Inc()
}
