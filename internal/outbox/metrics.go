package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "habitboard",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of outbox events successfully published to Kafka.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "habitboard",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of outbox event deliveries that failed and were left for retry.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "habitboard",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent claiming, delivering, and marking outbox batches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	directPublishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitboard",
		Subsystem: "publisher",
		Name:      "events_total",
		Help:      "Events written to Kafka without the outbox, by topic and outcome.",
	}, []string{"topic", "outcome"})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, batchDuration, directPublishCounter)
}

func recordDirectPublish(topic string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	directPublishCounter.WithLabelValues(topic, outcome).Inc()
}
