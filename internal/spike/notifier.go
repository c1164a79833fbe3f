package spike

import (
	"context"

	"PolyPulse/internal/domain/models"
	"PolyPulse/pkg/kafka"
	"PolyPulse/pkg/logger"
)

// LogNotifier writes spike events to the application log. Always wired
// so a spike is visible even with no broker configured.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifySpike(_ context.Context, r models.SpikeResult) {
	n.log.Info("mention spike detected",
		logger.String("keyword", r.Keyword),
		logger.Float64("spike_percent", r.SpikePercent),
		logger.Float64("historical_avg", r.HistoricalAvg),
		logger.Int("current_count", r.CurrentCount),
		logger.String("confidence", string(r.Confidence)))
}

// KafkaNotifier publishes spike events to a Kafka topic, keyed by
// keyword so consumers see per-keyword ordering.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

// NewKafkaNotifier creates a Kafka-backed notifier.
func NewKafkaNotifier(producer *kafka.Producer, topic string, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic, log: log}
}

func (n *KafkaNotifier) NotifySpike(ctx context.Context, r models.SpikeResult) {
	if err := n.producer.Publish(ctx, n.topic, []byte(r.Keyword), r); err != nil {
		// Delivery is best effort; the spike is already logged and served.
		n.log.Warn("spike publish failed",
			logger.String("keyword", r.Keyword), logger.Error(err))
	}
}
