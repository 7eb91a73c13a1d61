package repository

import (
	"context"

	"MacroPulse/internal/domain/models"
	pkgkafka "MacroPulse/pkg/kafka"
	applogger "MacroPulse/pkg/logger"
)

// KafkaScoreNotifier publishes newly committed scores to a Kafka topic,
// keyed by asset for per-asset ordering. Delivery is best-effort; a
// failed publish never fails the recompute that produced the score.
type KafkaScoreNotifier struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

// NewKafkaScoreNotifier creates a notifier writing to the given topic.
func NewKafkaScoreNotifier(producer *pkgkafka.Producer, topic string, l *applogger.Logger) *KafkaScoreNotifier {
	return &KafkaScoreNotifier{producer: producer, topic: topic, l: l}
}

// NotifyPublished sends the score to the score-updates topic.
func (n *KafkaScoreNotifier) NotifyPublished(ctx context.Context, score models.AssetScore) {
	if err := n.producer.Publish(ctx, n.topic, []byte(score.Asset), score); err != nil {
		if n.l != nil {
			n.l.Error("score update publish failed",
				applogger.String("asset", score.Asset),
				applogger.Int64("version", int64(score.Version)),
				applogger.Error(err),
			)
		}
	}
}
