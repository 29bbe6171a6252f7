package services

import "context"

// EventPublisher publishes domain events to the message broker. Implemented
// by kafka.Producer; nil disables publishing.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload interface{}) error
}

// SNSPublisher fans events out to SNS for consumers outside the Kafka
// estate. Best-effort: publish failures are logged, never surfaced.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, message []byte) error
}
