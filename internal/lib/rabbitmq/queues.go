// Package rabbitmq wraps streadway/amqp for the lifecycle events exchange:
// connecting, declaring queues, publishing JSON and consuming with bounded concurrency.
package rabbitmq

import "github.com/nusapalma/nusapalma/internal/models"

// QueueConfig binds a queue to a routing key.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationQueues lists the queues the notifier consumes.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.payment-created", RoutingKey: models.EventPaymentCreated},
		{QueueName: "notifications.subscription-activated", RoutingKey: models.EventSubscriptionActivated},
		{QueueName: "notifications.subscription-expiring", RoutingKey: models.EventSubscriptionExpiring},
	}
}
