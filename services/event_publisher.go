package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/chopdirect/order-engine/models"
)

// Routing keys for lifecycle events. Status transitions additionally
// publish under "order.<status-lowercase>".
const (
	EventOrderCreated   = "order.created"
	EventDriverAssigned = "order.driver_assigned"
	EventRefundRequest  = "order.refund_requested"

	ordersExchange = "orders"
)

// StatusEventKey builds the routing key for a status transition event.
func StatusEventKey(status models.OrderStatus) string {
	return "order." + strings.ToLower(string(status))
}

// OrderEvent is the JSON payload consumed by downstream services
// (drivers, notifications, refunds). Delivery is at-least-once;
// consumers must tolerate duplicates.
type OrderEvent struct {
	OrderID      string `json:"orderId"`
	OrderNumber  string `json:"orderNumber"`
	CustomerID   string `json:"customerId"`
	RestaurantID string `json:"restaurantId"`
	DriverID     string `json:"driverId,omitempty"`
	Status       string `json:"status,omitempty"`
	Total        int64  `json:"total,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// NewOrderEvent fills the common fields from an order.
func NewOrderEvent(o *models.Order) OrderEvent {
	evt := OrderEvent{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerID:   o.CustomerID,
		RestaurantID: o.RestaurantID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	if o.DriverID != nil {
		evt.DriverID = *o.DriverID
	}
	return evt
}

// EventPublisher is the outbound port for lifecycle notifications. The
// engine publishes after the storage write commits and treats failures
// as best-effort: a lost event never rolls back an order.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event OrderEvent) error
}

// RabbitPublisher publishes events to a durable topic exchange.
type RabbitPublisher struct {
	ch       *amqp091.Channel
	exchange string
}

func NewRabbitPublisher(conn *amqp091.Connection) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		ordersExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &RabbitPublisher{ch: ch, exchange: ordersExchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}
