// Package notify publishes mail jobs to the queue consumed by cmd/mail.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/metrics"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// DeclareQueue declares the durable mail queue. The API and the mail worker
// both call it so either may start first.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
}

type Publisher struct {
	ch      Channel
	queue   string
	to      string
	timeout time.Duration
}

// NewPublisher sends mission notifications for the dispatch desk at to.
func NewPublisher(ch Channel, queue, to string, timeout time.Duration) *Publisher {
	return &Publisher{
		ch:      ch,
		queue:   queue,
		to:      to,
		timeout: timeout,
	}
}

func (p *Publisher) MissionSubmitted(ctx context.Context, m *domain.Mission) error {
	msg := domain.MailMessage{
		Type: domain.MailTypeMissionSubmitted,
		To:   p.to,
		Data: domain.MissionSubmittedMailData{
			MissionID:           m.ID,
			DriverName:          m.DriverName,
			MissionDate:         m.MissionDate,
			MissionTime:         m.MissionTime,
			ServiceType:         m.ServiceType,
			VehicleRegistration: m.VehicleRegistration,
			VehicleModel:        m.VehicleModel,
			DepartureLocation:   m.DepartureLocation,
			ArrivalLocation:     m.ArrivalLocation,
			Observations:        m.Observations,
		},
	}

	if err := p.publish(ctx, msg); err != nil {
		metrics.NotificationsPublishedTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.NotificationsPublishedTotal.WithLabelValues("ok").Inc()

	return nil
}

func (p *Publisher) publish(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mail message: %w", err)
	}

	// the mission is already stored, finishing the publish should not depend on the client staying connected
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish to %s: %w", p.queue, err)
	}

	return nil
}
