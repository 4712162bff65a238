package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	key       string
	published []amqp.Publishing
	err       error
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.key = key
	c.published = append(c.published, msg)
	return nil
}

func TestMissionSubmitted(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "email_queue", "dispatch@example.com", time.Second)

	m := &domain.Mission{
		ID:                  12,
		DriverName:          "Alice Martin",
		MissionDate:         "2024-05-01",
		MissionTime:         "14:30",
		ServiceType:         "Tow",
		VehicleRegistration: "AB-123",
		VehicleModel:        "Clio",
		DepartureLocation:   "Rabat",
		ArrivalLocation:     "Casa",
	}
	require.NoError(t, p.MissionSubmitted(context.Background(), m))

	require.Len(t, ch.published, 1)
	assert.Equal(t, "email_queue", ch.key)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)

	var got struct {
		Type string                          `json:"type"`
		To   string                          `json:"to"`
		Data domain.MissionSubmittedMailData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &got))
	assert.Equal(t, domain.MailTypeMissionSubmitted, got.Type)
	assert.Equal(t, "dispatch@example.com", got.To)
	assert.Equal(t, int64(12), got.Data.MissionID)
	assert.Equal(t, "Alice Martin", got.Data.DriverName)
	assert.Equal(t, "AB-123", got.Data.VehicleRegistration)
}

func TestMissionSubmittedPublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := NewPublisher(ch, "email_queue", "dispatch@example.com", time.Second)

	err := p.MissionSubmitted(context.Background(), &domain.Mission{ID: 1})
	assert.ErrorContains(t, err, "channel closed")
}
