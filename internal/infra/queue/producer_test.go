package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/agency-backoffice/internal/entity"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

// TestPublishLeadEvent - routing key é a ação e o body é o evento em JSON
func TestPublishLeadEvent(t *testing.T) {
	pub := new(MockPublisher)
	event := entity.LeadEvent{
		TenantID:   "t1",
		LeadID:     "lead-1",
		ExternalID: "card-1",
		Source:     entity.LeadSourceTrello,
		Action:     entity.LeadActionCreated,
		Status:     entity.LeadStatusNew,
		Region:     "CARIBE",
		OccurredAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	var sent amqp.Publishing
	pub.On("PublishWithContext", mock.Anything, ExchangeName, "lead.created", false, false, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(5).(amqp.Publishing) }).
		Return(nil)

	err := NewProducer(pub).PublishLeadEvent(context.Background(), event)
	require.NoError(t, err)
	pub.AssertExpectations(t)

	assert.Equal(t, "application/json", sent.ContentType)
	assert.Equal(t, amqp.Persistent, sent.DeliveryMode)
	assert.Equal(t, "t1", sent.Headers["tenant_id"])
	assert.NotEmpty(t, sent.MessageId)

	var decoded entity.LeadEvent
	require.NoError(t, json.Unmarshal(sent.Body, &decoded))
	assert.Equal(t, event, decoded)
}

func TestPublishLeadEventError(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishWithContext", mock.Anything, ExchangeName, "lead.deleted", false, false, mock.Anything).
		Return(errors.New("channel closed"))

	err := NewProducer(pub).PublishLeadEvent(context.Background(), entity.LeadEvent{Action: entity.LeadActionDeleted})
	assert.ErrorContains(t, err, "channel closed")
}
