package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/messaging"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func sampleEvent() entity.TransmissionEvent {
	return entity.TransmissionEvent{
		TransmissionID: "tx-1",
		CompanyID:      "c1",
		Environment:    entity.EnvironmentBeta,
		DocumentType:   "01",
		Series:         "F001",
		Correlative:    "123",
		Status:         entity.TransmissionSent,
		Accepted:       true,
		ResponseCode:   "0",
		Attempts:       1,
		OccurredAt:     time.Date(2024, 5, 10, 10, 30, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("escribe el evento con clave de transmisión", func(t *testing.T) {
		w := new(mockWriter)
		p := messaging.NewKafkaPublisherWithWriter(w, messaging.DefaultTopic, zerolog.Nop())

		w.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != "tx-1" {
				return false
			}
			var got entity.TransmissionEvent
			if err := json.Unmarshal(msgs[0].Value, &got); err != nil {
				return false
			}
			return got.Status == entity.TransmissionSent && got.Accepted && got.Series == "F001"
		})).Return(nil).Once()

		require.NoError(t, p.Publish(ctx, sampleEvent()))
		w.AssertExpectations(t)
	})

	t.Run("propaga el error del writer", func(t *testing.T) {
		w := new(mockWriter)
		p := messaging.NewKafkaPublisherWithWriter(w, messaging.DefaultTopic, zerolog.Nop())
		w.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(errors.New("broker caído")).Once()

		err := p.Publish(ctx, sampleEvent())
		require.Error(t, err)
		assert.Contains(t, err.Error(), messaging.DefaultTopic)
		w.AssertExpectations(t)
	})
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := new(mockWriter)
	w.On("Close").Return(nil).Once()
	p := messaging.NewKafkaPublisherWithWriter(w, messaging.DefaultTopic, zerolog.Nop())
	require.NoError(t, p.Close())
	w.AssertExpectations(t)
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	_, err := messaging.NewKafkaPublisher(" , ", "", 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	var p messaging.NoopPublisher
	assert.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.NoError(t, p.Close())
}
