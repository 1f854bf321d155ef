// Package messaging publica eventos de transmisión SUNAT.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// DefaultTopic tópico de resultados de envío.
const DefaultTopic = "sunat.transmissions"

// KafkaWriter subconjunto de *kafka.Writer usado por el publisher.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica un TransmissionEvent JSON por resultado, con clave = id de transmisión
// para conservar el orden por documento.
type KafkaPublisher struct {
	writer KafkaWriter
	topic  string
	log    zerolog.Logger
}

// NewKafkaPublisher arma el writer para brokers separados por coma.
func NewKafkaPublisher(brokers, topic string, writeTimeout time.Duration, log zerolog.Logger) (*KafkaPublisher, error) {
	addrs := splitBrokers(brokers)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("kafka: no hay brokers configurados")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(w, topic, log), nil
}

// NewKafkaPublisherWithWriter permite inyectar el writer (tests).
func NewKafkaPublisherWithWriter(w KafkaWriter, topic string, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

// Publish serializa y escribe el evento.
func (p *KafkaPublisher) Publish(ctx context.Context, event entity.TransmissionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: serializar evento: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.TransmissionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(event.Status)},
			{Key: "document_type", Value: []byte(event.DocumentType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error().Err(err).Str("topic", p.topic).Str("transmission_id", event.TransmissionID).Msg("[SUNAT] no se pudo publicar evento")
		return fmt.Errorf("kafka: publicar en %s: %w", p.topic, err)
	}
	p.log.Debug().Str("topic", p.topic).Str("transmission_id", event.TransmissionID).Str("status", string(event.Status)).Msg("[SUNAT] evento publicado")
	return nil
}

// Close cierra el writer.
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("kafka: cerrar writer %s: %w", p.topic, err)
	}
	return nil
}

// NoopPublisher descarta los eventos; se usa cuando Kafka no está configurado.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, entity.TransmissionEvent) error { return nil }
func (NoopPublisher) Close() error                                          { return nil }

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
