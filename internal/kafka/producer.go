package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/tygxx/human-monitor-system/internal/models"
)

// Producer publishes arrival events and monitor heartbeats.
type Producer struct {
	producer       sarama.SyncProducer
	arrivalTopic   string
	heartbeatTopic string
}

func NewProducer(brokers []string, arrivalTopic, heartbeatTopic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer:       producer,
		arrivalTopic:   arrivalTopic,
		heartbeatTopic: heartbeatTopic,
	}, nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// PublishArrival sends one confirmed arrival event, keyed by camera so the
// per-camera event order survives partitioning.
func (p *Producer) PublishArrival(event models.ArrivalEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.arrivalTopic,
		Key:   sarama.StringEncoder(event.CameraID),
		Value: sarama.ByteEncoder(payload),
	}

	_, _, err = p.producer.SendMessage(kafkaMsg)
	return err
}

// SendHeartbeat reports monitoring liveness for one camera.
func (p *Producer) SendHeartbeat(msg models.Heartbeat) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.heartbeatTopic,
		Key:   sarama.StringEncoder(msg.CameraID),
		Value: sarama.ByteEncoder(payload),
	}

	_, _, err = p.producer.SendMessage(kafkaMsg)
	return err
}
