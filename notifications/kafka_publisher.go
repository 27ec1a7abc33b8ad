package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

const paymentStatusChangedEvent = "payment.status_changed"

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type paymentStatusEvent struct {
	Type          string `json:"type"`
	RRR           string `json:"rrr"`
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
	Previous      string `json:"previousStatus"`
	Status        string `json:"status"`
	StudentID     string `json:"studentId"`
	MatricNumber  string `json:"matricNumber"`
	ChangedAt     string `json:"changedAt"`
}

// StatusEventPublisher writes every reconciled status change to Kafka keyed
// by reference.
type StatusEventPublisher struct {
	writer MessageWriter
	logger *zap.Logger
}

func NewKafkaWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Async:        true,
		Logger:       kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Debug(fmt.Sprintf(msg, args...)) }),
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Error(fmt.Sprintf(msg, args...)) }),
	}
}

func NewStatusEventPublisher(writer MessageWriter, logger *zap.Logger) *StatusEventPublisher {
	return &StatusEventPublisher{writer: writer, logger: logger.Named("status_events")}
}

func (p *StatusEventPublisher) PaymentStatusChanged(ctx context.Context, change models.PaymentStatusChange) {
	value, err := json.Marshal(paymentStatusEvent{
		Type:          paymentStatusChangedEvent,
		RRR:           change.RRR,
		TransactionID: change.TransactionID,
		Amount:        change.Amount,
		Previous:      string(change.Previous),
		Status:        string(change.Current),
		StudentID:     change.StudentID.String(),
		MatricNumber:  change.MatricNumber,
		ChangedAt:     change.ChangedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.logger.Error("Failed to encode status event", zap.String("rrr", change.RRR), zap.Error(err))
		return
	}

	produceCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(produceCtx, kafka.Message{Key: []byte(change.RRR), Value: value}); err != nil {
		p.logger.Error("Failed to produce status event",
			zap.String("rrr", change.RRR),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("Status event produced", zap.String("rrr", change.RRR), zap.String("status", string(change.Current)))
}

func (p *StatusEventPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
