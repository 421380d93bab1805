package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"

	"ledger-service/internal/domain"
)

const (
	// TransactionQueue receives one message per committed transaction.
	TransactionQueue = "ledger.transactions"

	EventTransactionCompleted = "transaction.completed"
)

// TransactionEvent is the message body published for a committed transaction.
type TransactionEvent struct {
	Event          string                 `json:"event"`
	TransactionID  int64                  `json:"transaction_id"`
	Type           domain.TransactionType `json:"type"`
	Amount         decimal.Decimal        `json:"amount"`
	Currency       string                 `json:"currency"`
	IdempotencyKey *string                `json:"idempotency_key,omitempty"`
	Entries        []EntryEvent           `json:"entries"`
	OccurredAt     time.Time              `json:"occurred_at"`
}

type EntryEvent struct {
	AccountID int64            `json:"account_id"`
	EntryType domain.EntryType `json:"entry_type"`
	Amount    decimal.Decimal  `json:"amount"`
}

func NewTransactionEvent(tx *domain.Transaction) TransactionEvent {
	event := TransactionEvent{
		Event:         EventTransactionCompleted,
		TransactionID: tx.ID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Entries:       make([]EntryEvent, 0, len(tx.Entries)),
		OccurredAt:    tx.CreatedAt,
	}
	if tx.IdempotencyKey != nil {
		key := tx.IdempotencyKey.String()
		event.IdempotencyKey = &key
	}
	for _, e := range tx.Entries {
		event.Entries = append(event.Entries, EntryEvent{
			AccountID: e.AccountID,
			EntryType: e.EntryType,
			Amount:    e.Amount,
		})
	}
	return event
}

// RabbitMQ publishes committed transactions to a durable queue.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func NewRabbitMQ(uri string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		TransactionQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

// PublishTransaction sends a transaction.completed event for tx.
func (r *RabbitMQ) PublishTransaction(ctx context.Context, tx *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(NewTransactionEvent(tx))
	if err != nil {
		return fmt.Errorf("failed to marshal transaction event: %w", err)
	}

	err = r.channel.Publish(
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         EventTransactionCompleted,
			MessageId:    fmt.Sprintf("transaction-%d", tx.ID),
			Timestamp:    time.Now().UTC(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("failed to publish transaction %d: %w", tx.ID, err)
	}

	return nil
}
