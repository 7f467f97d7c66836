// Package events publishes domain events for downstream consumers such as
// loyalty or bookkeeping workers.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KeySaleRecorded = "sale.recorded"
	KeyDailySummary = "report.daily"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// Envelope is the body of every published message.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type SaleRecorded struct {
	TransactionID string          `json:"transaction_id"`
	CustomerName  string          `json:"customer_name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalTips     decimal.Decimal `json:"total_tips"`
	ItemCount     int             `json:"item_count"`
	RecordedBy    string          `json:"recorded_by"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ string, _ any) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
