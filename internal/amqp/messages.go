package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bankledger/internal/core"
)

// TransactionEvent announces one committed transaction record. Amounts
// travel as fixed two-decimal strings so consumers never see float rounding.
type TransactionEvent struct {
	EventID      string    `json:"event_id"`
	Account      string    `json:"account"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	Category     string    `json:"category"`
	OccurredAt   time.Time `json:"occurred_at"`
	PublishedAt  time.Time `json:"published_at"`
}

// NewTransactionEvent wraps a record with a fresh event id.
func NewTransactionEvent(rec core.TransactionRecord) *TransactionEvent {
	return &TransactionEvent{
		EventID:      uuid.NewString(),
		Account:      rec.AccountNumber,
		Type:         rec.Type.String(),
		Amount:       core.FormatAmount(rec.Amount),
		BalanceAfter: core.FormatAmount(rec.BalanceAfter),
		Category:     rec.Category,
		OccurredAt:   rec.Timestamp,
		PublishedAt:  time.Now(),
	}
}

// Record converts the event back into the record it announced.
func (e *TransactionEvent) Record() (core.TransactionRecord, error) {
	typ, err := core.ParseTxType(e.Type)
	if err != nil {
		return core.TransactionRecord{}, err
	}
	amount, err := core.ParseAmount(e.Amount)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("amount %q: %w", e.Amount, err)
	}
	after, err := core.ParseBalance(e.BalanceAfter)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("balance after %q: %w", e.BalanceAfter, err)
	}
	return core.TransactionRecord{
		AccountNumber: e.Account,
		Type:          typ,
		Amount:        amount,
		BalanceAfter:  after,
		Timestamp:     e.OccurredAt,
		Category:      e.Category,
	}, nil
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event and checks it names an account.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Account == "" {
		return nil, errors.New("event without account")
	}
	return &ev, nil
}
