package amqp

import (
	"context"

	"bankledger/internal/core"
	"bankledger/internal/log"
)

// EventPublisher is the publishing side of Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *TransactionEvent) error
}

// Publisher forwards committed ledger records as events. Failures are logged
// and dropped: the ledger files stay authoritative.
type Publisher struct {
	client EventPublisher
	logger *log.Logger
}

func NewPublisher(client EventPublisher, logger *log.Logger) *Publisher {
	return &Publisher{client: client, logger: logger.WithComponent(log.ComponentAMQP)}
}

func (p *Publisher) Committed(ctx context.Context, recs []core.TransactionRecord) {
	for _, rec := range recs {
		ev := NewTransactionEvent(rec)
		if err := p.client.PublishEvent(ctx, ev); err != nil {
			p.logger.WarnContext(ctx, "Failed to publish transaction event",
				log.FieldEventID, ev.EventID,
				log.FieldAccount, ev.Account,
				log.FieldError, err)
		}
	}
}
