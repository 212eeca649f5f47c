// Package consumer holds the customer service's projection of ledger
// events into the summary read model.
package consumer

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
	"github.com/RouaaAssaf/BankingSolution/internal/events"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

// SummaryStore is the slice of the summary repository the projector writes.
type SummaryStore interface {
	SeedAccount(ctx context.Context, customerID, accountID string, balance decimal.Decimal, createdAt time.Time)
	ApplyBalance(ctx context.Context, customerID, accountID string, balance decimal.Decimal, revision int64, updatedAt time.Time) bool
	AppendRecentTransaction(ctx context.Context, customerID string, view models.RecentTransactionView)
}

// ProcessedMarker deduplicates transaction.created deliveries; satisfied by
// *events.ProcessedStore.
type ProcessedMarker interface {
	Seen(ctx context.Context, id string) bool
	Mark(ctx context.Context, id string)
}

// SummaryProjector applies ledger events to the customer summary read
// model. Every application is idempotent: account seeds are keyed,
// balances carry a monotonic revision guard, and transactions are
// deduplicated by processed markers.
type SummaryProjector struct {
	summaries SummaryStore
	processed ProcessedMarker
}

func NewSummaryProjector(summaries SummaryStore, processed ProcessedMarker) *SummaryProjector {
	return &SummaryProjector{summaries: summaries, processed: processed}
}

// HandleLedgerEvent is the subscriber handler bound to the ledger events
// stream.
func (p *SummaryProjector) HandleLedgerEvent(ctx context.Context, env events.Envelope) error {
	switch env.Type {
	case events.AccountCreated:
		var data events.AccountCreatedEvent
		if err := events.DecodePayload(env, &data); err != nil {
			return err
		}
		if data.AccountID == "" || data.CustomerID == "" {
			return apperr.Poison("account.created event without identities", nil)
		}
		p.summaries.SeedAccount(ctx, data.CustomerID, data.AccountID, data.InitialBalance, data.CreatedAt)
		return nil

	case events.AccountBalanceUpdated:
		var data events.AccountBalanceUpdatedEvent
		if err := events.DecodePayload(env, &data); err != nil {
			return err
		}
		if data.AccountID == "" || data.CustomerID == "" {
			return apperr.Poison("account.balance.updated event without identities", nil)
		}
		if !p.summaries.ApplyBalance(ctx, data.CustomerID, data.AccountID, data.NewBalance, data.Revision, data.UpdatedAt) {
			log.Printf("Discarded stale balance update for account %s (revision %d)", data.AccountID, data.Revision)
		}
		return nil

	case events.TransactionCreated:
		var data events.TransactionCreatedEvent
		if err := events.DecodePayload(env, &data); err != nil {
			return err
		}
		if data.TransactionID == "" || data.CustomerID == "" {
			return apperr.Poison("transaction.created event without identities", nil)
		}
		if p.processed.Seen(ctx, data.TransactionID) {
			log.Printf("Transaction %s already projected, skipping duplicate event", data.TransactionID)
			return nil
		}
		p.summaries.AppendRecentTransaction(ctx, data.CustomerID, models.RecentTransactionView{
			TransactionID: data.TransactionID,
			AccountID:     data.AccountID,
			Amount:        data.Amount,
			Type:          data.Type,
			Description:   data.Description,
			OccurredAt:    data.OccurredAt,
		})
		p.processed.Mark(ctx, data.TransactionID)
		return nil

	default:
		return nil
	}
}
