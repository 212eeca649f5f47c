package repository

import (
	"context"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/RouaaAssaf/BankingSolution/internal/models"
	"github.com/RouaaAssaf/BankingSolution/internal/redisx"
)

const (
	summaryKeyPrefix = "customer:summary:"
	maxRecentTxns    = 20
)

// summaryEntry is the internal Redis representation of a customer's summary
// projection. Account balances are keyed by account id; each carries the
// ledger revision that produced it so stale balance events can be rejected.
type summaryEntry struct {
	Accounts map[string]models.AccountBalanceView `json:"accounts"`
	Recent   []models.RecentTransactionView       `json:"recent,omitempty"`
}

// SummaryRepository is the customer service's read model: per-customer
// balances and recent transactions projected from ledger events. It is a
// cache in the strict sense — droppable and rebuildable from the ledger.
type SummaryRepository struct {
	cache *redisx.ViewCache[summaryEntry]
}

func NewSummaryRepository(client *goredis.Client) *SummaryRepository {
	return &SummaryRepository{
		cache: redisx.NewViewCache[summaryEntry](client, summaryKeyPrefix, 0),
	}
}

func (r *SummaryRepository) load(ctx context.Context, customerID string) *summaryEntry {
	if entry, ok := r.cache.Get(ctx, customerID); ok {
		if entry.Accounts == nil {
			entry.Accounts = make(map[string]models.AccountBalanceView)
		}
		return entry
	}
	return &summaryEntry{Accounts: make(map[string]models.AccountBalanceView)}
}

func (r *SummaryRepository) store(ctx context.Context, customerID string, entry *summaryEntry) {
	r.cache.Set(ctx, customerID, entry)
}

// SeedAccount records a newly created account at its initial balance.
// Reapplying for a known account id only refreshes the same values.
func (r *SummaryRepository) SeedAccount(ctx context.Context, customerID, accountID string, balance decimal.Decimal, createdAt time.Time) {
	entry := r.load(ctx, customerID)
	if existing, ok := entry.Accounts[accountID]; ok && existing.Revision > 0 {
		// A balance update already landed before the (redelivered) created
		// event; the newer state wins.
		return
	}
	entry.Accounts[accountID] = models.AccountBalanceView{
		AccountID: accountID,
		Balance:   balance,
		UpdatedAt: createdAt,
	}
	r.store(ctx, customerID, entry)
}

// ApplyBalance overwrites an account's cached balance unless the event's
// revision is not newer than the one already applied. Returns false when
// the event was stale and discarded.
func (r *SummaryRepository) ApplyBalance(ctx context.Context, customerID, accountID string, balance decimal.Decimal, revision int64, updatedAt time.Time) bool {
	entry := r.load(ctx, customerID)
	if existing, ok := entry.Accounts[accountID]; ok && revision <= existing.Revision {
		return false
	}
	entry.Accounts[accountID] = models.AccountBalanceView{
		AccountID: accountID,
		Balance:   balance,
		Revision:  revision,
		UpdatedAt: updatedAt,
	}
	r.store(ctx, customerID, entry)
	return true
}

// AppendRecentTransaction adds a transaction to the bounded recent list,
// newest first. Callers are responsible for dedup; this append is blind.
func (r *SummaryRepository) AppendRecentTransaction(ctx context.Context, customerID string, view models.RecentTransactionView) {
	entry := r.load(ctx, customerID)
	entry.Recent = append([]models.RecentTransactionView{view}, entry.Recent...)
	if len(entry.Recent) > maxRecentTxns {
		entry.Recent = entry.Recent[:maxRecentTxns]
	}
	r.store(ctx, customerID, entry)
}

// Drop removes the whole projection for a deleted customer. Idempotent.
func (r *SummaryRepository) Drop(ctx context.Context, customerID string) {
	r.cache.Delete(ctx, customerID)
}

// GetSummary assembles the projection into its serving shape: accounts in
// stable order plus the derived total.
func (r *SummaryRepository) GetSummary(ctx context.Context, customerID string) ([]models.AccountBalanceView, decimal.Decimal, []models.RecentTransactionView) {
	entry := r.load(ctx, customerID)

	accounts := make([]models.AccountBalanceView, 0, len(entry.Accounts))
	for _, view := range entry.Accounts {
		accounts = append(accounts, view)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].AccountID < accounts[j].AccountID })

	total := decimal.Zero
	for _, view := range accounts {
		total = total.Add(view.Balance)
	}
	return accounts, total, entry.Recent
}
