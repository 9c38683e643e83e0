package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceObservation externally supplied price point for one feed.
// Transient, consumed immediately by revaluation and never persisted here.
type PriceObservation struct {
	FeedID string `json:"feed_id"`
	// quote per unit
	Price decimal.Decimal `json:"price"`
	// absolute confidence interval around Price
	Confidence  decimal.Decimal `json:"confidence"`
	PublishedAt int64           `json:"published_at"`
}

// PriceSource capability to observe a raw price for a feed.
// Implementations do no validation; every solvency affecting decision goes
// through the oracle gateway instead of consuming observations directly.
type PriceSource interface {
	Observe(ctx context.Context, feedID string) (*PriceObservation, error)
}

// IOracleGateway validated access to external prices
type IOracleGateway interface {
	ValidatedPrice(ctx context.Context, source PriceSource, reserve *Reserve, now int64) (decimal.Decimal, error)
}
