package oracle

import (
	"context"

	"lever/core"
	"lever/pkg/number"

	"github.com/shopspring/decimal"
)

type gateway struct{}

// NewGateway new oracle gateway
func NewGateway() core.IOracleGateway {
	return &gateway{}
}

// ValidatedPrice fetches an observation for the reserve's feed and vets it
// before any value is trusted. No caching: every solvency affecting decision
// re-fetches, a validated price is never reused across independent calls.
func (g *gateway) ValidatedPrice(ctx context.Context, source core.PriceSource, reserve *core.Reserve, now int64) (decimal.Decimal, error) {
	obs, err := source.Observe(ctx, reserve.PriceFeedID)
	if err != nil {
		return decimal.Zero, err
	}

	if obs.Price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, core.ErrPriceOutOfBounds
	}

	if now-obs.PublishedAt > reserve.MaxOracleAgeSeconds {
		return decimal.Zero, core.ErrStaleOracle
	}

	ratio, err := number.MulDiv(obs.Confidence, number.BasisPoints, obs.Price)
	if err != nil {
		return decimal.Zero, err
	}
	if ratio.GreaterThan(decimal.NewFromInt(reserve.MaxOracleConfidenceBps)) {
		return decimal.Zero, core.ErrLowConfidence
	}

	if obs.Price.LessThan(reserve.MinPrice) {
		return decimal.Zero, core.ErrPriceOutOfBounds
	}
	if reserve.MaxPrice.GreaterThan(decimal.Zero) && obs.Price.GreaterThan(reserve.MaxPrice) {
		return decimal.Zero, core.ErrPriceOutOfBounds
	}

	return obs.Price, nil
}
