package oracle

import (
	"context"
	"testing"
	"time"

	"lever/core"
	"lever/pkg/number"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	obs *core.PriceObservation
	err error
}

func (s *stubSource) Observe(ctx context.Context, feedID string) (*core.PriceObservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.obs, nil
}

func testReserve() *core.Reserve {
	return &core.Reserve{
		AssetID:                "btc",
		PriceFeedID:            "btc-usd",
		MinPrice:               number.Decimal("1000"),
		MaxPrice:               number.Decimal("1000000"),
		MaxOracleAgeSeconds:    300,
		MaxOracleConfidenceBps: 100,
	}
}

func TestValidatedPrice(t *testing.T) {
	now := time.Now().Unix()
	g := NewGateway()

	source := &stubSource{obs: &core.PriceObservation{
		FeedID:      "btc-usd",
		Price:       number.Decimal("40000"),
		Confidence:  number.Decimal("100"),
		PublishedAt: now - 10,
	}}

	price, err := g.ValidatedPrice(context.Background(), source, testReserve(), now)
	require.NoError(t, err)
	assert.Equal(t, "40000", price.String())
}

func TestValidatedPriceStale(t *testing.T) {
	now := time.Now().Unix()
	g := NewGateway()

	source := &stubSource{obs: &core.PriceObservation{
		Price:       number.Decimal("40000"),
		Confidence:  number.Decimal("100"),
		PublishedAt: now - 301,
	}}

	_, err := g.ValidatedPrice(context.Background(), source, testReserve(), now)
	assert.Equal(t, core.ErrStaleOracle, err)
}

func TestValidatedPriceLowConfidence(t *testing.T) {
	now := time.Now().Unix()
	g := NewGateway()

	// confidence 2% of price, limit is 1%
	source := &stubSource{obs: &core.PriceObservation{
		Price:       number.Decimal("40000"),
		Confidence:  number.Decimal("800"),
		PublishedAt: now,
	}}

	_, err := g.ValidatedPrice(context.Background(), source, testReserve(), now)
	assert.Equal(t, core.ErrLowConfidence, err)
}

func TestValidatedPriceOutOfBounds(t *testing.T) {
	now := time.Now().Unix()
	g := NewGateway()

	for _, price := range []string{"0", "-1", "999", "1000001"} {
		source := &stubSource{obs: &core.PriceObservation{
			Price:       number.Decimal(price),
			Confidence:  decimal.Zero,
			PublishedAt: now,
		}}

		_, err := g.ValidatedPrice(context.Background(), source, testReserve(), now)
		assert.Equal(t, core.ErrPriceOutOfBounds, err, "price %s", price)
	}
}
