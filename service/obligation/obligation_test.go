package obligation

import (
	"context"
	"testing"
	"time"

	"lever/core"
	"lever/pkg/number"
	"lever/service/oracle"
	reservesrv "lever/service/reserve"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	observations map[string]*core.PriceObservation
}

func (s *stubSource) Observe(ctx context.Context, feedID string) (*core.PriceObservation, error) {
	obs, ok := s.observations[feedID]
	if !ok {
		return nil, core.ErrReserveNotFound
	}
	return obs, nil
}

func newSource(now time.Time, prices map[string]string) *stubSource {
	observations := make(map[string]*core.PriceObservation, len(prices))
	for feed, price := range prices {
		observations[feed] = &core.PriceObservation{
			FeedID:      feed,
			Price:       number.Decimal(price),
			Confidence:  decimal.Zero,
			PublishedAt: now.Unix(),
		}
	}
	return &stubSource{observations: observations}
}

func newReserve(assetID string, now time.Time) *core.Reserve {
	return &core.Reserve{
		AssetID:                assetID,
		Symbol:                 assetID,
		TotalLiquidity:         number.Decimal("1000000"),
		TotalVariableDebt:      number.Decimal("500000"),
		LiquidityIndex:         number.One,
		VariableBorrowIndex:    number.One,
		OptimalUtilization:     number.Decimal("0.8"),
		BaseRate:               number.Decimal("0.02"),
		Slope1:                 number.Decimal("0.04"),
		Slope2:                 number.Decimal("0.6"),
		ReserveFactor:          number.Decimal("0.1"),
		CollateralFactor:       number.Decimal("0.8"),
		LiquidationThreshold:   number.One,
		CloseFactor:            number.Decimal("0.5"),
		LiquidationIncentive:   number.Decimal("0.1"),
		PriceFeedID:            assetID + "-usd",
		MinPrice:               number.Decimal("0.000001"),
		MaxPrice:               number.Decimal("1000000"),
		MaxOracleAgeSeconds:    300,
		MaxOracleConfidenceBps: 100,
		LastUpdatedAt:          now.Unix(),
		LastRewardAt:           now.Unix(),
	}
}

func newEngine() core.IObligationService {
	return New(oracle.NewGateway(), reservesrv.New(), 10, 10)
}

func TestRevalueNoDebt(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	btc := newReserve("btc", now)
	reserves := map[string]*core.Reserve{"btc": btc}
	source := newSource(now, map[string]string{"btc-usd": "2"})

	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, btc, number.Decimal("75"), now))

	snapshot, err := s.Revalue(ctx, ob, reserves, source, now)
	require.NoError(t, err)

	// 75 * 2 * 0.8 = 120 weighted collateral, no debt
	assert.Equal(t, "120", snapshot.TotalCollateralValue.String())
	assert.True(t, snapshot.TotalDebtValue.IsZero())
	assert.True(t, snapshot.HealthFactor.Equal(number.MaxHealthFactor), "no debt means the sentinel maximum")
	assert.False(t, snapshot.Liquidatable)
}

func TestRevalueHealthFactor(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	btc := newReserve("btc", now)
	usd := newReserve("usd", now)
	usd.CollateralFactor = number.Decimal("0.9")
	reserves := map[string]*core.Reserve{"btc": btc, "usd": usd}
	source := newSource(now, map[string]string{"btc-usd": "2", "usd-usd": "1"})

	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, btc, number.Decimal("75"), now))
	require.NoError(t, s.AddBorrow(ctx, ob, usd, number.Decimal("100"), core.BorrowRateModeVariable, now))

	snapshot, err := s.Revalue(ctx, ob, reserves, source, now)
	require.NoError(t, err)

	// collateral 150 haircut to 120, debt 100, threshold factor 1
	assert.Equal(t, "120", snapshot.TotalCollateralValue.String())
	assert.Equal(t, "100", snapshot.TotalDebtValue.String())
	assert.Equal(t, "1.2", snapshot.HealthFactor.String())
	assert.False(t, snapshot.Liquidatable)

	assert.Equal(t, "120", ob.TotalCollateralValue.String())
	assert.Equal(t, "1.2", ob.HealthFactor.String())
}

func TestRevalueUnderwater(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	btc := newReserve("btc", now)
	usd := newReserve("usd", now)
	reserves := map[string]*core.Reserve{"btc": btc, "usd": usd}
	source := newSource(now, map[string]string{"btc-usd": "2", "usd-usd": "1"})

	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, btc, number.Decimal("75"), now))
	require.NoError(t, s.AddBorrow(ctx, ob, usd, number.Decimal("130"), core.BorrowRateModeVariable, now))

	snapshot, err := s.Revalue(ctx, ob, reserves, source, now)
	require.NoError(t, err)

	// 120 / 130 ≈ 0.923
	assert.Equal(t, "0.9230769230769231", snapshot.HealthFactor.String())
	assert.True(t, snapshot.Liquidatable)
	assert.True(t, s.Liquidatable(ctx, ob))
}

func TestLiquidatableZeroHealthFactor(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	// collateral factor 0 makes the deposit worthless as collateral
	btc := newReserve("btc", now)
	btc.CollateralFactor = decimal.Zero
	usd := newReserve("usd", now)
	reserves := map[string]*core.Reserve{"btc": btc, "usd": usd}
	source := newSource(now, map[string]string{"btc-usd": "2", "usd-usd": "1"})

	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, btc, number.Decimal("75"), now))
	require.NoError(t, s.AddBorrow(ctx, ob, usd, number.Decimal("100"), core.BorrowRateModeVariable, now))

	snapshot, err := s.Revalue(ctx, ob, reserves, source, now)
	require.NoError(t, err)

	assert.True(t, snapshot.HealthFactor.IsZero())
	assert.True(t, snapshot.Liquidatable)
	assert.True(t, s.Liquidatable(ctx, ob), "zero health factor with live debt must be liquidatable")

	// the raw balance is still seizable even though it counts for nothing
	// as collateral: 75 * 0.5 close factor
	seize, err := s.MaxSeize(ctx, ob, btc, usd, source, now)
	require.NoError(t, err)
	assert.Equal(t, "37.5", seize.String())
}

func TestRevalueStaleOracleLeavesObligationUntouched(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	btc := newReserve("btc", now)
	reserves := map[string]*core.Reserve{"btc": btc}

	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, btc, number.Decimal("75"), now))
	before := *ob

	source := newSource(now.Add(-400*time.Second), map[string]string{"btc-usd": "2"})
	_, err := s.Revalue(ctx, ob, reserves, source, now)
	require.Equal(t, core.ErrStaleOracle, err)

	assert.Equal(t, before, *ob, "failed revaluation must not mutate the obligation")
	assert.Equal(t, number.One.String(), btc.LiquidityIndex.String(), "revalue must not persist accrual on caller reserves")
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	btc := newReserve("btc", now)
	usd := newReserve("usd", now)
	reserves := map[string]*core.Reserve{"btc": btc, "usd": usd}
	source := newSource(now, map[string]string{"btc-usd": "2", "usd-usd": "1"})

	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, btc, number.Decimal("75"), now))

	first, err := s.Revalue(ctx, ob, reserves, source, now)
	require.NoError(t, err)

	require.NoError(t, s.AddDeposit(ctx, ob, usd, number.Decimal("500"), now))
	require.NoError(t, s.ReduceDeposit(ctx, ob, usd, number.Decimal("500"), now))

	second, err := s.Revalue(ctx, ob, reserves, source, now)
	require.NoError(t, err)

	assert.Equal(t, first.TotalCollateralValue.String(), second.TotalCollateralValue.String())
	_, found := ob.FindDeposit("usd")
	assert.False(t, found, "emptied position must be dropped")
}

func TestAddDepositCapacity(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New(oracle.NewGateway(), reservesrv.New(), 2, 2)

	ob := &core.Obligation{UserID: "alice"}
	for _, asset := range []string{"a", "b"} {
		require.NoError(t, s.AddDeposit(ctx, ob, newReserve(asset, now), number.Decimal("1"), now))
	}

	err := s.AddDeposit(ctx, ob, newReserve("c", now), number.Decimal("1"), now)
	assert.Equal(t, core.ErrCapacityExceeded, err)

	// topping up an existing position is always allowed
	require.NoError(t, s.AddDeposit(ctx, ob, newReserve("a", now), number.Decimal("1"), now))
}

func TestAddBorrowCapacity(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New(oracle.NewGateway(), reservesrv.New(), 2, 2)

	ob := &core.Obligation{UserID: "alice"}
	for _, asset := range []string{"a", "b"} {
		require.NoError(t, s.AddBorrow(ctx, ob, newReserve(asset, now), number.Decimal("1"), core.BorrowRateModeVariable, now))
	}

	err := s.AddBorrow(ctx, ob, newReserve("c", now), number.Decimal("1"), core.BorrowRateModeVariable, now)
	assert.Equal(t, core.ErrCapacityExceeded, err)
}

func TestAddBorrowInsufficientLiquidity(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	r := newReserve("btc", now)
	// 500k available in the pool
	err := s.AddBorrow(ctx, &core.Obligation{UserID: "alice"}, r, number.Decimal("500001"), core.BorrowRateModeVariable, now)
	assert.Equal(t, core.ErrInsufficientLiquidity, err)
}

func TestFrozenReserve(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	r := newReserve("btc", now)
	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, r, number.Decimal("10"), now))

	r.Status = core.ReserveStatusFrozen
	assert.Equal(t, core.ErrReserveNotActive, s.AddDeposit(ctx, ob, r, number.Decimal("1"), now))
	assert.Equal(t, core.ErrReserveNotActive, s.AddBorrow(ctx, ob, r, number.Decimal("1"), core.BorrowRateModeVariable, now))
	// withdraw still allowed while frozen
	require.NoError(t, s.ReduceDeposit(ctx, ob, r, number.Decimal("1"), now))

	r.Status = core.ReserveStatusPaused
	assert.Equal(t, core.ErrReserveNotActive, s.ReduceDeposit(ctx, ob, r, number.Decimal("1"), now))
}

func TestCheckBorrowAllowed(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	btc := newReserve("btc", now)
	usd := newReserve("usd", now)
	reserves := map[string]*core.Reserve{"btc": btc, "usd": usd}
	source := newSource(now, map[string]string{"btc-usd": "2", "usd-usd": "1"})

	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, btc, number.Decimal("75"), now))
	require.NoError(t, s.AddBorrow(ctx, ob, usd, number.Decimal("100"), core.BorrowRateModeVariable, now))

	// 120 adjusted collateral against 100 debt, 20 of headroom
	require.NoError(t, s.CheckBorrowAllowed(ctx, ob, reserves, usd, number.Decimal("20"), source, now))

	err := s.CheckBorrowAllowed(ctx, ob, reserves, usd, number.Decimal("30"), source, now)
	assert.Equal(t, core.ErrHealthFactorTooLow, err)
}

func TestCheckWithdrawAllowed(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	btc := newReserve("btc", now)
	usd := newReserve("usd", now)
	reserves := map[string]*core.Reserve{"btc": btc, "usd": usd}
	source := newSource(now, map[string]string{"btc-usd": "2", "usd-usd": "1"})

	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, btc, number.Decimal("75"), now))

	// debt free, any withdrawal within balance is allowed
	require.NoError(t, s.CheckWithdrawAllowed(ctx, ob, reserves, btc, number.Decimal("75"), source, now))

	require.NoError(t, s.AddBorrow(ctx, ob, usd, number.Decimal("100"), core.BorrowRateModeVariable, now))

	// each withdrawn btc removes 2 * 0.8 = 1.6 of adjusted collateral,
	// headroom is 20, so 12.5 is the edge
	require.NoError(t, s.CheckWithdrawAllowed(ctx, ob, reserves, btc, number.Decimal("12.5"), source, now))

	err := s.CheckWithdrawAllowed(ctx, ob, reserves, btc, number.Decimal("13"), source, now)
	assert.Equal(t, core.ErrHealthFactorTooLow, err)

	err = s.CheckWithdrawAllowed(ctx, ob, reserves, btc, number.Decimal("76"), source, now)
	assert.Equal(t, core.ErrInsufficientLiquidity, err)
}

func TestCheckWithdrawAllowedAccruesFirst(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	// a year of 10% supply interest the caller has not accrued yet
	btc := newReserve("btc", now)
	btc.LiquidityRate = number.Decimal("0.1")
	btc.LastUpdatedAt = now.Add(-365 * 24 * time.Hour).Unix()
	btc.LastRewardAt = btc.LastUpdatedAt
	reserves := map[string]*core.Reserve{"btc": btc}
	source := newSource(now, map[string]string{"btc-usd": "2"})

	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, btc, number.Decimal("75"), now))

	// accrued balance is 75 * 1.1 = 82.5, the cap must see it
	require.NoError(t, s.CheckWithdrawAllowed(ctx, ob, reserves, btc, number.Decimal("82.5"), source, now))

	err := s.CheckWithdrawAllowed(ctx, ob, reserves, btc, number.Decimal("83"), source, now)
	assert.Equal(t, core.ErrInsufficientLiquidity, err)

	assert.Equal(t, number.One.String(), btc.LiquidityIndex.String(), "the check must not persist accrual on the caller's reserve")
}

func TestMaxSeize(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	btc := newReserve("btc", now)
	usd := newReserve("usd", now)
	reserves := map[string]*core.Reserve{"btc": btc, "usd": usd}
	source := newSource(now, map[string]string{"btc-usd": "2", "usd-usd": "1"})

	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, btc, number.Decimal("75"), now))
	require.NoError(t, s.AddBorrow(ctx, ob, usd, number.Decimal("130"), core.BorrowRateModeVariable, now))

	// healthy positions must not be seizable
	_, err := s.MaxSeize(ctx, ob, btc, usd, source, now)
	assert.Equal(t, core.ErrHealthyPosition, err)

	_, err = s.Revalue(ctx, ob, reserves, source, now)
	require.NoError(t, err)
	require.True(t, s.Liquidatable(ctx, ob))

	// close factor caps the slice at 37.5 btc; seize price is
	// 2 * (1 - 0.1) = 1.8, well below the 130 owed
	seize, err := s.MaxSeize(ctx, ob, btc, usd, source, now)
	require.NoError(t, err)
	assert.Equal(t, "37.5", seize.String())
}

func TestClaimRewards(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := newEngine()

	r := newReserve("btc", now)
	ob := &core.Obligation{UserID: "alice"}
	require.NoError(t, s.AddDeposit(ctx, ob, r, number.Decimal("100"), now))

	// emission accrues on the reserve side
	r.RewardPerTokenStored = number.Decimal("0.5")

	earned, err := s.ClaimRewards(ctx, ob, r, now)
	require.NoError(t, err)
	assert.Equal(t, "50", earned.String())

	// second claim with no further emission pays nothing
	earned, err = s.ClaimRewards(ctx, ob, r, now)
	require.NoError(t, err)
	assert.True(t, earned.IsZero())
}
