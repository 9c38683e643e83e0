package reserve

import (
	"context"
	"time"

	"lever/core"
	"lever/internal/lending"
	"lever/pkg/number"

	"github.com/shopspring/decimal"
)

type service struct{}

// New new reserve accrual service
func New() core.IReserveService {
	return &service{}
}

// Accrue compound the reserve indexes over the time elapsed since the last
// update, using the rates in effect at the start of the period.
//
// Accruing only occurs before a behavior that changes pool totals, such as
// deposit, borrow, repay, withdraw, liquidation or a rate refresh. Calling
// twice within the same second is a no-op.
func (s *service) Accrue(ctx context.Context, reserve *core.Reserve, now time.Time) error {
	ts := now.Unix()
	dt := ts - reserve.LastUpdatedAt
	if dt <= 0 {
		return nil
	}

	liquidityIndex := reserve.LiquidityIndex
	if liquidityIndex.LessThanOrEqual(decimal.Zero) {
		liquidityIndex = number.One
	}
	borrowIndex := reserve.VariableBorrowIndex
	if borrowIndex.LessThanOrEqual(decimal.Zero) {
		borrowIndex = number.One
	}

	// everything is computed into locals first; the record is only written
	// once the whole accrual has succeeded
	borrowFactor := lending.CompoundFactor(reserve.VariableBorrowRate, dt)
	liquidityFactor := lending.CompoundFactor(reserve.LiquidityRate, dt)

	newBorrowIndex, err := number.Mul(borrowIndex, borrowFactor)
	if err != nil {
		return err
	}
	newLiquidityIndex, err := number.Mul(liquidityIndex, liquidityFactor)
	if err != nil {
		return err
	}

	newVariableDebt, err := number.GrowByIndex(reserve.TotalVariableDebt, newBorrowIndex, borrowIndex)
	if err != nil {
		return err
	}
	newTotalLiquidity, err := number.GrowByIndex(reserve.TotalLiquidity, newLiquidityIndex, liquidityIndex)
	if err != nil {
		return err
	}

	interestAccumulated := newVariableDebt.Sub(reserve.TotalVariableDebt)
	revenue, err := number.Add(reserve.ProtocolRevenue, interestAccumulated.Mul(reserve.ReserveFactor).Truncate(number.MaxPrecision))
	if err != nil {
		return err
	}

	rewardGrowth := lending.RewardPerTokenGrowth(reserve.RewardPerSecond, ts-reserve.LastRewardAt, reserve.TotalLiquidity)
	rewardPerToken, err := number.Add(reserve.RewardPerTokenStored, rewardGrowth)
	if err != nil {
		return err
	}

	reserve.LiquidityIndex = newLiquidityIndex
	reserve.VariableBorrowIndex = newBorrowIndex
	reserve.TotalVariableDebt = newVariableDebt
	reserve.TotalLiquidity = newTotalLiquidity
	reserve.ProtocolRevenue = revenue
	reserve.RewardPerTokenStored = rewardPerToken
	reserve.LastRewardAt = ts
	reserve.LastUpdatedAt = ts

	return nil
}

// UpdateRates recompute utilization and the three rates from the current
// totals. Must run immediately after Accrue, utilization is stale otherwise.
func (s *service) UpdateRates(ctx context.Context, reserve *core.Reserve) error {
	utilization := s.utilization(reserve)

	borrowRate := lending.BorrowRate(
		utilization,
		reserve.BaseRate,
		reserve.Slope1,
		reserve.Slope2,
		reserve.OptimalUtilization,
	)

	reserve.UtilizationRate = utilization
	reserve.VariableBorrowRate = borrowRate
	reserve.StableBorrowRate = lending.StableBorrowRate(borrowRate, reserve.StableRatePremium)
	reserve.LiquidityRate = lending.LiquidityRate(borrowRate, utilization, reserve.ReserveFactor)

	return nil
}

// CurBorrowRate current variable borrow APY computed fresh from totals
func (s *service) CurBorrowRate(ctx context.Context, reserve *core.Reserve) (decimal.Decimal, error) {
	return lending.BorrowRate(
		s.utilization(reserve),
		reserve.BaseRate,
		reserve.Slope1,
		reserve.Slope2,
		reserve.OptimalUtilization,
	), nil
}

// CurLiquidityRate current supply APY computed fresh from totals
func (s *service) CurLiquidityRate(ctx context.Context, reserve *core.Reserve) (decimal.Decimal, error) {
	utilization := s.utilization(reserve)
	borrowRate := lending.BorrowRate(
		utilization,
		reserve.BaseRate,
		reserve.Slope1,
		reserve.Slope2,
		reserve.OptimalUtilization,
	)

	return lending.LiquidityRate(borrowRate, utilization, reserve.ReserveFactor), nil
}

func (s *service) utilization(reserve *core.Reserve) decimal.Decimal {
	debt := reserve.TotalDebt()
	available := reserve.TotalLiquidity.Sub(debt)
	if available.LessThan(decimal.Zero) {
		available = decimal.Zero
	}

	return lending.UtilizationRate(debt, available)
}
