package lending

import (
	"github.com/shopspring/decimal"
)

var (
	// SecondsPerYear seconds per year
	SecondsPerYear = decimal.NewFromInt(365 * 24 * 60 * 60)
	// CloseFactorMin min of close factor, must be strictly greater than this value
	CloseFactorMin = decimal.NewFromFloat(0.05)
	// CloseFactorMax max of close factor, must not exceed this value
	CloseFactorMax = decimal.NewFromFloat(0.9)
	// CollateralFactorMax max of collateral factor [0, 0.9]
	CollateralFactorMax = decimal.NewFromFloat(0.9)
	// LiquidationIncentiveMin must be no less than this value
	LiquidationIncentiveMin = decimal.NewFromFloat(0.01)
	// LiquidationIncentiveMax must be no greater than this value
	LiquidationIncentiveMax = decimal.NewFromFloat(0.9)
	// LiquidationThresholdMin lower bound for the aggregate threshold factor
	LiquidationThresholdMin = decimal.NewFromFloat(0.5)
	// MaxPrecision max precision
	MaxPrecision int32 = 16

	one = decimal.NewFromInt(1)
)

// UtilizationRate fraction of pooled liquidity currently borrowed
// utilization = total_debt / (total_debt + available_liquidity), clamped to [0, 1]
func UtilizationRate(totalDebt, availableLiquidity decimal.Decimal) decimal.Decimal {
	total := totalDebt.Add(availableLiquidity)
	if total.LessThanOrEqual(decimal.Zero) || totalDebt.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	rate := totalDebt.Div(total).Truncate(MaxPrecision)
	if rate.GreaterThan(one) {
		return one
	}

	return rate
}

// BorrowRate variable borrow rate on the kinked two slope curve.
// Below the optimal utilization the rate climbs gently along slope1; above
// it the remaining slope2 escalates sharply to pull liquidity back in.
func BorrowRate(utilization, baseRate, slope1, slope2, optimal decimal.Decimal) decimal.Decimal {
	if optimal.LessThanOrEqual(decimal.Zero) || optimal.GreaterThanOrEqual(one) {
		// degenerate curve, single slope over the whole range
		return baseRate.Add(slope1.Mul(utilization)).Truncate(MaxPrecision)
	}

	if utilization.LessThanOrEqual(optimal) {
		return baseRate.Add(slope1.Mul(utilization).Div(optimal)).Truncate(MaxPrecision)
	}

	excess := utilization.Sub(optimal)
	return baseRate.Add(slope1).
		Add(slope2.Mul(excess).Div(one.Sub(optimal))).
		Truncate(MaxPrecision)
}

// StableBorrowRate variable rate plus a fixed premium
func StableBorrowRate(variableRate, premium decimal.Decimal) decimal.Decimal {
	return variableRate.Add(premium).Truncate(MaxPrecision)
}

// LiquidityRate depositors earn the borrower interest not retained as
// protocol revenue: borrowRate * utilization * (1 - reserveFactor)
func LiquidityRate(borrowRate, utilization, reserveFactor decimal.Decimal) decimal.Decimal {
	rateToPool := borrowRate.Mul(one.Sub(reserveFactor))
	return utilization.Mul(rateToPool).Truncate(MaxPrecision)
}

// CompoundFactor linear per period growth, 1 + rate * dt / SecondsPerYear.
// Applied once per accrual, not a continuous compounding closed form.
func CompoundFactor(rate decimal.Decimal, dt int64) decimal.Decimal {
	if dt <= 0 || rate.LessThanOrEqual(decimal.Zero) {
		return one
	}

	return one.Add(rate.Mul(decimal.NewFromInt(dt)).Div(SecondsPerYear)).Truncate(MaxPrecision)
}

// RewardPerTokenGrowth emission accrued per deposited token over dt seconds
func RewardPerTokenGrowth(rewardPerSecond decimal.Decimal, dt int64, totalLiquidity decimal.Decimal) decimal.Decimal {
	if dt <= 0 || totalLiquidity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	return rewardPerSecond.Mul(decimal.NewFromInt(dt)).Div(totalLiquidity).Truncate(MaxPrecision)
}
