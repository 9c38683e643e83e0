package obligation

import (
	"context"
	"time"

	"lever/core"
	"lever/pkg/number"

	"github.com/shopspring/decimal"
)

const (
	defaultMaxDeposits = 10
	defaultMaxBorrows  = 10
)

type service struct {
	gateway     core.IOracleGateway
	reserveSrv  core.IReserveService
	maxDeposits int
	maxBorrows  int
}

// New new obligation service
func New(gateway core.IOracleGateway, reserveSrv core.IReserveService, maxDeposits, maxBorrows int) core.IObligationService {
	if maxDeposits <= 0 {
		maxDeposits = defaultMaxDeposits
	}
	if maxBorrows <= 0 {
		maxBorrows = defaultMaxBorrows
	}

	return &service{
		gateway:     gateway,
		reserveSrv:  reserveSrv,
		maxDeposits: maxDeposits,
		maxBorrows:  maxBorrows,
	}
}

// valuation one consistent pricing of an obligation, every observation taken
// within the same call
type valuation struct {
	collateral decimal.Decimal
	// collateral weighted by per reserve liquidation thresholds
	adjustedCollateral decimal.Decimal
	debt               decimal.Decimal
	healthFactor       decimal.Decimal
}

// Revalue reprice every position against freshly accrued indexes and freshly
// validated oracle observations, then write the totals back. Any oracle or
// arithmetic failure aborts the whole call with the obligation untouched.
func (s *service) Revalue(ctx context.Context, obligation *core.Obligation, reserves map[string]*core.Reserve, source core.PriceSource, now time.Time) (*core.HealthSnapshot, error) {
	val, err := s.revalue(ctx, obligation, reserves, source, now)
	if err != nil {
		return nil, err
	}

	ts := now.Unix()
	obligation.TotalCollateralValue = val.collateral
	obligation.TotalDebtValue = val.debt
	obligation.HealthFactor = val.healthFactor
	obligation.LastUpdatedAt = ts

	return &core.HealthSnapshot{
		UserID:               obligation.UserID,
		TotalCollateralValue: val.collateral,
		TotalDebtValue:       val.debt,
		HealthFactor:         val.healthFactor,
		Liquidatable:         val.debt.GreaterThan(decimal.Zero) && val.healthFactor.LessThan(number.One),
		Timestamp:            ts,
	}, nil
}

// revalue computes a valuation without mutating anything. Reserves are
// accrued on private copies; persisting accrual is the caller's business and
// must go through the reserve service so rates get refreshed too.
func (s *service) revalue(ctx context.Context, obligation *core.Obligation, reserves map[string]*core.Reserve, source core.PriceSource, now time.Time) (*valuation, error) {
	accrued := make(map[string]*core.Reserve, len(reserves))
	snapshot := func(assetID string) (*core.Reserve, error) {
		if r, ok := accrued[assetID]; ok {
			return r, nil
		}

		r, ok := reserves[assetID]
		if !ok {
			return nil, core.ErrReserveNotFound
		}

		clone := *r
		if err := s.reserveSrv.Accrue(ctx, &clone, now); err != nil {
			return nil, err
		}
		accrued[assetID] = &clone

		return &clone, nil
	}

	// one observation per reserve per call: a position priced twice within
	// the same revaluation must see the same world state
	prices := make(map[string]decimal.Decimal, len(reserves))
	priceOf := func(r *core.Reserve) (decimal.Decimal, error) {
		if p, ok := prices[r.AssetID]; ok {
			return p, nil
		}

		p, err := s.gateway.ValidatedPrice(ctx, source, r, now.Unix())
		if err != nil {
			return decimal.Zero, err
		}
		prices[r.AssetID] = p

		return p, nil
	}

	debt := decimal.Zero
	for _, b := range obligation.Borrows {
		r, err := snapshot(b.AssetID)
		if err != nil {
			return nil, err
		}

		owed, err := number.GrowByIndex(b.Amount, r.VariableBorrowIndex, b.IndexSnapshot)
		if err != nil {
			return nil, err
		}

		price, err := priceOf(r)
		if err != nil {
			return nil, err
		}

		value, err := number.Mul(owed, price)
		if err != nil {
			return nil, err
		}
		if debt, err = number.Add(debt, value); err != nil {
			return nil, err
		}
	}

	collateral := decimal.Zero
	adjusted := decimal.Zero
	for _, d := range obligation.Deposits {
		r, err := snapshot(d.AssetID)
		if err != nil {
			return nil, err
		}

		balance, err := number.GrowByIndex(d.Amount, r.LiquidityIndex, d.IndexSnapshot)
		if err != nil {
			return nil, err
		}

		price, err := priceOf(r)
		if err != nil {
			return nil, err
		}

		value, err := number.Mul(balance, price)
		if err != nil {
			return nil, err
		}
		weighted, err := number.Mul(value, r.CollateralFactor)
		if err != nil {
			return nil, err
		}

		if collateral, err = number.Add(collateral, weighted); err != nil {
			return nil, err
		}

		threshold, err := number.Mul(weighted, r.LiquidationThreshold)
		if err != nil {
			return nil, err
		}
		if adjusted, err = number.Add(adjusted, threshold); err != nil {
			return nil, err
		}
	}

	healthFactor := number.MaxHealthFactor
	if debt.GreaterThan(decimal.Zero) {
		var err error
		healthFactor, err = number.MulDiv(adjusted, number.One, debt)
		if err != nil {
			return nil, err
		}
	}

	return &valuation{
		collateral:         collateral,
		adjustedCollateral: adjusted,
		debt:               debt,
		healthFactor:       healthFactor,
	}, nil
}

// AddDeposit credit a deposit position, rebasing the stored amount to the
// reserve's current liquidity index and settling pending rewards first
func (s *service) AddDeposit(ctx context.Context, obligation *core.Obligation, reserve *core.Reserve, amount decimal.Decimal, now time.Time) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return core.ErrInvalidAmount
	}
	if !reserve.IsActive() {
		return core.ErrReserveNotActive
	}

	deposit, found := obligation.FindDeposit(reserve.AssetID)
	if !found {
		if len(obligation.Deposits) >= s.maxDeposits {
			return core.ErrCapacityExceeded
		}

		obligation.Deposits = append(obligation.Deposits, &core.DepositPosition{
			UserID:             obligation.UserID,
			AssetID:            reserve.AssetID,
			Amount:             amount,
			IndexSnapshot:      reserve.LiquidityIndex,
			RewardPerTokenPaid: reserve.RewardPerTokenStored,
			RewardsEarned:      decimal.Zero,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
		return nil
	}

	balance, earned, err := s.settleDeposit(deposit, reserve)
	if err != nil {
		return err
	}

	newAmount, err := number.Add(balance, amount)
	if err != nil {
		return err
	}

	deposit.Amount = newAmount
	deposit.IndexSnapshot = reserve.LiquidityIndex
	deposit.RewardPerTokenPaid = reserve.RewardPerTokenStored
	deposit.RewardsEarned = earned
	deposit.UpdatedAt = now

	return nil
}

// ReduceDeposit debit a deposit position, dropping it once empty
func (s *service) ReduceDeposit(ctx context.Context, obligation *core.Obligation, reserve *core.Reserve, amount decimal.Decimal, now time.Time) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return core.ErrInvalidAmount
	}
	if reserve.Status == core.ReserveStatusPaused {
		return core.ErrReserveNotActive
	}

	deposit, found := obligation.FindDeposit(reserve.AssetID)
	if !found {
		return core.ErrDepositNotFound
	}

	balance, earned, err := s.settleDeposit(deposit, reserve)
	if err != nil {
		return err
	}

	if balance.LessThan(amount) {
		return core.ErrInsufficientLiquidity
	}

	deposit.Amount = balance.Sub(amount)
	deposit.IndexSnapshot = reserve.LiquidityIndex
	deposit.RewardPerTokenPaid = reserve.RewardPerTokenStored
	deposit.RewardsEarned = earned
	deposit.UpdatedAt = now

	if deposit.Amount.IsZero() && deposit.RewardsEarned.IsZero() {
		obligation.Deposits = removeDeposit(obligation.Deposits, reserve.AssetID)
	}

	return nil
}

// AddBorrow record new debt against a reserve
func (s *service) AddBorrow(ctx context.Context, obligation *core.Obligation, reserve *core.Reserve, amount decimal.Decimal, mode core.BorrowRateMode, now time.Time) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return core.ErrInvalidAmount
	}
	if !reserve.IsActive() {
		return core.ErrReserveNotActive
	}
	if reserve.TotalLiquidity.Sub(reserve.TotalDebt()).LessThan(amount) {
		return core.ErrInsufficientLiquidity
	}

	borrow, found := obligation.FindBorrow(reserve.AssetID)
	if !found {
		if len(obligation.Borrows) >= s.maxBorrows {
			return core.ErrCapacityExceeded
		}

		obligation.Borrows = append(obligation.Borrows, &core.BorrowPosition{
			UserID:        obligation.UserID,
			AssetID:       reserve.AssetID,
			Amount:        amount,
			IndexSnapshot: reserve.VariableBorrowIndex,
			RateMode:      mode,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return nil
	}

	owed, err := number.GrowByIndex(borrow.Amount, reserve.VariableBorrowIndex, borrow.IndexSnapshot)
	if err != nil {
		return err
	}

	newAmount, err := number.Add(owed, amount)
	if err != nil {
		return err
	}

	borrow.Amount = newAmount
	borrow.IndexSnapshot = reserve.VariableBorrowIndex
	borrow.UpdatedAt = now

	return nil
}

// ReduceBorrow repay debt, dropping the position once cleared
func (s *service) ReduceBorrow(ctx context.Context, obligation *core.Obligation, reserve *core.Reserve, amount decimal.Decimal, now time.Time) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return core.ErrInvalidAmount
	}
	if reserve.Status == core.ReserveStatusPaused {
		return core.ErrReserveNotActive
	}

	borrow, found := obligation.FindBorrow(reserve.AssetID)
	if !found {
		return core.ErrBorrowNotFound
	}

	owed, err := number.GrowByIndex(borrow.Amount, reserve.VariableBorrowIndex, borrow.IndexSnapshot)
	if err != nil {
		return err
	}

	if owed.LessThan(amount) {
		return core.ErrInvalidAmount
	}

	borrow.Amount = owed.Sub(amount)
	borrow.IndexSnapshot = reserve.VariableBorrowIndex
	borrow.UpdatedAt = now

	if borrow.Amount.IsZero() {
		obligation.Borrows = removeBorrow(obligation.Borrows, reserve.AssetID)
	}

	return nil
}

// CheckBorrowAllowed rejects a borrow whose projected health factor would
// fall below 1
func (s *service) CheckBorrowAllowed(ctx context.Context, obligation *core.Obligation, reserves map[string]*core.Reserve, reserve *core.Reserve, amount decimal.Decimal, source core.PriceSource, now time.Time) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return core.ErrInvalidAmount
	}
	if !reserve.IsActive() {
		return core.ErrReserveNotActive
	}
	if reserve.TotalLiquidity.Sub(reserve.TotalDebt()).LessThan(amount) {
		return core.ErrInsufficientLiquidity
	}

	val, err := s.revalue(ctx, obligation, reserves, source, now)
	if err != nil {
		return err
	}

	price, err := s.gateway.ValidatedPrice(ctx, source, reserve, now.Unix())
	if err != nil {
		return err
	}

	added, err := number.Mul(amount, price)
	if err != nil {
		return err
	}
	projectedDebt, err := number.Add(val.debt, added)
	if err != nil {
		return err
	}

	if projectedDebt.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	healthFactor, err := number.MulDiv(val.adjustedCollateral, number.One, projectedDebt)
	if err != nil {
		return err
	}

	if healthFactor.LessThan(number.One) {
		return core.ErrHealthFactorTooLow
	}

	return nil
}

// CheckWithdrawAllowed rejects a withdrawal whose projected health factor
// would fall below 1
func (s *service) CheckWithdrawAllowed(ctx context.Context, obligation *core.Obligation, reserves map[string]*core.Reserve, reserve *core.Reserve, amount decimal.Decimal, source core.PriceSource, now time.Time) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return core.ErrInvalidAmount
	}
	if reserve.Status == core.ReserveStatusPaused {
		return core.ErrReserveNotActive
	}

	deposit, found := obligation.FindDeposit(reserve.AssetID)
	if !found {
		return core.ErrDepositNotFound
	}

	// the balance cap and the projection below must see the same accrued
	// index, whether or not the caller accrued the reserve first
	accrued := *reserve
	if err := s.reserveSrv.Accrue(ctx, &accrued, now); err != nil {
		return err
	}

	balance, err := number.GrowByIndex(deposit.Amount, accrued.LiquidityIndex, deposit.IndexSnapshot)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return core.ErrInsufficientLiquidity
	}

	val, err := s.revalue(ctx, obligation, reserves, source, now)
	if err != nil {
		return err
	}

	if val.debt.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	price, err := s.gateway.ValidatedPrice(ctx, source, reserve, now.Unix())
	if err != nil {
		return err
	}

	value, err := number.Mul(amount, price)
	if err != nil {
		return err
	}
	weighted, err := number.Mul(value, reserve.CollateralFactor)
	if err != nil {
		return err
	}
	removed, err := number.Mul(weighted, reserve.LiquidationThreshold)
	if err != nil {
		return err
	}

	remaining := val.adjustedCollateral.Sub(removed)
	if remaining.LessThan(decimal.Zero) {
		remaining = decimal.Zero
	}

	healthFactor, err := number.MulDiv(remaining, number.One, val.debt)
	if err != nil {
		return err
	}

	if healthFactor.LessThan(number.One) {
		return core.ErrHealthFactorTooLow
	}

	return nil
}

// Liquidatable current, not projected, health factor below 1. A zero health
// factor means worthless collateral against live debt, the most liquidatable
// state there is.
func (s *service) Liquidatable(ctx context.Context, obligation *core.Obligation) bool {
	return obligation.TotalDebtValue.GreaterThan(decimal.Zero) &&
		obligation.HealthFactor.LessThan(number.One)
}

// MaxSeize largest amount of the deposit reserve's collateral a liquidator
// may seize while repaying debt from the borrow reserve. The close factor
// caps the slice of collateral in play; the liquidation incentive discounts
// the seize price in the liquidator's favor.
func (s *service) MaxSeize(ctx context.Context, obligation *core.Obligation, depositReserve, borrowReserve *core.Reserve, source core.PriceSource, now time.Time) (decimal.Decimal, error) {
	if !s.Liquidatable(ctx, obligation) {
		return decimal.Zero, core.ErrHealthyPosition
	}

	deposit, found := obligation.FindDeposit(depositReserve.AssetID)
	if !found {
		return decimal.Zero, core.ErrDepositNotFound
	}
	borrow, found := obligation.FindBorrow(borrowReserve.AssetID)
	if !found {
		return decimal.Zero, core.ErrBorrowNotFound
	}

	balance, err := number.GrowByIndex(deposit.Amount, depositReserve.LiquidityIndex, deposit.IndexSnapshot)
	if err != nil {
		return decimal.Zero, err
	}
	owed, err := number.GrowByIndex(borrow.Amount, borrowReserve.VariableBorrowIndex, borrow.IndexSnapshot)
	if err != nil {
		return decimal.Zero, err
	}

	maxSeize, err := number.Mul(balance, depositReserve.CloseFactor)
	if err != nil {
		return decimal.Zero, err
	}

	supplyPrice, err := s.gateway.ValidatedPrice(ctx, source, depositReserve, now.Unix())
	if err != nil {
		return decimal.Zero, err
	}
	borrowPrice, err := s.gateway.ValidatedPrice(ctx, source, borrowReserve, now.Unix())
	if err != nil {
		return decimal.Zero, err
	}

	seizePrice := supplyPrice.Sub(supplyPrice.Mul(depositReserve.LiquidationIncentive)).Truncate(number.MaxPrecision)
	if seizePrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, core.ErrSeizeNotAllowed
	}

	seizeValue, err := number.Mul(maxSeize, seizePrice)
	if err != nil {
		return decimal.Zero, err
	}
	borrowValue, err := number.Mul(owed, borrowPrice)
	if err != nil {
		return decimal.Zero, err
	}

	if seizeValue.GreaterThan(borrowValue) {
		maxSeize, err = number.MulDiv(borrowValue, number.One, seizePrice)
		if err != nil {
			return decimal.Zero, err
		}
	}

	return maxSeize, nil
}

// ClaimRewards settle and zero the earned emission on a deposit position,
// returning the payout amount
func (s *service) ClaimRewards(ctx context.Context, obligation *core.Obligation, reserve *core.Reserve, now time.Time) (decimal.Decimal, error) {
	deposit, found := obligation.FindDeposit(reserve.AssetID)
	if !found {
		return decimal.Zero, core.ErrDepositNotFound
	}

	balance, earned, err := s.settleDeposit(deposit, reserve)
	if err != nil {
		return decimal.Zero, err
	}

	deposit.Amount = balance
	deposit.IndexSnapshot = reserve.LiquidityIndex
	deposit.RewardPerTokenPaid = reserve.RewardPerTokenStored
	deposit.RewardsEarned = decimal.Zero
	deposit.UpdatedAt = now

	return earned, nil
}

// settleDeposit returns the current accrued balance and total earned rewards
// of a deposit position without mutating it
func (s *service) settleDeposit(deposit *core.DepositPosition, reserve *core.Reserve) (decimal.Decimal, decimal.Decimal, error) {
	balance, err := number.GrowByIndex(deposit.Amount, reserve.LiquidityIndex, deposit.IndexSnapshot)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	pending, err := number.Mul(deposit.Amount, reserve.RewardPerTokenStored.Sub(deposit.RewardPerTokenPaid))
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	earned, err := number.Add(deposit.RewardsEarned, pending)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return balance, earned, nil
}

func removeDeposit(deposits []*core.DepositPosition, assetID string) []*core.DepositPosition {
	out := deposits[:0]
	for _, d := range deposits {
		if d.AssetID != assetID {
			out = append(out, d)
		}
	}
	return out
}

func removeBorrow(borrows []*core.BorrowPosition, assetID string) []*core.BorrowPosition {
	out := borrows[:0]
	for _, b := range borrows {
		if b.AssetID != assetID {
			out = append(out, b)
		}
	}
	return out
}
