package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// ReserveStatus reserve status
type ReserveStatus int

const (
	// ReserveStatusActive reserve open for all operations
	ReserveStatusActive ReserveStatus = iota
	// ReserveStatusFrozen deposits and borrows disabled, repay and withdraw allowed
	ReserveStatusFrozen
	// ReserveStatusPaused all operations disabled
	ReserveStatusPaused
)

// Reserve per asset pool accounting record
//
// The two indexes start at 1 and only ever grow; positions store the index
// value at their last touch so that the accrued balance is
// amount * currentIndex / indexSnapshot without rewriting every position
// on every accrual.
type Reserve struct {
	ID      uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID string `sql:"size:36;unique_index:asset_idx" json:"asset_id"`
	Symbol  string `sql:"size:20;unique_index:symbol_idx" json:"symbol"`

	TotalLiquidity    decimal.Decimal `sql:"type:decimal(32,16)" json:"total_liquidity"`
	TotalVariableDebt decimal.Decimal `sql:"type:decimal(32,16)" json:"total_variable_debt"`
	TotalStableDebt   decimal.Decimal `sql:"type:decimal(32,16)" json:"total_stable_debt"`
	// 累计协议收入, the reserveFactor share of accrued borrow interest
	ProtocolRevenue decimal.Decimal `sql:"type:decimal(32,16)" json:"protocol_revenue"`

	LiquidityIndex      decimal.Decimal `sql:"type:decimal(32,16);default:1" json:"liquidity_index"`
	VariableBorrowIndex decimal.Decimal `sql:"type:decimal(32,16);default:1" json:"variable_borrow_index"`

	// annualized rates, recomputed by updateRates after every accrual
	LiquidityRate      decimal.Decimal `sql:"type:decimal(20,16)" json:"liquidity_rate"`
	VariableBorrowRate decimal.Decimal `sql:"type:decimal(20,16)" json:"variable_borrow_rate"`
	StableBorrowRate   decimal.Decimal `sql:"type:decimal(20,16)" json:"stable_borrow_rate"`
	UtilizationRate    decimal.Decimal `sql:"type:decimal(20,16)" json:"utilization_rate"`

	// rate curve parameters, immutable per reserve
	OptimalUtilization decimal.Decimal `sql:"type:decimal(20,8)" json:"optimal_utilization"`
	BaseRate           decimal.Decimal `sql:"type:decimal(20,8)" json:"base_rate"`
	Slope1             decimal.Decimal `sql:"type:decimal(20,8)" json:"slope1"`
	Slope2             decimal.Decimal `sql:"type:decimal(20,8)" json:"slope2"`
	StableRatePremium  decimal.Decimal `sql:"type:decimal(20,8)" json:"stable_rate_premium"`

	// 平台保留金率 (0, 1)
	ReserveFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"reserve_factor"`
	// 抵押因子, haircut applied to this asset's value when counted as collateral
	CollateralFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"collateral_factor"`
	// aggregate liquidation threshold factor applied to weighted collateral
	LiquidationThreshold decimal.Decimal `sql:"type:decimal(20,8);default:1" json:"liquidation_threshold"`
	// 触发清算因子, max fraction of a debt position closable in one liquidation
	CloseFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"close_factor"`
	// 清算激励因子, discount granted to the liquidator on seized collateral
	LiquidationIncentive decimal.Decimal `sql:"type:decimal(20,8)" json:"liquidation_incentive"`

	// identity of the trusted price feed, never the price itself
	PriceFeedID string `sql:"size:64" json:"price_feed_id"`
	// sane absolute price range, protects against corrupted feeds
	MinPrice decimal.Decimal `sql:"type:decimal(20,8)" json:"min_price"`
	MaxPrice decimal.Decimal `sql:"type:decimal(20,8)" json:"max_price"`
	// oracle acceptance limits
	MaxOracleAgeSeconds    int64 `sql:"default:300" json:"max_oracle_age_seconds"`
	MaxOracleConfidenceBps int64 `sql:"default:100" json:"max_oracle_confidence_bps"`

	// yield farming emission for depositors
	RewardPerSecond      decimal.Decimal `sql:"type:decimal(20,8)" json:"reward_per_second"`
	RewardPerTokenStored decimal.Decimal `sql:"type:decimal(32,16)" json:"reward_per_token_stored"`
	LastRewardAt         int64           `sql:"default:0" json:"last_reward_at"`

	Status        ReserveStatus `sql:"default:0" json:"status"`
	LastUpdatedAt int64         `sql:"default:0" json:"last_updated_at"`
	Version       int64         `sql:"default:0" json:"version"`
	CreatedAt     time.Time     `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// IsActive checks whether the reserve accepts pool mutating operations
func (r *Reserve) IsActive() bool {
	return r.Status == ReserveStatusActive
}

// TotalDebt variable plus stable debt
func (r *Reserve) TotalDebt() decimal.Decimal {
	return r.TotalVariableDebt.Add(r.TotalStableDebt)
}

// IReserveStore reserve store interface
type IReserveStore interface {
	Save(ctx context.Context, tx *db.DB, reserve *Reserve) error
	Find(ctx context.Context, assetID string) (*Reserve, error)
	FindBySymbol(ctx context.Context, symbol string) (*Reserve, error)
	All(ctx context.Context) ([]*Reserve, error)
	AllAsMap(ctx context.Context) (map[string]*Reserve, error)
	Update(ctx context.Context, tx *db.DB, reserve *Reserve) error
}

// IReserveService reserve accrual engine interface
//
// Accrue must run before UpdateRates, and both must run before any mutation
// of TotalLiquidity or TotalVariableDebt. On error the reserve record passed
// in is left untouched.
type IReserveService interface {
	Accrue(ctx context.Context, reserve *Reserve, now time.Time) error
	UpdateRates(ctx context.Context, reserve *Reserve) error
	CurBorrowRate(ctx context.Context, reserve *Reserve) (decimal.Decimal, error)
	CurLiquidityRate(ctx context.Context, reserve *Reserve) (decimal.Decimal, error)
}
