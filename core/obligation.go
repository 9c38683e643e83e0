package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// BorrowRateMode interest rate mode of a borrow position
type BorrowRateMode int

const (
	// BorrowRateModeStable stable interest rate
	BorrowRateModeStable BorrowRateMode = 1
	// BorrowRateModeVariable variable interest rate
	BorrowRateModeVariable BorrowRateMode = 2
)

// DepositPosition user deposit entry, at most one per reserve
type DepositPosition struct {
	ID      uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID  string `sql:"size:36;unique_index:deposit_idx" json:"-"`
	AssetID string `sql:"size:36;unique_index:deposit_idx" json:"asset_id"`
	// raw token balance at IndexSnapshot scale
	Amount decimal.Decimal `sql:"type:decimal(32,16)" json:"amount"`
	// liquidity index recorded at last touch
	IndexSnapshot decimal.Decimal `sql:"type:decimal(32,16);default:1" json:"index_snapshot"`
	// yield farming state
	RewardPerTokenPaid decimal.Decimal `sql:"type:decimal(32,16)" json:"reward_per_token_paid"`
	RewardsEarned      decimal.Decimal `sql:"type:decimal(32,16)" json:"rewards_earned"`
	Version            int64           `sql:"default:0" json:"version"`
	CreatedAt          time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BorrowPosition user borrow entry, at most one per reserve
type BorrowPosition struct {
	ID      uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID  string `sql:"size:36;unique_index:borrow_idx" json:"-"`
	AssetID string `sql:"size:36;unique_index:borrow_idx" json:"asset_id"`
	// principal owed at IndexSnapshot scale
	Amount decimal.Decimal `sql:"type:decimal(32,16)" json:"amount"`
	// variable borrow index recorded at last touch
	IndexSnapshot decimal.Decimal `sql:"type:decimal(32,16);default:1" json:"index_snapshot"`
	RateMode      BorrowRateMode  `sql:"default:2" json:"rate_mode"`
	Version       int64           `sql:"default:0" json:"version"`
	CreatedAt     time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Obligation a user's aggregate collateral and debt position
type Obligation struct {
	ID     uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID string `sql:"size:36;unique_index:obligation_user_idx" json:"user_id"`

	// position lists, loaded by the store, capped by MaxDeposits/MaxBorrows
	Deposits []*DepositPosition `sql:"-" json:"deposits"`
	Borrows  []*BorrowPosition  `sql:"-" json:"borrows"`

	// derived by revalue, in the common quote unit
	TotalCollateralValue decimal.Decimal `sql:"type:decimal(32,16)" json:"total_collateral_value"`
	TotalDebtValue       decimal.Decimal `sql:"type:decimal(32,16)" json:"total_debt_value"`
	// sentinel maximum when TotalDebtValue is zero
	HealthFactor decimal.Decimal `sql:"type:decimal(32,16)" json:"health_factor"`

	LastUpdatedAt int64     `sql:"default:0" json:"last_updated_at"`
	Version       int64     `sql:"default:0" json:"version"`
	CreatedAt     time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// FindDeposit linear scan by reserve asset
func (o *Obligation) FindDeposit(assetID string) (*DepositPosition, bool) {
	for _, d := range o.Deposits {
		if d.AssetID == assetID {
			return d, true
		}
	}
	return nil, false
}

// FindBorrow linear scan by reserve asset
func (o *Obligation) FindBorrow(assetID string) (*BorrowPosition, bool) {
	for _, b := range o.Borrows {
		if b.AssetID == assetID {
			return b, true
		}
	}
	return nil, false
}

// HealthSnapshot result of a single revaluation, all values priced within one call
type HealthSnapshot struct {
	UserID               string          `json:"user_id"`
	TotalCollateralValue decimal.Decimal `json:"total_collateral_value"`
	TotalDebtValue       decimal.Decimal `json:"total_debt_value"`
	HealthFactor         decimal.Decimal `json:"health_factor"`
	Liquidatable         bool            `json:"liquidatable"`
	Timestamp            int64           `json:"timestamp"`
}

// IObligationStore obligation store interface
type IObligationStore interface {
	Save(ctx context.Context, tx *db.DB, obligation *Obligation) error
	Find(ctx context.Context, userID string) (*Obligation, error)
	All(ctx context.Context) ([]*Obligation, error)
	Users(ctx context.Context) ([]string, error)
	Update(ctx context.Context, tx *db.DB, obligation *Obligation) error
	Delete(ctx context.Context, tx *db.DB, obligation *Obligation) error
}

// IObligationService health factor engine interface
//
// Every method is all or nothing: on error the obligation passed in is left
// untouched. Revalue prices every position with observations fetched within
// the same call.
type IObligationService interface {
	Revalue(ctx context.Context, obligation *Obligation, reserves map[string]*Reserve, source PriceSource, now time.Time) (*HealthSnapshot, error)

	AddDeposit(ctx context.Context, obligation *Obligation, reserve *Reserve, amount decimal.Decimal, now time.Time) error
	ReduceDeposit(ctx context.Context, obligation *Obligation, reserve *Reserve, amount decimal.Decimal, now time.Time) error
	AddBorrow(ctx context.Context, obligation *Obligation, reserve *Reserve, amount decimal.Decimal, mode BorrowRateMode, now time.Time) error
	ReduceBorrow(ctx context.Context, obligation *Obligation, reserve *Reserve, amount decimal.Decimal, now time.Time) error

	CheckBorrowAllowed(ctx context.Context, obligation *Obligation, reserves map[string]*Reserve, reserve *Reserve, amount decimal.Decimal, source PriceSource, now time.Time) error
	CheckWithdrawAllowed(ctx context.Context, obligation *Obligation, reserves map[string]*Reserve, reserve *Reserve, amount decimal.Decimal, source PriceSource, now time.Time) error

	Liquidatable(ctx context.Context, obligation *Obligation) bool
	MaxSeize(ctx context.Context, obligation *Obligation, depositReserve, borrowReserve *Reserve, source PriceSource, now time.Time) (decimal.Decimal, error)

	ClaimRewards(ctx context.Context, obligation *Obligation, reserve *Reserve, now time.Time) (decimal.Decimal, error)
}
