package cmd

import (
	"fmt"
	"strings"
	"time"

	"lever/core"
	"lever/internal/lending"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var addReserveCmd = &cobra.Command{
	Use:     "add-reserve",
	Aliases: []string{"ar"},
	Short:   "add reserve",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		defer database.Close()

		reserveStore := provideReserveStore(database)

		symbol, e := cmd.Flags().GetString("symbol")
		if e != nil || symbol == "" {
			panic("invalid symbol")
		}
		symbol = strings.ToUpper(symbol)

		assetID, e := cmd.Flags().GetString("asset")
		if e != nil || assetID == "" {
			panic("invalid assetID")
		}

		feedID, e := cmd.Flags().GetString("feed")
		if e != nil || feedID == "" {
			panic("invalid feedID")
		}

		if r, _ := reserveStore.FindBySymbol(ctx, symbol); r != nil {
			cmd.PrintErrln("reserve exists:", symbol)
			return
		}

		reserve := &core.Reserve{
			AssetID:                assetID,
			Symbol:                 symbol,
			PriceFeedID:            feedID,
			LiquidityIndex:         decimal.New(1, 0),
			VariableBorrowIndex:    decimal.New(1, 0),
			OptimalUtilization:     mustDecimalFlag(cmd, "optimal-utilization"),
			BaseRate:               mustDecimalFlag(cmd, "base-rate"),
			Slope1:                 mustDecimalFlag(cmd, "slope1"),
			Slope2:                 mustDecimalFlag(cmd, "slope2"),
			StableRatePremium:      mustDecimalFlag(cmd, "stable-premium"),
			ReserveFactor:          mustDecimalFlag(cmd, "reserve-factor"),
			CollateralFactor:       mustDecimalFlag(cmd, "collateral-factor"),
			LiquidationThreshold:   mustDecimalFlag(cmd, "liquidation-threshold"),
			CloseFactor:            mustDecimalFlag(cmd, "close-factor"),
			LiquidationIncentive:   mustDecimalFlag(cmd, "liquidation-incentive"),
			MinPrice:               mustDecimalFlag(cmd, "min-price"),
			MaxPrice:               mustDecimalFlag(cmd, "max-price"),
			MaxOracleAgeSeconds:    300,
			MaxOracleConfidenceBps: 100,
			Status:                 core.ReserveStatusActive,
			LastUpdatedAt:          time.Now().UTC().Unix(),
		}

		if err := validateReserve(reserve); err != nil {
			cmd.PrintErrln("invalid reserve:", err)
			return
		}

		if err := database.Tx(func(tx *db.DB) error {
			return reserveStore.Save(ctx, tx, reserve)
		}); err != nil {
			cmd.PrintErrln("save reserve error:", err)
			return
		}

		cmd.Println("reserve added:", symbol)
	},
}

func validateReserve(r *core.Reserve) error {
	if r.CollateralFactor.LessThan(decimal.Zero) || r.CollateralFactor.GreaterThan(lending.CollateralFactorMax) {
		return fmt.Errorf("collateral factor out of range: %s", r.CollateralFactor)
	}

	if r.CloseFactor.LessThanOrEqual(lending.CloseFactorMin) || r.CloseFactor.GreaterThan(lending.CloseFactorMax) {
		return fmt.Errorf("close factor out of range: %s", r.CloseFactor)
	}

	if r.LiquidationIncentive.LessThan(lending.LiquidationIncentiveMin) || r.LiquidationIncentive.GreaterThan(lending.LiquidationIncentiveMax) {
		return fmt.Errorf("liquidation incentive out of range: %s", r.LiquidationIncentive)
	}

	if r.LiquidationThreshold.LessThan(lending.LiquidationThresholdMin) || r.LiquidationThreshold.GreaterThan(decimal.New(1, 0)) {
		return fmt.Errorf("liquidation threshold out of range: %s", r.LiquidationThreshold)
	}

	return nil
}

func mustDecimalFlag(cmd *cobra.Command, name string) decimal.Decimal {
	v, e := cmd.Flags().GetString(name)
	if e != nil {
		panic(e)
	}

	d, e := decimal.NewFromString(v)
	if e != nil {
		panic("invalid " + name)
	}

	return d
}

func init() {
	rootCmd.AddCommand(addReserveCmd)

	addReserveCmd.Flags().String("symbol", "", "reserve symbol")
	addReserveCmd.Flags().String("asset", "", "reserve asset id")
	addReserveCmd.Flags().String("feed", "", "price feed id")
	addReserveCmd.Flags().String("optimal-utilization", "0.8", "kink point of the rate curve")
	addReserveCmd.Flags().String("base-rate", "0.025", "borrow rate at zero utilization")
	addReserveCmd.Flags().String("slope1", "0.04", "rate slope below the kink")
	addReserveCmd.Flags().String("slope2", "0.6", "rate slope above the kink")
	addReserveCmd.Flags().String("stable-premium", "0.02", "stable rate premium over variable")
	addReserveCmd.Flags().String("reserve-factor", "0.1", "protocol share of borrow interest")
	addReserveCmd.Flags().String("collateral-factor", "0.75", "collateral haircut factor")
	addReserveCmd.Flags().String("liquidation-threshold", "1", "aggregate liquidation threshold")
	addReserveCmd.Flags().String("close-factor", "0.5", "max closable debt fraction")
	addReserveCmd.Flags().String("liquidation-incentive", "0.05", "liquidator discount on seized collateral")
	addReserveCmd.Flags().String("min-price", "0", "lowest acceptable oracle price")
	addReserveCmd.Flags().String("max-price", "1000000000", "highest acceptable oracle price")
}
