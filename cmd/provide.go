package cmd

import (
	"lever/core"
	obligationservice "lever/service/obligation"
	oracleservice "lever/service/oracle"
	reserveservice "lever/service/reserve"
	obligationstore "lever/store/obligation"
	reservestore "lever/store/reserve"

	"github.com/fox-one/pkg/store/db"
)

func provideConfig() *core.Config {
	return &cfg
}

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideReserveStore(db *db.DB) core.IReserveStore {
	return reservestore.New(db)
}

func provideObligationStore(db *db.DB) core.IObligationStore {
	return obligationstore.New(db)
}

func providePriceSource() core.PriceSource {
	return oracleservice.NewFeed(&cfg)
}

func provideOracleGateway() core.IOracleGateway {
	return oracleservice.NewGateway()
}

func provideReserveService() core.IReserveService {
	return reserveservice.New()
}

func provideObligationService(gateway core.IOracleGateway, reserveService core.IReserveService) core.IObligationService {
	return obligationservice.New(gateway, reserveService, cfg.Risk.MaxDeposits, cfg.Risk.MaxBorrows)
}
