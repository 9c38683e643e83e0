package core

import (
	"github.com/fox-one/pkg/store/db"
)

// Config lever config
type Config struct {
	App         App         `json:"app"`
	DB          db.Config   `json:"db"`
	PriceOracle PriceOracle `json:"price_oracle"`
	Risk        Risk        `json:"risk"`
}

// App app config
type App struct {
	Location string `json:"location"`
}

// PriceOracle price oracle config
type PriceOracle struct {
	EndPoint string `json:"end_point"`
}

// Risk obligation capacity limits
type Risk struct {
	MaxDeposits int `json:"max_deposits"`
	MaxBorrows  int `json:"max_borrows"`
}
