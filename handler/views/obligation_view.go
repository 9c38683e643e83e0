package views

import (
	"lever/core"
)

// Obligation obligation view
type Obligation struct {
	core.Obligation
	Liquidatable bool `json:"liquidatable"`
}
