package config

import (
	"lever/core"

	configUtil "github.com/fox-one/pkg/config"
)

// Load load config file
func Load(configFile string, config *core.Config) error {
	configUtil.AutomaticLoadEnv("LEVER")
	if err := configUtil.LoadYaml(configFile, config); err != nil {
		return err
	}

	defaults(config)
	return nil
}

func defaults(cfg *core.Config) {
	if cfg.App.Location == "" {
		cfg.App.Location = "UTC"
	}

	if cfg.Risk.MaxDeposits <= 0 {
		cfg.Risk.MaxDeposits = 10
	}
	if cfg.Risk.MaxBorrows <= 0 {
		cfg.Risk.MaxBorrows = 10
	}
}
