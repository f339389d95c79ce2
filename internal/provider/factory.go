package provider

import (
	"github.com/RasParker/XclusiveAfrica-sub000/internal/config"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
)

// NewRegistryFromConfig wires the configured providers into a registry.
func NewRegistryFromConfig(cfg *config.Configuration, log *logger.Logger) *Registry {
	timeout := cfg.Providers.Timeout
	return NewRegistry(
		NewMTNMoMo(cfg.Providers.MTNMoMo.BaseURL, cfg.Providers.MTNMoMo.APIKey, timeout, log),
		NewTelecelCash(cfg.Providers.TelecelCash.BaseURL, cfg.Providers.TelecelCash.APIKey, timeout, log),
		NewBankTransfer(cfg.Providers.BankTransfer.BaseURL, cfg.Providers.BankTransfer.APIKey, timeout, log),
	)
}
