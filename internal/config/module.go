// This module defines Fx providers for configuration-related components.
package config

import "go.uber.org/fx"

// NewRunConfigProvider extracts and provides *RunConfig from *Config so that
// components can depend on the run selection alone.
func NewRunConfigProvider(cfg *Config) *RunConfig {
	return &cfg.Heliomorph.Run
}

// NewSiteConfigProvider extracts and provides *SiteConfig from *Config.
func NewSiteConfigProvider(cfg *Config) *SiteConfig {
	return &cfg.Heliomorph.Site
}

// Module provides configuration-related components to Fx.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewRunConfigProvider),
	fx.Provide(NewSiteConfigProvider),
)
