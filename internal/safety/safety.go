// Package safety implements the opaque safety predicate of spec §6:
// isTokenSafe(token_snapshot) -> {safe, reasons}. The core only depends on
// the tokenengine.SafetyFunc shape; this package supplies one concrete
// policy so the system is runnable standalone, without claiming to be the
// only valid policy.
package safety

import (
	"fmt"

	"sniper-engine/config"
	"sniper-engine/internal/model"
)

// Checker evaluates token snapshots against configured safety thresholds.
type Checker struct {
	cfg config.SafetyConfig
}

// New constructs a Checker from the SAFETY config tree.
func New(cfg config.SafetyConfig) *Checker {
	return &Checker{cfg: cfg}
}

// Check implements tokenengine.SafetyFunc.
func (c *Checker) Check(snap model.TokenSnapshot) model.SafetyResult {
	var reasons []string

	if c.cfg.PriceImpactThreshold > 0 && snap.PriceAcceleration > c.cfg.PriceImpactThreshold {
		reasons = append(reasons, fmt.Sprintf("price acceleration %.2f exceeds impact threshold %.2f",
			snap.PriceAcceleration, c.cfg.PriceImpactThreshold))
	}

	if c.cfg.MaxWalletVolumePct > 0 && snap.TopHolderPct > c.cfg.MaxWalletVolumePct {
		reasons = append(reasons, fmt.Sprintf("top-holder concentration %.2f%% exceeds wallet-volume limit %.2f%%",
			snap.TopHolderPct, c.cfg.MaxWalletVolumePct))
	}

	if snap.CreatorSellPct > 50 {
		reasons = append(reasons, fmt.Sprintf("creator sold %.2f%% of holdings", snap.CreatorSellPct))
	}

	return model.SafetyResult{Safe: len(reasons) == 0, Reasons: reasons}
}
