package safety

import (
	"testing"

	"sniper-engine/config"
	"sniper-engine/internal/model"
)

func TestCheckerFlagsCreatorSell(t *testing.T) {
	c := New(config.SafetyConfig{MaxWalletVolumePct: 40, PriceImpactThreshold: 1000})
	res := c.Check(model.TokenSnapshot{CreatorSellPct: 75})
	if res.Safe {
		t.Fatal("expected unsafe on high creator sell percentage")
	}
	if len(res.Reasons) != 1 {
		t.Fatalf("expected exactly one reason, got %v", res.Reasons)
	}
}

func TestCheckerSafeByDefault(t *testing.T) {
	c := New(config.SafetyConfig{MaxWalletVolumePct: 40, PriceImpactThreshold: 1000})
	res := c.Check(model.TokenSnapshot{CreatorSellPct: 5, TopHolderPct: 20, PriceAcceleration: 2})
	if !res.Safe {
		t.Fatalf("expected safe, got reasons %v", res.Reasons)
	}
}
