package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StrategyConfig is the nested threshold/position/exit-strategy tree from
// spec §6, loaded from YAML (grounded on ChoSanghyuk-blackholedex's and
// FOTONPHOTOS-PULSEINTEL's yaml.v3-based config layers). Unlike the flat
// env-var config in config.go, this tree has the sub-structures spec §6
// calls for (THRESHOLDS, MCAP, RECOVERY, POSITION, SAFETY,
// TRANSACTION_FEES, and the exit-strategy sub-trees) and is decoded with
// KnownFields so an unrecognized key is a load-time error, matching spec
// §9's "unknown keys are an error at load time; missing keys take
// documented defaults".
type StrategyConfig struct {
	Thresholds      Thresholds      `yaml:"thresholds"`
	MCap            MCapConfig      `yaml:"mcap"`
	Recovery        RecoveryConfig  `yaml:"recovery"`
	Position        PositionConfig  `yaml:"position"`
	Safety          SafetyConfig    `yaml:"safety"`
	TransactionFees TransactionFees `yaml:"transaction_fees"`
	Exits           ExitConfig      `yaml:"exits"`
}

type Thresholds struct {
	PumpPct               float64 `yaml:"pump_pct"`
	DrawdownPct           float64 `yaml:"drawdown_pct"`
	RecoveryMinGainPct    float64 `yaml:"recovery_min_gain_pct"`
	MaxVolumeDropPct      float64 `yaml:"max_volume_drop_pct"`
	PositionEntryWindowPct float64 `yaml:"position_entry_window_pct"`
	MinFirstPumpGainPct   float64 `yaml:"min_first_pump_gain_pct"`
	DeadFiat              float64 `yaml:"dead_fiat"`
	FirstPumpFiat         float64 `yaml:"first_pump_fiat"`
	HeatingUpFiat         float64 `yaml:"heating_up_fiat"`
}

type MCapConfig struct {
	Min      float64 `yaml:"min"`
	MaxEntry float64 `yaml:"max_entry"`
}

type recoveryRange struct {
	Min      float64 `yaml:"min"`
	MaxEntry float64 `yaml:"max_entry"`
}

type RecoveryConfig struct {
	Drawdown struct {
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`
	} `yaml:"drawdown"`
	Gain recoveryRange `yaml:"gain"`
}

type PositionConfig struct {
	RiskPerTrade               float64 `yaml:"risk_per_trade"`
	MaxMcapPosition            float64 `yaml:"max_mcap_position"`
	MinPositionSize            float64 `yaml:"min_position_size"`
	MaxPositionSize            float64 `yaml:"max_position_size"`
	PositionSizeMarketCapRatio float64 `yaml:"position_size_market_cap_ratio"`
	FirstPumpSizeRatio         float64 `yaml:"first_pump_size_ratio"`
}

type SafetyConfig struct {
	MaxWalletVolumePct   float64 `yaml:"max_wallet_volume_pct"`
	PriceImpactThreshold float64 `yaml:"price_impact_threshold"`
}

type TransactionFees struct {
	Buy  float64 `yaml:"buy"`
	Sell float64 `yaml:"sell"`
}

// ExitConfig groups the exit-strategy sub-trees from spec §4.5/§6.
type ExitConfig struct {
	TrailingStopLoss   TrailingStopLossConfig   `yaml:"trailing_stop_loss"`
	TrailingTakeProfit TrailingTakeProfitConfig `yaml:"trailing_take_profit"`
	TieredTakeProfit   TieredTakeProfitConfig   `yaml:"tiered_take_profit"`
	TimeBasedExit      TimeBasedExitConfig      `yaml:"time_based_exit"`
	TimedTakeProfit    TimedTakeProfitConfig    `yaml:"timed_take_profit"`
	VolumeBasedExit    VolumeBasedExitConfig    `yaml:"volume_based_exit"`
	PriceAction        PriceActionConfig        `yaml:"price_action"`
	// Priority is the order in which evaluators are tried; the first to
	// fire wins (spec §4.5).
	Priority []string `yaml:"priority"`
}

type TrailingStopLossConfig struct {
	Enabled       bool    `yaml:"enabled"`
	BasePct       float64 `yaml:"base_pct"`
	MinPct        float64 `yaml:"min_pct"`
	MaxPct        float64 `yaml:"max_pct"`
	VolMultiplier float64 `yaml:"volatility_multiplier"`
}

type TrailingTakeProfitConfig struct {
	Enabled        bool    `yaml:"enabled"`
	InitialTrigger float64 `yaml:"initial_trigger_pct"`
	BaseTrailPct   float64 `yaml:"base_trail_pct"`
	MinTrailPct    float64 `yaml:"min_trail_pct"`
	MaxTrailPct    float64 `yaml:"max_trail_pct"`
	VolMultiplier  float64 `yaml:"volatility_multiplier"`
}

type ProfitTier struct {
	ProfitPct float64 `yaml:"profit_pct"`
	Fraction  float64 `yaml:"fraction"`
}

type TieredTakeProfitConfig struct {
	Enabled bool         `yaml:"enabled"`
	Tiers   []ProfitTier `yaml:"tiers"`
}

type TimeBasedExitConfig struct {
	Enabled                bool    `yaml:"enabled"`
	MaxDurationMs          int64   `yaml:"max_duration_ms"`
	ProfitExtensionEnabled bool    `yaml:"profit_extension_enabled"`
	ProfitExtensionTrigger float64 `yaml:"profit_extension_trigger_pct"`
	ProfitExtensionFactor  float64 `yaml:"profit_extension_factor"`
}

type TimedProfitInterval struct {
	ElapsedMs int64   `yaml:"elapsed_ms"`
	ProfitPct float64 `yaml:"profit_pct"`
}

type TimedTakeProfitConfig struct {
	Enabled   bool                  `yaml:"enabled"`
	Intervals []TimedProfitInterval `yaml:"intervals"`
}

type VolumeBasedExitConfig struct {
	Enabled               bool    `yaml:"enabled"`
	DropWindowMs          int64   `yaml:"drop_window_ms"`
	DropThresholdPct      float64 `yaml:"drop_threshold_pct"`
	SpikeProfitThreshold  float64 `yaml:"spike_profit_threshold_pct"`
	SpikeDeclineCount     int     `yaml:"spike_decline_count"`
	SpikeDeclinePct       float64 `yaml:"spike_decline_pct"`
	SpikeLookback         int     `yaml:"spike_lookback"`
	SpikeThresholdPct     float64 `yaml:"spike_threshold_pct"`
	LowVolumeWindow       int     `yaml:"low_volume_window"`
	LowVolumeThresholdPct float64 `yaml:"low_volume_threshold_pct"`
}

type PriceActionConfig struct {
	Enabled            bool    `yaml:"enabled"`
	MinCandleSizePct   float64 `yaml:"min_candle_size_pct"`
	WickRejectThreshold float64 `yaml:"wick_reject_threshold_pct"`
	MomentumLossLookback int   `yaml:"momentum_loss_lookback"`
	MomentumLossMinSizePct float64 `yaml:"momentum_loss_min_size_pct"`
}

// DefaultStrategyConfig returns the documented defaults for every option in
// spec §6. Used when a key is missing from the YAML file, and as the
// baseline for tests.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Thresholds: Thresholds{
			PumpPct:                20,
			DrawdownPct:            15,
			RecoveryMinGainPct:     10,
			MaxVolumeDropPct:       50,
			PositionEntryWindowPct: 5,
			MinFirstPumpGainPct:    30,
			DeadFiat:               500,
			FirstPumpFiat:          5000,
			HeatingUpFiat:          15000,
		},
		MCap: MCapConfig{Min: 3000, MaxEntry: 200000},
		Recovery: RecoveryConfig{
			Drawdown: struct {
				Min float64 `yaml:"min"`
				Max float64 `yaml:"max"`
			}{Min: 10, Max: 80},
			Gain: recoveryRange{Min: 5, MaxEntry: 15},
		},
		Position: PositionConfig{
			RiskPerTrade:               0.02,
			MaxMcapPosition:            0.05,
			MinPositionSize:            0.01,
			MaxPositionSize:            1.0,
			PositionSizeMarketCapRatio: 0.01,
			FirstPumpSizeRatio:         0.5,
		},
		Safety: SafetyConfig{
			MaxWalletVolumePct:   25,
			PriceImpactThreshold: 10,
		},
		TransactionFees: TransactionFees{Buy: 0.01, Sell: 0.01},
		Exits: ExitConfig{
			TrailingStopLoss: TrailingStopLossConfig{
				Enabled: true, BasePct: 30, MinPct: 20, MaxPct: 40, VolMultiplier: 1.5,
			},
			TrailingTakeProfit: TrailingTakeProfitConfig{
				Enabled: true, InitialTrigger: 20, BaseTrailPct: 10, MinTrailPct: 5, MaxTrailPct: 20, VolMultiplier: 1.2,
			},
			TieredTakeProfit: TieredTakeProfitConfig{
				Enabled: true,
				Tiers: []ProfitTier{
					{ProfitPct: 60, Fraction: 0.2},
					{ProfitPct: 40, Fraction: 0.4},
					{ProfitPct: 20, Fraction: 0.4},
				},
			},
			TimeBasedExit: TimeBasedExitConfig{
				Enabled: true, MaxDurationMs: 30 * 60 * 1000,
				ProfitExtensionEnabled: true, ProfitExtensionTrigger: 50, ProfitExtensionFactor: 2,
			},
			TimedTakeProfit: TimedTakeProfitConfig{
				Enabled: false,
				Intervals: []TimedProfitInterval{
					{ElapsedMs: 60000, ProfitPct: 30},
					{ElapsedMs: 300000, ProfitPct: 15},
				},
			},
			VolumeBasedExit: VolumeBasedExitConfig{
				Enabled: true, DropWindowMs: 60000, DropThresholdPct: 70,
				SpikeProfitThreshold: 20, SpikeDeclineCount: 3, SpikeDeclinePct: 10,
				SpikeLookback: 5, SpikeThresholdPct: 200,
				LowVolumeWindow: 10, LowVolumeThresholdPct: 10,
			},
			PriceAction: PriceActionConfig{
				Enabled: true, MinCandleSizePct: 1, WickRejectThreshold: 60,
				MomentumLossLookback: 3, MomentumLossMinSizePct: 0.5,
			},
			Priority: []string{
				"tiered_take_profit", "trailing_take_profit", "trailing_stop_loss",
				"timed_take_profit", "volume_based_exit", "price_action", "time_based_exit",
			},
		},
	}
}

// LoadStrategyConfig reads path as YAML into a StrategyConfig seeded with
// documented defaults, rejecting unknown keys. If path does not exist, the
// defaults are returned unchanged.
func LoadStrategyConfig(path string) (StrategyConfig, error) {
	cfg := DefaultStrategyConfig()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: open strategy file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode strategy file: %w", err)
	}
	return cfg, nil
}
