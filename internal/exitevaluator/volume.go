package exitevaluator

import (
	"sniper-engine/config"
	"sniper-engine/internal/model"
)

// VolumeBasedExit implements spec §4.5's three volume-based exits: volume
// drop, volume spike (with profit gate), and sustained low volume.
// Position.VolumeHistory holds the last 30 fiat-volume samples at the
// position's update cadence. Samples carry no timestamp, and DropWindowMs
// is not read: the volume drop is measured across the whole retained
// history.
func VolumeBasedExit(pos *model.Position, cfg config.VolumeBasedExitConfig) (Signal, bool) {
	if !cfg.Enabled || len(pos.VolumeHistory) == 0 {
		return Signal{}, false
	}
	hist := pos.VolumeHistory

	if sig, ok := volumeDrop(hist, cfg); ok {
		return sig, true
	}
	if sig, ok := volumeSpike(pos, hist, cfg); ok {
		return sig, true
	}
	if sig, ok := lowVolume(hist, cfg); ok {
		return sig, true
	}
	return Signal{}, false
}

func volumeDrop(hist []float64, cfg config.VolumeBasedExitConfig) (Signal, bool) {
	peak := maxFloat(hist)
	if peak <= 0 {
		return Signal{}, false
	}
	current := hist[len(hist)-1]
	drop := (peak - current) / peak * 100
	if drop >= cfg.DropThresholdPct {
		return Signal{Reason: "volume_drop", Fraction: 1.0}, true
	}
	return Signal{}, false
}

func volumeSpike(pos *model.Position, hist []float64, cfg config.VolumeBasedExitConfig) (Signal, bool) {
	if pos.ProfitPercent() < cfg.SpikeProfitThreshold {
		return Signal{}, false
	}

	if consecutiveDeclines(hist, cfg.SpikeDeclineCount, cfg.SpikeDeclinePct) {
		return Signal{Reason: "volume_spike_decline", Fraction: 1.0}, true
	}

	lookback := cfg.SpikeLookback
	if lookback > 0 && len(hist) > lookback {
		window := hist[len(hist)-1-lookback : len(hist)-1]
		avg := avgFloat(window)
		latest := hist[len(hist)-1]
		if avg > 0 && (latest-avg)/avg*100 >= cfg.SpikeThresholdPct {
			return Signal{Reason: "volume_spike", Fraction: 1.0}, true
		}
	}
	return Signal{}, false
}

func lowVolume(hist []float64, cfg config.VolumeBasedExitConfig) (Signal, bool) {
	window := cfg.LowVolumeWindow
	if window <= 0 || len(hist) < window {
		return Signal{}, false
	}
	recent := hist[len(hist)-window:]
	peak := maxFloat(hist)
	if peak <= 0 {
		return Signal{}, false
	}
	avg := avgFloat(recent)
	if avg/peak*100 <= cfg.LowVolumeThresholdPct {
		return Signal{Reason: "low_volume", Fraction: 1.0}, true
	}
	return Signal{}, false
}

// consecutiveDeclines reports whether the last count samples each dropped
// by at least declinePct relative to the prior sample.
func consecutiveDeclines(hist []float64, count int, declinePct float64) bool {
	if count <= 0 || len(hist) < count+1 {
		return false
	}
	tail := hist[len(hist)-count-1:]
	for i := 1; i < len(tail); i++ {
		if tail[i-1] == 0 {
			return false
		}
		drop := (tail[i-1] - tail[i]) / tail[i-1] * 100
		if drop < declinePct {
			return false
		}
	}
	return true
}

func maxFloat(vals []float64) float64 {
	var m float64
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

func avgFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
