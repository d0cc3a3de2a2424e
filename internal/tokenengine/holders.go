package tokenengine

import (
	"time"

	"sniper-engine/internal/model"
)

// staleHolderTTL is the "no trades within last 30 min" window spec §4.2
// uses to decide whether a zero-balance holder is evicted.
const staleHolderTTL = 30 * time.Minute

// holderTradeRetention is the cleanup sweep's trade-log retention window
// (spec §4.2: "drop trade records older than 30 min from every holder").
const holderTradeRetention = 30 * time.Minute

// recordHolderTrade implements spec §4.2 holder accounting: creates the
// holder record on first sight, appends the trade, and updates balance.
// Caller must hold t.mu.
func (t *Token) recordHolderTrade(pubKey string, newBalance, amount int64, volumeFiat, priceChange float64, ts time.Time) {
	h, ok := t.holders[pubKey]
	if !ok {
		h = &model.Holder{
			PublicKey:      pubKey,
			InitialBalance: newBalance,
			FirstSeen:      ts,
			IsCreator:      pubKey == t.identity.Creator,
		}
		t.holders[pubKey] = h
	}
	h.Balance = newBalance
	h.LastActive = ts
	h.Trades = append(h.Trades, model.HolderTrade{
		Amount:       amount,
		VolumeNative: amount,
		VolumeFiat:   volumeFiat,
		PriceChange:  priceChange,
		TS:           ts,
	})

	if newBalance <= 0 {
		t.evictIfStaleLocked(pubKey, ts)
	}
}

// evictIfStaleLocked drops a zero-or-negative-balance holder that has no
// trades within staleHolderTTL of now. Caller must hold t.mu.
func (t *Token) evictIfStaleLocked(pubKey string, now time.Time) {
	h, ok := t.holders[pubKey]
	if !ok || h.Balance > 0 {
		return
	}
	if now.Sub(h.LastActive) >= staleHolderTTL {
		delete(t.holders, pubKey)
	}
}

// SweepHolders drops trade records older than holderTradeRetention and
// evicts any now-stale zero-balance holder. Invoked by the fleet
// coordinator's periodic cleanup (spec §4.2 "Cleanup sweep: every 5 min").
func (t *Token) SweepHolders(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-holderTradeRetention)
	for key, h := range t.holders {
		kept := h.Trades[:0]
		for _, tr := range h.Trades {
			if tr.TS.After(cutoff) {
				kept = append(kept, tr)
			}
		}
		h.Trades = kept
		if h.Balance <= 0 {
			t.evictIfStaleLocked(key, now)
		}
	}
}

// recentVolumeLocked sums |trade.volume_fiat| across every holder for
// trades with timestamp > now-window (spec §4.2 recent_volume, testable
// property 8). Caller must hold t.mu (read or write).
func (t *Token) recentVolumeLocked(window time.Duration) float64 {
	if t.lastTradeTime.IsZero() {
		return 0
	}
	cutoff := t.lastTradeTime.Add(-window)
	var sum float64
	for _, h := range t.holders {
		for _, tr := range h.Trades {
			if tr.TS.After(cutoff) {
				sum += absFloat(tr.VolumeFiat)
			}
		}
	}
	return sum
}

// volumeSpikeLocked computes ((volume_5s/5) / (volume_30s/30) - 1) * 100;
// 0 if the 30s rate is 0 (spec §4.2 volume_spike).
func (t *Token) volumeSpikeLocked() float64 {
	rate5s := t.recentVolumeLocked(5*time.Second) / 5
	rate30s := t.recentVolumeLocked(30*time.Second) / 30
	if rate30s == 0 {
		return 0
	}
	return (rate5s/rate30s - 1) * 100
}

// buyPressureLocked returns buy_volume_fiat / total_volume_fiat * 100 over
// the last 5 minutes; a trade counts as a buy if its recorded price change
// vs the prior trade is >= 0 (spec §4.2 buy_pressure).
func (t *Token) buyPressureLocked() float64 {
	if t.lastTradeTime.IsZero() {
		return 0
	}
	cutoff := t.lastTradeTime.Add(-5 * time.Minute)

	var buyVol, totalVol float64
	for _, h := range t.holders {
		for _, tr := range h.Trades {
			if !tr.TS.After(cutoff) {
				continue
			}
			v := absFloat(tr.VolumeFiat)
			totalVol += v
			if tr.PriceChange >= 0 {
				buyVol += v
			}
		}
	}
	if totalVol == 0 {
		return 0
	}
	return buyVol / totalVol * 100
}

// topHolderConcentrationLocked sums the n largest holder balances and
// returns that sum as a percentage of (sum of holder balances +
// token-reserve); 0 when total supply is 0 (spec §4.2 top-holder
// concentration).
func (t *Token) topHolderConcentrationLocked(n int) float64 {
	balances := make([]int64, 0, len(t.holders))
	var total int64
	for _, h := range t.holders {
		if h.Balance <= 0 {
			continue
		}
		balances = append(balances, h.Balance)
		total += h.Balance
	}
	supply := total + t.reserves.Token
	if supply <= 0 {
		return 0
	}

	sortDescInt64(balances)
	if n > len(balances) {
		n = len(balances)
	}
	var top int64
	for i := 0; i < n; i++ {
		top += balances[i]
	}
	return float64(top) / float64(supply) * 100
}

// creatorSellPercentageLocked returns the creator holder's sell percentage,
// 0 if no creator holder has been observed yet (spec §4.2 creator metrics).
func (t *Token) creatorSellPercentageLocked() float64 {
	for _, h := range t.holders {
		if h.IsCreator {
			return h.CreatorSellPercentage()
		}
	}
	return 0
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func sortDescInt64(s []int64) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] < v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}
