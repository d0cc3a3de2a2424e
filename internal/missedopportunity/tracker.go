// Package missedopportunity records tokens the system declined to trade —
// safety-check rejections or entry-condition misses — to a daily-rotated
// JSON array log (spec §6 persisted state layout), grounded on the
// teacher's internal/execution/journal.go open-on-demand, mutex-guarded
// writer pattern, retargeted from SQLite to a rotating JSON file appender.
package missedopportunity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// defaultMaxFileSize is the size-based rotation threshold (spec §6: "default
// 500 MiB").
const defaultMaxFileSize = 500 * 1024 * 1024

// Token is the per-record token detail of a missed opportunity.
type Token struct {
	Mint              string   `json:"mint"`
	InitialPrice      float64  `json:"initialPrice"`
	InitialMarketCap  float64  `json:"initialMarketCap"`
	FailedAt          string   `json:"failedAt"`
	FailedChecks      []string `json:"failedChecks"`
	PeakData          any      `json:"peakData,omitempty"`
	PotentialProfit   any      `json:"potentialProfit,omitempty"`
	ThresholdAnalysis any      `json:"thresholdAnalysis,omitempty"`
}

// Record is one JSON array entry written to the daily log file.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Token     Token     `json:"token"`
}

// Tracker appends Records to logs/missed_opportunities/missed_opportunities_YYYY-MM-DD.json,
// opening the file on demand and rotating by date and by size.
type Tracker struct {
	mu          sync.Mutex
	dir         string
	maxFileSize int64
	clockNow    func() time.Time
}

// New constructs a Tracker writing under dir (spec default:
// logs/missed_opportunities).
func New(dir string) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Tracker{dir: dir, maxFileSize: defaultMaxFileSize, clockNow: time.Now}, nil
}

// Record appends rec to today's log file (spec §6: one JSON array per day).
func (t *Tracker) Record(rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clockNow()
	path := t.pathFor(now)

	records, err := t.readExisting(path)
	if err != nil {
		return err
	}
	records = append(records, rec)

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if int64(len(payload)) > t.maxFileSize && len(records) > 1 {
		if err := t.rotate(path, now); err != nil {
			return err
		}
		records = []Record{rec}
		payload, err = json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
	}

	return os.WriteFile(path, payload, 0o644)
}

func (t *Tracker) pathFor(now time.Time) string {
	name := fmt.Sprintf("missed_opportunities_%s.json", now.Format("2006-01-02"))
	return filepath.Join(t.dir, name)
}

func (t *Tracker) readExisting(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// rotate appends a timestamp suffix to the oversized file (spec §6:
// "size-based rotation ... appends a timestamp suffix to the rotated
// file").
func (t *Tracker) rotate(path string, now time.Time) error {
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	rotated := fmt.Sprintf("%s_%d%s", base, now.UnixNano(), ext)
	return os.Rename(path, rotated)
}
