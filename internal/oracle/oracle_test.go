package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"sniper-engine/internal/eventbus"
)

type fakeFetcher struct {
	rates []float64
	i     int
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	r := f.rates[f.i]
	if f.i < len(f.rates)-1 {
		f.i++
	}
	return r, nil
}

func TestRateUnavailableBeforeFirstFetchWithNoDefault(t *testing.T) {
	o := New(&fakeFetcher{rates: []float64{100}}, time.Hour, 0, eventbus.New(nil), nil)
	if _, err := o.Rate(); err != ErrNoRate {
		t.Fatalf("expected ErrNoRate, got %v", err)
	}
}

func TestRateFallsBackToDefaultBeforeFirstFetch(t *testing.T) {
	o := New(&fakeFetcher{rates: []float64{100}}, time.Hour, 225, eventbus.New(nil), nil)
	rate, err := o.Rate()
	if err != nil || rate != 225 {
		t.Fatalf("expected seeded default rate 225, got %v %v", rate, err)
	}
}

func TestPollPublishesOnChange(t *testing.T) {
	bus := eventbus.New(nil)
	var count int
	bus.Subscribe(eventbus.SinkFunc(func(evt any) { count++ }))

	f := &fakeFetcher{rates: []float64{100, 110}}
	o := New(f, time.Hour, 0, bus, nil)
	o.poll(context.Background())
	if count != 0 {
		t.Fatalf("expected no publish on first fetch, got %d", count)
	}
	o.poll(context.Background())
	if count != 1 {
		t.Fatalf("expected one publish on rate change, got %d", count)
	}
	rate, err := o.Rate()
	if err != nil || rate != 110 {
		t.Fatalf("expected cached rate 110, got %v %v", rate, err)
	}
}

func TestFetchFailureServesCachedRate(t *testing.T) {
	bus := eventbus.New(nil)
	f := &fakeFetcher{rates: []float64{100}}
	o := New(f, time.Hour, 0, bus, nil)
	o.poll(context.Background())

	f.err = errors.New("upstream down")
	o.poll(context.Background())

	rate, err := o.Rate()
	if err != nil || rate != 100 {
		t.Fatalf("expected cached rate to survive fetch error, got %v %v", rate, err)
	}
}
