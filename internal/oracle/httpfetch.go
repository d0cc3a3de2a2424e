package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Fetch implements Fetcher against the CoinGecko simple-price shape.
func (f *HTTPFetcher) Fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("oracle: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if body.Solana.USD <= 0 {
		return 0, fmt.Errorf("oracle: non-positive rate in response")
	}
	return body.Solana.USD, nil
}
