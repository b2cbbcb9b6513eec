package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultFrankfurterURL = "https://api.frankfurter.app"

// FrankfurterFetcher reads the USD->KRW rate from a Frankfurter compatible API.
type FrankfurterFetcher struct {
	baseURL string
	client  *http.Client
}

func NewFrankfurterFetcher(baseURL string, timeout time.Duration) *FrankfurterFetcher {
	if baseURL == "" {
		baseURL = DefaultFrankfurterURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FrankfurterFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (f *FrankfurterFetcher) Source() string { return "Frankfurter" }

type frankfurterResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func (f *FrankfurterFetcher) FetchUsdToKrw(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/latest?from=USD&to=KRW", nil)
	if err != nil {
		return 0, fmt.Errorf("build fx request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch fx rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch fx rate: unexpected status %d", resp.StatusCode)
	}

	var body frankfurterResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode fx response: %w", err)
	}
	rate, ok := body.Rates["KRW"]
	if !ok || rate <= 0 {
		return 0, ErrBadRate
	}
	return rate, nil
}
