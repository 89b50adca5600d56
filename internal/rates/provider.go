package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPProvider queries an exchange-rate API over HTTP.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider builds a provider for the given API base URL.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type ratesResponse struct {
	Success *bool                  `json:"success"`
	Base    string                 `json:"base"`
	Rates   map[string]json.Number `json:"rates"`
}

// FetchRates retrieves the latest rates for the base currency.
func (p *HTTPProvider) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/latest?base=%s", p.baseURL, url.QueryEscape(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate provider returned status %d", res.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}
	if body.Success != nil && !*body.Success {
		return nil, fmt.Errorf("rate provider reported failure")
	}

	out := make(map[string]decimal.Decimal, len(body.Rates))
	for code, num := range body.Rates {
		rate, err := decimal.NewFromString(num.String())
		if err != nil {
			continue
		}
		out[code] = rate
	}
	return out, nil
}
