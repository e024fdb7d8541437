package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"dealdesk/models"
	"dealdesk/pricing"
)

// APIGateway fetches comparables from an external market-data service.
// The service takes the query as URL parameters and answers with a JSON
// array of sale records.
type APIGateway struct {
	baseURL string
	client  *http.Client
}

func NewAPIGateway(baseURL string, client *http.Client) *APIGateway {
	return &APIGateway{baseURL: baseURL, client: client}
}

type apiComparable struct {
	ID              string  `json:"id"`
	Price           float64 `json:"price"`
	Grade           string  `json:"grade"`
	SoldAt          string  `json:"soldAt"`
	DaysToSell      *int    `json:"daysToSell"`
	AgeMonthsAtSale *int    `json:"ageMonthsAtSale"`
}

func (g *APIGateway) Fetch(ctx context.Context, q pricing.Query) ([]models.Comparable, error) {
	endpoint, err := url.Parse(g.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse comps url: %w", err)
	}
	params := url.Values{}
	params.Set("category", q.Category)
	if q.Make != "" {
		params.Set("make", q.Make)
	}
	if q.Model != "" {
		params.Set("model", q.Model)
	}
	if q.Variant != "" {
		params.Set("variant", q.Variant)
	}
	if q.Year != 0 {
		params.Set("year", strconv.Itoa(q.Year))
	}
	params.Set("limit", strconv.Itoa(DefaultFetchLimit))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("comps API error %d: %s", resp.StatusCode, string(body))
	}

	var raw []apiComparable
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return parseComparables(raw)
}
