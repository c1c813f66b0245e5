// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package frankfurter provides a client for fetching exchange rates from frankfurter.dev.
//
// The frankfurter.dev API is free and does not require an API key or authentication.
// Rates are quoted as units of each quote currency per one unit of the base currency.
// See https://frankfurter.dev for usage details and rate limits.
package frankfurter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bufdev/ibrecon/internal/pkg/backoff"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// defaultBaseURL is the frankfurter.dev API base URL.
const defaultBaseURL = "https://api.frankfurter.dev/v1"

var retryPolicy = backoff.Policy{
	MaxAttempts:  5,
	InitialDelay: time.Second,
	MaxDelay:     10 * time.Second,
}

// DailyRates holds the rates published for one date.
type DailyRates struct {
	Date xtime.Date
	// Rates maps quote currency codes to units per one base unit.
	Rates map[string]decimal.Decimal
}

// Client is the interface for fetching exchange rates.
type Client interface {
	// GetRates fetches daily rates of the quote currencies against the base
	// currency for the inclusive date range, sorted by date. Dates without
	// publication (weekends, holidays) are absent.
	GetRates(ctx context.Context, baseCurrency string, quoteCurrencies []string, startDate xtime.Date, endDate xtime.Date) ([]DailyRates, error)
}

// ClientOption is an option for a new Client.
type ClientOption func(*client)

// ClientWithBaseURL overrides the API base URL.
func ClientWithBaseURL(baseURL string) ClientOption {
	return func(client *client) {
		client.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// ClientWithRequestsPerSecond throttles requests. The default is 2.
func ClientWithRequestsPerSecond(requestsPerSecond float64) ClientOption {
	return func(client *client) {
		client.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// NewClient creates a new exchange rate client.
func NewClient(options ...ClientOption) Client {
	client := &client{
		httpClient: http.DefaultClient,
		baseURL:    defaultBaseURL,
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// *** PRIVATE ***

type client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// frankfurterResponse is the JSON response for the time series endpoint.
type frankfurterResponse struct {
	Base  string                            `json:"base"`
	Rates map[string]map[string]json.Number `json:"rates"`
}

func (c *client) GetRates(ctx context.Context, baseCurrency string, quoteCurrencies []string, startDate xtime.Date, endDate xtime.Date) ([]DailyRates, error) {
	if len(quoteCurrencies) == 0 {
		return nil, nil
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}
	reqURL := fmt.Sprintf(
		"%s/%s..%s?base=%s&symbols=%s",
		c.baseURL,
		startDate,
		endDate,
		baseCurrency,
		strings.Join(quoteCurrencies, ","),
	)
	body, err := backoff.Retry(ctx, retryPolicy, func(ctx context.Context, _ int) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var response frankfurterResponse
	if err := decoder.Decode(&response); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	dailyRates := make([]DailyRates, 0, len(response.Rates))
	for dateString, rateMap := range response.Rates {
		date, err := xtime.ParseDate(dateString)
		if err != nil {
			return nil, fmt.Errorf("parsing rate date: %w", err)
		}
		rates := make(map[string]decimal.Decimal, len(rateMap))
		for currency, number := range rateMap {
			value, err := decimal.NewFromString(number.String())
			if err != nil {
				return nil, fmt.Errorf("parsing %s rate on %s: %w", currency, dateString, err)
			}
			rates[currency] = value
		}
		dailyRates = append(dailyRates, DailyRates{Date: date, Rates: rates})
	}
	sort.Slice(dailyRates, func(i, j int) bool {
		return dailyRates[i].Date.Before(dailyRates[j].Date)
	})
	return dailyRates, nil
}

func (c *client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	default:
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}
}
