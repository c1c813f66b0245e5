// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package bsi provides a client for the Bank of Slovenia reference exchange rates.
//
// The Bank of Slovenia publishes the ECB reference rates as a single XML
// document covering every business day since 2007. Each rate is the number of
// foreign currency units per one euro. The document is free and does not
// require authentication.
package bsi

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bufdev/ibrecon/internal/pkg/backoff"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency all rates are quoted against.
const BaseCurrency = "EUR"

// defaultURL is the full-history rate document.
const defaultURL = "https://www.bsi.si/_data/tecajnice/dtecbs-l.xml"

var retryPolicy = backoff.Policy{
	MaxAttempts:  3,
	InitialDelay: 2 * time.Second,
	MaxDelay:     10 * time.Second,
}

// DailyRates holds the rates published for one date.
type DailyRates struct {
	Date xtime.Date
	// Rates maps currency codes to units per one euro.
	Rates map[string]decimal.Decimal
}

// Client fetches daily rates from the Bank of Slovenia.
type Client interface {
	// GetRates returns the rates published within the inclusive date range,
	// in document order (ascending by date).
	GetRates(ctx context.Context, startDate xtime.Date, endDate xtime.Date) ([]DailyRates, error)
}

// ClientOption is an option for a new Client.
type ClientOption func(*client)

// ClientWithURL overrides the rate document URL.
func ClientWithURL(url string) ClientOption {
	return func(client *client) {
		client.url = url
	}
}

// NewClient creates a new Bank of Slovenia client.
func NewClient(options ...ClientOption) Client {
	client := &client{
		httpClient: http.DefaultClient,
		url:        defaultURL,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// ParseRates decodes a rate document, keeping dates within the inclusive range.
func ParseRates(data []byte, startDate xtime.Date, endDate xtime.Date) ([]DailyRates, error) {
	var document rateDocument
	if err := xml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("parsing rate document: %w", err)
	}
	var dailyRates []DailyRates
	for _, table := range document.Tables {
		date, err := xtime.ParseDate(table.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing rate table date: %w", err)
		}
		if date.Before(startDate) || date.After(endDate) {
			continue
		}
		rates := make(map[string]decimal.Decimal, len(table.Rates))
		for _, rate := range table.Rates {
			value, err := decimal.NewFromString(strings.TrimSpace(rate.Value))
			if err != nil {
				return nil, fmt.Errorf("parsing %s rate on %s: %w", rate.Code, table.Date, err)
			}
			rates[rate.Code] = value
		}
		dailyRates = append(dailyRates, DailyRates{Date: date, Rates: rates})
	}
	return dailyRates, nil
}

// *** PRIVATE ***

type client struct {
	httpClient *http.Client
	url        string
}

// rateDocument is <DtecBS><tecajnica datum="2023-01-05"><tecaj oznaka="USD">1.0599</tecaj>...
type rateDocument struct {
	Tables []rateTable `xml:"tecajnica"`
}

type rateTable struct {
	Date  string `xml:"datum,attr"`
	Rates []rate `xml:"tecaj"`
}

type rate struct {
	Code  string `xml:"oznaka,attr"`
	Value string `xml:",chardata"`
}

func (c *client) GetRates(ctx context.Context, startDate xtime.Date, endDate xtime.Date) ([]DailyRates, error) {
	data, err := backoff.Retry(ctx, retryPolicy, func(ctx context.Context, _ int) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
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
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return ParseRates(data, startDate, endDate)
}
