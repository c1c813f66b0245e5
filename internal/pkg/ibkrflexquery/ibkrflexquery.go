// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibkrflexquery provides an API client and XML decoder for IBKR Flex Query statements.
//
// The Flex Query Web Service is a two-step REST API:
//  1. SendRequest: Submits a query and returns a reference code.
//  2. GetStatement: Polls with the reference code until the XML statement is ready.
//
// Both endpoints require a Flex Web Service token for authentication and
// a "Java" User-Agent header. Both endpoints may return transient errors
// (e.g., 1001 server busy, 1019 statement generating) which are retried
// with exponential backoff.
//
// The response contains one FlexStatement per IBKR account. The Trades
// section interleaves Trade rows with the Lot rows that describe which
// opening transactions a closing trade consumed, so it is decoded in
// document order.
package ibkrflexquery

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bufdev/ibrecon/internal/pkg/backoff"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
)

const (
	// defaultBaseURL is the IBKR Flex Web Service base URL.
	defaultBaseURL = "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService"
	// userAgent is the required User-Agent header for IBKR (IBKR expects "Java").
	userAgent = "Java"
)

// retryPolicy applies to each of the two API calls.
var retryPolicy = backoff.Policy{
	MaxAttempts:  10,
	InitialDelay: 2 * time.Second,
	MaxDelay:     30 * time.Second,
}

// Client downloads Flex Query statements from IBKR.
type Client interface {
	// Download runs the Flex Query and returns the raw statement XML.
	//
	// The token is the Flex Web Service token generated in the IBKR portal.
	// The fromDate and toDate optionally override the query's configured period;
	// pass zero-value dates to use the query's default period. If one is set,
	// both must be set. IBKR limits each request to 365 days.
	//
	// The returned data is verified to decode with ParseStatements.
	Download(ctx context.Context, token string, queryID string, fromDate xtime.Date, toDate xtime.Date) ([]byte, error)
}

// ClientOption is an option for a new Client.
type ClientOption func(*client)

// ClientWithBaseURL overrides the Flex Web Service base URL.
func ClientWithBaseURL(baseURL string) ClientOption {
	return func(client *client) {
		client.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// ClientWithRetryPolicy overrides the retry policy.
func ClientWithRetryPolicy(policy backoff.Policy) ClientOption {
	return func(client *client) {
		client.retryPolicy = policy
	}
}

// NewClient creates a new Flex Query API client. The logger is required.
func NewClient(logger *slog.Logger, options ...ClientOption) Client {
	client := &client{
		httpClient:  http.DefaultClient,
		logger:      logger,
		baseURL:     defaultBaseURL,
		retryPolicy: retryPolicy,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// FlexStatement contains the data returned by a Flex Query for a single IBKR account.
type FlexStatement struct {
	AccountID string `xml:"accountId,attr"`
	// FromDate and ToDate are YYYYMMDD.
	FromDate           string                `xml:"fromDate,attr"`
	ToDate             string                `xml:"toDate,attr"`
	AccountInformation *XMLAccountInformation `xml:"AccountInformation"`
	Trades             XMLTrades             `xml:"Trades"`
	CorporateActions   []XMLCorporateAction  `xml:"CorporateActions>CorporateAction"`
	CashTransactions   []XMLCashTransaction  `xml:"CashTransactions>CashTransaction"`
	SecuritiesInfo     []XMLSecurityInfo     `xml:"SecuritiesInfo>SecurityInfo"`
}

// XMLAccountInformation holds the account holder and IB entity.
type XMLAccountInformation struct {
	AccountID string `xml:"accountId,attr"`
	Name      string `xml:"name,attr"`
	Currency  string `xml:"currency,attr"`
	// IBEntity is the IB affiliate that holds the account (e.g. "IBIE").
	IBEntity string `xml:"ibEntity,attr"`
}

// XMLTrades is the Trades section with rows kept in document order.
type XMLTrades struct {
	Rows []XMLTradeRow `xml:",any"`
}

// XMLTradeRow is a Trade or Lot row. Both share the same attributes.
//
// All fields are XML attributes, kept as strings.
type XMLTradeRow struct {
	XMLName            xml.Name
	AccountID          string `xml:"accountId,attr"`
	Currency           string `xml:"currency,attr"`
	AssetCategory      string `xml:"assetCategory,attr"`
	Symbol             string `xml:"symbol,attr"`
	Description        string `xml:"description,attr"`
	Conid              string `xml:"conid,attr"`
	SecurityID         string `xml:"securityID,attr"`
	Cusip              string `xml:"cusip,attr"`
	ISIN               string `xml:"isin,attr"`
	Multiplier         string `xml:"multiplier,attr"`
	DateTime           string `xml:"dateTime,attr"`
	TradeDate          string `xml:"tradeDate,attr"`
	TradeTime          string `xml:"tradeTime,attr"`
	Quantity           string `xml:"quantity,attr"`
	TradePrice         string `xml:"tradePrice,attr"`
	ClosePrice         string `xml:"closePrice,attr"`
	BuySell            string `xml:"buySell,attr"`
	TransactionID      string `xml:"transactionID,attr"`
	IBOrderID          string `xml:"ibOrderID,attr"`
	OpenCloseIndicator string `xml:"openCloseIndicator,attr"`
	Notes              string `xml:"notes,attr"`
}

// IsTrade reports whether the row is an execution.
func (r XMLTradeRow) IsTrade() bool {
	return r.XMLName.Local == "Trade"
}

// IsLot reports whether the row is a lot consumed by the preceding closing trade.
func (r XMLTradeRow) IsLot() bool {
	return r.XMLName.Local == "Lot"
}

// XMLCorporateAction represents a corporate action.
//
// IBKR does not classify splits, the kind is only visible in Description.
type XMLCorporateAction struct {
	Type              string `xml:"type,attr"`
	Symbol            string `xml:"symbol,attr"`
	Conid             string `xml:"conid,attr"`
	ISIN              string `xml:"isin,attr"`
	Description       string `xml:"description,attr"`
	ActionDescription string `xml:"actionDescription,attr"`
	ReportDate        string `xml:"reportDate,attr"`
	DateTime          string `xml:"dateTime,attr"`
	Quantity          string `xml:"quantity,attr"`
	AssetCategory     string `xml:"assetCategory,attr"`
}

// XMLCashTransaction represents a cash transaction (dividends, withholding tax, interest, fees).
type XMLCashTransaction struct {
	AccountID     string `xml:"accountId,attr"`
	Type          string `xml:"type,attr"`
	Currency      string `xml:"currency,attr"`
	Amount        string `xml:"amount,attr"`
	Description   string `xml:"description,attr"`
	DateTime      string `xml:"dateTime,attr"`
	Symbol        string `xml:"symbol,attr"`
	Conid         string `xml:"conid,attr"`
	SecurityID    string `xml:"securityID,attr"`
	ISIN          string `xml:"isin,attr"`
	TransactionID string `xml:"transactionID,attr"`
}

// XMLSecurityInfo carries the long security name.
type XMLSecurityInfo struct {
	Conid         string `xml:"conid,attr"`
	Symbol        string `xml:"symbol,attr"`
	Description   string `xml:"description,attr"`
	ISIN          string `xml:"isin,attr"`
	AssetCategory string `xml:"assetCategory,attr"`
}

// ParseStatements decodes a FlexQueryResponse document.
func ParseStatements(data []byte) ([]FlexStatement, error) {
	var response flexQueryResponse
	if err := xml.Unmarshal(data, &response); err != nil {
		return nil, err
	}
	return response.FlexStatements.Statements, nil
}

// *** PRIVATE ***

type client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	retryPolicy backoff.Policy
}

type flexQueryResponse struct {
	XMLName        xml.Name `xml:"FlexQueryResponse"`
	FlexStatements struct {
		Statements []FlexStatement `xml:"FlexStatement"`
	} `xml:"FlexStatements"`
}

// statusResponse is returned by SendRequest, and by GetStatement while the statement is not ready.
type statusResponse struct {
	XMLName       xml.Name `xml:"FlexStatementResponse"`
	Status        string   `xml:"Status"`
	ReferenceCode string   `xml:"ReferenceCode"`
	ErrorCode     string   `xml:"ErrorCode"`
	ErrorMessage  string   `xml:"ErrorMessage"`
}

// retryableErrorCodes are IBKR error codes that indicate a transient failure.
var retryableErrorCodes = map[string]bool{
	"1001": true, // Statement could not be generated at this time.
	"1004": true, // Statement is incomplete at this time.
	"1019": true, // Statement is being generated, please try again shortly.
}

func (c *client) Download(ctx context.Context, token string, queryID string, fromDate xtime.Date, toDate xtime.Date) ([]byte, error) {
	if token == "" {
		return nil, errors.New("token is required")
	}
	if queryID == "" {
		return nil, errors.New("query ID is required")
	}
	if fromDate.IsZero() != toDate.IsZero() {
		return nil, errors.New("fromDate and toDate must both be set or both be zero")
	}
	referenceCode, err := c.sendRequest(ctx, token, queryID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("sending flex query request: %w", err)
	}
	c.logger.Info("flex query request sent", "reference_code", referenceCode)
	data, err := c.getStatement(ctx, token, referenceCode)
	if err != nil {
		return nil, fmt.Errorf("getting flex query statement: %w", err)
	}
	if _, err := ParseStatements(data); err != nil {
		return nil, fmt.Errorf("parsing flex query statement: %w", err)
	}
	return data, nil
}

func (c *client) sendRequest(ctx context.Context, token string, queryID string, fromDate xtime.Date, toDate xtime.Date) (string, error) {
	query := url.Values{}
	query.Set("t", token)
	query.Set("q", queryID)
	if !fromDate.IsZero() {
		query.Set("fd", fromDate.CompactString())
		query.Set("td", toDate.CompactString())
	}
	query.Set("v", "3")
	reqURL := c.baseURL + "/SendRequest?" + query.Encode()
	return backoff.Retry(ctx, c.retryPolicy,
		func(ctx context.Context, attempt int) (string, error) {
			if attempt > 0 {
				c.logger.Info("retrying send request", "attempt", attempt+1)
			}
			body, err := c.get(ctx, reqURL)
			if err != nil {
				return "", err
			}
			var response statusResponse
			if err := xml.Unmarshal(body, &response); err != nil {
				return "", backoff.Permanent(fmt.Errorf("parsing send response: %w", err))
			}
			if response.Status != "Success" {
				return "", c.statusError(response)
			}
			return response.ReferenceCode, nil
		},
	)
}

func (c *client) getStatement(ctx context.Context, token string, referenceCode string) ([]byte, error) {
	query := url.Values{}
	query.Set("t", token)
	query.Set("q", referenceCode)
	query.Set("v", "3")
	reqURL := c.baseURL + "/GetStatement?" + query.Encode()
	return backoff.Retry(ctx, c.retryPolicy,
		func(ctx context.Context, attempt int) ([]byte, error) {
			if attempt > 0 {
				c.logger.Info("waiting for flex query statement", "attempt", attempt+1)
			}
			body, err := c.get(ctx, reqURL)
			if err != nil {
				return nil, err
			}
			// A status document instead of a statement means the statement is not ready.
			if strings.HasPrefix(strings.TrimSpace(string(body)), "<FlexStatementResponse") {
				var response statusResponse
				if err := xml.Unmarshal(body, &response); err != nil {
					return nil, backoff.Permanent(fmt.Errorf("parsing get response: %w", err))
				}
				return nil, c.statusError(response)
			}
			return body, nil
		},
	)
}

func (c *client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}
	return body, nil
}

func (c *client) statusError(response statusResponse) error {
	err := fmt.Errorf("%s (code: %s)", response.ErrorMessage, response.ErrorCode)
	if retryableErrorCodes[response.ErrorCode] {
		c.logger.Warn("transient IBKR error, will retry", "code", response.ErrorCode, "message", response.ErrorMessage)
		return err
	}
	return backoff.Permanent(err)
}
