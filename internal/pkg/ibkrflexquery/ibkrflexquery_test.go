// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibkrflexquery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bufdev/ibrecon/internal/pkg/backoff"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/stretchr/testify/require"
)

func TestParseStatements(t *testing.T) {
	t.Parallel()
	data, err := os.ReadFile("testdata/statement.xml")
	require.NoError(t, err)
	statements, err := ParseStatements(data)
	require.NoError(t, err)
	require.Len(t, statements, 1)
	statement := statements[0]
	require.Equal(t, "U1234567", statement.AccountID)
	require.NotNil(t, statement.AccountInformation)
	require.Equal(t, "IBIE", statement.AccountInformation.IBEntity)

	// Trade and Lot rows keep document order.
	rows := statement.Trades.Rows
	require.Len(t, rows, 3)
	require.True(t, rows[0].IsTrade())
	require.True(t, rows[1].IsTrade())
	require.True(t, rows[2].IsLot())
	require.Equal(t, "777", rows[1].TransactionID)
	require.Equal(t, "501", rows[2].TransactionID)
	require.Equal(t, "O", rows[0].OpenCloseIndicator)
	require.Equal(t, "20230105;093000", rows[0].DateTime)

	require.Len(t, statement.CorporateActions, 1)
	require.Equal(t, "20230601", statement.CorporateActions[0].ReportDate)
	require.Len(t, statement.CashTransactions, 2)
	require.Equal(t, "Withholding Tax", statement.CashTransactions[1].Type)
	require.Len(t, statement.SecuritiesInfo, 1)
	require.Equal(t, "ACME CORPORATION", statement.SecuritiesInfo[0].Description)
}

func TestDownloadRetriesWhileGenerating(t *testing.T) {
	t.Parallel()
	data, err := os.ReadFile("testdata/statement.xml")
	require.NoError(t, err)
	var getCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, userAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/SendRequest":
			require.Equal(t, "token", r.URL.Query().Get("t"))
			require.Equal(t, "20230101", r.URL.Query().Get("fd"))
			require.Equal(t, "20231231", r.URL.Query().Get("td"))
			_, _ = fmt.Fprint(w, `<FlexStatementResponse><Status>Success</Status><ReferenceCode>42</ReferenceCode></FlexStatementResponse>`)
		case "/GetStatement":
			require.Equal(t, "42", r.URL.Query().Get("q"))
			if getCalls.Add(1) == 1 {
				_, _ = fmt.Fprint(w, `<FlexStatementResponse><Status>Warn</Status><ErrorCode>1019</ErrorCode><ErrorMessage>Statement generation in progress.</ErrorMessage></FlexStatementResponse>`)
				return
			}
			_, _ = w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(
		slog.New(slog.DiscardHandler),
		ClientWithBaseURL(server.URL),
		ClientWithRetryPolicy(backoff.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}),
	)
	got, err := client.Download(context.Background(), "token", "123", xtime.Date{Year: 2023, Month: 1, Day: 1}, xtime.Date{Year: 2023, Month: 12, Day: 31})
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.Equal(t, int32(2), getCalls.Load())
}

func TestDownloadPermanentError(t *testing.T) {
	t.Parallel()
	var sendCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sendCalls.Add(1)
		_, _ = fmt.Fprint(w, `<FlexStatementResponse><Status>Fail</Status><ErrorCode>1012</ErrorCode><ErrorMessage>Token has expired.</ErrorMessage></FlexStatementResponse>`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(slog.New(slog.DiscardHandler), ClientWithBaseURL(server.URL))
	_, err := client.Download(context.Background(), "token", "123", xtime.Date{}, xtime.Date{})
	require.ErrorContains(t, err, "Token has expired. (code: 1012)")
	require.Equal(t, int32(1), sendCalls.Load())
}
