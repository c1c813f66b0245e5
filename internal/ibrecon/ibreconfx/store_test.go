// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibreconfx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestStoreWriteAndLoad(t *testing.T) {
	t.Parallel()
	fxDirPath := t.TempDir()
	store := NewStore(fxDirPath)
	added, err := store.WritePair("EUR", "USD", []Rate{
		{Date: xtime.Date{Year: 2023, Month: 1, Day: 4}, Rate: decimal.RequireFromString("1.0599")},
		{Date: xtime.Date{Year: 2023, Month: 1, Day: 3}, Rate: decimal.RequireFromString("1.0545")},
	})
	require.NoError(t, err)
	require.Equal(t, 2, added)
	added, err = store.WritePair("EUR", "USD", []Rate{
		{Date: xtime.Date{Year: 2023, Month: 1, Day: 4}, Rate: decimal.RequireFromString("1.06")},
		{Date: xtime.Date{Year: 2023, Month: 1, Day: 5}, Rate: decimal.RequireFromString("1.0626")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, added)

	data, err := os.ReadFile(filepath.Join(fxDirPath, "EUR.USD", "rates.json"))
	require.NoError(t, err)
	require.Equal(
		t,
		`{"date":"2023-01-03","rate":"1.0545"}
{"date":"2023-01-04","rate":"1.06"}
{"date":"2023-01-05","rate":"1.0626"}
`,
		string(data),
	)

	// A fresh store reads from disk.
	latest, ok, err := NewStore(fxDirPath).LatestDate("EUR", "USD")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, xtime.Date{Year: 2023, Month: 1, Day: 5}, latest)

	_, err = NewStore(fxDirPath).WritePair("USD", "GBP", []Rate{
		{Date: xtime.Date{Year: 2023, Month: 1, Day: 3}, Rate: decimal.RequireFromString("0.83")},
	})
	require.NoError(t, err)
	table, err := NewStore(fxDirPath).LoadTable("EUR")
	require.NoError(t, err)
	require.Equal(t, []string{"USD"}, table.Currencies())
	rate, ok := table.Lookup(xtime.Date{Year: 2023, Month: 1, Day: 4}, "USD")
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("1.06").Equal(rate))
}

func TestStoreMissingDirectory(t *testing.T) {
	t.Parallel()
	store := NewStore(filepath.Join(t.TempDir(), "missing"))
	rates, err := store.ReadPair("EUR", "USD")
	require.NoError(t, err)
	require.Empty(t, rates)
	table, err := store.LoadTable("EUR")
	require.NoError(t, err)
	require.Equal(t, 0, table.Len())
}
