// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibreconfx

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// ratesFileName is the per-pair rate file within a pair directory.
const ratesFileName = "rates.json"

// Rate is one line of a rate file.
type Rate struct {
	Date xtime.Date      `json:"date"`
	Rate decimal.Decimal `json:"rate"`
}

// Store reads and writes per-pair rate files.
//
// Rates live in {BASE}.{QUOTE}/rates.json under the FX directory, one JSON
// object per line sorted by date, where BASE is the reporting currency and
// the rate is QUOTE units per one BASE unit. Loaded pairs are cached in memory.
type Store struct {
	fxDirPath string
	pairs     *cache.Cache
}

// NewStore creates a Store rooted at the FX directory.
func NewStore(fxDirPath string) *Store {
	return &Store{
		fxDirPath: fxDirPath,
		pairs:     cache.New(cache.NoExpiration, 0),
	}
}

// ReadPair returns the rates of a pair sorted by date. A missing pair
// returns no rates and no error.
func (s *Store) ReadPair(base string, quote string) ([]Rate, error) {
	pairKey := pairKey(base, quote)
	if cached, ok := s.pairs.Get(pairKey); ok {
		return cached.([]Rate), nil
	}
	data, err := os.ReadFile(filepath.Join(s.fxDirPath, pairKey, ratesFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var rates []Rate
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rate Rate
		if err := json.Unmarshal(line, &rate); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", pairKey, lineNumber, err)
		}
		rates = append(rates, rate)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sortRates(rates)
	s.pairs.SetDefault(pairKey, rates)
	return rates, nil
}

// WritePair merges rates into the pair's file. New rates replace existing
// rates for the same date. Returns the number of dates added.
func (s *Store) WritePair(base string, quote string, rates []Rate) (int, error) {
	existing, err := s.ReadPair(base, quote)
	if err != nil {
		return 0, err
	}
	byDate := make(map[xtime.Date]Rate, len(existing)+len(rates))
	for _, rate := range existing {
		byDate[rate.Date] = rate
	}
	var added int
	for _, rate := range rates {
		if _, ok := byDate[rate.Date]; !ok {
			added++
		}
		byDate[rate.Date] = rate
	}
	merged := make([]Rate, 0, len(byDate))
	for _, rate := range byDate {
		merged = append(merged, rate)
	}
	sortRates(merged)
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	for _, rate := range merged {
		if err := encoder.Encode(rate); err != nil {
			return 0, err
		}
	}
	pairKey := pairKey(base, quote)
	pairDirPath := filepath.Join(s.fxDirPath, pairKey)
	if err := os.MkdirAll(pairDirPath, 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(pairDirPath, ratesFileName), buffer.Bytes(), 0o644); err != nil {
		return 0, err
	}
	s.pairs.SetDefault(pairKey, merged)
	return added, nil
}

// LatestDate returns the most recent date stored for a pair.
func (s *Store) LatestDate(base string, quote string) (xtime.Date, bool, error) {
	rates, err := s.ReadPair(base, quote)
	if err != nil || len(rates) == 0 {
		return xtime.Date{}, false, err
	}
	return rates[len(rates)-1].Date, true, nil
}

// LoadTable builds a RateTable from every stored pair with the given base.
func (s *Store) LoadTable(base string) (*RateTable, error) {
	entries, err := os.ReadDir(s.fxDirPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewRateTable(), nil
		}
		return nil, err
	}
	table := NewRateTable()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pairBase, quote, ok := strings.Cut(entry.Name(), ".")
		if !ok || pairBase != base {
			continue
		}
		rates, err := s.ReadPair(base, quote)
		if err != nil {
			return nil, err
		}
		for _, rate := range rates {
			if err := table.Set(rate.Date, quote, rate.Rate); err != nil {
				return nil, fmt.Errorf("%s: %w", entry.Name(), err)
			}
		}
	}
	return table, nil
}

// *** PRIVATE ***

func pairKey(base string, quote string) string {
	return base + "." + quote
}

func sortRates(rates []Rate) {
	sort.Slice(rates, func(i, j int) bool {
		return rates[i].Date.Before(rates[j].Date)
	})
}
