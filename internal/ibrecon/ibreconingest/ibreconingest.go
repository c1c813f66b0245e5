// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconingest reads Flex Query statements into reconciliation input.
//
// Every statement file becomes one ibrecondata.SourceFile with rows in
// document order. Lot rows are attached to the closing trade that precedes
// them. Split corporate actions are collected into a SplitRegistry and
// security descriptions into a name table keyed by conid.
package ibreconingest

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondiag"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconpath"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconsplit"
	"github.com/bufdev/ibrecon/internal/pkg/ibkrflexquery"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// Statements is the content of all statement files.
type Statements struct {
	// Files are in file name order.
	Files  []*ibrecondata.SourceFile
	Splits *ibreconsplit.SplitRegistry
	// SecurityNames maps conid to security description.
	SecurityNames map[string]string
	// Warnings are data quality problems found while reading.
	Warnings []ibrecondiag.Warning
}

// ReadDir reads every statement file in dirPath. Files are decoded
// concurrently and merged in file name order.
func ReadDir(logger *slog.Logger, dirPath string, ignoredAssets []string) (*Statements, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("statements directory %s not found, run \"ibrecon download\" or copy Flex Query XML files there", dirPath)
		}
		return nil, err
	}
	var filePaths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ibreconpath.StatementFileExt {
			continue
		}
		filePaths = append(filePaths, filepath.Join(dirPath, entry.Name()))
	}
	slices.Sort(filePaths)
	parsedFiles := make([]*parsedFile, len(filePaths))
	fileErrs := make([]error, len(filePaths))
	var waitGroup sync.WaitGroup
	for i, filePath := range filePaths {
		waitGroup.Go(func() {
			data, err := os.ReadFile(filePath)
			if err != nil {
				fileErrs[i] = err
				return
			}
			parsedFiles[i], fileErrs[i] = parseFile(filePath, data, ignoredAssets)
		})
	}
	waitGroup.Wait()
	if err := errors.Join(fileErrs...); err != nil {
		return nil, err
	}
	statements := merge(parsedFiles)
	logger.Debug(
		"read statements",
		slog.String("dir", dirPath),
		slog.Int("files", len(statements.Files)),
		slog.Int("splits", statements.Splits.Len()),
	)
	return statements, nil
}

// Parse parses the data of a single statement file.
func Parse(filePath string, data []byte, ignoredAssets []string) (*Statements, error) {
	parsed, err := parseFile(filePath, data, ignoredAssets)
	if err != nil {
		return nil, err
	}
	return merge([]*parsedFile{parsed}), nil
}

// *** PRIVATE ***

type parsedFile struct {
	sourceFile    *ibrecondata.SourceFile
	splitEvents   []ibrecondata.SplitEvent
	securityNames [][2]string
	warnings      []ibrecondiag.Warning
}

// merge is the single writer of the shared split registry.
func merge(parsedFiles []*parsedFile) *Statements {
	statements := &Statements{
		Splits:        ibreconsplit.NewSplitRegistry(),
		SecurityNames: make(map[string]string),
	}
	for _, parsed := range parsedFiles {
		statements.Files = append(statements.Files, parsed.sourceFile)
		for _, splitEvent := range parsed.splitEvents {
			statements.Splits.Add(splitEvent)
		}
		for _, securityName := range parsed.securityNames {
			statements.SecurityNames[securityName[0]] = securityName[1]
		}
		statements.Warnings = append(statements.Warnings, parsed.warnings...)
	}
	return statements
}

func parseFile(filePath string, data []byte, ignoredAssets []string) (*parsedFile, error) {
	flexStatements, err := ibkrflexquery.ParseStatements(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	parsed := &parsedFile{
		sourceFile: &ibrecondata.SourceFile{Path: filePath},
	}
	for _, flexStatement := range flexStatements {
		if err := parsed.addTrades(flexStatement.Trades.Rows, ignoredAssets); err != nil {
			return nil, fmt.Errorf("%s: %w", filePath, err)
		}
		if err := parsed.addCashTransactions(flexStatement.CashTransactions); err != nil {
			return nil, fmt.Errorf("%s: %w", filePath, err)
		}
		if err := parsed.addCorporateActions(flexStatement.CorporateActions); err != nil {
			return nil, fmt.Errorf("%s: %w", filePath, err)
		}
		for _, securityInfo := range flexStatement.SecuritiesInfo {
			if securityInfo.Conid != "" && securityInfo.Description != "" {
				parsed.securityNames = append(parsed.securityNames, [2]string{securityInfo.Conid, securityInfo.Description})
			}
		}
	}
	return parsed, nil
}

func (p *parsedFile) addTrades(rows []ibkrflexquery.XMLTradeRow, ignoredAssets []string) error {
	var lastTrade *ibrecondata.Trade
	for _, row := range rows {
		if slices.Contains(ignoredAssets, row.AssetCategory) {
			lastTrade = nil
			continue
		}
		switch {
		case row.IsTrade():
			trade, err := newTrade(row)
			if err != nil {
				return fmt.Errorf("trade %s: %w", row.TransactionID, err)
			}
			p.sourceFile.Trades = append(p.sourceFile.Trades, trade)
			lastTrade = trade
		case row.IsLot():
			if lastTrade == nil {
				p.warnings = append(p.warnings, ibrecondiag.Warning{
					Kind:          ibrecondiag.WarningKindOrphanLot,
					Message:       fmt.Sprintf("lot in %s has no preceding trade and was skipped", p.sourceFile.Path),
					SecurityID:    row.Symbol,
					TransactionID: row.TransactionID,
				})
				continue
			}
			openLot, err := newOpenLot(row)
			if err != nil {
				return fmt.Errorf("lot %s of trade %s: %w", row.TransactionID, lastTrade.TransactionID, err)
			}
			lastTrade.AddOpenLot(openLot)
		}
	}
	return nil
}

func (p *parsedFile) addCashTransactions(cashTransactions []ibkrflexquery.XMLCashTransaction) error {
	for _, cashTransaction := range cashTransactions {
		kind, ok := ibrecondata.ParseIBKRCashFlowKind(cashTransaction.Type)
		if !ok {
			continue
		}
		date, err := xtime.ParseCompactDate(cashTransaction.DateTime)
		if err != nil {
			return fmt.Errorf("cash transaction %s: %w", cashTransaction.TransactionID, err)
		}
		amount, err := decimal.NewFromString(cashTransaction.Amount)
		if err != nil {
			return fmt.Errorf("cash transaction %s: amount: %w", cashTransaction.TransactionID, err)
		}
		p.sourceFile.CashFlowEvents = append(p.sourceFile.CashFlowEvents, ibrecondata.CashFlowEvent{
			Kind:          kind,
			Currency:      cashTransaction.Currency,
			Amount:        amount,
			Date:          date,
			Symbol:        cashTransaction.Symbol,
			SecurityID:    cashTransaction.SecurityID,
			Conid:         cashTransaction.Conid,
			TransactionID: cashTransaction.TransactionID,
			Description:   cashTransaction.Description,
			AccountID:     cashTransaction.AccountID,
		})
	}
	return nil
}

func (p *parsedFile) addCorporateActions(corporateActions []ibkrflexquery.XMLCorporateAction) error {
	for _, corporateAction := range corporateActions {
		newShares, oldShares, ok := ibreconsplit.ParseSplitDescription(corporateAction.Description)
		if !ok {
			continue
		}
		effectiveDate, err := xtime.ParseCompactDate(corporateAction.ReportDate)
		if err != nil {
			return fmt.Errorf("split of %s: report date: %w", corporateAction.Symbol, err)
		}
		p.splitEvents = append(p.splitEvents, ibrecondata.SplitEvent{
			Keys: ibrecondata.SecurityKeys{
				ISIN:   corporateAction.ISIN,
				Conid:  corporateAction.Conid,
				Symbol: corporateAction.Symbol,
			},
			EffectiveDate: effectiveDate,
			New:           newShares,
			Old:           oldShares,
		})
	}
	return nil
}

func newTrade(row ibkrflexquery.XMLTradeRow) (*ibrecondata.Trade, error) {
	tradeDate, tradeTime, err := rowDateTime(row)
	if err != nil {
		return nil, err
	}
	quantity, err := decimal.NewFromString(row.Quantity)
	if err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}
	priceString := row.TradePrice
	// An exercised option trades at zero; the settlement price is the close price.
	if row.AssetCategory == "OPT" && hasNote(row.Notes, "Ex") && row.ClosePrice != "" {
		priceString = row.ClosePrice
	}
	price, err := decimal.NewFromString(priceString)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	if row.Multiplier != "" {
		multiplier, err := decimal.NewFromString(row.Multiplier)
		if err != nil {
			return nil, fmt.Errorf("multiplier: %w", err)
		}
		price = price.Mul(multiplier)
	}
	openCloseIndicator, err := ibrecondata.ParseOpenCloseIndicator(row.OpenCloseIndicator)
	if err != nil {
		return nil, err
	}
	return &ibrecondata.Trade{
		Keys: ibrecondata.SecurityKeys{
			ISIN:       row.ISIN,
			CUSIP:      row.Cusip,
			SecurityID: row.SecurityID,
			Conid:      row.Conid,
			Symbol:     row.Symbol,
		},
		Currency:           row.Currency,
		AssetCategory:      row.AssetCategory,
		Description:        row.Description,
		Quantity:           quantity,
		Price:              price,
		TradeDate:          tradeDate,
		TradeTime:          tradeTime,
		TransactionID:      row.TransactionID,
		OrderID:            row.IBOrderID,
		OpenCloseIndicator: openCloseIndicator,
	}, nil
}

func newOpenLot(row ibkrflexquery.XMLTradeRow) (ibrecondata.OpenLot, error) {
	openDate, _, err := rowDateTime(row)
	if err != nil {
		return ibrecondata.OpenLot{}, err
	}
	quantity, err := decimal.NewFromString(row.Quantity)
	if err != nil {
		return ibrecondata.OpenLot{}, fmt.Errorf("quantity: %w", err)
	}
	return ibrecondata.OpenLot{
		TransactionID: row.TransactionID,
		Quantity:      quantity,
		Date:          openDate,
	}, nil
}

// rowDateTime returns the date and HHMMSS time of a row. dateTime is
// preferred; older statements only carry tradeDate and tradeTime.
func rowDateTime(row ibkrflexquery.XMLTradeRow) (xtime.Date, string, error) {
	if dateString, timeString, ok := strings.Cut(row.DateTime, ";"); ok {
		date, err := xtime.ParseCompactDate(dateString)
		if err != nil {
			return xtime.Date{}, "", fmt.Errorf("dateTime: %w", err)
		}
		return date, timeString, nil
	}
	dateString := row.TradeDate
	if dateString == "" {
		dateString = row.DateTime
	}
	date, err := xtime.ParseCompactDate(dateString)
	if err != nil {
		return xtime.Date{}, "", fmt.Errorf("tradeDate: %w", err)
	}
	timeString := row.TradeTime
	if timeString == "" {
		timeString = "000000"
	}
	return date, timeString, nil
}

func hasNote(notes string, code string) bool {
	return slices.Contains(strings.Split(notes, ";"), code)
}
