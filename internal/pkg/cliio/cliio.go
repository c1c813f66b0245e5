// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package cliio provides output formatting for CLI commands (table, CSV, JSON).
package cliio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Format represents the output format for CLI commands.
type Format string

const (
	// FormatTable is the default table output format.
	FormatTable Format = "table"
	// FormatCSV is the CSV output format.
	FormatCSV Format = "csv"
	// FormatJSON is the newline-delimited JSON output format.
	FormatJSON Format = "json"
)

// AllFormatStrings is the list of accepted format names, for flag help.
var AllFormatStrings = []string{string(FormatTable), string(FormatCSV), string(FormatJSON)}

// ParseFormat parses a string into a Format, returning an error for unknown formats.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatTable:
		return FormatTable, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: %s", s, strings.Join(AllFormatStrings, ", "))
	}
}

// Table is tabular output with an optional totals row.
type Table struct {
	Headers []string
	Rows    [][]string
	// Totals is written after a blank line in table format and as a final
	// record in CSV format. Nil means no totals.
	Totals []string
}

// Write writes the table in the given format. For FormatJSON, objects are
// written instead of the table.
func Write[O any](writer io.Writer, format Format, table Table, objects []O) error {
	switch format {
	case FormatTable:
		if table.Totals != nil {
			return WriteTableWithTotals(writer, table.Headers, table.Rows, table.Totals)
		}
		return WriteTable(writer, table.Headers, table.Rows)
	case FormatCSV:
		records := make([][]string, 0, len(table.Rows)+2)
		records = append(records, table.Headers)
		records = append(records, table.Rows...)
		if table.Totals != nil {
			records = append(records, table.Totals)
		}
		return WriteCSVRecords(writer, records)
	case FormatJSON:
		return WriteJSON(writer, objects...)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// WriteTable writes tabular data to the writer using tabwriter for aligned columns.
func WriteTable(writer io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	if err := writeTabRows(tw, headers, rows); err != nil {
		return err
	}
	return tw.Flush()
}

// WriteTableWithTotals writes a table followed by a blank line and a totals row,
// all through the same tabwriter so columns align between data and totals.
func WriteTableWithTotals(writer io.Writer, headers []string, rows [][]string, totalsRow []string) error {
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	if err := writeTabRows(tw, headers, rows); err != nil {
		return err
	}
	// Tabs in the blank line keep the column alignment.
	if _, err := fmt.Fprintln(tw, strings.Join(make([]string, len(headers)), "\t")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(tw, strings.Join(totalsRow, "\t")); err != nil {
		return err
	}
	return tw.Flush()
}

// WriteCSVRecords writes CSV records to the writer.
func WriteCSVRecords(writer io.Writer, records [][]string) error {
	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.WriteAll(records); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteJSON writes objects as JSON with newlines between each object.
func WriteJSON[O any](writer io.Writer, objects ...O) error {
	encoder := json.NewEncoder(writer)
	for _, object := range objects {
		if err := encoder.Encode(object); err != nil {
			return err
		}
	}
	return nil
}

// *** PRIVATE ***

func writeTabRows(tw *tabwriter.Writer, headers []string, rows [][]string) error {
	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}
