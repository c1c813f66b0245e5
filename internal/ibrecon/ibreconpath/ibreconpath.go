// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconpath derives file and directory paths from the ibrecon base
// directory. All layout is defined here so callers don't duplicate path
// construction logic.
//
// The base directory (--dir flag) contains:
//
//	ibrecon.yaml                 Config file
//	.env                         Optional IBKR_TOKEN fallback
//	statements/                  Flex Query XML statements, one per download
//	cache/fx/<BASE>.<QUOTE>/     FX rate data
package ibreconpath

import "path/filepath"

const (
	// ConfigFileName is the well-known config file name within the base directory.
	ConfigFileName = "ibrecon.yaml"
	// EnvFileName is the name of the optional environment file within the base directory.
	EnvFileName = ".env"
	// StatementFileExt is the extension of statement files.
	StatementFileExt = ".xml"
)

// ConfigFilePath returns the path to the config file within the base directory.
func ConfigFilePath(dirPath string) string {
	return filepath.Join(dirPath, ConfigFileName)
}

// EnvFilePath returns the path to the environment file within the base directory.
func EnvFilePath(dirPath string) string {
	return filepath.Join(dirPath, EnvFileName)
}

// StatementsDirPath returns the directory for Flex Query statements.
func StatementsDirPath(dirPath string) string {
	return filepath.Join(dirPath, "statements")
}

// StatementFilePath returns the path of the statement downloaded for a query
// and date range, dates in YYYYMMDD form.
func StatementFilePath(dirPath string, queryID string, from string, to string) string {
	return filepath.Join(StatementsDirPath(dirPath), queryID+"-"+from+"-"+to+StatementFileExt)
}

// CacheFXDirPath returns the directory for cached FX rate data.
func CacheFXDirPath(dirPath string) string {
	return filepath.Join(dirPath, "cache", "fx")
}
