// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package xos provides extensions to the standard os package.
package xos

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AbsPath returns the absolute, cleaned form of path after expanding a
// leading "~" or "~/" to the user's home directory.
//
// Other "~" prefixes such as "~user" are left as is.
func AbsPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		homeDirPath, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get home directory: %w", err)
		}
		path = filepath.Join(homeDirPath, path[1:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("could not resolve %q: %w", path, err)
	}
	return absPath, nil
}
