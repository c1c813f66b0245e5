// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibreconpath

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	t.Parallel()
	dirPath := filepath.Join("home", "taxes")
	require.Equal(t, filepath.Join(dirPath, "ibrecon.yaml"), ConfigFilePath(dirPath))
	require.Equal(t, filepath.Join(dirPath, ".env"), EnvFilePath(dirPath))
	require.Equal(t, filepath.Join(dirPath, "statements", "123-20230101-20231231.xml"), StatementFilePath(dirPath, "123", "20230101", "20231231"))
	require.Equal(t, filepath.Join(dirPath, "cache", "fx"), CacheFXDirPath(dirPath))
}
