// Copyright 2026 Peter Edge
//
// All rights reserved.

package datazip

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteArchive(t *testing.T) {
	t.Parallel()
	dirPath := t.TempDir()
	writeFile(t, filepath.Join(dirPath, "ibrecon.yaml"), "version: v1\n")
	writeFile(t, filepath.Join(dirPath, ".env"), "IBKR_TOKEN=secret\n")
	writeFile(t, filepath.Join(dirPath, "statements", "1-20230101-20231231.xml"), "<FlexQueryResponse/>")
	writeFile(t, filepath.Join(dirPath, "cache", "fx", "EUR.USD", "2023.csv"), "date,rate\n")
	writeFile(t, filepath.Join(dirPath, "notes.txt"), "unrelated")

	var buffer bytes.Buffer
	count, err := writeArchive(&buffer, dirPath)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	reader, err := zip.NewReader(bytes.NewReader(buffer.Bytes()), int64(buffer.Len()))
	require.NoError(t, err)
	var names []string
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	require.Equal(
		t,
		[]string{
			"ibrecon.yaml",
			"statements/1-20230101-20231231.xml",
			"cache/fx/EUR.USD/2023.csv",
		},
		names,
	)
}

func TestWriteArchiveMissingInputs(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	count, err := writeArchive(&buffer, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
