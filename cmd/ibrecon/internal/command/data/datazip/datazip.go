// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package datazip implements the "data zip" command.
package datazip

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/ibreconcmd"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconpath"
	"github.com/spf13/pflag"
)

// outputFlagName is the flag name for the output zip file path.
const outputFlagName = "output"

// NewCommand returns a new data zip command that archives the reconciliation inputs.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Archive the configuration, statements and exchange rates to a zip file",
		Long:  "Archives everything a reconciliation reads from the ibrecon directory. The .env file is never archived.",
		Args:  appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	Dir string
	// Output is the path to the output zip file.
	Output string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Dir, ibreconcmd.DirFlagName, ".", ibreconcmd.DirFlagUsage)
	flagSet.StringVarP(&f.Output, outputFlagName, "o", "", "Output zip file path (required)")
}

func run(_ context.Context, container appext.Container, flags *flags) error {
	if flags.Output == "" {
		return appcmd.NewInvalidArgumentError("--output (-o) is required")
	}
	if !strings.HasSuffix(flags.Output, ".zip") {
		return appcmd.NewInvalidArgumentError("output file must have a .zip extension")
	}
	dirPath, err := ibreconcmd.DirPath(flags.Dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(dirPath)
	if err != nil {
		return fmt.Errorf("base directory not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dirPath)
	}
	outputFile, err := os.Create(flags.Output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer outputFile.Close()
	count, err := writeArchive(outputFile, dirPath)
	if err != nil {
		return fmt.Errorf("creating zip archive: %w", err)
	}
	container.Logger().Info("zip archive created", "path", flags.Output, "files", count)
	return nil
}

// writeArchive writes the config file, statements and exchange rates under
// dirPath to writer as a zip archive, returning the number of files written.
// Missing inputs are skipped.
func writeArchive(writer io.Writer, dirPath string) (int, error) {
	zipWriter := zip.NewWriter(writer)
	var count int
	for _, path := range []string{
		ibreconpath.ConfigFilePath(dirPath),
		ibreconpath.StatementsDirPath(dirPath),
		ibreconpath.CacheFXDirPath(dirPath),
	} {
		err := filepath.WalkDir(path, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			relPath, err := filepath.Rel(dirPath, path)
			if err != nil {
				return err
			}
			if err := addFile(zipWriter, path, filepath.ToSlash(relPath)); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, err
		}
	}
	if err := zipWriter.Close(); err != nil {
		return 0, fmt.Errorf("finalizing zip archive: %w", err)
	}
	return count, nil
}

func addFile(zipWriter *zip.Writer, path string, name string) error {
	writer, err := zipWriter.Create(name)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(writer, file)
	return err
}
