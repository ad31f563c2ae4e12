package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/enrich"
)

const (
	intermediateDir = "intermediate"
	finalDir        = "final"
	logsDir         = "logs"
)

func createDirIfNotExist(path string) error {
	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		// Папка не существует, создаем ее
		err = os.MkdirAll(path, 0o755) //nolint:gomnd // dir mode
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	} else if !fileInfo.IsDir() {
		// Это не папка, возвращаем ошибку
		return &os.PathError{Op: "mkdir", Path: path, Err: os.ErrExist}
	}
	return nil
}

func dumpToFile(fileName string, f func(w io.Writer) error) (err error) {
	file, err := os.Create(fileName)
	if err != nil {
		return xerrors.Errorf("create output file for dump: %w", err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	return f(file)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// dumpIntermediate writes v as indented JSON into the intermediate directory.
func (b *BaseCommand) dumpIntermediate(name string, v any) error {
	dir := filepath.Join(b.cnf.OutputDir, intermediateDir)
	if err := createDirIfNotExist(dir); err != nil {
		return cli.Exit(xerrors.Errorf("create intermediate dir: %w", err), exitOutput)
	}
	path := filepath.Join(dir, name)
	err := dumpToFile(path, func(w io.Writer) error {
		return writeJSON(w, v)
	})
	if err != nil {
		return cli.Exit(xerrors.Errorf("dump %s: %w", name, err), exitOutput)
	}
	b.log.Info("saved intermediate data", zap.String("path", path))
	return nil
}

// dumpSnapshots writes the processed schema and usage analysis.
func (b *BaseCommand) dumpSnapshots(m *Model) error {
	if err := b.dumpIntermediate("processed_schema_data.json", enrich.NewSchemaView(m.Graph, m.Relationships)); err != nil {
		return err
	}
	return b.dumpIntermediate("usage.json", m.Usage)
}
