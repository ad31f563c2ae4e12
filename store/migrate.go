package store

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) { l.Infof(format, v...) }

func migrate(db *sql.DB, log *zap.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{log.Named("goose").Sugar()})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return xerrors.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return xerrors.Errorf("goose up: %w", err)
	}
	return nil
}
