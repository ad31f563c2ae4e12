package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/db"
)

const (
	exitConfig   = 2
	exitDatabase = 3
	exitLoad     = 4
	exitOutput   = 5
)

func newLogger(debug bool) (*zap.Logger, error) {
	lc := zap.NewDevelopmentConfig()
	lc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	lc.DisableStacktrace = true
	if debug {
		lc.Level.SetLevel(zap.DebugLevel)
	} else {
		lc.Level.SetLevel(zap.InfoLevel)
	}
	return lc.Build()
}

// activityLog tees log into a JSON file appended under the output directory.
func activityLog(log *zap.Logger, path string) (*zap.Logger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, xerrors.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, xerrors.Errorf("open activity log: %w", err)
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(file),
		zap.DebugLevel,
	)
	log = log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	}))
	return log, file, nil
}

type flags struct {
	configPath *cli.StringFlag
	debug      *cli.BoolFlag
}

func (f *flags) Set() []cli.Flag {
	return []cli.Flag{
		f.configPath,
		f.debug,
	}
}

func newApp() *cli.App {
	f := flags{
		configPath: &cli.StringFlag{
			Name:      "config",
			Value:     "metagraph.yml",
			Usage:     "config file path",
			TakesFile: true,
			Aliases:   []string{"c"},
		},
		debug: &cli.BoolFlag{
			Name:  "debug",
			Value: false,
			Usage: "show debug information",
		},
	}

	return &cli.App{
		Name:        "metagraph",
		Usage:       "database metadata graph and documentation generator",
		Description: "loads table and column metadata, resolves foreign keys into a graph and renders diagrams",
		Flags:       f.Set(),
		Commands: []*cli.Command{
			NewLoadCommand(f).Command(),
			NewUsageCommand(f).Command(),
			NewRelatedCommand(f).Command(),
			NewRunCommand(f).Command(),
			NewSearchCommand(f).Command(),
			NewInfoCommand(f).Command(),
		},
		ExitErrHandler: func(ctx *cli.Context, err error) {
			if err == nil {
				return
			}
			if f.debug.Get(ctx) {
				fmt.Fprintf(ctx.App.ErrWriter, "%+v\n", err)
			} else {
				fmt.Fprintf(ctx.App.ErrWriter, "%v\n", err)
			}
			code := 1
			var coder cli.ExitCoder
			if errors.As(err, &coder) {
				code = coder.ExitCode()
			}
			cli.OsExiter(code)
		},
		EnableBashCompletion: true,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

type BaseCommand struct {
	log *zap.Logger
	cnf *AppConfig

	logFile *os.File
}

func NewBase(ctx *cli.Context, f flags) (BaseCommand, error) {
	var empty BaseCommand
	log, err := newLogger(f.debug.Get(ctx))
	if err != nil {
		return empty, xerrors.Errorf("create logger: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return empty, xerrors.Errorf("load .env: %w", err)
	}

	cnf, err := ReadConfig(f.configPath.Get(ctx))
	if err != nil {
		return empty, xerrors.Errorf("get config: %w", err)
	}

	log, logFile, err := activityLog(log, filepath.Join(cnf.OutputDir, "logs", "activity.log"))
	if err != nil {
		return empty, err
	}
	zap.ReplaceGlobals(log)
	log.Debug("config readed", zap.String("path", f.configPath.Get(ctx)))

	return BaseCommand{
		log:     log,
		cnf:     cnf,
		logFile: logFile,
	}, nil
}

func (b *BaseCommand) Close() error {
	if b.log == nil {
		return nil
	}
	_ = b.log.Sync()
	if b.logFile == nil {
		return nil
	}
	return b.logFile.Close()
}

func (b *BaseCommand) connectDB(ctx *cli.Context, debug bool) (*pgx.Conn, error) {
	cnf := *b.cnf.Source.DB
	if debug {
		cnf.SetDebug(true)
	}
	conn, err := db.NewDB(ctx.Context, b.log, cnf)
	if err != nil {
		return nil, xerrors.Errorf("create database connection: %w", err)
	}
	b.log.Debug("connected to database")

	return conn, nil
}

// before builds the base command. Config errors exit with exitConfig.
func (b *BaseCommand) before(f flags) cli.BeforeFunc {
	return func(ctx *cli.Context) error {
		base, err := NewBase(ctx, f)
		if err != nil {
			return cli.Exit(err, exitConfig)
		}
		*b = base
		return nil
	}
}

func (b *BaseCommand) after(*cli.Context) error {
	return b.Close()
}

// print writes v as indented JSON to the app output.
func (b *BaseCommand) print(ctx *cli.Context, v any) error {
	if err := writeJSON(ctx.App.Writer, v); err != nil {
		return cli.Exit(xerrors.Errorf("write output: %w", err), exitOutput)
	}
	return nil
}
