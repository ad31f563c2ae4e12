package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

// Config of the metadata source connection.
type Config struct {
	Conn           string
	ConnectTimeout time.Duration
	debug          bool
}

func (c *Config) SetDebug(debug bool) { c.debug = debug }

// NewDB connects to the database whose catalog is read by the postgres source.
// In debug mode every query is traced to the logger.
func NewDB(
	ctx context.Context,
	logger *zap.Logger,
	cfg Config,
) (*pgx.Conn, error) {
	cnf, err := pgx.ParseConfig(cfg.Conn)
	if err != nil {
		return nil, xerrors.Errorf("parse connection string: %w", err)
	}
	if cfg.ConnectTimeout > 0 {
		cnf.ConnectTimeout = cfg.ConnectTimeout
	}

	if cfg.debug {
		cnf.Tracer = &tracelog.TraceLog{
			Logger:   tracelog.LoggerFunc(queryMessageLog(logger.Named("pgx"))),
			LogLevel: tracelog.LogLevelDebug,
		}
	}

	c, err := pgx.ConnectConfig(ctx, cnf)
	if err != nil {
		return nil, xerrors.Errorf("connect to database: %w", err)
	}
	return c, nil
}

func queryMessageLog(log *zap.Logger) func(
	ctx context.Context,
	level tracelog.LogLevel,
	msg string,
	data map[string]any,
) {
	return func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		// подготовка запроса дублирует сам запрос
		if msg == "Prepare" {
			return
		}

		keys := maps.Keys(data)
		slices.Sort(keys)

		fields := make([]zapcore.Field, 0, len(data))
		for _, k := range keys {
			f := zap.Any(k, data[k])
			if f.Key == "sql" && f.Type == zapcore.StringType {
				msg = msg + "\n" + f.String
				continue
			}
			fields = append(fields, f)
		}

		if ce := log.Check(traceLevel(level), msg); ce != nil {
			ce.Write(fields...)
		}
	}
}

func traceLevel(level tracelog.LogLevel) zapcore.Level {
	switch level {
	case tracelog.LogLevelInfo:
		return zapcore.InfoLevel
	case tracelog.LogLevelWarn:
		return zapcore.WarnLevel
	case tracelog.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}
