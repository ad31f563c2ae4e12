package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueryMessageLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logFn := queryMessageLog(zap.New(core))

	logFn(context.Background(), tracelog.LogLevelInfo, "Query", map[string]any{
		"sql":  "SELECT 1",
		"args": []any{},
		"time": "1ms",
	})
	logFn(context.Background(), tracelog.LogLevelDebug, "Prepare", map[string]any{"sql": "SELECT 1"})
	logFn(context.Background(), tracelog.LogLevelError, "Query", map[string]any{"err": "boom"})

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, "Query\nSELECT 1", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, []string{"args", "time"}, []string{entries[0].Context[0].Key, entries[0].Context[1].Key})

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestNewDBBadConnString(t *testing.T) {
	_, err := NewDB(context.Background(), zap.NewNop(), Config{Conn: "postgres://user@host:notaport/db"})
	assert.Error(t, err)
}
