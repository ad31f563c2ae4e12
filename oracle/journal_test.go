package oracle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJournal(t *testing.T) {
	var buf bytes.Buffer
	runID := uuid.New()

	calls := 0
	inner := Func(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if prompt == "fail" {
			return "", &TimeoutError{Timeout: time.Second}
		}
		return "answer to " + prompt, nil
	})

	j := NewJournal(zap.NewNop(), inner, &buf, runID)

	got, err := j.Complete(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "answer to question", got)

	_, err = j.Complete(context.Background(), "fail")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, 2, calls)

	var entries []JournalEntry
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var e JournalEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)

	assert.Equal(t, runID, entries[0].RunID)
	assert.Equal(t, "question", entries[0].Prompt)
	assert.Equal(t, "answer to question", entries[0].Response)
	assert.Empty(t, entries[0].Error)

	assert.Equal(t, "fail", entries[1].Prompt)
	assert.True(t, entries[1].Timeout)
	assert.Contains(t, entries[1].Error, "timed out")
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestOpenJournalFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "oracle_calls.jsonl")

	for i := 0; i < 2; i++ {
		f, err := OpenJournalFile(path)
		require.NoError(t, err)
		j := NewJournal(zap.NewNop(), Func(func(context.Context, string) (string, error) {
			return "ok", nil
		}), f, uuid.New())
		_, err = j.Complete(context.Background(), "p")
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}
