package oracle

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// JournalEntry is one line of the call journal.
type JournalEntry struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timeout   bool      `json:"timeout,omitempty"`
	Duration  float64   `json:"duration_seconds"`
}

// Journal records every call of the wrapped oracle as a JSON line.
type Journal struct {
	next  Oracle
	log   *zap.Logger
	runID uuid.UUID

	mu  sync.Mutex
	enc *json.Encoder

	now func() time.Time
}

func NewJournal(log *zap.Logger, next Oracle, w io.Writer, runID uuid.UUID) *Journal {
	return &Journal{
		next:  next,
		log:   log.Named("journal"),
		runID: runID,
		enc:   json.NewEncoder(w),
		now:   time.Now,
	}
}

// OpenJournalFile opens path for appending, creating parent directories.
func OpenJournalFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, xerrors.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, xerrors.Errorf("open journal: %w", err)
	}
	return f, nil
}

var _ Oracle = (*Journal)(nil)

func (j *Journal) Complete(ctx context.Context, prompt string) (string, error) {
	start := j.now()
	response, err := j.next.Complete(ctx, prompt)

	entry := JournalEntry{
		ID:        uuid.New(),
		RunID:     j.runID,
		Timestamp: start.UTC(),
		Prompt:    prompt,
		Response:  response,
		Duration:  j.now().Sub(start).Seconds(),
	}
	if err != nil {
		entry.Error = err.Error()
		entry.Timeout = IsTimeout(err)
		j.log.Warn("oracle call failed",
			zap.Stringer("id", entry.ID),
			zap.Bool("timeout", entry.Timeout),
			zap.Error(err))
	} else {
		j.log.Info("oracle call",
			zap.Stringer("id", entry.ID),
			zap.Int("prompt_length", len(prompt)),
			zap.Int("response_length", len(response)))
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if werr := j.enc.Encode(entry); werr != nil {
		j.log.Error("write journal entry", zap.Error(werr))
	}
	return response, err
}
