package oracle

import (
	"context"
	"errors"
	"time"
)

type timeoutOracle struct {
	next    Oracle
	timeout time.Duration
}

// WithTimeout bounds every call of o by d. Expiry is reported as *TimeoutError
// even when o ignores the context; other failures become *CallError unless o
// already classified them.
func WithTimeout(o Oracle, d time.Duration) Oracle {
	return &timeoutOracle{next: o, timeout: d}
}

type completion struct {
	text string
	err  error
}

func (t *timeoutOracle) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan completion, 1)
	go func() {
		text, err := t.next.Complete(ctx, prompt)
		done <- completion{text: text, err: err}
	}()

	var res completion
	select {
	case res = <-done:
	case <-ctx.Done():
		return "", t.classify(ctx, ctx.Err())
	}
	if res.err != nil {
		return "", t.classify(ctx, res.err)
	}
	return res.text, nil
}

func (t *timeoutOracle) classify(ctx context.Context, err error) error {
	var (
		te *TimeoutError
		ce *CallError
	)
	switch {
	case errors.As(err, &te):
		if te.Timeout == 0 {
			te.Timeout = t.timeout
		}
		return err
	case errors.As(err, &ce):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &TimeoutError{Timeout: t.timeout, Err: err}
	default:
		return &CallError{Provider: "oracle", Err: err}
	}
}
