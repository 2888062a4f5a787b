// Package llm is the completion-service boundary. Pipeline stages depend only on Completer.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrTimeout     = errors.New("LLM_TIMEOUT")
	ErrUnavailable = errors.New("LLM_UNAVAILABLE")
	ErrEmpty       = errors.New("LLM_EMPTY_RESPONSE")
)

// Completer turns a prompt into text within a token budget.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return f(ctx, prompt, maxTokens, temperature)
}

// Unavailable is a Completer that always fails; it backs deployments without a completion service.
var Unavailable = CompleterFunc(func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return "", ErrUnavailable
})

// classify maps context expiry to ErrTimeout so callers can tell budget overruns apart.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	return err
}

type completion struct {
	text string
	err  error
}

// CompleteWithin calls c under a hard timeout. It returns ErrTimeout once the
// budget is spent even if c ignores its context, and ErrEmpty for blank output.
func CompleteWithin(ctx context.Context, c Completer, timeout time.Duration, prompt string, maxTokens int, temperature float64) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan completion, 1)
	go func() {
		text, err := c.Complete(ctx, prompt, maxTokens, temperature)
		done <- completion{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrTimeout
	case res := <-done:
		if res.err != nil {
			return "", classify(ctx, res.err)
		}
		if strings.TrimSpace(res.text) == "" {
			return "", ErrEmpty
		}
		return res.text, nil
	}
}
