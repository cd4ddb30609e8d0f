package llm

import (
	"context"
	"time"
)

// RetryConfig bounds a completion call: one timeout per attempt and at most
// one retry after a fixed backoff.
type RetryConfig struct {
	Timeout time.Duration
	Backoff time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Timeout: 90 * time.Second,
		Backoff: 2 * time.Second,
	}
}

// retryProvider decorates an LLMProvider with per-attempt timeouts and a
// single backed-off retry. Cancellation of the parent context aborts both
// the in-flight attempt and any pending retry.
type retryProvider struct {
	inner LLMProvider
	cfg   RetryConfig
}

// WithRetry wraps provider so every call runs with cfg.Timeout and is retried
// once after cfg.Backoff on failure.
func WithRetry(inner LLMProvider, cfg RetryConfig) LLMProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRetryConfig().Timeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultRetryConfig().Backoff
	}
	return &retryProvider{inner: inner, cfg: cfg}
}

func (r *retryProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	return r.do(ctx, func(attemptCtx context.Context) (string, error) {
		return r.inner.Chat(attemptCtx, history, options...)
	})
}

func (r *retryProvider) ChatStream(ctx context.Context, history []Message, onToken TokenHandler, options ...Option) (string, error) {
	// A stream that already emitted tokens must not be replayed; only the
	// first attempt may retry, so tokens are buffered until the stream starts.
	emitted := false
	guarded := func(token string) {
		emitted = true
		onToken(token)
	}

	reply, err := r.attempt(ctx, func(attemptCtx context.Context) (string, error) {
		return r.inner.ChatStream(attemptCtx, history, guarded, options...)
	})
	if err == nil || emitted {
		return reply, err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(r.cfg.Backoff):
	}

	return r.attempt(ctx, func(attemptCtx context.Context) (string, error) {
		return r.inner.ChatStream(attemptCtx, history, guarded, options...)
	})
}

func (r *retryProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return r.do(ctx, func(attemptCtx context.Context) (string, error) {
		return r.inner.Generate(attemptCtx, prompt, options...)
	})
}

func (r *retryProvider) do(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	reply, err := r.attempt(ctx, call)
	if err == nil {
		return reply, nil
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(r.cfg.Backoff):
	}

	return r.attempt(ctx, call)
}

func (r *retryProvider) attempt(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return call(attemptCtx)
}
