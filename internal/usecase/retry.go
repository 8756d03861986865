package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type RetryOptions struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}
}

// RetryPolicy は一時的な失敗だけを指数バックオフで再試行する
type RetryPolicy struct {
	opts   RetryOptions
	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

func NewRetryPolicy(opts RetryOptions, logger *zap.Logger) *RetryPolicy {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BackoffFactor < 1 {
		opts.BackoffFactor = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryPolicy{
		opts:   opts,
		sleep:  sleepContext,
		logger: logger,
	}
}

// WithSleep は待機処理を差し替える（テスト用）
func (p *RetryPolicy) WithSleep(fn func(ctx context.Context, d time.Duration) error) *RetryPolicy {
	cp := *p
	cp.sleep = fn
	return &cp
}

// Do はopを最大MaxAttempts回実行する。
// 再試行できないエラーや最後のエラーはそのまま返す
func (p *RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	delay := p.opts.InitialDelay
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.opts.MaxAttempts || !IsRetryable(err) {
			return err
		}

		wait := delay
		if p.opts.MaxDelay > 0 && wait > p.opts.MaxDelay {
			wait = p.opts.MaxDelay
		}
		p.logger.Warn("retrying request",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		//待機中にキャンセルされたら止める
		if serr := p.sleep(ctx, wait); serr != nil {
			return fmt.Errorf("%w: %w", serr, err)
		}
		delay = time.Duration(float64(delay) * p.opts.BackoffFactor)
	}
}

// WithRetry は値を返す操作用
func WithRetry[T any](ctx context.Context, p *RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
