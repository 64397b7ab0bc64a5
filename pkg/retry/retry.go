package retry

import (
	"context"
	"time"
)

// Policy 有界指数退避策略: 固定基数, 每次翻倍, 限制总次数
type Policy struct {
	BaseDelay   time.Duration // 首次重试前的等待
	MaxAttempts int           // 最大尝试次数(含首次)
}

// DefaultPolicy 远程调用的默认重试策略
var DefaultPolicy = Policy{
	BaseDelay:   500 * time.Millisecond,
	MaxAttempts: 4,
}

// RetryableFunc 返回 (是否可重试, 错误)
type RetryableFunc func() (retryable bool, err error)

// Do 按策略执行fn, 不可重试的错误立即返回
func Do(ctx context.Context, policy Policy, fn RetryableFunc) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	delay := policy.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		retryable, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable || attempt == policy.MaxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return lastErr
}
