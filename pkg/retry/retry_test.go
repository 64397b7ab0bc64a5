package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{BaseDelay: time.Millisecond, MaxAttempts: 3}, func() (bool, error) {
		calls++
		return false, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{BaseDelay: time.Millisecond, MaxAttempts: 5}, func() (bool, error) {
		calls++
		if calls < 3 {
			return true, fmt.Errorf("临时故障")
		}
		return false, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{BaseDelay: time.Millisecond, MaxAttempts: 5}, func() (bool, error) {
		calls++
		return false, fmt.Errorf("永久故障")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{BaseDelay: time.Millisecond, MaxAttempts: 3}, func() (bool, error) {
		calls++
		return true, fmt.Errorf("一直失败")
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestDoRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Policy{BaseDelay: time.Minute, MaxAttempts: 3}, func() (bool, error) {
		return true, fmt.Errorf("临时故障")
	})
	require.ErrorIs(t, err, context.Canceled)
}
