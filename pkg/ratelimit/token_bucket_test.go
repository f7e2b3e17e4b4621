package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllow(t *testing.T) {
	// 容量2，初始可立即通过2个请求
	tb := NewTokenBucket(60, 2)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "令牌用尽后应拒绝")
}

func TestTokenBucketRefill(t *testing.T) {
	// 每秒60个令牌，耗尽后很快恢复
	tb := NewTokenBucket(3600, 1)
	require.True(t, tb.Allow())
	require.False(t, tb.Allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, tb.Allow(), "等待后应重新生成令牌")
}

func TestTokenBucketWaitRespectsContext(t *testing.T) {
	// 极低速率，令牌耗尽后Wait应被上下文取消打断
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryWithBackoffRetriesTransientError(t *testing.T) {
	tb := NewTokenBucket(6000, 10).WithRetryPolicy(time.Millisecond, 3)

	calls := 0
	err := tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("429 Too Many Requests")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	tb := NewTokenBucket(6000, 10).WithRetryPolicy(time.Millisecond, 3)

	calls := 0
	err := tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		return fmt.Errorf("invalid api key")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "不可重试错误不应重试")
}

func TestNewTokenBucketDefaultCapacity(t *testing.T) {
	tb := NewTokenBucket(60, 0)
	assert.Equal(t, 30.0, tb.capacity, "未指定容量时取QPM的一半")

	tb = NewTokenBucket(1, 0)
	assert.Equal(t, 1.0, tb.capacity, "容量至少为1")
}
