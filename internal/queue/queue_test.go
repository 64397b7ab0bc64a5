package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"svn-migrate/internal/adapter/replay"
	"svn-migrate/pkg/constants"
	pkgErrors "svn-migrate/pkg/errors"
)

func TestDispatcherConcurrencyLimit(t *testing.T) {
	var active, peak int32
	block := make(chan struct{})

	exec := func(ctx context.Context, job *Job) error {
		cur := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		<-block
		atomic.AddInt32(&active, -1)
		return nil
	}

	d := NewDispatcher(2, 1, exec, zap.NewNop())
	d.Start()

	for i := 0; i < 5; i++ {
		job := NewJob(constants.JobTypeMigration, fmt.Sprintf("rec-%d", i), replay.Params{})
		require.NoError(t, d.Enqueue(job))
	}

	require.Eventually(t, func() bool {
		return d.GetStatus().Migration.Active == 2
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, 3, d.GetStatus().Migration.Waiting)

	close(block)
	require.Eventually(t, func() bool {
		return d.GetStatus().Migration.Completed == 5
	}, 2*time.Second, 10*time.Millisecond)

	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	d.Stop()
}

func TestDispatcherFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	exec := func(ctx context.Context, job *Job) error {
		mu.Lock()
		order = append(order, job.RecordID)
		mu.Unlock()
		return nil
	}

	d := NewDispatcher(1, 1, exec, zap.NewNop())
	d.Start()
	defer d.Stop()

	for i := 0; i < 4; i++ {
		require.NoError(t, d.Enqueue(NewJob(constants.JobTypeMigration, fmt.Sprintf("rec-%d", i), replay.Params{})))
	}

	require.Eventually(t, func() bool {
		return d.GetStatus().Migration.Completed == 4
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"rec-0", "rec-1", "rec-2", "rec-3"}, order)
}

func TestDispatcherRejectsDuplicateRecord(t *testing.T) {
	block := make(chan struct{})
	exec := func(ctx context.Context, job *Job) error {
		<-block
		return nil
	}

	d := NewDispatcher(1, 1, exec, zap.NewNop())
	d.Start()

	require.NoError(t, d.Enqueue(NewJob(constants.JobTypeMigration, "rec-1", replay.Params{})))

	// 同队列重复入队
	err := d.Enqueue(NewJob(constants.JobTypeMigration, "rec-1", replay.Params{}))
	require.Error(t, err)
	require.True(t, pkgErrors.IsCode(err, pkgErrors.CodeDuplicateJob))

	// 跨队列也拒绝: 同一记录最多一个任务
	err = d.Enqueue(NewJob(constants.JobTypeSync, "rec-1", replay.Params{}))
	require.True(t, pkgErrors.IsCode(err, pkgErrors.CodeDuplicateJob))

	require.True(t, d.IsBusy("rec-1"))

	close(block)
	require.Eventually(t, func() bool { return !d.IsBusy("rec-1") }, time.Second, 10*time.Millisecond)
	d.Stop()
}

func TestDispatcherCancelWaitingJob(t *testing.T) {
	block := make(chan struct{})
	exec := func(ctx context.Context, job *Job) error {
		<-block
		return nil
	}

	d := NewDispatcher(1, 1, exec, zap.NewNop())
	d.Start()

	require.NoError(t, d.Enqueue(NewJob(constants.JobTypeMigration, "rec-active", replay.Params{})))
	require.Eventually(t, func() bool {
		return d.GetStatus().Migration.Active == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, d.Enqueue(NewJob(constants.JobTypeMigration, "rec-waiting", replay.Params{})))

	found, wasActive := d.Cancel("rec-waiting")
	require.True(t, found)
	require.False(t, wasActive)
	require.False(t, d.IsBusy("rec-waiting"))
	require.Equal(t, 0, d.GetStatus().Migration.Waiting)

	// 不存在的记录
	found, _ = d.Cancel("rec-unknown")
	require.False(t, found)

	close(block)
	d.Stop()
}

func TestDispatcherCancelActiveJob(t *testing.T) {
	started := make(chan struct{})
	exec := func(ctx context.Context, job *Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}

	d := NewDispatcher(1, 1, exec, zap.NewNop())
	d.Start()
	defer d.Stop()

	require.NoError(t, d.Enqueue(NewJob(constants.JobTypeMigration, "rec-1", replay.Params{})))
	<-started

	found, wasActive := d.Cancel("rec-1")
	require.True(t, found)
	require.True(t, wasActive)

	require.Eventually(t, func() bool { return !d.IsBusy("rec-1") }, time.Second, 10*time.Millisecond)

	// 操作员取消不计入完成与失败
	stats := d.GetStatus().Migration
	require.Equal(t, int64(0), stats.Completed)
	require.Equal(t, int64(0), stats.Failed)
}

func TestDispatcherCountsFailures(t *testing.T) {
	exec := func(ctx context.Context, job *Job) error {
		return fmt.Errorf("boom")
	}

	d := NewDispatcher(1, 1, exec, zap.NewNop())
	d.Start()
	defer d.Stop()

	require.NoError(t, d.Enqueue(NewJob(constants.JobTypeMigration, "rec-1", replay.Params{})))
	require.Eventually(t, func() bool {
		return d.GetStatus().Migration.Failed == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDispatcherSetLimit(t *testing.T) {
	block := make(chan struct{})
	exec := func(ctx context.Context, job *Job) error {
		<-block
		return nil
	}

	d := NewDispatcher(1, 1, exec, zap.NewNop())
	d.Start()

	require.Error(t, d.SetLimit(constants.JobTypeMigration, 0))
	require.Error(t, d.SetLimit(constants.JobTypeMigration, 11))
	require.Error(t, d.SetLimit("unknown", 2))

	require.NoError(t, d.Enqueue(NewJob(constants.JobTypeMigration, "rec-1", replay.Params{})))
	require.NoError(t, d.Enqueue(NewJob(constants.JobTypeMigration, "rec-2", replay.Params{})))

	require.Eventually(t, func() bool {
		return d.GetStatus().Migration.Active == 1
	}, time.Second, 10*time.Millisecond)

	// 上调并发数后等待中的任务应被准入
	require.NoError(t, d.SetLimit(constants.JobTypeMigration, 2))
	require.Eventually(t, func() bool {
		return d.GetStatus().Migration.Active == 2
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, 2, d.GetStatus().Migration.Limit)

	close(block)
	d.Stop()
}

func TestDispatcherCleanupResolved(t *testing.T) {
	exec := func(ctx context.Context, job *Job) error { return nil }

	d := NewDispatcher(1, 1, exec, zap.NewNop())
	d.Start()
	defer d.Stop()

	require.NoError(t, d.Enqueue(NewJob(constants.JobTypeMigration, "rec-1", replay.Params{})))
	require.Eventually(t, func() bool {
		return d.GetStatus().Migration.Completed == 1
	}, time.Second, 10*time.Millisecond)

	d.CleanupResolved()
	require.Equal(t, int64(0), d.GetStatus().Migration.Completed)
}

func TestDispatcherStopRejectsEnqueue(t *testing.T) {
	d := NewDispatcher(1, 1, func(ctx context.Context, job *Job) error { return nil }, zap.NewNop())
	d.Start()
	d.Stop()

	err := d.Enqueue(NewJob(constants.JobTypeMigration, "rec-1", replay.Params{}))
	require.Error(t, err)
}
