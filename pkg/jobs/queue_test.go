package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsSameKeySerially(t *testing.T) {
	var (
		mu      sync.Mutex
		running = map[string]int{}
		overlap int32
		done    sync.WaitGroup
	)
	handler := func(ctx context.Context, job Job) error {
		defer done.Done()
		mu.Lock()
		running[job.Key]++
		if running[job.Key] > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		running[job.Key]--
		mu.Unlock()
		return nil
	}

	q := NewQueue("test", handler, QueueConfig{Workers: 4, BufferSize: 64})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 12; i++ {
		done.Add(1)
		key := "2024/2025:1"
		if i%2 == 0 {
			key = "2024/2025:2"
		}
		require.NoError(t, q.Enqueue(context.Background(), Job{ID: "job", Key: key}))
	}
	done.Wait()
	assert.Equal(t, int32(0), atomic.LoadInt32(&overlap))
}

func TestQueueShardIsStablePerKey(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{Workers: 8})
	first := q.shardFor("2024/2025:1")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, q.shardFor("2024/2025:1"))
	}
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts int32
	gaveUp := make(chan Job, 1)
	handler := func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("transient")
	}

	q := NewQueue("test", handler, QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		GiveUp:     func(job Job, err error) { gaveUp <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "job-1", Key: "k"}))

	select {
	case job := <-gaveUp:
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was never abandoned")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueuePermanentErrorSkipsRetry(t *testing.T) {
	var attempts int32
	gaveUp := make(chan error, 1)
	handler := func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return Permanent(errors.New("bad input"))
	}

	q := NewQueue("test", handler, QueueConfig{
		Workers:    1,
		MaxRetries: 5,
		RetryDelay: time.Millisecond,
		GiveUp:     func(job Job, err error) { gaveUp <- err },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "job-1"}))

	select {
	case err := <-gaveUp:
		assert.True(t, IsPermanent(err))
		assert.EqualError(t, err, "bad input")
	case <-time.After(2 * time.Second):
		t.Fatal("job was never abandoned")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestQueueStopAbandonsPendingRetry(t *testing.T) {
	ran := make(chan struct{}, 1)
	gaveUp := make(chan error, 1)
	handler := func(ctx context.Context, job Job) error {
		ran <- struct{}{}
		return errors.New("transient")
	}

	q := NewQueue("test", handler, QueueConfig{
		Workers:    1,
		MaxRetries: 3,
		RetryDelay: time.Minute,
		GiveUp:     func(job Job, err error) { gaveUp <- err },
	})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "job-1"}))
	<-ran
	q.Stop()

	select {
	case err := <-gaveUp:
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, IsPermanent(err))
	case <-time.After(2 * time.Second):
		t.Fatal("pending retry was never abandoned")
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(context.Background(), Job{ID: "job-1"}))
}
