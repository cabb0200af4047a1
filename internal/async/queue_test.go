package async

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll_BoundedConcurrency(t *testing.T) {
	var running, peak int32
	var tasks []Task[int]
	for i := 0; i < 10; i++ {
		i := i
		tasks = append(tasks, Task[int]{ID: fmt.Sprint(i), Run: func(ctx context.Context) (int, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return i * i, nil
		}})
	}

	out := RunAll(context.Background(), nil, tasks, WithWorkers(3))
	require.Len(t, out, 10)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))

	sum := 0
	for _, o := range out {
		require.NoError(t, o.Err)
		sum += o.Value
	}
	assert.Equal(t, 285, sum)
}

func TestRunAll_CompletionOrder(t *testing.T) {
	delays := map[string]time.Duration{"slow": 80 * time.Millisecond, "fast": 0}
	var tasks []Task[string]
	for _, id := range []string{"slow", "fast"} {
		id := id
		tasks = append(tasks, Task[string]{ID: id, Run: func(context.Context) (string, error) {
			time.Sleep(delays[id])
			return id, nil
		}})
	}
	out := RunAll(context.Background(), nil, tasks, WithWorkers(2))
	require.Len(t, out, 2)
	assert.Equal(t, "fast", out[0].ID)
	assert.Equal(t, "slow", out[1].ID)
}

func TestRunAll_ErrorsAndPanicsAreIsolated(t *testing.T) {
	tasks := []Task[int]{
		{ID: "ok", Run: func(context.Context) (int, error) { return 1, nil }},
		{ID: "err", Run: func(context.Context) (int, error) { return 0, errors.New("boom") }},
		{ID: "panic", Run: func(context.Context) (int, error) { panic("kaboom") }},
		{ID: "ok2", Run: func(context.Context) (int, error) { return 2, nil }},
	}
	out := RunAll(context.Background(), nil, tasks, WithWorkers(2))
	require.Len(t, out, 4)

	byID := map[string]Outcome[int]{}
	for _, o := range out {
		byID[o.ID] = o
	}
	assert.NoError(t, byID["ok"].Err)
	assert.NoError(t, byID["ok2"].Err)
	assert.EqualError(t, byID["err"].Err, "boom")
	assert.ErrorContains(t, byID["panic"].Err, "kaboom")
}

func TestRunAll_CancelledReportsEveryTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tasks := make([]Task[int], 0, 6)
	for i := 0; i < 6; i++ {
		i := i
		tasks = append(tasks, Task[int]{ID: fmt.Sprintf("t%d", i), Run: func(ctx context.Context) (int, error) {
			if i == 0 {
				cancel()
				return i, nil
			}
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			return i, nil
		}})
	}

	outs := RunAll(ctx, nil, tasks, WithWorkers(1), WithQueueSize(1))
	require.Len(t, outs, len(tasks))

	ids := map[string]bool{}
	for _, o := range outs {
		ids[o.ID] = true
		if o.ID == "t0" {
			assert.NoError(t, o.Err)
			continue
		}
		assert.ErrorIs(t, o.Err, context.Canceled, o.ID)
	}
	assert.Len(t, ids, len(tasks))
}

func TestTaskTimeout(t *testing.T) {
	tasks := []Task[int]{{ID: "t", Run: func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}}}
	out := RunAll(context.Background(), nil, tasks, WithTaskTimeout(20*time.Millisecond))
	require.Len(t, out, 1)
	assert.ErrorIs(t, out[0].Err, context.DeadlineExceeded)
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := NewPool[int](context.Background(), nil, WithWorkers(1), WithQueueSize(1))
	require.NoError(t, p.Shutdown(context.Background()))
	err := p.Submit(context.Background(), Task[int]{ID: "late"})
	assert.ErrorIs(t, err, ErrPoolClosed)

	_, open := <-p.Results()
	assert.False(t, open)
}
