package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBatchAllSucceed(t *testing.T) {
	var ran int64
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{Key: fmt.Sprintf("t%d", i), Run: func(ctx context.Context) error {
			atomic.AddInt64(&ran, 1)
			return nil
		}}
	}

	results := RunBatch(context.Background(), 3, tasks)
	require.Len(t, results, 10)
	assert.EqualValues(t, 10, ran)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	boom := fmt.Errorf("boom")
	tasks := []Task{
		{Key: "a", Run: func(ctx context.Context) error { return nil }},
		{Key: "b", Run: func(ctx context.Context) error { return boom }},
		{Key: "c", Run: func(ctx context.Context) error { return nil }},
	}

	results := RunBatch(context.Background(), 2, tasks)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "b", results[1].Key)
}

func TestRunBatchKeepsTaskOrder(t *testing.T) {
	tasks := make([]Task, 25)
	for i := range tasks {
		tasks[i] = Task{Key: fmt.Sprintf("t%d", i), Run: func(ctx context.Context) error { return nil }}
	}

	results := RunBatch(context.Background(), 8, tasks)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("t%d", i), r.Key)
	}
}
