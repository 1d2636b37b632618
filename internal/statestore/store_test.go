package statestore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGetRemove(t *testing.T) {
	s := New()

	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Set("task_count", 3)
	v, ok := s.Get("task_count")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	s.Remove("task_count")
	_, ok = s.Get("task_count")
	assert.False(t, ok)
}

func TestIncrementTotalTasksExecuted(t *testing.T) {
	s := New()
	assert.Equal(t, int64(0), s.TotalTasksExecuted())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncrementTotalTasksExecuted()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), s.TotalTasksExecuted())
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := New()
	s.Set("current_task", "abc")

	snap := s.Snapshot()
	snap["current_task"] = "mutated"

	v, _ := s.Get("current_task")
	assert.Equal(t, "abc", v)
}
