package launcher

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mlops-launch/internal/domain/job"
)

// TestMatchedResults stores only GPU matched answers and is safe for concurrent use.
func TestMatchedResults(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, t.TempDir())

	_, ok := manager.GetMatchedResult("")
	require.False(t, ok)

	manager.UpdateMatchedResultIfGPUMatched("r-1", nil)
	manager.UpdateMatchedResultIfGPUMatched("r-1", &job.MatchedResult{ResourceID: "r-1"})

	_, ok = manager.GetMatchedResult("r-1")
	require.False(t, ok)

	matched := true
	want := &job.MatchedResult{ResourceID: "r-1", GPUMatched: &matched}
	manager.UpdateMatchedResultIfGPUMatched("r-1", want)

	got, ok := manager.GetMatchedResult("r-1")
	require.True(t, ok)
	require.Same(t, want, got)

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			id := "r-" + strconv.Itoa(i)
			manager.UpdateMatchedResultIfGPUMatched(id, &job.MatchedResult{ResourceID: id, GPUMatched: &matched})
			_, _ = manager.GetMatchedResult(id)
		}()
	}

	wg.Wait()

	got, ok = manager.GetMatchedResult("r-15")
	require.True(t, ok)
	require.Equal(t, "r-15", got.ResourceID)
}
