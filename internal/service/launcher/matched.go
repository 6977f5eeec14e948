package launcher

import "github.com/oshokin/mlops-launch/internal/domain/job"

// GetMatchedResult returns the stored matching result for resourceID.
func (m *Manager) GetMatchedResult(resourceID string) (*job.MatchedResult, bool) {
	if resourceID == "" {
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.matched[resourceID]

	return result, ok
}

// UpdateMatchedResultIfGPUMatched stores result only when the platform reported GPU matching.
func (m *Manager) UpdateMatchedResultIfGPUMatched(resourceID string, result *job.MatchedResult) {
	if resourceID == "" || result == nil || result.GPUMatched == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.matched[resourceID] = result
}
