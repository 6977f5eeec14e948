package job

// ModelUploadResult describes the model and endpoint written into serving_args.
type ModelUploadResult struct {
	ModelName       string
	ModelID         string
	ModelVersion    string
	ModelStorageURL string
	EndpointName    string
	EndpointID      string
}

// MatchedResult remembers a resource matching answer between launches in one process.
type MatchedResult struct {
	// ResourceID identifies the matched resource request.
	ResourceID string
	// GPUMatched is nil when the platform did not report GPU matching.
	GPUMatched *bool
	// Details carries the remaining response fields verbatim.
	Details map[string]any
}
