package config

import "errors"

// Configuration validation errors returned by Config.Validate().
var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidDepth is returned when the maximum depth is negative.
	ErrInvalidDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidWorkers is returned when the number of workers is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidFanOut is returned when the fan-out is not positive.
	ErrInvalidFanOut = errors.New("invalid fan out: must be positive")

	// ErrInvalidHubThreshold is returned when the hub threshold is not positive.
	ErrInvalidHubThreshold = errors.New("invalid hub threshold: must be positive")

	// ErrInvalidTraversal is returned when the traversal is neither bfs nor dfs.
	ErrInvalidTraversal = errors.New("invalid traversal: must be bfs or dfs")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidRetries is returned when the number of retries is negative.
	ErrInvalidRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidDownloadConcurrency is returned when the download concurrency is not positive.
	ErrInvalidDownloadConcurrency = errors.New("invalid download concurrency: must be positive")

	// ErrInvalidMinSize is returned when the minimum document size is negative.
	ErrInvalidMinSize = errors.New("invalid min size: must be non-negative")

	// ErrNoBackend is returned when no fetch backend is configured.
	ErrNoBackend = errors.New("no fetch backend configured")

	// ErrUnknownBackend is returned for a backend other than http, chrome or stealth.
	ErrUnknownBackend = errors.New("unknown fetch backend: must be http, chrome or stealth")

	// ErrMissingDataDir is returned when the data directory is empty.
	ErrMissingDataDir = errors.New("missing data directory")

	// ErrMissingLLMModel is returned when the llm categorizer is enabled without a model.
	ErrMissingLLMModel = errors.New("llm enabled without model")
)
