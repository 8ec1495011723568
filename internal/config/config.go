package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backend names.
const (
	BackendHTTP    = "http"
	BackendChrome  = "chrome"
	BackendStealth = "stealth"
)

// Traversal names.
const (
	TraversalBFS = "bfs"
	TraversalDFS = "dfs"
)

// Config is the configuration of a harvest.
type Config struct {
	Crawl    Crawl    `yaml:"crawl"`
	Fetch    Fetch    `yaml:"fetch"`
	Download Download `yaml:"download"`
	Storage  Storage  `yaml:"storage"`
	Keywords Keywords `yaml:"keywords"`
	LLM      LLM      `yaml:"llm"`
}

// Crawl configures the traversal.
type Crawl struct {
	MaxDepth     int           `yaml:"max_depth"`
	Workers      int           `yaml:"workers"`
	FanOut       int           `yaml:"fan_out"`
	HubThreshold int           `yaml:"hub_threshold"`
	Traversal    string        `yaml:"traversal"`
	PageTimeout  time.Duration `yaml:"page_timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	Denylist     []string      `yaml:"denylist"`
	// ScriptLinks also follows url literals found in inline scripts.
	ScriptLinks bool `yaml:"script_links"`
}

// Fetch configures the fetch backends.
type Fetch struct {
	// Backends are tried in order until one succeeds.
	Backends    []string      `yaml:"backends"`
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	MaxBodySize int64         `yaml:"max_body_size"`
	// RateLimit is the number of requests per second per host, 0 disables it.
	RateLimit   float64       `yaml:"rate_limit"`
	RateBurst   int           `yaml:"rate_burst"`
	Headless    bool          `yaml:"headless"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Download configures the downloader.
type Download struct {
	Timeout      time.Duration `yaml:"timeout"`
	MinSize      int64         `yaml:"min_size"`
	MaxRedirects int           `yaml:"max_redirects"`
	Concurrency  int           `yaml:"concurrency"`
}

// Storage configures where artifacts go.
type Storage struct {
	DataDir string `yaml:"data_dir"`
	// Catalog is the path of the sqlite catalog, empty disables it.
	Catalog string `yaml:"catalog"`
	// MetricsFile is the path of the prometheus text file written at the end, empty disables it.
	MetricsFile string `yaml:"metrics_file"`
}

// RawDir is where documents are downloaded to.
func (s Storage) RawDir() string {
	return filepath.Join(s.DataDir, "raw")
}

// OrganizedDir is where documents are filed by category.
func (s Storage) OrganizedDir() string {
	return filepath.Join(s.DataDir, "organized")
}

// Keywords overrides the built-in keyword sets. Empty sets keep the defaults.
type Keywords struct {
	Relevance      []string `yaml:"relevance"`
	ResultTerms    []string `yaml:"result_terms"`
	AcademicTerms  []string `yaml:"academic_terms"`
	Syllabus       []string `yaml:"syllabus"`
	QuestionPapers []string `yaml:"question_papers"`
}

// LLM configures the optional model backed categorizer.
type LLM struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Crawl: Crawl{
			MaxDepth:     3,
			Workers:      4,
			FanOut:       5,
			HubThreshold: 2,
			Traversal:    TraversalBFS,
			PageTimeout:  15 * time.Second,
			ProbeTimeout: 5 * time.Second,
		},
		Fetch: Fetch{
			Backends:    []string{BackendHTTP},
			Timeout:     30 * time.Second,
			MaxRetries:  2,
			RetryDelay:  time.Second,
			MaxBodySize: 100 << 20,
			RateLimit:   1,
			RateBurst:   1,
			Headless:    true,
			SettleDelay: 3 * time.Second,
		},
		Download: Download{
			Timeout:      30 * time.Second,
			MinSize:      1000,
			MaxRedirects: 5,
			Concurrency:  4,
		},
		Storage: Storage{
			DataDir: "data",
		},
		LLM: LLM{
			BaseURL: "http://localhost:11434",
			Model:   "gpt-oss:20b",
			Timeout: 30 * time.Second,
		},
	}
}

// ApplyEnv overrides the llm endpoint and model from the environment.
func (c *Config) ApplyEnv() {
	if v := firstEnv("DOCHARVEST_LLM_URL", "OLLAMA_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}

	if v := firstEnv("DOCHARVEST_LLM_MODEL", "OLLAMA_MODEL"); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv("DOCHARVEST_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}

	return ""
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Crawl.MaxDepth < 0:
		return ErrInvalidDepth
	case c.Crawl.Workers < 1:
		return ErrInvalidWorkers
	case c.Crawl.FanOut < 1:
		return ErrInvalidFanOut
	case c.Crawl.HubThreshold < 1:
		return ErrInvalidHubThreshold
	case c.Crawl.Traversal != TraversalBFS && c.Crawl.Traversal != TraversalDFS:
		return fmt.Errorf("%w: %q", ErrInvalidTraversal, c.Crawl.Traversal)
	case c.Crawl.PageTimeout <= 0, c.Crawl.ProbeTimeout <= 0, c.Fetch.Timeout <= 0, c.Download.Timeout <= 0:
		return ErrInvalidTimeout
	case c.Fetch.RateLimit < 0:
		return ErrInvalidRateLimit
	case c.Fetch.MaxRetries < 0:
		return ErrInvalidRetries
	case c.Download.Concurrency < 1:
		return ErrInvalidDownloadConcurrency
	case c.Download.MinSize < 0:
		return ErrInvalidMinSize
	case len(c.Fetch.Backends) == 0:
		return ErrNoBackend
	case strings.TrimSpace(c.Storage.DataDir) == "":
		return ErrMissingDataDir
	case c.LLM.Enabled && c.LLM.Model == "":
		return ErrMissingLLMModel
	}

	for _, b := range c.Fetch.Backends {
		switch b {
		case BackendHTTP, BackendChrome, BackendStealth:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownBackend, b)
		}
	}

	return nil
}
