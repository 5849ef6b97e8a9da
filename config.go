package photodedup

import (
	"net/http"
	"time"
)

// Default threshold, rate, and timeout constants.
const (
	DefaultDHashThresholdVery     = 5
	DefaultDHashThresholdPossible = 10
	DefaultPHashThresholdVery     = 6
	DefaultPHashThresholdPossible = 12

	DefaultCostPerDownload       = 2e-4
	DefaultCostPerByteHash       = 5e-5
	DefaultCostPerPerceptualHash = 8e-5
	DefaultCostPerComparison     = 1e-5

	defaultFetchHeaderTimeout = 10 * time.Second
)

// Config holds every dependency and tunable consumed by Scan. Zero values
// are filled in by defaults().
type Config struct {
	// Fetcher is the injectable byte-retrieval capability used by the
	// Download Manager. If nil, defaults() builds one from StealthClient
	// and HTTPClient.
	Fetcher Fetcher

	// AllowedDownloadHosts is the SSRF whitelist consumed by URL validation.
	AllowedDownloadHosts []string

	// FetchTimeout bounds each individual download (default: 10s).
	FetchTimeout time.Duration

	// FetchHeaders are sent with every download request.
	FetchHeaders map[string]string

	// StealthClient and HTTPClient are only used by the default Fetcher
	// built with NewHTTPFetcher; callers supplying their own Fetcher may
	// leave these nil.
	StealthClient *http.Client
	HTTPClient    *http.Client

	// Similarity thresholds (Hamming distance cutoffs).
	DHashThresholdVery     int
	DHashThresholdPossible int
	PHashThresholdVery     int
	PHashThresholdPossible int

	// Cost model rate constants.
	CostPerDownload       float64
	CostPerByteHash       float64
	CostPerPerceptualHash float64
	CostPerComparison     float64
}

func (c *Config) defaults() {
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchHeaderTimeout
	}
	if c.DHashThresholdVery <= 0 {
		c.DHashThresholdVery = DefaultDHashThresholdVery
	}
	if c.DHashThresholdPossible <= 0 {
		c.DHashThresholdPossible = DefaultDHashThresholdPossible
	}
	if c.PHashThresholdVery <= 0 {
		c.PHashThresholdVery = DefaultPHashThresholdVery
	}
	if c.PHashThresholdPossible <= 0 {
		c.PHashThresholdPossible = DefaultPHashThresholdPossible
	}
	if c.CostPerDownload <= 0 {
		c.CostPerDownload = DefaultCostPerDownload
	}
	if c.CostPerByteHash <= 0 {
		c.CostPerByteHash = DefaultCostPerByteHash
	}
	if c.CostPerPerceptualHash <= 0 {
		c.CostPerPerceptualHash = DefaultCostPerPerceptualHash
	}
	if c.CostPerComparison <= 0 {
		c.CostPerComparison = DefaultCostPerComparison
	}
	if c.Fetcher == nil {
		c.Fetcher = NewHTTPFetcher(c.StealthClient, c.HTTPClient)
	}
}
