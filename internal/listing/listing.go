// Package listing implements the paginated client for the external
// job-listing provider.
package listing

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/ratelimit"
)

const (
	defaultBaseURL  = "https://indeed-scraper-api.p.rapidapi.com"
	defaultAPIHost  = "indeed-scraper-api.p.rapidapi.com"
	defaultJobPath  = "/api/job"
	defaultPageSize = 15

	// gateKey is the shared rate-gate key for all listing-provider calls.
	gateKey = "listing"

	maxAttempts  = 5
	maxPolls     = 10
	pollInterval = 3 * time.Second
)

// Client talks to the listing provider. It keeps no local state beyond its
// configuration; fetches are pure with respect to the process.
type Client struct {
	apiKey  string
	apiHost string
	logger  *zap.Logger
	gate    *ratelimit.Gate

	// backoffUnit scales retry delays; shrunk in tests.
	backoffUnit time.Duration

	HTTPClient *http.Client
	BaseURL    string
	JobPath    string
	PageSize   int
}

// New creates a listing client. The gate may be nil when throttling is
// handled elsewhere (tests).
func New(apiKey string, logger *zap.Logger, gate *ratelimit.Gate) *Client {
	return &Client{
		apiKey:      apiKey,
		apiHost:     defaultAPIHost,
		logger:      logger,
		gate:        gate,
		backoffUnit: time.Second,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		BaseURL:  defaultBaseURL,
		JobPath:  defaultJobPath,
		PageSize: defaultPageSize,
	}
}
