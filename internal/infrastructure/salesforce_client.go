package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/archivist-go/internal/domain"
)

// Common errors.
var (
	ErrNotFound     = errors.New("salesforce: resource not found")
	ErrUnauthorized = errors.New("salesforce: unauthorized")
	ErrForbidden    = errors.New("salesforce: access forbidden")
	ErrServerError  = errors.New("salesforce: server error")
)

const limitInfoHeader = "Sforce-Limit-Info"

// SalesforceOptions configures the REST client
type SalesforceOptions struct {
	InstanceURL string
	APIVersion  string
	AccessToken string

	// Timeout for individual requests. Zero means no timeout, which suits
	// long body downloads.
	Timeout time.Duration

	// RetryAttempts is the maximum number of retries for network and 5xx errors
	RetryAttempts int

	// RetryBackoff is the initial backoff duration, doubled per attempt
	RetryBackoff time.Duration

	// RetryMaxBackoff caps the backoff
	RetryMaxBackoff time.Duration
}

// SalesforceOptionsFromConfig maps configuration onto client options
func SalesforceOptionsFromConfig(cfg *domain.SalesforceConfig) SalesforceOptions {
	return SalesforceOptions{
		InstanceURL:     cfg.InstanceURL,
		APIVersion:      cfg.APIVersion,
		AccessToken:     cfg.AccessToken,
		Timeout:         cfg.Timeout,
		RetryAttempts:   cfg.MaxRetries,
		RetryBackoff:    cfg.RetryDelay,
		RetryMaxBackoff: 30 * time.Second,
	}
}

// SalesforceClient streams ContentVersion and Attachment bodies and reports
// API usage. It is safe for concurrent use.
type SalesforceClient struct {
	client  *http.Client
	opts    SalesforceOptions
	baseURL string
	logger  *zap.Logger

	mu    sync.RWMutex
	usage *domain.Usage
}

// NewSalesforceClient creates a new REST client
func NewSalesforceClient(opts SalesforceOptions, logger *zap.Logger) *SalesforceClient {
	if opts.APIVersion == "" {
		opts.APIVersion = domain.DefaultAPIVersion
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.RetryMaxBackoff <= 0 {
		opts.RetryMaxBackoff = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 32,
		MaxIdleConns:        64,
		IdleConnTimeout:     90 * time.Second,
	}

	return &SalesforceClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts:    opts,
		baseURL: strings.TrimRight(opts.InstanceURL, "/") + "/services/data/v" + strings.TrimPrefix(opts.APIVersion, "v"),
		logger:  logger,
	}
}

// FetchObject streams the binary body of a version or attachment
func (c *SalesforceClient) FetchObject(ctx context.Context, obj domain.DownloadableObject) (io.ReadCloser, error) {
	var endpoint string
	switch o := obj.(type) {
	case *domain.VersionedFile:
		endpoint = "/sobjects/ContentVersion/" + o.ID + "/VersionData"
	case *domain.Attachment:
		endpoint = "/sobjects/Attachment/" + o.ID + "/body"
	default:
		return nil, fmt.Errorf("unsupported object %T", obj)
	}

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			fetchErr.ObjectID = obj.ObjectID()
			return nil, fetchErr
		}
		return nil, &domain.FetchError{ObjectID: obj.ObjectID(), Err: err}
	}
	return resp.Body, nil
}

// GetUsage returns the daily API usage. Without refresh the snapshot from the
// last response header or /limits call is reused when one exists.
func (c *SalesforceClient) GetUsage(ctx context.Context, refresh bool) (domain.Usage, error) {
	if !refresh {
		c.mu.RLock()
		cached := c.usage
		c.mu.RUnlock()
		if cached != nil {
			return *cached, nil
		}
	}

	resp, err := c.get(ctx, "/limits")
	if err != nil {
		return domain.Usage{}, fmt.Errorf("get limits: %w", err)
	}
	defer resp.Body.Close()

	var limits struct {
		DailyAPIRequests struct {
			Max       int64 `json:"Max"`
			Remaining int64 `json:"Remaining"`
		} `json:"DailyApiRequests"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&limits); err != nil {
		return domain.Usage{}, fmt.Errorf("decode limits: %w", err)
	}

	usage := domain.Usage{
		Used:  limits.DailyAPIRequests.Max - limits.DailyAPIRequests.Remaining,
		Total: limits.DailyAPIRequests.Max,
	}
	c.setUsage(usage)
	return usage, nil
}

func (c *SalesforceClient) setUsage(u domain.Usage) {
	c.mu.Lock()
	c.usage = &u
	c.mu.Unlock()
}

// get performs a GET with retries on network and 5xx errors. The caller owns
// the response body.
func (c *SalesforceClient) get(ctx context.Context, endpoint string) (*http.Response, error) {
	var lastErr error
	lastStatus := 0

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			c.logger.Debug("Retrying request",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if c.opts.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.AccessToken)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if u, ok := parseLimitInfo(resp.Header.Get(limitInfoHeader)); ok {
			c.setUsage(u)
		}

		// Server errors are retryable
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastStatus = resp.StatusCode
			lastErr = fmt.Errorf("%w: %s", ErrServerError, resp.Status)
			continue
		}

		if err := checkStatusCode(resp.StatusCode); err != nil {
			resp.Body.Close()
			return nil, &domain.FetchError{StatusCode: resp.StatusCode, Err: err}
		}
		return resp, nil
	}

	return nil, &domain.FetchError{
		StatusCode: lastStatus,
		Err:        fmt.Errorf("request failed after %d attempts: %w", c.opts.RetryAttempts+1, lastErr),
	}
}

func (c *SalesforceClient) backoff(ctx context.Context, attempt int) error {
	backoff := c.opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > c.opts.RetryMaxBackoff {
		backoff = c.opts.RetryMaxBackoff
	}

	// Add jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}

// parseLimitInfo reads "api-usage=25/15000" out of a Sforce-Limit-Info header
func parseLimitInfo(header string) (domain.Usage, bool) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key != "api-usage" {
			continue
		}
		usedStr, totalStr, ok := strings.Cut(value, "/")
		if !ok {
			return domain.Usage{}, false
		}
		used, err1 := strconv.ParseInt(usedStr, 10, 64)
		total, err2 := strconv.ParseInt(totalStr, 10, 64)
		if err1 != nil || err2 != nil {
			return domain.Usage{}, false
		}
		return domain.Usage{Used: used, Total: total}, true
	}
	return domain.Usage{}, false
}
