// API service for the ezpbars job endpoints
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/ezpbars/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public API.
	DefaultBaseURL = "https://ezpbars.com"
	// JobPath creates example jobs and, suffixed with a uid, reports on them.
	JobPath = "/api/1/examples/job"
)

// APIService provides methods for the ezpbars HTTP API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ JobService = (*APIService)(nil)

// APIOption configures an [APIService].
type APIOption func(*APIService)

// WithAPIKey authenticates every request with key as a bearer token.
func WithAPIKey(key string) APIOption {
	return func(a *APIService) {
		if key == "" {
			return
		}
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key, TokenType: "Bearer"})
		base := a.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		a.httpClient = &http.Client{
			Transport: &oauth2.Transport{Source: src, Base: base},
			Timeout:   a.httpClient.Timeout,
		}
	}
}

// WithPollRate limits status reads to perSecond requests per second. Non-positive values disable the limit.
func WithPollRate(perSecond float64) APIOption {
	return func(a *APIService) {
		if perSecond <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewAPIService creates a new API service instance.
func NewAPIService(baseURL string, client *http.Client, opts ...APIOption) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
}

// Decode unmarshals the body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
		IsJSON:     json.Valid(raw),
	}, nil
}

// CreateJob starts an example job on the server.
func (a *APIService) CreateJob(ctx context.Context, duration, stdev float64) (*Job, error) {
	if duration <= 0 || stdev < 0 {
		return nil, fmt.Errorf("%w: duration must be positive and stdev non-negative", shared.ErrInvalidInput)
	}

	q := url.Values{}
	q.Set("duration", strconv.FormatFloat(duration, 'f', -1, 64))
	q.Set("stdev", strconv.FormatFloat(stdev, 'f', -1, 64))

	resp, err := a.Post(ctx, JobPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, statusError(resp)
	}

	var job Job
	if err := resp.Decode(&job); err != nil {
		return nil, err
	}
	if job.UID == "" || job.Sub == "" || job.PbarName == "" {
		return nil, fmt.Errorf("%w: job response missing trace identifiers", shared.ErrAPIRequest)
	}
	return &job, nil
}

// GetJob returns the job's status, waiting on the poll limiter first.
func (a *APIService) GetJob(ctx context.Context, uid string) (*JobResult, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := a.Get(ctx, JobPath+"/"+url.PathEscape(uid))
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, uid)
	default:
		return nil, statusError(resp)
	}

	var result JobResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func statusError(resp *APIResponse) error {
	msg := strings.TrimSpace(string(resp.Body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
}
