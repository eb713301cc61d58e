// Package client talks to the release backend's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cameronsjo/helmdeck/internal/model"
	"github.com/cameronsjo/helmdeck/internal/values"
)

// DefaultTimeout bounds each request unless overridden.
const DefaultTimeout = 30 * time.Second

// ErrNotFound is matched by errors for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrNotFound) true for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client is a backend API client. It is safe for concurrent use.
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	timeout     time.Duration
	logf        func(format string, args ...any)
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.bearerToken = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. A client passed to
// WithHTTPClient is copied rather than modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger reports each request and its outcome through logf.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(c *Client) { c.logf = logf }
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logf:       func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.httpClient.Timeout != c.timeout {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// ListReleases lists releases across namespaces.
func (c *Client) ListReleases(ctx context.Context, filter model.ReleaseFilter) ([]model.Release, error) {
	q := url.Values{}
	if filter.Namespace != "" {
		q.Set("namespace", filter.Namespace)
	}
	if filter.HasRegistry != nil {
		q.Set("hasRegistry", strconv.FormatBool(*filter.HasRegistry))
	}
	path := "/releases"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []model.Release
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	return out, nil
}

// GetRelease fetches one release.
func (c *Client) GetRelease(ctx context.Context, namespace, name string) (*model.Release, error) {
	var out model.Release
	if err := c.do(ctx, http.MethodGet, releasePath(namespace, name, ""), nil, &out); err != nil {
		return nil, fmt.Errorf("get release %s/%s: %w", namespace, name, err)
	}
	return &out, nil
}

// GetVersions lists chart versions the release can move to.
func (c *Client) GetVersions(ctx context.Context, namespace, name string) ([]model.ChartVersion, error) {
	var out []model.ChartVersion
	if err := c.do(ctx, http.MethodGet, releasePath(namespace, name, "versions"), nil, &out); err != nil {
		return nil, fmt.Errorf("get versions for %s/%s: %w", namespace, name, err)
	}
	return out, nil
}

// UpgradeRelease moves a release to req.ChartVersion.
func (c *Client) UpgradeRelease(ctx context.Context, namespace, name string, req model.VersionUpgradeRequest) (*model.Release, error) {
	if req.ChartVersion == "" {
		return nil, errors.New("upgrade release: chart version is required")
	}
	var out model.Release
	if err := c.do(ctx, http.MethodPut, releasePath(namespace, name, ""), req, &out); err != nil {
		return nil, fmt.Errorf("upgrade release %s/%s: %w", namespace, name, err)
	}
	return &out, nil
}

// GetHistory lists recent revisions of a release.
func (c *Client) GetHistory(ctx context.Context, namespace, name string) ([]model.ReleaseHistory, error) {
	var out []model.ReleaseHistory
	if err := c.do(ctx, http.MethodGet, releasePath(namespace, name, "history"), nil, &out); err != nil {
		return nil, fmt.Errorf("get history for %s/%s: %w", namespace, name, err)
	}
	return out, nil
}

// Rollback returns a release to revision.
func (c *Client) Rollback(ctx context.Context, namespace, name string, revision int) (*model.Release, error) {
	if revision <= 0 {
		return nil, errors.New("rollback: revision must be a positive integer")
	}
	var out model.Release
	req := model.RollbackRequest{Revision: revision}
	if err := c.do(ctx, http.MethodPost, releasePath(namespace, name, "rollback"), req, &out); err != nil {
		return nil, fmt.Errorf("rollback %s/%s: %w", namespace, name, err)
	}
	return &out, nil
}

// GetValues fetches the release's configuration document. Key order of
// the response is preserved.
func (c *Client) GetValues(ctx context.Context, namespace, name string) (*values.Mapping, error) {
	out := values.NewMapping()
	if err := c.do(ctx, http.MethodGet, releasePath(namespace, name, "values"), nil, out); err != nil {
		return nil, fmt.Errorf("get values for %s/%s: %w", namespace, name, err)
	}
	return out, nil
}

// UpdateValues replaces the release's configuration document and returns
// the redeployed release.
func (c *Client) UpdateValues(ctx context.Context, namespace, name string, doc *values.Mapping) (*model.Release, error) {
	if doc == nil {
		return nil, errors.New("update values: values are required")
	}
	var out model.Release
	req := model.ValuesUpdateRequest{Values: doc}
	if err := c.do(ctx, http.MethodPut, releasePath(namespace, name, "values"), req, &out); err != nil {
		return nil, fmt.Errorf("update values for %s/%s: %w", namespace, name, err)
	}
	return &out, nil
}

// GetRegistry returns the registry mapping of a release. A release without
// one yields an error matching ErrNotFound.
func (c *Client) GetRegistry(ctx context.Context, namespace, name string) (*model.RegistryMapping, error) {
	var out model.RegistryMapping
	if err := c.do(ctx, http.MethodGet, releasePath(namespace, name, "registry"), nil, &out); err != nil {
		return nil, fmt.Errorf("get registry for %s/%s: %w", namespace, name, err)
	}
	return &out, nil
}

// SetRegistry creates or replaces the registry mapping of a release.
func (c *Client) SetRegistry(ctx context.Context, namespace, name, registry string) (*model.RegistryMapping, error) {
	if registry == "" {
		return nil, errors.New("set registry: registry is required")
	}
	var out model.RegistryMapping
	req := model.SetRegistryRequest{Registry: registry}
	if err := c.do(ctx, http.MethodPut, releasePath(namespace, name, "registry"), req, &out); err != nil {
		return nil, fmt.Errorf("set registry for %s/%s: %w", namespace, name, err)
	}
	return &out, nil
}

// DeleteRegistry removes the registry mapping of a release.
func (c *Client) DeleteRegistry(ctx context.Context, namespace, name string) error {
	if err := c.do(ctx, http.MethodDelete, releasePath(namespace, name, "registry"), nil, nil); err != nil {
		return fmt.Errorf("delete registry for %s/%s: %w", namespace, name, err)
	}
	return nil
}

// ListRepositories lists configured chart repositories.
func (c *Client) ListRepositories(ctx context.Context) ([]model.Repository, error) {
	var out []model.Repository
	if err := c.do(ctx, http.MethodGet, "/repositories", nil, &out); err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return out, nil
}

// AddRepository registers a chart repository.
func (c *Client) AddRepository(ctx context.Context, req model.AddRepositoryRequest) error {
	if req.Name == "" || req.URL == "" {
		return errors.New("add repository: name and url are required")
	}
	if u, err := url.Parse(req.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("add repository: invalid url %q", req.URL)
	}
	if err := c.do(ctx, http.MethodPost, "/repositories", req, nil); err != nil {
		return fmt.Errorf("add repository %s: %w", req.Name, err)
	}
	return nil
}

// RemoveRepository unregisters a chart repository.
func (c *Client) RemoveRepository(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodDelete, "/repositories/"+url.PathEscape(name), nil, nil); err != nil {
		return fmt.Errorf("remove repository %s: %w", name, err)
	}
	return nil
}

// UpdateRepository refreshes a repository's index.
func (c *Client) UpdateRepository(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodPost, "/repositories/"+url.PathEscape(name)+"/update", nil, nil); err != nil {
		return fmt.Errorf("update repository %s: %w", name, err)
	}
	return nil
}

func releasePath(namespace, name, sub string) string {
	p := "/releases/" + url.PathEscape(namespace) + "/" + url.PathEscape(name)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

// do sends one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded 2xx response.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	c.logf("%s %s %d %s", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, requestID)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response, requestID string) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && (payload.Message != "" || payload.Error != "") {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
