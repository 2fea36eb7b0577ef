package telemetry

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
	"time"
)

// Fetcher defines the request/response side of the telemetry API.
// This interface is implemented by *Client and can be used for testing.
type Fetcher interface {
	FetchDevices(ctx context.Context) ([]Device, error)
	FetchLatest(ctx context.Context, deviceID string) (Reading, bool, error)
	FetchHistory(ctx context.Context, query HistoryQuery) ([]Reading, error)
	Simulate(ctx context.Context, req SimulateRequest) error
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// Client talks to the telemetry HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIBase   = "http://127.0.0.1:5000/api/v1"
	defaultUserAgent = "vane/0.1"
	requestTimeout   = 5 * time.Second

	// DefaultHistoryLimit is the history size requested when a query leaves Limit unset.
	DefaultHistoryLimit = 1000
)

// NewClient builds a Client rooted at apiBase, e.g. http://host:5000/api/v1.
// A zero timeout uses the default request timeout.
func NewClient(apiBase string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns a copy of the API root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// FetchDevices retrieves the device directory.
func (c *Client) FetchDevices(ctx context.Context) ([]Device, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload DeviceListResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("devices", nil), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Devices, nil
}

// FetchLatest retrieves the most recent reading for a device along with the
// backend's offline flag.
func (c *Client) FetchLatest(ctx context.Context, deviceID string) (Reading, bool, error) {
	if c == nil {
		return Reading{}, false, fmt.Errorf("client is nil")
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return Reading{}, false, fmt.Errorf("device id required")
	}
	values := url.Values{}
	values.Set("device_id", deviceID)
	var payload LatestResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("latest", values), nil, &payload); err != nil {
		return Reading{}, false, err
	}
	reading := payload.Reading()
	if reading.DeviceID == "" {
		reading.DeviceID = deviceID
	}
	return reading, payload.Offline, nil
}

// FetchHistory retrieves readings within a time window, oldest first.
func (c *Client) FetchHistory(ctx context.Context, query HistoryQuery) ([]Reading, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	deviceID := strings.TrimSpace(query.DeviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("device id required")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	values := url.Values{}
	values.Set("device_id", deviceID)
	if !query.From.IsZero() {
		values.Set("from", strconv.FormatInt(query.From.UnixMilli(), 10))
	}
	if !query.To.IsZero() {
		values.Set("to", strconv.FormatInt(query.To.UnixMilli(), 10))
	}
	values.Set("limit", strconv.Itoa(limit))
	if metric := strings.TrimSpace(query.Metric); metric != "" {
		values.Set("metric", metric)
	}
	var payload HistoryResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("history", values), nil, &payload); err != nil {
		return nil, err
	}
	for i := range payload.History {
		if payload.History[i].DeviceID == "" {
			payload.History[i].DeviceID = deviceID
		}
	}
	return payload.History, nil
}

// Simulate asks the backend to generate synthetic readings. Demo aid only.
func (c *Client) Simulate(ctx context.Context, req SimulateRequest) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		return fmt.Errorf("device id required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.endpoint("dev/simulate", nil), body, nil)
}

// endpoint resolves a path relative to the API root.
func (c *Client) endpoint(path string, values url.Values) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	if values != nil {
		u.RawQuery = values.Encode()
	}
	return &u
}

func (c *Client) do(ctx context.Context, method string, reqURL *url.URL, body []byte, dest any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return statusError(reqURL.Path, resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError builds an error for non-2xx responses, carrying the backend's
// {"error": "..."} message when one is present.
func statusError(path string, resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return fmt.Errorf("api %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(payload.Error))
	}
	return fmt.Errorf("api %s returned status %d", path, resp.StatusCode)
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		trimmed = defaultAPIBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_base %q: %w", apiBase, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_base %q: missing host", apiBase)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
