// Package api provides the REST client for the QuickMed delivery API.
// It attaches the session credential to outgoing requests, classifies
// failures into a small taxonomy, and leaves retry policy to callers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/quickmed/storefront/internal/logging"
	"github.com/quickmed/storefront/internal/metrics"
)

const (
	defaultTimeout      = 30 * time.Second
	maxErrorBodyBytes   = 64 << 10
	maxResponseBytes    = 8 << 20
	requestIDHeader     = "X-Request-ID"
	authorizationHeader = "Authorization"
)

// TokenSource supplies the current session credential. An empty string means
// no credential; the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// Config configures the API client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.quickmed.example.
	BaseURL string
	// HTTPClient is used to execute requests. When nil, a default client with
	// a conservative timeout is used.
	HTTPClient *http.Client
	// Tokens supplies the bearer credential. May be nil for anonymous use.
	Tokens TokenSource
	// OnUnauthorized is invoked once per 401 response so the session layer can
	// invalidate itself. May be nil.
	OnUnauthorized func()
	// RequestsPerSecond caps outgoing request rate when positive.
	RequestsPerSecond float64
	// Logger may be nil; a default is used.
	Logger *logging.Logger
}

// Client is a stateless request executor for the delivery API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func()
	limiter        *rate.Limiter
	log            *logging.Logger
}

// New creates an API client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api: BaseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("api: BaseURL must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api: BaseURL scheme must be http or https")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewDefault("api")
	}

	return &Client{
		baseURL:        baseURL,
		httpClient:     httpClient,
		tokens:         cfg.Tokens,
		onUnauthorized: cfg.OnUnauthorized,
		limiter:        limiter,
		log:            log,
	}, nil
}

// Get performs a GET request, decoding the JSON response into out when
// out is non-nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, "", out)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	reader, err := jsonBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, nil, reader, "application/json", out)
}

// PostForm performs a POST request with a form-encoded body. The login
// endpoint requires this encoding.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	body := strings.NewReader(form.Encode())
	return c.do(ctx, http.MethodPost, path, nil, body, "application/x-www-form-urlencoded", out)
}

// PostMultipart performs a POST request with a single file field.
func (c *Client) PostMultipart(ctx context.Context, path, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return &Error{Kind: KindNetwork, Detail: fmt.Sprintf("build multipart body: %v", err)}
	}
	if _, err := io.Copy(part, r); err != nil {
		return &Error{Kind: KindNetwork, Detail: fmt.Sprintf("read upload: %v", err)}
	}
	if err := w.Close(); err != nil {
		return &Error{Kind: KindNetwork, Detail: fmt.Sprintf("build multipart body: %v", err)}
	}
	return c.do(ctx, http.MethodPost, path, nil, &buf, w.FormDataContentType(), out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	reader, err := jsonBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, nil, reader, "application/json", out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, "", out)
}

func jsonBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("api: marshal request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Kind: KindNetwork, Detail: err.Error()}
		}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set(authorizationHeader, "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveNetworkError(method, path)
		c.log.Errorf(err, "%s %s failed", method, path)
		return &Error{Kind: KindNetwork, Detail: err.Error()}
	}
	defer resp.Body.Close()

	metrics.ObserveRequest(method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		return c.classify(method, path, resp)
	}

	if out == nil {
		_, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return &Error{Kind: KindNetwork, Detail: fmt.Sprintf("discard response body: %v", err)}
		}
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, Detail: fmt.Sprintf("read response body: %v", err)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s %s response: %w", method, path, err)
	}
	return nil
}

// classify maps an error response onto the failure taxonomy. The server's
// `detail` string is surfaced verbatim for 4xx responses; 5xx bodies are not
// trusted.
func (c *Client) classify(method, path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	detail := gjson.GetBytes(body, "detail").String()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.log.Warnf("%s %s: credential rejected", method, path)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		if detail == "" {
			detail = "authentication required"
		}
		return &Error{Kind: KindUnauthorized, Status: resp.StatusCode, Detail: detail}
	case resp.StatusCode >= 500:
		c.log.Warnf("%s %s: server fault (status %d)", method, path, resp.StatusCode)
		return &Error{Kind: KindServer, Status: resp.StatusCode, Detail: "server error"}
	default:
		if detail == "" {
			detail = fmt.Sprintf("request rejected (status %d)", resp.StatusCode)
		}
		return &Error{Kind: KindValidation, Status: resp.StatusCode, Detail: detail}
	}
}
